package docbatch

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/docbatch/internal/dedup"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the global dedup store",
	Long: `Remove every recorded document fingerprint, paragraph fingerprint and
paragraph simhash. Previously ingested content will no longer be
detected as duplicate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := dedup.New(cfg.Redis)
		ctx := context.Background()

		stats := store.Stats(ctx)
		fmt.Printf("dedup store (%s): %d documents, %d paragraphs, %d simhashes\n",
			stats.Backend, stats.DocCount, stats.ParaCount, stats.SimhashCount)

		if !resetForce {
			fmt.Print("clear all fingerprints? [y/N]: ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("aborted")
				return nil
			}
		}

		if err := store.ClearAll(ctx); err != nil {
			return fmt.Errorf("failed to clear dedup store: %w", err)
		}
		fmt.Println("dedup store cleared")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip the confirmation prompt")
}
