package docbatch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/docbatch/internal/domain"
)

var statusServer string

var statusCmd = &cobra.Command{
	Use:   "status <task_id>",
	Short: "Print the snapshot of a task on a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID := args[0]

		base := statusServer
		if base == "" {
			base = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
		}

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(fmt.Sprintf("%s/api/v1/batch/status/%s", base, taskID))
		if err != nil {
			return fmt.Errorf("cannot reach server at %s: %w", base, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %s", resp.Status)
		}

		var snap domain.TaskSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return fmt.Errorf("malformed status payload: %w", err)
		}

		printSummary(snap)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "", "server base URL (default: from config)")
}
