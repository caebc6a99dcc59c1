// Package docbatch is the command-line surface of the batch document
// normalisation service.
package docbatch

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/docbatch/internal/config"
	"github.com/liliang-cn/docbatch/pkg/log"
)

var (
	cfgFile string
	cfg     *config.Config
	version = "dev"
)

var RootCmd = &cobra.Command{
	Use:   "docbatch",
	Short: "Batch office-document ingestion and text normalisation",
	Long: `docbatch ingests office documents in batches, classifies each as
text-only or rich-media, cleans and deduplicates the text-only subset into
canonical .docx artifacts, and packages the results into per-category
archives.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		log.SetLevelFromString(cfg.LogLevel)
		return nil
	},
}

func Execute() error {
	return RootCmd.Execute()
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
	RootCmd.Version = v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("docbatch version %s\n", version)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file path (default: ./docbatch.toml)")

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(submitCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(analyzeCmd)
	RootCmd.AddCommand(cleanCmd)
	RootCmd.AddCommand(resetCmd)
}
