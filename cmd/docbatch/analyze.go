package docbatch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Classify a single file as text-only or rich-media",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := buildApp(cfg)
		if err != nil {
			return err
		}

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		verdict, err := application.classifier.Classify(context.Background(), path)
		if err != nil {
			return fmt.Errorf("cannot classify %s: %w", path, err)
		}

		kind := "rich-media"
		if verdict.TextOnly {
			kind = "text-only"
		}
		fmt.Printf("%s: %s (%s)\n", filepath.Base(path), kind, verdict.Reason)
		return nil
	},
}
