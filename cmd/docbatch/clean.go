package docbatch

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/docbatch/internal/storage"
)

var cleanDays int

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Reclaim task directories and transient files by age",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := buildApp(cfg)
		if err != nil {
			return err
		}

		days := cleanDays
		if days < 0 {
			days = cfg.Storage.CleanKeepDays
		}

		batchResult := application.cleaner.CleanOldBatchTasks(days)
		singleResult := application.cleaner.CleanOldSingleFiles(days)
		tempResult := application.cleaner.CleanTempFiles(time.Hour)

		fmt.Printf("batch tasks:  %d removed, %s freed, %d errors\n",
			batchResult.Deleted, storage.FormatBytes(batchResult.BytesFreed), batchResult.Errors)
		fmt.Printf("single files: %d removed, %s freed, %d errors\n",
			singleResult.Deleted, storage.FormatBytes(singleResult.BytesFreed), singleResult.Errors)
		fmt.Printf("temp files:   %d removed, %s freed, %d errors\n",
			tempResult.Deleted, storage.FormatBytes(tempResult.BytesFreed), tempResult.Errors)
		return nil
	},
}

func init() {
	cleanCmd.Flags().IntVar(&cleanDays, "days", -1, "retention in days (default: clean_keep_days from config)")
}
