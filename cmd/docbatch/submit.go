package docbatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/docbatch/internal/domain"
)

var submitWait bool

var submitCmd = &cobra.Command{
	Use:   "submit <path>...",
	Short: "Submit files or directories as one batch",
	Long: `Collect the given files (directories are walked recursively), submit
them as a single batch, and print the result summary. Relative paths
inside a directory argument are preserved into the task layout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := buildApp(cfg)
		if err != nil {
			return err
		}

		files, err := collectInputs(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return domain.ErrEmptyBatch
		}

		taskID, err := application.orchestrator.Submit(context.Background(), files)
		if err != nil {
			return err
		}
		fmt.Printf("task %s submitted (%d files)\n", taskID, len(files))

		if !submitWait {
			return nil
		}

		snap, err := awaitCompletion(application, taskID)
		if err != nil {
			return err
		}
		printSummary(snap)
		return nil
	},
}

func init() {
	submitCmd.Flags().BoolVar(&submitWait, "wait", true, "wait for the batch to finish and print the summary")
}

// collectInputs reads every argument into memory, walking directories.
// For a directory argument, paths are recorded relative to it; plain
// file arguments keep their base name.
func collectInputs(args []string) ([]domain.FileInput, error) {
	var files []domain.FileInput

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}

		if !info.IsDir() {
			content, err := os.ReadFile(arg)
			if err != nil {
				return nil, fmt.Errorf("cannot read %s: %w", arg, err)
			}
			files = append(files, domain.FileInput{RelativePath: filepath.Base(arg), Content: content})
			continue
		}

		root := arg
		err = filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
			if err != nil || fi.IsDir() {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			files = append(files, domain.FileInput{RelativePath: filepath.ToSlash(rel), Content: content})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("cannot walk %s: %w", root, err)
		}
	}
	return files, nil
}

func awaitCompletion(application *app, taskID string) (domain.TaskSnapshot, error) {
	for {
		snap, err := application.orchestrator.Status(taskID)
		if err != nil {
			return domain.TaskSnapshot{}, err
		}
		if snap.Status != domain.StatusProcessing {
			return snap, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func printSummary(snap domain.TaskSnapshot) {
	p := snap.Progress
	fmt.Printf("task %s: %s\n", snap.TaskID, snap.Status)
	fmt.Printf("  total:         %d\n", p.Total)
	fmt.Printf("  pure text:     %d (unique %d)\n", p.PureTextCount, p.UniquePureCount)
	fmt.Printf("  rich media:    %d (unique %d)\n", p.RichMediaCount, p.UniqueRichCount)
	fmt.Printf("  duplicates:    %d\n", p.DuplicateCount)
	fmt.Printf("  failed:        %d\n", p.FailedCount)
	fmt.Printf("  temp files:    %d\n", p.TempFileCount)

	d := snap.DedupStats
	fmt.Printf("  dedup: %d doc, %d para exact, %d para near, %d noise removed\n",
		d.DocDuplicates, d.ParaExactDupTotal, d.ParaNearDupTotal, d.NoiseRemovedTotal)

	for category, path := range snap.Downloads {
		fmt.Printf("  archive %-22s %s\n", string(category)+":", path)
	}
}
