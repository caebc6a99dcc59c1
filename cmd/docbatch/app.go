package docbatch

import (
	"fmt"

	"github.com/liliang-cn/docbatch/internal/batch"
	"github.com/liliang-cn/docbatch/internal/classify"
	"github.com/liliang-cn/docbatch/internal/config"
	"github.com/liliang-cn/docbatch/internal/convert"
	"github.com/liliang-cn/docbatch/internal/dedup"
	"github.com/liliang-cn/docbatch/internal/storage"
	"github.com/liliang-cn/docbatch/internal/task"
	"github.com/liliang-cn/docbatch/internal/textpipe"
)

// app bundles the wired service graph shared by the serve and submit
// commands. Everything is injected; nothing here is a package-level
// singleton.
type app struct {
	layout       storage.Layout
	store        dedup.Store
	transcoder   *convert.Transcoder
	classifier   *classify.Classifier
	cleaner      *storage.Cleaner
	orchestrator *batch.Orchestrator
}

func buildApp(cfg *config.Config) (*app, error) {
	layout := storage.NewLayout(cfg.Storage.Dir)
	if err := layout.EnsureBaseDirs(); err != nil {
		return nil, err
	}

	store := dedup.New(cfg.Redis)
	transcoder := convert.New(cfg.Batch, layout.TempDir())
	classifier := classify.New(transcoder)

	pipeline, err := textpipe.New(store, textpipe.Options{
		MinParagraphLen:          cfg.Pipeline.MinParagraphLen,
		SimhashDistanceThreshold: cfg.Pipeline.SimhashDistanceThreshold,
		EnableNearDuplicate:      cfg.Pipeline.EnableNearDuplicate,
		EnableCrossDocDedup:      cfg.Pipeline.EnableCrossDocDedup,
		CustomNoisePatterns:      cfg.Pipeline.CustomNoisePatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("build text pipeline: %w", err)
	}

	orchestrator := batch.New(cfg.Batch, layout, store, classifier, transcoder, pipeline, task.NewRegistry())

	return &app{
		layout:       layout,
		store:        store,
		transcoder:   transcoder,
		classifier:   classifier,
		cleaner:      storage.NewCleaner(layout),
		orchestrator: orchestrator,
	}, nil
}
