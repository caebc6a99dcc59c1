// Package convert turns supported inputs into their canonical modern
// office formats. Conversions go through LibreOffice when a headless
// binary is discovered, otherwise through native Go implementations for
// the pairs the pipeline needs. Every output lands in the process temp
// directory under a random name; the caller moves it into place.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/liliang-cn/docbatch/internal/config"
	"github.com/liliang-cn/docbatch/internal/domain"
	"github.com/liliang-cn/docbatch/pkg/log"
)

// Engine names a conversion backend.
type Engine string

const (
	// EngineAuto prefers LibreOffice when present and falls back to the
	// native implementation per pair.
	EngineAuto        Engine = "auto"
	EngineLibreOffice Engine = "libreoffice"
	EngineNative      Engine = "native"
)

// Transcoder converts one file into a target extension. Outputs are
// written to the temp directory; conversion failures never panic and
// are returned wrapped around domain.ErrTranscodeFailed, while an
// unknown target extension reports domain.ErrUnsupportedFormat.
type Transcoder struct {
	engine      Engine
	libreoffice string
	tempDir     string
	timeout     time.Duration
	logger      *slog.Logger
}

// New builds a transcoder from the batch configuration. When the engine
// is auto the LibreOffice binary is discovered once, at construction.
func New(cfg config.BatchConfig, tempDir string) *Transcoder {
	t := &Transcoder{
		engine:  EngineAuto,
		tempDir: tempDir,
		timeout: cfg.ConversionTimeout,
		logger:  log.WithModule("convert"),
	}
	if t.timeout <= 0 {
		t.timeout = 60 * time.Second
	}

	t.libreoffice = discoverLibreOffice(cfg.LibreOfficePath, cfg.LibreOfficeDefaultPaths)
	if t.libreoffice != "" {
		t.logger.Info("libreoffice converter detected", "path", t.libreoffice)
	} else {
		t.logger.Info("libreoffice not found, using native conversion engines")
	}
	return t
}

// WithEngine forces a specific backend. Used by tests and by operators
// who want to pin behaviour.
func (t *Transcoder) WithEngine(engine Engine) *Transcoder {
	t.engine = engine
	return t
}

// HasLibreOffice reports whether an external converter was discovered.
func (t *Transcoder) HasLibreOffice() bool { return t.libreoffice != "" }

// Convert produces a file with the target extension in the temp
// directory and returns its path. targetExt must be one of ".docx",
// ".xlsx", ".pptx".
func (t *Transcoder) Convert(ctx context.Context, inputPath, targetExt string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("%w: input missing: %v", domain.ErrTranscodeFailed, err)
	}
	if _, ok := libreOfficeFilters[targetExt]; !ok {
		return "", fmt.Errorf("%w: no conversion to %q", domain.ErrUnsupportedFormat, targetExt)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	switch t.engine {
	case EngineLibreOffice:
		return t.convertWithLibreOffice(ctx, inputPath, targetExt)
	case EngineNative:
		return t.convertNative(ctx, inputPath, targetExt)
	default:
		if t.libreoffice != "" {
			out, err := t.convertWithLibreOffice(ctx, inputPath, targetExt)
			if err == nil {
				return out, nil
			}
			t.logger.Warn("libreoffice conversion failed, trying native engine",
				"input", inputPath, "target", targetExt, "error", err)
		}
		return t.convertNative(ctx, inputPath, targetExt)
	}
}
