package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liliang-cn/docbatch/internal/domain"
)

// libreOfficeFilters maps target extensions to the soffice export
// filter for the modern zipped format.
var libreOfficeFilters = map[string]string{
	".docx": "MS Word 2007 XML",
	".xlsx": "Calc MS Excel 2007 XML",
	".pptx": "Impress MS PowerPoint 2007 XML",
}

// discoverLibreOffice resolves the soffice binary: the configured path
// first, then the platform default list, then $PATH.
func discoverLibreOffice(configured string, defaults []string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}
	for _, candidate := range defaults {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if path, err := exec.LookPath("soffice"); err == nil {
		return path
	}
	return ""
}

// convertWithLibreOffice runs the headless converter. The input is
// first copied under a random ASCII stem: soffice names its output
// after the input stem, and non-ASCII stems are mishandled by some
// builds. If the output still lands under a different name, the newest
// matching file in the output directory is claimed and renamed.
func (t *Transcoder) convertWithLibreOffice(ctx context.Context, inputPath, targetExt string) (string, error) {
	stem := "temp_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	workInput := filepath.Join(t.tempDir, stem+strings.ToLower(filepath.Ext(inputPath)))
	if err := copyFile(inputPath, workInput); err != nil {
		return "", fmt.Errorf("%w: stage input: %v", domain.ErrTranscodeFailed, err)
	}
	defer os.Remove(workInput)

	filter := libreOfficeFilters[targetExt]
	started := time.Now()
	cmd := exec.CommandContext(ctx, t.libreoffice,
		"--headless", "--nologo", "--nolockcheck",
		"--convert-to", strings.TrimPrefix(targetExt, ".")+":"+filter,
		"--outdir", t.tempDir,
		workInput,
	)

	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w: libreoffice timed out after %s", domain.ErrTranscodeFailed, t.timeout)
	}
	if err != nil {
		return "", fmt.Errorf("%w: libreoffice: %v: %s", domain.ErrTranscodeFailed, err, strings.TrimSpace(string(output)))
	}

	expected := filepath.Join(t.tempDir, stem+targetExt)
	if _, err := os.Stat(expected); err == nil {
		return expected, nil
	}

	// Some builds echo the original stem despite the staged copy.
	if stray := t.newestOutput(targetExt, started); stray != "" {
		if err := os.Rename(stray, expected); err == nil {
			t.logger.Debug("claimed stray libreoffice output", "from", stray, "to", expected)
			return expected, nil
		}
	}
	return "", fmt.Errorf("%w: libreoffice produced no output for %s", domain.ErrTranscodeFailed, inputPath)
}

// newestOutput finds the most recent file with the target extension
// written to the temp directory since the conversion started.
func (t *Transcoder) newestOutput(targetExt string, since time.Time) string {
	entries, err := os.ReadDir(t.tempDir)
	if err != nil {
		return ""
	}

	var (
		newest     string
		newestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), targetExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().Before(since) {
			continue
		}
		if info.ModTime().After(newestTime) {
			newest = filepath.Join(t.tempDir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	return newest
}

func copyFile(src, dst string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, content, 0o644)
}
