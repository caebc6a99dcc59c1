package web

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/liliang-cn/docbatch/internal/domain"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"dedup_store": s.orchestrator.Store().Stats(c.Request.Context()),
	})
}

// handleUpload accepts a multipart batch under the "files" field. Field
// order is preserved: the raw-byte dedup keeps the earliest occurrence.
func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form: " + err.Error()})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}

	files := make([]domain.FileInput, 0, len(headers))
	for _, header := range headers {
		src, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read " + header.Filename})
			return
		}
		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read " + header.Filename})
			return
		}
		files = append(files, domain.FileInput{
			RelativePath: header.Filename,
			Content:      content,
			ContentType:  header.Header.Get("Content-Type"),
		})
	}

	taskID, err := s.orchestrator.Submit(c.Request.Context(), files)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrEmptyBatch) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": taskID,
		"total":   len(files),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	snap, err := s.orchestrator.Status(c.Param("task_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleDownload(c *gin.Context) {
	path, err := s.orchestrator.Download(c.Param("task_id"), c.Param("category"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCategory):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrTaskNotFound), errors.Is(err, domain.ErrArchiveNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// handleAnalyze classifies a single uploaded file without starting a
// batch. The upload lands in the single-file area, which the cleaner
// reclaims by age.
func (s *Server) handleAnalyze(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	dst := filepath.Join(s.layout.SingleDir(),
		time.Now().Format("20060102")+"_"+strings.ReplaceAll(uuid.NewString(), "-", "")[:12]+ext)
	if err := c.SaveUploadedFile(header, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot store upload: " + err.Error()})
		return
	}

	verdict, err := s.classifier.Classify(c.Request.Context(), dst)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file_name": header.Filename,
		"text_only": verdict.TextOnly,
		"reason":    verdict.Reason,
	})
}

func (s *Server) handleStorageInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.cleaner.UsageInfo())
}

func (s *Server) handleStorageClean(c *gin.Context) {
	days := s.keepDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days parameter"})
			return
		}
		days = parsed
	}

	batchResult := s.cleaner.CleanOldBatchTasks(days)
	singleResult := s.cleaner.CleanOldSingleFiles(days)
	c.JSON(http.StatusOK, gin.H{
		"days":   days,
		"batch":  batchResult,
		"single": singleResult,
	})
}
