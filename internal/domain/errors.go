package domain

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrTranscodeFailed   = errors.New("transcode failed")
	ErrTaskNotFound      = errors.New("task not found")
	ErrArchiveNotFound   = errors.New("archive not found")
	ErrInvalidCategory   = errors.New("invalid download category")
	ErrEmptyBatch        = errors.New("empty batch")
)
