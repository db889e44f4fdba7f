package models

import (
	"io"
	"time"
)

// StoredFile describes one object currently present in the bucket.
type StoredFile struct {
	Name         string
	Size         int64
	URL          string
	IsImage      bool
	LastModified time.Time
}

// FileContent is an object body being downloaded. The caller must close Body.
type FileContent struct {
	Name        string
	Body        io.ReadCloser
	Size        int64
	ContentType string
}
