package model

import (
	"path/filepath"
	"strings"
	"time"
)

// FileRecord describes a file encountered during a scan.
type FileRecord struct {
	ModTime         time.Time `json:"mod_time"`
	Path            string    `json:"path"`
	Extension       string    `json:"extension"`
	Snippet         string    `json:"snippet,omitempty"`
	Size            int64     `json:"size"`
	ContentReadable bool      `json:"content_readable"`
}

// Name returns the base name of the file.
func (f FileRecord) Name() string {
	return filepath.Base(f.Path)
}

// ExtensionOf returns the lower-cased extension of path without the leading dot.
func ExtensionOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// FileStatus tracks where an indexed file currently lives.
type FileStatus string

// File status constants.
const (
	FileActive  FileStatus = "ACTIVE"
	FileMoved   FileStatus = "MOVED"
	FileStaged  FileStatus = "STAGED"
	FileMissing FileStatus = "MISSING"
)

// IndexedFile is a file record as persisted in the index, with the latest decision.
type IndexedFile struct {
	IndexedAt time.Time
	Category  string
	Action    Action
	RuleName  string
	Status    FileStatus
	FileRecord
}
