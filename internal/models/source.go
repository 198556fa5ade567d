package models

import "time"

// Source records an imported file so unchanged files are skipped on re-import.
type Source struct {
	Path       string    `json:"path" db:"path"`
	ModTime    int64     `json:"modTime" db:"mod_time"`
	Size       int64     `json:"size" db:"size"`
	ImportedAt time.Time `json:"importedAt" db:"imported_at"`
}
