package catalog

import "time"

// Entry is one located experiment record of a task and category.
type Entry struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	Task     string `gorm:"not null;uniqueIndex:idx_entries_task_cat_key;index" json:"task"`
	Category string `gorm:"not null;uniqueIndex:idx_entries_task_cat_key" json:"category"`
	// RunKey is the run timestamp key. Records without one use their file
	// location (misc, archive) or their directory.
	RunKey  string `gorm:"not null;uniqueIndex:idx_entries_task_cat_key" json:"run_key"`
	Keyed   bool   `json:"keyed"`
	Dirname string `gorm:"type:text" json:"dirname"`

	// ParamsJSON holds the hyperparameters of hyperparameter records.
	ParamsJSON  string `gorm:"type:text" json:"params,omitempty"`
	Checkpoints int    `json:"checkpoints,omitempty"`
	Files       int    `json:"files,omitempty"`

	LastModified *time.Time `json:"last_modified,omitempty"`
	IndexedAt    time.Time  `json:"indexed_at"`
}
