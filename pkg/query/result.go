package query

import "time"

// Result describes one located experiment artifact.
type Result interface {
	Category() Category
	Dir() string
}

// LogResult points at a directory containing a progress.csv metric log.
type LogResult struct {
	Dirname string `json:"dirname"`
}

// ArchiveResult holds a deserialized state blob. The record owns State.
type ArchiveResult struct {
	Dirname  string `json:"dirname"`
	Location string `json:"location"`
	State    Blob   `json:"-"`
}

// HyperParamResult holds the flat hyperparameter mapping of one run.
type HyperParamResult struct {
	Dirname string         `json:"dirname"`
	Params  map[string]any `json:"params"`
}

// CheckpointResult lists the checkpoint files of one run.
type CheckpointResult struct {
	Dirname     string   `json:"dirname"`
	Checkpoints []string `json:"checkpoints"`
}

// MiscResult aggregates every file sharing one key. Locations and ModTimes
// are parallel slices.
type MiscResult struct {
	Dirname   string      `json:"dirname"`
	Locations []string    `json:"locations"`
	ModTimes  []time.Time `json:"mod_times"`
}

// Compile-time interface checks.
var (
	_ Result = (*LogResult)(nil)
	_ Result = (*ArchiveResult)(nil)
	_ Result = (*HyperParamResult)(nil)
	_ Result = (*CheckpointResult)(nil)
	_ Result = (*MiscResult)(nil)
)

func (r *LogResult) Category() Category        { return CategoryLog }
func (r *LogResult) Dir() string               { return r.Dirname }
func (r *ArchiveResult) Category() Category    { return CategoryArchive }
func (r *ArchiveResult) Dir() string           { return r.Dirname }
func (r *HyperParamResult) Category() Category { return CategoryHyperParam }
func (r *HyperParamResult) Dir() string        { return r.Dirname }
func (r *CheckpointResult) Category() Category { return CategoryCheckpoint }
func (r *CheckpointResult) Dir() string        { return r.Dirname }
func (r *MiscResult) Category() Category       { return CategoryMisc }
func (r *MiscResult) Dir() string              { return r.Dirname }
