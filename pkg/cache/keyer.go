package cache

import "strings"

// Keyer generates cache keys for pipeline stages.
type Keyer interface {
	// TableKey identifies an extracted library table.
	TableKey(inputHash string, opts TableKeyOpts) string
	// ArtifactKey identifies a rendered artifact of a layout.
	ArtifactKey(layoutVersion string, opts ArtifactKeyOpts) string
}

// TableKeyOpts are the extraction options that change a table.
type TableKeyOpts struct {
	Library   string `json:"library"`
	DSBPos    int    `json:"dsb_pos"`
	Width     int    `json:"width"`
	Normalize bool   `json:"normalize"`
}

// ArtifactKeyOpts are the render options that change an artifact.
type ArtifactKeyOpts struct {
	Format     string   `json:"format"`
	Experiment string   `json:"experiment,omitempty"`
	GraphHash  string   `json:"graph_hash"`
	Labels     []string `json:"labels,omitempty"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// TableKey returns "table:<hash>".
func (DefaultKeyer) TableKey(inputHash string, opts TableKeyOpts) string {
	return hashKey("table", inputHash, opts)
}

// ArtifactKey returns "artifact:<format>:<hash>".
func (DefaultKeyer) ArtifactKey(layoutVersion string, opts ArtifactKeyOpts) string {
	return hashKey("artifact:"+strings.ToLower(opts.Format), layoutVersion, opts)
}

var _ Keyer = DefaultKeyer{}
