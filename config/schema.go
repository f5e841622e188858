package config

import (
	"time"

	"github.com/tenebris-tech/doctoc/docx"
	"github.com/tenebris-tech/doctoc/docx2toc"
	"github.com/tenebris-tech/doctoc/toc"
)

// Config holds docx2toc configuration.
// Stored at: ./config.yaml or ~/.docx2toc/config.yaml
type Config struct {
	Title          string        `mapstructure:"title" yaml:"title" json:"title"`
	TitleStyle     string        `mapstructure:"title_style" yaml:"title_style" json:"title_style"`
	EntryStyle     string        `mapstructure:"entry_style" yaml:"entry_style" json:"entry_style"`
	IndentPoints   float64       `mapstructure:"indent_points" yaml:"indent_points" json:"indent_points"` // per TOC level
	LinkMode       string        `mapstructure:"link_mode" yaml:"link_mode" json:"link_mode"`             // "replace" or "end"
	AnchorPrefix   string        `mapstructure:"anchor_prefix" yaml:"anchor_prefix" json:"anchor_prefix"`
	CleanupAnchors bool          `mapstructure:"cleanup_anchors" yaml:"cleanup_anchors" json:"cleanup_anchors"`
	HostTimeout    time.Duration `mapstructure:"host_timeout" yaml:"host_timeout" json:"host_timeout"`
	CommitAttempts int           `mapstructure:"commit_attempts" yaml:"commit_attempts" json:"commit_attempts"`
	OutputSuffix   string        `mapstructure:"output_suffix" yaml:"output_suffix" json:"output_suffix"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Title:          toc.DefaultTitle,
		TitleStyle:     toc.DefaultTitleStyle,
		EntryStyle:     toc.DefaultEntryStyle,
		IndentPoints:   docx.DefaultIndentPoints,
		LinkMode:       toc.LinkReplace.String(),
		AnchorPrefix:   toc.DefaultAnchorPrefix,
		CleanupAnchors: false,
		HostTimeout:    toc.DefaultHostTimeout,
		CommitAttempts: toc.DefaultCommitAttempts,
		OutputSuffix:   docx2toc.DefaultOutputSuffix,
	}
}
