package toc

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Defaults
const (
	DefaultTitle          = "Table of Contents"
	DefaultTitleStyle     = "Heading 1"
	DefaultEntryStyle     = "Normal"
	DefaultAnchorPrefix   = "_Toc"
	DefaultHostTimeout    = 30 * time.Second
	DefaultCommitAttempts = 3
	DefaultRetryDelay     = 200 * time.Millisecond
)

// Options holds configuration for the generator
type Options struct {
	// Title is the text of the TOC title paragraph. A first paragraph with
	// this text marks a previously generated block.
	Title string

	// TitleStyle is the style applied to the title paragraph
	TitleStyle string

	// EntryStyle is the style applied to entries. It must not be a heading
	// style or entries would be picked up as headings on the next pass.
	EntryStyle string

	// LinkMode controls how entries are linked to their headings
	LinkMode LinkMode

	// AnchorPrefix starts every generated bookmark name
	AnchorPrefix string

	// CleanupAnchors deletes the generated bookmarks after rendering.
	// Entries then keep their link markup but no longer resolve.
	CleanupAnchors bool

	// HostTimeout bounds each blocking host call
	HostTimeout time.Duration

	// CommitAttempts is how many times a timed out commit is tried
	CommitAttempts uint

	// RetryDelay is the pause between commit attempts
	RetryDelay time.Duration

	Logger *slog.Logger

	// OnStage is called on every state transition of a pass
	OnStage func(stage Stage)
}

// Validate checks the options a pass depends on. An empty title would
// make the block impossible to find again, and a heading entry style
// would turn every entry into a heading.
func (o *Options) Validate() error {
	if NormalizeText(o.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidOptions)
	}
	if strings.TrimSpace(o.EntryStyle) == "" {
		return fmt.Errorf("%w: empty entry style", ErrInvalidOptions)
	}
	if _, isHeading := ClassifyStyle(o.EntryStyle); isHeading {
		return fmt.Errorf("%w: entry style %q is a heading style", ErrInvalidOptions, o.EntryStyle)
	}
	return nil
}

// Option is a functional option for configuring the generator
type Option func(*Options)

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		Title:          DefaultTitle,
		TitleStyle:     DefaultTitleStyle,
		EntryStyle:     DefaultEntryStyle,
		LinkMode:       LinkReplace,
		AnchorPrefix:   DefaultAnchorPrefix,
		HostTimeout:    DefaultHostTimeout,
		CommitAttempts: DefaultCommitAttempts,
		RetryDelay:     DefaultRetryDelay,
	}
}

// WithTitle sets the title text
func WithTitle(title string) Option {
	return func(o *Options) {
		o.Title = title
	}
}

// WithTitleStyle sets the title paragraph style
func WithTitleStyle(style string) Option {
	return func(o *Options) {
		o.TitleStyle = style
	}
}

// WithEntryStyle sets the entry paragraph style
func WithEntryStyle(style string) Option {
	return func(o *Options) {
		o.EntryStyle = style
	}
}

// WithLinkMode sets how entries are linked
func WithLinkMode(mode LinkMode) Option {
	return func(o *Options) {
		o.LinkMode = mode
	}
}

// WithAnchorPrefix sets the bookmark name prefix
func WithAnchorPrefix(prefix string) Option {
	return func(o *Options) {
		o.AnchorPrefix = prefix
	}
}

// WithCleanupAnchors sets whether bookmarks are removed after rendering
func WithCleanupAnchors(cleanup bool) Option {
	return func(o *Options) {
		o.CleanupAnchors = cleanup
	}
}

// WithHostTimeout bounds each blocking host call
func WithHostTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.HostTimeout = d
	}
}

// WithCommitAttempts sets how often a timed out commit is tried
func WithCommitAttempts(n uint) Option {
	return func(o *Options) {
		o.CommitAttempts = n
	}
}

// WithRetryDelay sets the pause between commit attempts
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) {
		o.RetryDelay = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithOnStage sets the callback for state transitions
func WithOnStage(callback func(stage Stage)) Option {
	return func(o *Options) {
		o.OnStage = callback
	}
}

// ParseLinkMode parses "replace" or "end"
func ParseLinkMode(s string) (LinkMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return LinkReplace, nil
	case "end":
		return LinkEnd, nil
	default:
		return LinkReplace, fmt.Errorf("unknown link mode %q (supported: replace, end)", s)
	}
}
