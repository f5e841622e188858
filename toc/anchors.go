package toc

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// MaxAnchorNameLength is the longest bookmark name Word accepts
const MaxAnchorNameLength = 40

// maxPrefixLength leaves room for the pass ID and heading index
const maxPrefixLength = 20

// collisionRetries is how many alternative names are tried per heading
const collisionRetries = 3

// Anchor is a named bookmark bound to a heading paragraph
type Anchor struct {
	ID     string
	Target Location
}

// AnchorManager creates the bookmarks one pass links to and removes them
// again when asked. Names combine a random pass ID with the heading's
// source index, so they never repeat across passes.
type AnchorManager struct {
	doc     Document
	prefix  string
	passID  string
	created []Anchor
	logger  *slog.Logger
}

// NewAnchorManager creates a manager for a single pass
func NewAnchorManager(doc Document, prefix string, logger *slog.Logger) *AnchorManager {
	if logger == nil {
		logger = slog.Default()
	}
	if len(prefix) > maxPrefixLength {
		prefix = prefix[:maxPrefixLength]
	}
	return &AnchorManager{
		doc:    doc,
		prefix: prefix,
		passID: strings.ReplaceAll(uuid.New().String(), "-", "")[:8],
		logger: logger,
	}
}

// Prefix returns the prefix shared by all generated names
func (m *AnchorManager) Prefix() string {
	return m.prefix
}

// PassID returns the random part shared by all names of this pass
func (m *AnchorManager) PassID() string {
	return m.passID
}

// Name returns the bookmark name for a heading. Attempt 0 is the plain
// name, later attempts add a counter after a collision.
func (m *AnchorManager) Name(sourceIndex, attempt int) string {
	name := fmt.Sprintf("%s%s_%d", m.prefix, m.passID, sourceIndex)
	if attempt > 0 {
		name = fmt.Sprintf("%s_%d", name, attempt)
	}
	return name
}

// Create queues a bookmark for one heading
func (m *AnchorManager) Create(h Heading) (Anchor, error) {
	var lastErr error
	for attempt := 0; attempt <= collisionRetries; attempt++ {
		name := m.Name(h.SourceIndex, attempt)
		err := m.doc.CreateAnchor(h.Location, name)
		if err == nil {
			a := Anchor{ID: name, Target: h.Location}
			m.created = append(m.created, a)
			return a, nil
		}
		lastErr = err
		if !errors.Is(err, ErrAnchorExists) {
			break
		}
	}
	return Anchor{}, fmt.Errorf("creating anchor for heading %d %q: %w", h.SourceIndex, h.Text, lastErr)
}

// CreateAll queues a bookmark per heading. A failing heading is skipped and
// reported; it never stops the others.
func (m *AnchorManager) CreateAll(headings []Heading) (map[int]Anchor, []error) {
	anchors := make(map[int]Anchor, len(headings))
	var errs []error
	for _, h := range headings {
		a, err := m.Create(h)
		if err != nil {
			m.logger.Warn("anchor not created", "heading", h.Text, "index", h.SourceIndex, "error", err)
			errs = append(errs, err)
			continue
		}
		anchors[h.SourceIndex] = a
	}
	return anchors, errs
}

// Created returns the anchors created so far
func (m *AnchorManager) Created() []Anchor {
	return m.created
}

// Cleanup queues deletion of every anchor this manager created. Each
// deletion is independent; failures are returned and the rest proceed.
func (m *AnchorManager) Cleanup() []error {
	var errs []error
	for _, a := range m.created {
		if err := m.doc.DeleteAnchor(a.ID); err != nil {
			m.logger.Warn("anchor not deleted", "anchor", a.ID, "error", err)
			errs = append(errs, fmt.Errorf("deleting anchor %s: %w", a.ID, err))
		}
	}
	m.created = nil
	return errs
}

// DeleteStale queues deletion of bookmarks left by an earlier pass
func (m *AnchorManager) DeleteStale(names []string) []error {
	var errs []error
	for _, name := range names {
		err := m.doc.DeleteAnchor(name)
		if errors.Is(err, ErrNotFound) {
			// removed by an earlier cleanup
			m.logger.Debug("stale anchor already gone", "anchor", name)
			continue
		}
		if err != nil {
			m.logger.Warn("stale anchor not deleted", "anchor", name, "error", err)
			errs = append(errs, fmt.Errorf("deleting stale anchor %s: %w", name, err))
		}
	}
	return errs
}
