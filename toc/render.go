package toc

import (
	"fmt"
	"log/slog"
	"strings"
)

// Block is a rendered table of contents
type Block struct {
	Title   string  `json:"title" yaml:"title"`
	Entries []Entry `json:"entries" yaml:"entries"`

	// Paragraphs holds the handles of the title and entries, top to bottom
	Paragraphs []Location `json:"-" yaml:"-"`
}

// FindExistingBlock returns how many leading paragraphs form a previously
// generated block, or 0 when the document does not start with one.
//
// The block starts with a paragraph reading title (case-insensitive) and
// continues over the following non-heading paragraphs that are entries.
// An entry either links to a bookmark carrying anchorPrefix, or has no links
// and reads the text of the next heading not yet accounted for. Entries
// follow the headings in order, so once every heading has an entry an
// unlinked paragraph belongs to the document, even when its text repeats a
// heading.
func FindExistingBlock(paragraphs []Paragraph, title, anchorPrefix string) int {
	if len(paragraphs) == 0 || NormalizeText(title) == "" {
		return 0
	}
	if !strings.EqualFold(NormalizeText(paragraphs[0].Text), NormalizeText(title)) {
		return 0
	}

	headings := extractHeadingsFrom(paragraphs, 1)
	next := 0

	n := 1
	for _, p := range paragraphs[1:] {
		if _, isHeading := ClassifyStyle(p.Style); isHeading {
			break
		}
		switch {
		case linksWithPrefix(p.Links, anchorPrefix):
			if next < len(headings) {
				next++
			}
		case len(p.Links) == 0 && next < len(headings) && NormalizeText(p.Text) == headings[next].Text:
			next++
		default:
			return n
		}
		n++
	}
	return n
}

// StaleAnchors lists the generated bookmarks an old block links to
func StaleAnchors(block []Paragraph, anchorPrefix string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range block {
		for _, link := range p.Links {
			if anchorPrefix != "" && strings.HasPrefix(link, anchorPrefix) && !seen[link] {
				seen[link] = true
				names = append(names, link)
			}
		}
	}
	return names
}

func linksWithPrefix(links []string, prefix string) bool {
	if prefix == "" {
		return false
	}
	for _, link := range links {
		if strings.HasPrefix(link, prefix) {
			return true
		}
	}
	return false
}

// Renderer queues the edits that replace the table of contents
type Renderer struct {
	doc    Document
	opts   *Options
	logger *slog.Logger
}

// NewRenderer creates a renderer writing to doc
func NewRenderer(doc Document, opts *Options, logger *slog.Logger) *Renderer {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{doc: doc, opts: opts, logger: logger}
}

// Clear queues removal of every paragraph of an old block
func (r *Renderer) Clear(block []Paragraph) error {
	for _, p := range block {
		if err := r.doc.RemoveParagraph(p.Location); err != nil {
			return fmt.Errorf("removing old entry %q: %w", p.Text, err)
		}
	}
	return nil
}

// Render queues the title and entries at the start of the document.
// Style, indent and link failures degrade single entries and are returned
// as warnings; a failed insertion is returned as the error.
func (r *Renderer) Render(entries []Entry) (*Block, []error, error) {
	if ai, ok := r.doc.(AfterInserter); ok {
		return r.renderForward(ai, entries)
	}
	return r.renderPrepend(entries)
}

// renderPrepend works with the prepend primitive only. Every insertion lands
// above the previous one, so entries go in last to first and the title goes
// in last.
func (r *Renderer) renderPrepend(entries []Entry) (*Block, []error, error) {
	var warnings []error
	locs := make([]Location, len(entries))

	for i := len(entries) - 1; i >= 0; i-- {
		loc, err := r.doc.InsertParagraphAtStart(entries[i].Text)
		if err != nil {
			return nil, warnings, fmt.Errorf("inserting entry %q: %w", entries[i].Text, err)
		}
		locs[i] = loc
		warnings = append(warnings, r.decorate(loc, entries[i])...)
	}

	titleLoc, err := r.insertTitle()
	if err != nil {
		return nil, warnings, err
	}
	warnings = append(warnings, r.styleTitle(titleLoc)...)

	return r.block(titleLoc, locs, entries), warnings, nil
}

// renderForward writes in reading order, each entry after the previous one
func (r *Renderer) renderForward(ai AfterInserter, entries []Entry) (*Block, []error, error) {
	titleLoc, err := r.insertTitle()
	if err != nil {
		return nil, nil, err
	}
	warnings := r.styleTitle(titleLoc)

	locs := make([]Location, len(entries))
	prev := titleLoc
	for i, e := range entries {
		loc, err := ai.InsertParagraphAfter(prev, e.Text)
		if err != nil {
			return nil, warnings, fmt.Errorf("inserting entry %q: %w", e.Text, err)
		}
		locs[i] = loc
		warnings = append(warnings, r.decorate(loc, e)...)
		prev = loc
	}

	return r.block(titleLoc, locs, entries), warnings, nil
}

func (r *Renderer) insertTitle() (Location, error) {
	loc, err := r.doc.InsertParagraphAtStart(r.opts.Title)
	if err != nil {
		return "", fmt.Errorf("inserting title: %w", err)
	}
	return loc, nil
}

func (r *Renderer) styleTitle(loc Location) []error {
	if err := r.doc.SetParagraphStyle(loc, r.opts.TitleStyle); err != nil {
		r.logger.Warn("title style not applied", "style", r.opts.TitleStyle, "error", err)
		return []error{fmt.Errorf("styling title: %w", err)}
	}
	return nil
}

// decorate styles, indents and links one entry paragraph
func (r *Renderer) decorate(loc Location, e Entry) []error {
	var warnings []error

	if err := r.doc.SetParagraphStyle(loc, r.opts.EntryStyle); err != nil {
		r.logger.Warn("entry style not applied", "entry", e.Text, "error", err)
		warnings = append(warnings, fmt.Errorf("styling entry %q: %w", e.Text, err))
	}
	if err := r.doc.SetParagraphIndent(loc, e.Level); err != nil {
		r.logger.Warn("entry indent not applied", "entry", e.Text, "error", err)
		warnings = append(warnings, fmt.Errorf("indenting entry %q: %w", e.Text, err))
	}
	if e.AnchorID == "" {
		return warnings
	}
	if err := r.doc.AttachLink(loc, e.Text, e.AnchorID, r.opts.LinkMode); err != nil {
		r.logger.Warn("entry link not attached", "entry", e.Text, "anchor", e.AnchorID, "error", err)
		warnings = append(warnings, fmt.Errorf("linking entry %q: %w", e.Text, err))
	}
	return warnings
}

func (r *Renderer) block(titleLoc Location, locs []Location, entries []Entry) *Block {
	paragraphs := make([]Location, 0, len(locs)+1)
	paragraphs = append(paragraphs, titleLoc)
	paragraphs = append(paragraphs, locs...)
	return &Block{
		Title:      r.opts.Title,
		Entries:    entries,
		Paragraphs: paragraphs,
	}
}
