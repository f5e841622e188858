// Package toc builds a linked table of contents at the top of a document.
//
// A generation pass reads the document's paragraphs, extracts headings from
// their style names, bookmarks each heading, and prepends a title paragraph
// followed by one indented, linked entry per heading. The document itself is
// reached only through the Document interface, so the same pass drives the
// docx package editor or any other host that can queue and commit edits.
package toc

import "context"

// Location is an opaque handle to a paragraph in a host document
type Location string

// Paragraph is a read-only snapshot of one body paragraph
type Paragraph struct {
	Text     string
	Style    string   // display style name, e.g. "Heading 2"
	Location Location // handle for later edits
	Links    []string // names of bookmarks this paragraph links to
}

// LinkMode controls how AttachLink places the hyperlink in a paragraph
type LinkMode int

const (
	// LinkReplace turns the paragraph text into the link
	LinkReplace LinkMode = iota
	// LinkEnd appends the link after the existing text
	LinkEnd
)

// String returns the configuration name of the mode
func (m LinkMode) String() string {
	switch m {
	case LinkReplace:
		return "replace"
	case LinkEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Document is the host document a pass edits.
//
// Mutating calls are queued and become observable only after Commit. A
// queued call returns an error when it can already tell the operation is
// invalid (unknown location, duplicate bookmark name); such errors leave the
// rest of the queue intact. Commit applies the whole queue or nothing.
type Document interface {
	// Paragraphs returns the committed body paragraphs in document order
	Paragraphs(ctx context.Context) ([]Paragraph, error)

	// InsertParagraphAtStart queues a new paragraph before the first body
	// paragraph and returns its handle
	InsertParagraphAtStart(text string) (Location, error)

	SetParagraphStyle(loc Location, styleName string) error
	SetParagraphIndent(loc Location, levelUnits int) error

	// CreateAnchor queues a bookmark named name at the target paragraph.
	// It returns ErrAnchorExists when the name is already taken.
	CreateAnchor(target Location, name string) error
	DeleteAnchor(name string) error

	AttachLink(loc Location, displayText, anchorName string, mode LinkMode) error

	// RemoveParagraph queues removal of a paragraph
	RemoveParagraph(loc Location) error

	// Commit applies every queued operation as one batch
	Commit(ctx context.Context) error
}

// AfterInserter is implemented by hosts that can place a paragraph directly
// after another one. Renderers use it to write entries in reading order.
type AfterInserter interface {
	InsertParagraphAfter(after Location, text string) (Location, error)
}
