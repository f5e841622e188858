// Package docx reads and edits WordprocessingML (.docx) packages.
//
// Document exposes the body paragraphs of word/document.xml to the toc
// package, including those inside tables and content controls. Edits are byte splices on the original XML, so everything the
// editor does not touch is written back unchanged.
package docx

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/tenebris-tech/doctoc/toc"
)

// DefaultIndentPoints is the indentation of one TOC level
const DefaultIndentPoints = 36.0

// Options holds configuration for an opened document
type Options struct {
	// IndentPoints is the left indent applied per indent unit
	IndentPoints float64
}

// Option is a functional option for opening documents
type Option func(*Options)

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		IndentPoints: DefaultIndentPoints,
	}
}

// WithIndentPoints sets the indent per level in points
func WithIndentPoints(points float64) Option {
	return func(o *Options) {
		o.IndentPoints = points
	}
}

// node is a slice of the body markup: either an addressable paragraph or
// the markup between two of them. Concatenated, the nodes reproduce the
// body exactly.
type node struct {
	id        int
	raw       []byte
	paragraph bool
	nested    bool // inside a table or content control
}

// containers are the block-level elements whose paragraphs are listed
var containers = map[string]bool{
	"tbl":        true,
	"tr":         true,
	"tc":         true,
	"sdt":        true,
	"sdtContent": true,
	"customXml":  true,
}

// addressable reports whether a paragraph below the given element path
// (relative to w:body) is part of the document flow
func addressable(path []string) bool {
	for _, name := range path {
		if !containers[name] {
			return false
		}
	}
	return true
}

// body is the committed state of w:body
type body struct {
	nodes     []node
	bookmarks map[string]bool
}

func (b *body) clone() *body {
	c := &body{
		nodes:     make([]node, len(b.nodes)),
		bookmarks: make(map[string]bool, len(b.bookmarks)),
	}
	copy(c.nodes, b.nodes)
	for name := range b.bookmarks {
		c.bookmarks[name] = true
	}
	return c
}

func (b *body) index(id int) int {
	for i := range b.nodes {
		if b.nodes[i].id == id {
			return i
		}
	}
	return -1
}

func (b *body) insert(at int, n node) {
	b.nodes = append(b.nodes, node{})
	copy(b.nodes[at+1:], b.nodes[at:])
	b.nodes[at] = n
}

// operation is one queued edit
type operation struct {
	name  string
	apply func(b *body) error
}

// Document is an editable .docx package. It implements toc.Document and
// toc.AfterInserter.
type Document struct {
	mu      sync.Mutex
	options *Options
	pkg     *Package
	styles  *Styles

	ns     string // prefix bound to the WordprocessingML namespace
	prefix []byte // document.xml up to the first body child
	suffix []byte // document.xml from the end of the last body child

	body    *body
	changed bool

	pending      []operation
	pendingNodes map[int]bool
	pendingNames map[string]bool // bookmark names created (true) or deleted (false) by the queue
	nextID       int
	nextBookmark int
}

var (
	_ toc.Document      = (*Document)(nil)
	_ toc.AfterInserter = (*Document)(nil)
)

// Open parses DOCX data into an editable document
func Open(data []byte, opts ...Option) (*Document, error) {
	pkg, err := OpenPackage(data)
	if err != nil {
		return nil, fmt.Errorf("parsing DOCX: %w", err)
	}
	return newDocument(pkg, opts...)
}

func newDocument(pkg *Package, opts ...Option) (*Document, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	docXML, err := pkg.Part(PartDocument)
	if err != nil {
		return nil, err
	}

	d := &Document{
		options: options,
		pkg:     pkg,
		styles:  pkg.Styles(),
	}
	if err := d.load(docXML); err != nil {
		return nil, fmt.Errorf("reading document body: %w", err)
	}
	d.resetPending()
	return d, nil
}

// OpenFile opens a .docx file
func OpenFile(path string, opts ...Option) (*Document, error) {
	pkg, err := OpenPackageFile(path)
	if err != nil {
		return nil, err
	}
	return newDocument(pkg, opts...)
}

// load splits document.xml into prefix, body nodes and suffix
func (d *Document) load(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity

	b := &body{bookmarks: make(map[string]bool)}
	depth := 0
	bodyDepth := -1
	bodyStart, bodyEnd := -1, -1

	var path []string // element names below w:body
	markStart := 0    // start of the markup not yet assigned to a node
	paraStart, paraLevel := -1, 0

	flush := func(end int) {
		if end > markStart {
			d.nextID++
			b.nodes = append(b.nodes, node{id: d.nextID, raw: data[markStart:end]})
		}
		markStart = end
	}

	for {
		before := int(decoder.InputOffset())
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		after := int(decoder.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			name := localName(t.Name.Local)
			if bodyDepth < 0 && bodyEnd < 0 && name == "body" {
				bodyDepth = depth
				bodyStart = after
				markStart = after
				d.ns = qualifiedPrefix(data[before:after])
				continue
			}
			if bodyDepth > 0 {
				if paraStart < 0 && name == "p" && addressable(path) {
					flush(before)
					paraStart, paraLevel = before, len(path)
				}
				path = append(path, name)
			}

		case xml.EndElement:
			name := localName(t.Name.Local)
			switch {
			case bodyDepth > 0 && depth == bodyDepth && name == "body":
				flush(before)
				bodyEnd = before
				bodyDepth = -1
			case bodyDepth > 0 && len(path) > 0:
				path = path[:len(path)-1]
				if paraStart >= 0 && len(path) == paraLevel {
					d.nextID++
					b.nodes = append(b.nodes, node{
						id:        d.nextID,
						raw:       data[paraStart:after],
						paragraph: true,
						nested:    paraLevel > 0,
					})
					markStart = after
					paraStart = -1
				}
			}
			depth--
		}
	}

	if bodyStart < 0 || bodyEnd < 0 {
		return errors.New("missing w:body")
	}

	if bodyStart == bodyEnd {
		// <w:body/>: reopen it so paragraphs can be inserted
		tag := bytes.TrimSuffix(bytes.TrimSpace(data[:bodyStart]), []byte("/>"))
		d.prefix = append(append([]byte(nil), tag...), '>')
		w := newXMLWriter(d.ns)
		w.close("body")
		d.suffix = append(w.bytes(), data[bodyEnd:]...)
	} else {
		d.prefix = data[:bodyStart]
		d.suffix = data[bodyEnd:]
	}

	for name := range collectBookmarkNames(data) {
		b.bookmarks[name] = true
	}
	d.nextBookmark = maxBookmarkID(data) + 1
	d.body = b
	return nil
}

func collectBookmarkNames(raw []byte) map[string]bool {
	names := make(map[string]bool)
	for _, bm := range findBookmarks(raw) {
		if bm.name != "" {
			names[bm.name] = true
		}
	}
	return names
}

// qualifiedPrefix returns the namespace prefix of a start tag ("w" for
// "<w:body>")
func qualifiedPrefix(tag []byte) string {
	tag = bytes.TrimPrefix(bytes.TrimSpace(tag), []byte("<"))
	end := bytes.IndexAny(tag, " \t\r\n/>")
	if end >= 0 {
		tag = tag[:end]
	}
	if idx := bytes.IndexByte(tag, ':'); idx != -1 {
		return string(tag[:idx])
	}
	return ""
}

// Styles returns the package's style definitions
func (d *Document) Styles() *Styles {
	return d.styles
}

// Changed reports whether any batch has been committed
func (d *Document) Changed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.changed
}

// Paragraphs returns the committed body paragraphs in document order.
// Paragraphs in table cells and content controls are listed where they
// appear; text boxes and notes are not part of the flow.
func (d *Document) Paragraphs(ctx context.Context) ([]toc.Paragraph, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	defaultStyle := d.styles.DefaultParagraphStyle()
	var paragraphs []toc.Paragraph
	for _, n := range d.body.nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !n.paragraph {
			continue
		}
		info, err := scanParagraph(n.raw)
		if err != nil {
			return nil, fmt.Errorf("paragraph %s: %w", location(n.id), err)
		}
		style := defaultStyle
		if info.styleID != "" {
			style = d.styles.DisplayName(info.styleID)
		}
		paragraphs = append(paragraphs, toc.Paragraph{
			Text:     info.text,
			Style:    style,
			Location: location(n.id),
			Links:    info.links,
		})
	}
	return paragraphs, nil
}

// InsertParagraphAtStart queues a paragraph before the first body child,
// outside any table
func (d *Document) InsertParagraphAtStart(text string) (toc.Location, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.newNodeID()
	raw := newParagraphXML(d.ns, text)
	d.queue("insert at start", func(b *body) error {
		b.insert(0, node{id: id, raw: raw, paragraph: true})
		return nil
	})
	return location(id), nil
}

// InsertParagraphAfter queues a paragraph directly after another one
func (d *Document) InsertParagraphAfter(after toc.Location, text string) (toc.Location, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	afterID, err := d.known(after)
	if err != nil {
		return "", err
	}
	id := d.newNodeID()
	raw := newParagraphXML(d.ns, text)
	d.queue("insert after "+string(after), func(b *body) error {
		i := b.index(afterID)
		if i < 0 {
			return fmt.Errorf("paragraph %s: %w", after, toc.ErrNotFound)
		}
		b.insert(i+1, node{id: id, raw: raw, paragraph: true, nested: b.nodes[i].nested})
		return nil
	})
	return location(id), nil
}

// SetParagraphStyle queues a style change. The name is resolved through
// styles.xml, so both "Heading 1" and "Heading1" work.
func (d *Document) SetParagraphStyle(loc toc.Location, styleName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.known(loc)
	if err != nil {
		return err
	}
	if strings.TrimSpace(styleName) == "" {
		return errors.New("empty style name")
	}
	styleID := d.styles.StyleID(styleName)
	d.queue("style "+string(loc), d.editParagraph(id, func(raw []byte) ([]byte, error) {
		return setStyle(raw, d.ns, styleID)
	}))
	return nil
}

// SetParagraphIndent queues a left indent of levelUnits indent units
func (d *Document) SetParagraphIndent(loc toc.Location, levelUnits int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.known(loc)
	if err != nil {
		return err
	}
	if levelUnits < 0 {
		return fmt.Errorf("negative indent %d", levelUnits)
	}
	twips := int(float64(levelUnits)*d.options.IndentPoints*20 + 0.5)
	d.queue("indent "+string(loc), d.editParagraph(id, func(raw []byte) ([]byte, error) {
		return setIndent(raw, d.ns, twips)
	}))
	return nil
}

// CreateAnchor queues a bookmark at the start of the target paragraph
func (d *Document) CreateAnchor(target toc.Location, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.known(target)
	if err != nil {
		return err
	}
	if err := validateBookmarkName(name); err != nil {
		return err
	}
	if d.bookmarkExists(name) {
		return fmt.Errorf("bookmark %q: %w", name, toc.ErrAnchorExists)
	}

	bookmarkID := d.nextBookmark
	d.nextBookmark++
	d.pendingNames[name] = true

	edit := d.editParagraph(id, func(raw []byte) ([]byte, error) {
		return insertBookmark(raw, d.ns, bookmarkID, name)
	})
	d.queue("bookmark "+name, func(b *body) error {
		if err := edit(b); err != nil {
			return err
		}
		b.bookmarks[name] = true
		return nil
	})
	return nil
}

// DeleteAnchor queues removal of a bookmark and its end marker
func (d *Document) DeleteAnchor(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.bookmarkExists(name) {
		return fmt.Errorf("bookmark %q: %w", name, toc.ErrNotFound)
	}
	d.pendingNames[name] = false

	d.queue("delete bookmark "+name, func(b *body) error {
		return deleteBookmark(b, name)
	})
	return nil
}

func deleteBookmark(b *body, name string) error {
	var id string
	found := false
	for i := range b.nodes {
		raw, bmID, ok := removeBookmarkStart(b.nodes[i].raw, name)
		if ok {
			b.nodes[i].raw = raw
			id = bmID
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("bookmark %q: %w", name, toc.ErrNotFound)
	}
	for i := range b.nodes {
		if raw, ok := removeBookmarkEnd(b.nodes[i].raw, id); ok {
			b.nodes[i].raw = raw
			break
		}
	}
	delete(b.bookmarks, name)
	return nil
}

// AttachLink queues an internal hyperlink to a bookmark
func (d *Document) AttachLink(loc toc.Location, displayText, anchorName string, mode toc.LinkMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.known(loc)
	if err != nil {
		return err
	}
	if !d.bookmarkExists(anchorName) {
		return fmt.Errorf("bookmark %q: %w", anchorName, toc.ErrNotFound)
	}
	var replace bool
	switch mode {
	case toc.LinkReplace:
		replace = true
	case toc.LinkEnd:
		replace = false
	default:
		return fmt.Errorf("unsupported link mode %d", mode)
	}

	charStyle := ""
	if d.styles.HasStyle(StyleIDHyperlink) {
		charStyle = StyleIDHyperlink
	}
	d.queue("link "+string(loc), d.editParagraph(id, func(raw []byte) ([]byte, error) {
		return attachLink(raw, d.ns, displayText, anchorName, charStyle, replace)
	}))
	return nil
}

// RemoveParagraph queues removal of a paragraph
func (d *Document) RemoveParagraph(loc toc.Location) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.known(loc)
	if err != nil {
		return err
	}
	if i := d.body.index(id); i >= 0 && d.body.nodes[i].nested {
		// a table cell must keep at least one paragraph
		return fmt.Errorf("paragraph %s is inside a table or content control", loc)
	}
	delete(d.pendingNodes, id)
	d.queue("remove "+string(loc), func(b *body) error {
		i := b.index(id)
		if i < 0 {
			return fmt.Errorf("paragraph %s: %w", loc, toc.ErrNotFound)
		}
		b.nodes = append(b.nodes[:i:i], b.nodes[i+1:]...)
		return nil
	})
	return nil
}

// Commit applies the queued operations. A cancelled context leaves the
// queue in place so the commit can be retried; a failing operation
// discards the whole batch and leaves the document as it was.
func (d *Document) Commit(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(d.pending) == 0 {
		return nil
	}

	next := d.body.clone()
	for _, op := range d.pending {
		if err := op.apply(next); err != nil {
			d.resetPending()
			return fmt.Errorf("applying %s: %w", op.name, err)
		}
	}

	d.body = next
	d.changed = true
	d.resetPending()
	return nil
}

// Discard drops the queued operations
func (d *Document) Discard() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetPending()
}

// DocumentXML returns the committed word/document.xml
func (d *Document) DocumentXML() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.documentXML()
}

func (d *Document) documentXML() []byte {
	var buf bytes.Buffer
	buf.Write(d.prefix)
	for _, n := range d.body.nodes {
		buf.Write(n.raw)
	}
	buf.Write(d.suffix)
	return buf.Bytes()
}

// Bytes returns the package with the committed edits
func (d *Document) Bytes() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pkg.Rebuild(map[string][]byte{PartDocument: d.documentXML()})
}

// WriteTo writes the package to w
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// SaveAs writes the package to a file
func (d *Document) SaveAs(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (d *Document) resetPending() {
	d.pending = nil
	d.pendingNodes = make(map[int]bool)
	d.pendingNames = make(map[string]bool)
}

func (d *Document) newNodeID() int {
	d.nextID++
	d.pendingNodes[d.nextID] = true
	return d.nextID
}

func (d *Document) queue(name string, apply func(b *body) error) {
	d.pending = append(d.pending, operation{name: name, apply: apply})
}

// bookmarkExists reports whether name will exist once the queue is applied
func (d *Document) bookmarkExists(name string) bool {
	if exists, queued := d.pendingNames[name]; queued {
		return exists
	}
	return d.body.bookmarks[name]
}

// known resolves a location to a committed or queued paragraph
func (d *Document) known(loc toc.Location) (int, error) {
	id, err := parseLocation(loc)
	if err != nil {
		return 0, err
	}
	if d.pendingNodes[id] {
		return id, nil
	}
	if i := d.body.index(id); i >= 0 && d.body.nodes[i].paragraph {
		return id, nil
	}
	return 0, fmt.Errorf("paragraph %s: %w", loc, toc.ErrNotFound)
}

// editParagraph wraps a raw XML edit as an operation on one node
func (d *Document) editParagraph(id int, edit func(raw []byte) ([]byte, error)) func(b *body) error {
	return func(b *body) error {
		i := b.index(id)
		if i < 0 {
			return fmt.Errorf("paragraph %s: %w", location(id), toc.ErrNotFound)
		}
		raw, err := edit(b.nodes[i].raw)
		if err != nil {
			return err
		}
		b.nodes[i].raw = raw
		return nil
	}
}

func validateBookmarkName(name string) error {
	switch {
	case name == "":
		return errors.New("empty bookmark name")
	case len(name) > toc.MaxAnchorNameLength:
		return fmt.Errorf("bookmark name %q longer than %d characters", name, toc.MaxAnchorNameLength)
	case strings.ContainsAny(name, " \t\r\n"):
		return fmt.Errorf("bookmark name %q contains whitespace", name)
	}
	return nil
}

func location(id int) toc.Location {
	return toc.Location("p" + strconv.Itoa(id))
}

func parseLocation(loc toc.Location) (int, error) {
	s := string(loc)
	if !strings.HasPrefix(s, "p") {
		return 0, fmt.Errorf("invalid location %q", s)
	}
	id, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, fmt.Errorf("invalid location %q", s)
	}
	return id, nil
}
