package toc

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// fakeParagraph is one paragraph of the in-memory host
type fakeParagraph struct {
	Loc     Location
	Text    string
	Style   string
	Indent  int
	Links   []string
	Anchors []string
}

type fakeState struct {
	paragraphs []fakeParagraph
	anchors    map[string]Location
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		paragraphs: make([]fakeParagraph, len(s.paragraphs)),
		anchors:    make(map[string]Location, len(s.anchors)),
	}
	for i, p := range s.paragraphs {
		p.Links = append([]string(nil), p.Links...)
		p.Anchors = append([]string(nil), p.Anchors...)
		c.paragraphs[i] = p
	}
	for k, v := range s.anchors {
		c.anchors[k] = v
	}
	return c
}

func (s *fakeState) index(loc Location) int {
	for i := range s.paragraphs {
		if s.paragraphs[i].Loc == loc {
			return i
		}
	}
	return -1
}

// fakeDoc is an in-memory Document with fault injection. It only offers
// the prepend primitive; see forwardDoc for the insert-after variant.
type fakeDoc struct {
	mu sync.Mutex

	state   *fakeState
	pending []func(*fakeState) error
	known   map[Location]bool
	names   map[string]bool // queued anchor creations (true) and deletions (false)
	nextLoc int

	commits      int
	commitHook   func(ctx context.Context, n int) error
	paragraphErr error
	anchorErr    map[Location]error
	linkErr      map[Location]error
	styleErr     error
	panicOn      string
}

var _ Document = (*fakeDoc)(nil)

// forwardDoc adds InsertParagraphAfter
type forwardDoc struct {
	*fakeDoc
}

var _ AfterInserter = forwardDoc{}

// para is shorthand for building fixtures
func para(style, text string) fakeParagraph {
	return fakeParagraph{Style: style, Text: text}
}

func newFakeDoc(paragraphs ...fakeParagraph) *fakeDoc {
	d := &fakeDoc{
		state:     &fakeState{anchors: make(map[string]Location)},
		known:     make(map[Location]bool),
		names:     make(map[string]bool),
		anchorErr: make(map[Location]error),
		linkErr:   make(map[Location]error),
	}
	for _, p := range paragraphs {
		p.Loc = d.newLoc()
		d.state.paragraphs = append(d.state.paragraphs, p)
	}
	return d
}

func (d *fakeDoc) newLoc() Location {
	d.nextLoc++
	return Location(fmt.Sprintf("f%d", d.nextLoc))
}

func (d *fakeDoc) maybePanic(op string) {
	if d.panicOn == op {
		panic("host exploded in " + op)
	}
}

func (d *fakeDoc) check(loc Location) error {
	if d.known[loc] || d.state.index(loc) >= 0 {
		return nil
	}
	return fmt.Errorf("paragraph %s: %w", loc, ErrNotFound)
}

func (d *fakeDoc) anchorExists(name string) bool {
	if exists, queued := d.names[name]; queued {
		return exists
	}
	_, ok := d.state.anchors[name]
	return ok
}

func (d *fakeDoc) edit(loc Location, fn func(p *fakeParagraph)) func(*fakeState) error {
	return func(s *fakeState) error {
		i := s.index(loc)
		if i < 0 {
			return fmt.Errorf("paragraph %s: %w", loc, ErrNotFound)
		}
		fn(&s.paragraphs[i])
		return nil
	}
}

func (d *fakeDoc) Paragraphs(ctx context.Context) ([]Paragraph, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybePanic("paragraphs")
	if d.paragraphErr != nil {
		return nil, d.paragraphErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Paragraph, len(d.state.paragraphs))
	for i, p := range d.state.paragraphs {
		out[i] = Paragraph{
			Text:     p.Text,
			Style:    p.Style,
			Location: p.Loc,
			Links:    append([]string(nil), p.Links...),
		}
	}
	return out, nil
}

func (d *fakeDoc) InsertParagraphAtStart(text string) (Location, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	loc := d.newLoc()
	d.known[loc] = true
	d.pending = append(d.pending, func(s *fakeState) error {
		p := fakeParagraph{Loc: loc, Text: text, Style: "Normal"}
		s.paragraphs = append([]fakeParagraph{p}, s.paragraphs...)
		return nil
	})
	return loc, nil
}

func (d *fakeDoc) insertAfter(after Location, text string) (Location, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(after); err != nil {
		return "", err
	}
	loc := d.newLoc()
	d.known[loc] = true
	d.pending = append(d.pending, func(s *fakeState) error {
		i := s.index(after)
		if i < 0 {
			return fmt.Errorf("paragraph %s: %w", after, ErrNotFound)
		}
		p := fakeParagraph{Loc: loc, Text: text, Style: "Normal"}
		s.paragraphs = append(s.paragraphs[:i+1], append([]fakeParagraph{p}, s.paragraphs[i+1:]...)...)
		return nil
	})
	return loc, nil
}

func (f forwardDoc) InsertParagraphAfter(after Location, text string) (Location, error) {
	return f.insertAfter(after, text)
}

func (d *fakeDoc) SetParagraphStyle(loc Location, styleName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(loc); err != nil {
		return err
	}
	if d.styleErr != nil {
		return d.styleErr
	}
	d.pending = append(d.pending, d.edit(loc, func(p *fakeParagraph) { p.Style = styleName }))
	return nil
}

func (d *fakeDoc) SetParagraphIndent(loc Location, levelUnits int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(loc); err != nil {
		return err
	}
	d.pending = append(d.pending, d.edit(loc, func(p *fakeParagraph) { p.Indent = levelUnits }))
	return nil
}

func (d *fakeDoc) CreateAnchor(target Location, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maybePanic("anchor")
	if err := d.check(target); err != nil {
		return err
	}
	if err := d.anchorErr[target]; err != nil {
		return err
	}
	if d.anchorExists(name) {
		return fmt.Errorf("anchor %q: %w", name, ErrAnchorExists)
	}
	d.names[name] = true
	d.pending = append(d.pending, func(s *fakeState) error {
		i := s.index(target)
		if i < 0 {
			return fmt.Errorf("paragraph %s: %w", target, ErrNotFound)
		}
		s.paragraphs[i].Anchors = append(s.paragraphs[i].Anchors, name)
		s.anchors[name] = target
		return nil
	})
	return nil
}

func (d *fakeDoc) DeleteAnchor(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.anchorExists(name) {
		return fmt.Errorf("anchor %q: %w", name, ErrNotFound)
	}
	d.names[name] = false
	d.pending = append(d.pending, func(s *fakeState) error {
		loc, ok := s.anchors[name]
		if !ok {
			return fmt.Errorf("anchor %q: %w", name, ErrNotFound)
		}
		delete(s.anchors, name)
		if i := s.index(loc); i >= 0 {
			var kept []string
			for _, a := range s.paragraphs[i].Anchors {
				if a != name {
					kept = append(kept, a)
				}
			}
			s.paragraphs[i].Anchors = kept
		}
		return nil
	})
	return nil
}

func (d *fakeDoc) AttachLink(loc Location, displayText, anchorName string, mode LinkMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(loc); err != nil {
		return err
	}
	if err := d.linkErr[loc]; err != nil {
		return err
	}
	if !d.anchorExists(anchorName) {
		return fmt.Errorf("anchor %q: %w", anchorName, ErrNotFound)
	}
	d.pending = append(d.pending, d.edit(loc, func(p *fakeParagraph) {
		if mode == LinkReplace {
			p.Text = displayText
		} else {
			p.Text += displayText
		}
		p.Links = append(p.Links, anchorName)
	}))
	return nil
}

func (d *fakeDoc) RemoveParagraph(loc Location) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(loc); err != nil {
		return err
	}
	d.pending = append(d.pending, func(s *fakeState) error {
		i := s.index(loc)
		if i < 0 {
			return fmt.Errorf("paragraph %s: %w", loc, ErrNotFound)
		}
		s.paragraphs = append(s.paragraphs[:i], s.paragraphs[i+1:]...)
		return nil
	})
	return nil
}

func (d *fakeDoc) Commit(ctx context.Context) error {
	d.mu.Lock()
	d.commits++
	n := d.commits
	hook := d.commitHook
	d.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, n); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	next := d.state.clone()
	var err error
	for _, op := range d.pending {
		if err = op(next); err != nil {
			break
		}
	}
	d.pending = nil
	d.known = make(map[Location]bool)
	d.names = make(map[string]bool)
	if err != nil {
		return err
	}
	d.state = next
	return nil
}

// texts returns the committed paragraph texts in order
func (d *fakeDoc) texts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.state.paragraphs))
	for i, p := range d.state.paragraphs {
		out[i] = p.Text
	}
	return out
}

// snapshot returns a copy of the committed paragraphs
func (d *fakeDoc) snapshot() []fakeParagraph {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.clone().paragraphs
}

// anchorNames returns the committed anchors
func (d *fakeDoc) anchorNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var names []string
	for name := range d.state.anchors {
		names = append(names, name)
	}
	return names
}

// resolves reports whether every link in the document points at an anchor
func (d *fakeDoc) resolves() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.state.paragraphs {
		for _, link := range p.Links {
			if _, ok := d.state.anchors[link]; !ok {
				return false
			}
		}
	}
	return true
}

func hasPrefixAll(names []string, prefix string) bool {
	for _, n := range names {
		if !strings.HasPrefix(n, prefix) {
			return false
		}
	}
	return true
}
