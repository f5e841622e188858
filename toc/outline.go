package toc

// Entry is one line of the rendered table of contents
type Entry struct {
	Text     string `json:"text" yaml:"text"`
	Level    int    `json:"level" yaml:"level"`
	AnchorID string `json:"anchor,omitempty" yaml:"anchor,omitempty"` // empty when no bookmark could be created
}

// BuildOutline pairs headings with their anchors. The result follows the
// order of headings, which is document order.
func BuildOutline(headings []Heading, anchors map[int]Anchor) []Entry {
	entries := make([]Entry, 0, len(headings))
	for _, h := range headings {
		e := Entry{Text: h.Text, Level: h.Level}
		if a, ok := anchors[h.SourceIndex]; ok {
			e.AnchorID = a.ID
		}
		entries = append(entries, e)
	}
	return entries
}
