package toc

import "strings"

// Heading is a paragraph classified as a structural heading
type Heading struct {
	Text        string
	Level       int // 0, 1 or 2
	SourceIndex int // index in the paragraph snapshot
	Location    Location
}

// ClassifyStyle reports whether a style name marks a heading and at which
// level. Any style containing "heading" is a heading; "heading 2" and
// "heading 3" map to levels 1 and 2, everything else to level 0.
func ClassifyStyle(style string) (level int, ok bool) {
	s := strings.ToLower(style)
	if !strings.Contains(s, "heading") {
		return 0, false
	}
	switch {
	case strings.Contains(s, "heading 2"):
		return 1, true
	case strings.Contains(s, "heading 3"):
		return 2, true
	default:
		return 0, true
	}
}

var lineBreaks = strings.NewReplacer(
	"\r\n", "",
	"\r", "",
	"\n", "",
	"\v", "",
	"\u2028", "",
	"\u2029", "",
)

// NormalizeText drops embedded line breaks and surrounding whitespace
func NormalizeText(text string) string {
	return strings.TrimSpace(lineBreaks.Replace(text))
}

// ExtractHeadings returns the heading paragraphs in document order.
// Paragraphs without a style or without text are skipped. An empty result
// is not an error.
func ExtractHeadings(paragraphs []Paragraph) []Heading {
	return extractHeadingsFrom(paragraphs, 0)
}

// extractHeadingsFrom extracts headings from paragraphs[start:] while keeping
// SourceIndex relative to the whole snapshot
func extractHeadingsFrom(paragraphs []Paragraph, start int) []Heading {
	var headings []Heading
	for i := start; i < len(paragraphs); i++ {
		p := paragraphs[i]
		if p.Style == "" {
			continue
		}
		level, ok := ClassifyStyle(p.Style)
		if !ok {
			continue
		}
		text := NormalizeText(p.Text)
		if text == "" {
			continue
		}
		headings = append(headings, Heading{
			Text:        text,
			Level:       level,
			SourceIndex: i,
			Location:    p.Location,
		})
	}
	return headings
}
