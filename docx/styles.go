package docx

import (
	"encoding/xml"
	"strings"
	"unicode"
)

// Styles represents the styles definition file (word/styles.xml)
type Styles struct {
	XMLName xml.Name   `xml:"styles"`
	Styles  []StyleDef `xml:"style"`
}

// StyleDef defines a single style
type StyleDef struct {
	XMLName xml.Name   `xml:"style"`
	Type    string     `xml:"type,attr"`    // paragraph, character, table, numbering
	StyleID string     `xml:"styleId,attr"` // style identifier
	Default string     `xml:"default,attr"` // 1 if default style
	Name    *StyleName `xml:"name"`
	BasedOn *BasedOn   `xml:"basedOn"`
}

// StyleName contains the style's display name
type StyleName struct {
	Val string `xml:"val,attr"`
}

// BasedOn references the parent style
type BasedOn struct {
	Val string `xml:"val,attr"`
}

// Style types
const (
	StyleTypeParagraph = "paragraph"
	StyleTypeCharacter = "character"
)

// Built-in style IDs the TOC writer relies on
const (
	StyleIDHyperlink = "Hyperlink"
)

// GetStyle returns a style by its ID
func (s *Styles) GetStyle(id string) *StyleDef {
	for i := range s.Styles {
		if s.Styles[i].StyleID == id {
			return &s.Styles[i]
		}
	}
	return nil
}

// HasStyle reports whether a style with the given ID is defined
func (s *Styles) HasStyle(id string) bool {
	return s.GetStyle(id) != nil
}

// DefaultParagraphStyle returns the display name of the default paragraph
// style, which applies to paragraphs without w:pStyle
func (s *Styles) DefaultParagraphStyle() string {
	for i := range s.Styles {
		style := &s.Styles[i]
		if style.Type == StyleTypeParagraph && (style.Default == "1" || style.Default == "true") {
			return s.DisplayName(style.StyleID)
		}
	}
	return ""
}

// DisplayName returns the display name for a style ID.
// Undefined IDs fall back to the built-in naming Word uses ("Heading2" is
// shown as "Heading 2").
func (s *Styles) DisplayName(styleID string) string {
	if styleID == "" {
		return ""
	}
	if style := s.GetStyle(styleID); style != nil && style.Name != nil && style.Name.Val != "" {
		return builtinDisplayName(style.Name.Val)
	}
	return builtinDisplayName(styleID)
}

// StyleID resolves a display name ("Heading 1") to a paragraph style ID.
// Names that are not defined map to the built-in ID Word would use, which
// is the name with spaces removed.
func (s *Styles) StyleID(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for i := range s.Styles {
		style := &s.Styles[i]
		if style.Type != "" && style.Type != StyleTypeParagraph {
			continue
		}
		if style.Name != nil && strings.ToLower(style.Name.Val) == lower {
			return style.StyleID
		}
	}
	for i := range s.Styles {
		if strings.EqualFold(s.Styles[i].StyleID, name) {
			return s.Styles[i].StyleID
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "")
}

// builtinDisplayName inserts the space between a trailing level digit and the
// preceding letters, as Word does for its built-in heading styles. Lowercase
// names from styles.xml ("heading 1") are title-cased the same way.
func builtinDisplayName(name string) string {
	runes := []rune(name)
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	n := len(runes)
	if n < 2 || !unicode.IsDigit(runes[n-1]) || !unicode.IsLetter(runes[n-2]) {
		return string(runes)
	}
	return string(runes[:n-1]) + " " + string(runes[n-1])
}
