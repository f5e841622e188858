package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// span is a byte range [start, end) inside a paragraph's raw XML
type span struct {
	start, end int
}

func (s span) valid() bool {
	return s.end > s.start
}

// child is a direct child element of w:p or w:pPr
type child struct {
	name string
	span span
}

// paragraphInfo is what scanParagraph learns about one w:p element
type paragraphInfo struct {
	startTagEnd int  // offset just after <w:p ...>
	end         int  // offset of </w:p>
	selfClosing bool // <w:p/>

	pPr            span
	pPrStartTagEnd int
	pPrCloseStart  int
	pPrSelfClosing bool
	pPrChildren    []child

	children []child // direct children of w:p in order, pPr included

	styleID string
	text    string
	links   []string // w:hyperlink/@w:anchor values
}

// pPrOrder is the schema order of paragraph property children. Word rejects
// documents whose w:pPr children are out of order.
var pPrOrder = map[string]int{
	"pStyle": 0, "keepNext": 1, "keepLines": 2, "pageBreakBefore": 3,
	"framePr": 4, "widowControl": 5, "numPr": 6, "suppressLineNumbers": 7,
	"pBdr": 8, "shd": 9, "tabs": 10, "suppressAutoHyphens": 11, "kinsoku": 12,
	"wordWrap": 13, "overflowPunct": 14, "topLinePunct": 15, "autoSpaceDE": 16,
	"autoSpaceDN": 17, "bidi": 18, "adjustRightInd": 19, "snapToGrid": 20,
	"spacing": 21, "ind": 22, "contextualSpacing": 23, "mirrorIndents": 24,
	"suppressOverlap": 25, "jc": 26, "textDirection": 27, "textAlignment": 28,
	"textboxTightWrap": 29, "outlineLvl": 30, "divId": 31, "cnfStyle": 32,
	"rPr": 33, "sectPr": 34, "pPrChange": 35,
}

// linkReplaced lists the paragraph children a replacing link takes the
// place of: everything that renders text
var linkReplaced = map[string]bool{
	"r": true, "hyperlink": true, "fldSimple": true, "smartTag": true,
	"ins": true, "del": true, "sdt": true, "customXml": true,
}

// scanParagraph tokenizes a single w:p element and records text, style,
// links and the offsets later edits splice at
func scanParagraph(raw []byte) (*paragraphInfo, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity

	info := &paragraphInfo{}
	var stack []string
	var starts []int
	var text strings.Builder
	inText := false

	inside := func(name string) bool {
		for _, s := range stack {
			if s == name {
				return true
			}
		}
		return false
	}

	for {
		before := int(decoder.InputOffset())
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scanning paragraph: %w", err)
		}
		after := int(decoder.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name.Local)
			inPPr := inside("pPr")
			stack = append(stack, name)
			starts = append(starts, before)

			switch {
			case len(stack) == 1:
				info.startTagEnd = after
			case len(stack) == 2 && name == "pPr":
				info.pPrStartTagEnd = after
			case len(stack) == 3 && name == "pStyle" && inPPr:
				info.styleID = attrValue(t, "val")
			case inPPr:
				// tabs and breaks below w:pPr are properties, not text
			case name == "t":
				inText = true
			case name == "tab":
				text.WriteString("\t")
			case name == "br" || name == "cr":
				text.WriteString("\n")
			case name == "noBreakHyphen":
				text.WriteString("-")
			case name == "hyperlink":
				if anchor := attrValue(t, "anchor"); anchor != "" {
					info.links = append(info.links, anchor)
				}
			}

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			name := stack[len(stack)-1]
			start := starts[len(starts)-1]
			stack = stack[:len(stack)-1]
			starts = starts[:len(starts)-1]
			sp := span{start, after}

			switch len(stack) {
			case 0:
				info.end = before
				info.selfClosing = before == after
			case 1:
				info.children = append(info.children, child{name, sp})
				if name == "pPr" {
					info.pPr = sp
					info.pPrCloseStart = before
					info.pPrSelfClosing = before == after
				}
			case 2:
				if stack[1] == "pPr" {
					info.pPrChildren = append(info.pPrChildren, child{name, sp})
				}
			}
			if name == "t" {
				inText = false
			}

		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}

	info.text = text.String()
	return info, nil
}

// attrValue returns the value of an attribute by local name
func attrValue(t xml.StartElement, local string) string {
	for _, attr := range t.Attr {
		if localName(attr.Name.Local) == local {
			return attr.Value
		}
	}
	return ""
}

// splice returns a new slice with raw[start:end] replaced by insert
func splice(raw []byte, start, end int, insert []byte) []byte {
	out := make([]byte, 0, len(raw)-(end-start)+len(insert))
	out = append(out, raw[:start]...)
	out = append(out, insert...)
	out = append(out, raw[end:]...)
	return out
}

// xmlWriter builds WordprocessingML fragments with a fixed namespace prefix
type xmlWriter struct {
	ns  string
	buf bytes.Buffer
}

func newXMLWriter(ns string) *xmlWriter {
	return &xmlWriter{ns: ns}
}

func (w *xmlWriter) qname(local string) string {
	if w.ns == "" {
		return local
	}
	return w.ns + ":" + local
}

// open writes a start tag; attrs are name/value pairs
func (w *xmlWriter) open(local string, attrs ...string) *xmlWriter {
	w.tag(local, false, attrs)
	return w
}

// empty writes a self-closing element
func (w *xmlWriter) empty(local string, attrs ...string) *xmlWriter {
	w.tag(local, true, attrs)
	return w
}

func (w *xmlWriter) close(local string) *xmlWriter {
	w.buf.WriteString("</")
	w.buf.WriteString(w.qname(local))
	w.buf.WriteByte('>')
	return w
}

func (w *xmlWriter) tag(local string, selfClose bool, attrs []string) {
	w.buf.WriteByte('<')
	w.buf.WriteString(w.qname(local))
	for i := 0; i+1 < len(attrs); i += 2 {
		w.buf.WriteByte(' ')
		name := attrs[i]
		if !strings.Contains(name, ":") {
			name = w.qname(name)
		}
		w.buf.WriteString(name)
		w.buf.WriteString(`="`)
		_ = xml.EscapeText(&w.buf, []byte(attrs[i+1]))
		w.buf.WriteByte('"')
	}
	if selfClose {
		w.buf.WriteString("/>")
	} else {
		w.buf.WriteByte('>')
	}
}

// run writes a text run, optionally with a character style
func (w *xmlWriter) run(text, charStyle string) *xmlWriter {
	w.open("r")
	if charStyle != "" {
		w.open("rPr").empty("rStyle", "val", charStyle).close("rPr")
	}
	w.open("t", "xml:space", "preserve")
	_ = xml.EscapeText(&w.buf, []byte(text))
	w.close("t")
	w.close("r")
	return w
}

func (w *xmlWriter) bytes() []byte {
	return append([]byte(nil), w.buf.Bytes()...)
}

// newParagraphXML returns a plain paragraph holding text
func newParagraphXML(ns, text string) []byte {
	w := newXMLWriter(ns)
	w.open("p").run(text, "").close("p")
	return w.bytes()
}

// expandSelfClosing turns <w:p/> into <w:p></w:p> so content can be added
func expandSelfClosing(raw []byte, info *paragraphInfo, ns string) ([]byte, *paragraphInfo, error) {
	if !info.selfClosing {
		return raw, info, nil
	}
	tag := bytes.TrimSpace(raw)
	tag = bytes.TrimSuffix(tag, []byte("/>"))
	w := newXMLWriter(ns)
	w.buf.Write(tag)
	w.buf.WriteByte('>')
	w.close("p")
	expanded := w.bytes()
	next, err := scanParagraph(expanded)
	if err != nil {
		return nil, nil, err
	}
	return expanded, next, nil
}

// setParagraphProperty inserts or replaces one w:pPr child, keeping the
// schema order of the property list
func setParagraphProperty(raw []byte, ns, name string, element []byte) ([]byte, error) {
	info, err := scanParagraph(raw)
	if err != nil {
		return nil, err
	}
	raw, info, err = expandSelfClosing(raw, info, ns)
	if err != nil {
		return nil, err
	}

	w := newXMLWriter(ns)
	switch {
	case !info.pPr.valid():
		w.open("pPr")
		w.buf.Write(element)
		w.close("pPr")
		return splice(raw, info.startTagEnd, info.startTagEnd, w.bytes()), nil

	case info.pPrSelfClosing:
		tag := bytes.TrimSuffix(raw[info.pPr.start:info.pPr.end], []byte("/>"))
		w.buf.Write(tag)
		w.buf.WriteByte('>')
		w.buf.Write(element)
		w.close("pPr")
		return splice(raw, info.pPr.start, info.pPr.end, w.bytes()), nil
	}

	order, known := pPrOrder[name]
	for _, c := range info.pPrChildren {
		if c.name == name {
			return splice(raw, c.span.start, c.span.end, element), nil
		}
		if rank, ok := pPrOrder[c.name]; known && ok && rank > order {
			return splice(raw, c.span.start, c.span.start, element), nil
		}
	}
	return splice(raw, info.pPrCloseStart, info.pPrCloseStart, element), nil
}

// setStyle sets w:pStyle
func setStyle(raw []byte, ns, styleID string) ([]byte, error) {
	w := newXMLWriter(ns)
	w.empty("pStyle", "val", styleID)
	return setParagraphProperty(raw, ns, "pStyle", w.bytes())
}

// setIndent sets the left indentation in twentieths of a point
func setIndent(raw []byte, ns string, twips int) ([]byte, error) {
	w := newXMLWriter(ns)
	w.empty("ind", "left", strconv.Itoa(twips))
	return setParagraphProperty(raw, ns, "ind", w.bytes())
}

// insertBookmark places an empty bookmark right after the paragraph
// properties, so it marks the start of the paragraph
func insertBookmark(raw []byte, ns string, id int, name string) ([]byte, error) {
	info, err := scanParagraph(raw)
	if err != nil {
		return nil, err
	}
	raw, info, err = expandSelfClosing(raw, info, ns)
	if err != nil {
		return nil, err
	}

	w := newXMLWriter(ns)
	w.empty("bookmarkStart", "id", strconv.Itoa(id), "name", name)
	w.empty("bookmarkEnd", "id", strconv.Itoa(id))

	at := info.startTagEnd
	if info.pPr.valid() {
		at = info.pPr.end
	}
	return splice(raw, at, at, w.bytes()), nil
}

// attachLink adds an internal hyperlink to a bookmark. LinkReplace swaps
// the paragraph's text-bearing children for the link; LinkEnd appends it.
func attachLink(raw []byte, ns, displayText, anchor, charStyle string, replace bool) ([]byte, error) {
	info, err := scanParagraph(raw)
	if err != nil {
		return nil, err
	}
	raw, info, err = expandSelfClosing(raw, info, ns)
	if err != nil {
		return nil, err
	}

	link := newXMLWriter(ns)
	link.open("hyperlink", "anchor", anchor, "history", "1")
	link.run(displayText, charStyle)
	link.close("hyperlink")

	if !replace {
		return splice(raw, info.end, info.end, link.bytes()), nil
	}

	var out bytes.Buffer
	out.Write(raw[:info.startTagEnd])
	for _, c := range info.children {
		if linkReplaced[c.name] {
			continue
		}
		out.Write(raw[c.span.start:c.span.end])
	}
	out.Write(link.bytes())
	out.Write(raw[info.end:])
	return out.Bytes(), nil
}
