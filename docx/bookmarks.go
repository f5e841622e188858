package docx

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"
)

var (
	bookmarkStartRe = regexp.MustCompile(`<(?:[\w.-]+:)?bookmarkStart\b[^>]*>`)
	bookmarkNameRe  = regexp.MustCompile(`\s(?:[\w.-]+:)?name="([^"]*)"`)
	bookmarkIDRe    = regexp.MustCompile(`\s(?:[\w.-]+:)?id="([^"]*)"`)
)

// bookmark is a w:bookmarkStart found in raw XML
type bookmark struct {
	name string
	id   string
	span span
}

// findBookmarks lists every bookmarkStart in raw
func findBookmarks(raw []byte) []bookmark {
	var found []bookmark
	for _, loc := range bookmarkStartRe.FindAllIndex(raw, -1) {
		tag := raw[loc[0]:loc[1]]
		b := bookmark{span: span{loc[0], loc[1]}}
		if m := bookmarkNameRe.FindSubmatch(tag); m != nil {
			b.name = unescapeAttr(string(m[1]))
		}
		if m := bookmarkIDRe.FindSubmatch(tag); m != nil {
			b.id = string(m[1])
		}
		found = append(found, b)
	}
	return found
}

// maxBookmarkID returns the highest numeric bookmark id in raw, or -1
func maxBookmarkID(raw []byte) int {
	highest := -1
	for _, b := range findBookmarks(raw) {
		if id, err := strconv.Atoi(b.id); err == nil && id > highest {
			highest = id
		}
	}
	return highest
}

// removeBookmarkStart drops the bookmarkStart named name and returns its id
func removeBookmarkStart(raw []byte, name string) ([]byte, string, bool) {
	for _, b := range findBookmarks(raw) {
		if b.name == name {
			return splice(raw, b.span.start, b.span.end, nil), b.id, true
		}
	}
	return raw, "", false
}

// removeBookmarkEnd drops the bookmarkEnd with the given id
func removeBookmarkEnd(raw []byte, id string) ([]byte, bool) {
	re := regexp.MustCompile(`<(?:[\w.-]+:)?bookmarkEnd\b[^>]*\s(?:[\w.-]+:)?id="` + regexp.QuoteMeta(id) + `"[^>]*>`)
	loc := re.FindIndex(raw)
	if loc == nil {
		return raw, false
	}
	return splice(raw, loc[0], loc[1], nil), true
}

func unescapeAttr(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var v struct {
		Val string `xml:"v,attr"`
	}
	if err := xml.Unmarshal([]byte(`<a v="`+s+`"/>`), &v); err != nil {
		return s
	}
	return v.Val
}
