package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Part names inside a WordprocessingML package
const (
	PartDocument = "word/document.xml"
	PartStyles   = "word/styles.xml"
)

// Package is a read-only view of the parts of a DOCX zip archive. Edited
// parts are written back with Rebuild.
type Package struct {
	archive *zip.Reader
	parts   map[string]*zip.File

	styles *Styles
}

// OpenPackage indexes the parts of DOCX data and checks that the main
// document part is present
func OpenPackage(data []byte) (*Package, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	pkg := &Package{
		archive: archive,
		parts:   make(map[string]*zip.File, len(archive.File)),
	}
	for _, f := range archive.File {
		pkg.parts[f.Name] = f
	}

	if !pkg.Has(PartDocument) {
		return nil, fmt.Errorf("not a valid DOCX file: missing %s", PartDocument)
	}
	return pkg, nil
}

// OpenPackageFile is OpenPackage for a file path
func OpenPackageFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return OpenPackage(data)
}

// Has reports whether the archive contains the named part
func (p *Package) Has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// Part returns the raw bytes of a part
func (p *Package) Part(name string) ([]byte, error) {
	f, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("part not found: %s", name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// PartNames lists the parts in archive order
func (p *Package) PartNames() []string {
	names := make([]string, len(p.archive.File))
	for i, f := range p.archive.File {
		names[i] = f.Name
	}
	return names
}

// Styles returns the style table. A package without word/styles.xml, or
// with one that does not parse, yields an empty table.
func (p *Package) Styles() *Styles {
	if p.styles != nil {
		return p.styles
	}

	p.styles = &Styles{}
	if data, err := p.Part(PartStyles); err == nil {
		if err := decodeWordXML(data, p.styles); err != nil {
			p.styles = &Styles{}
		}
	}
	return p.styles
}

// Rebuild writes a copy of the package with the given parts replaced.
// Entries keep their original order, names, compression method and
// timestamps.
func (p *Package) Rebuild(replacements map[string][]byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	for _, f := range p.archive.File {
		data, ok := replacements[f.Name]
		if !ok {
			var err error
			if data, err = p.Part(f.Name); err != nil {
				return nil, err
			}
		}

		// the writer recomputes sizes and checksums
		header := f.FileHeader
		header.CompressedSize64 = 0
		header.UncompressedSize64 = 0
		header.CRC32 = 0
		header.Flags &^= 0x8
		header.Extra = nil

		fw, err := w.CreateHeader(&header)
		if err == nil {
			_, err = fw.Write(data)
		}
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing ZIP archive: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeWordXML unmarshals a WordprocessingML part. Struct tags carry bare
// local names, which encoding/xml matches in any namespace.
func decodeWordXML(data []byte, v any) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	return decoder.Decode(v)
}

// localName drops a namespace prefix that the decoder left in a name, as it
// does for undeclared prefixes in non-strict mode
func localName(name string) string {
	if i := strings.IndexByte(name, ':'); i != -1 {
		return name[i+1:]
	}
	return name
}
