package docx

import (
	"archive/zip"
	"bytes"
)

const testStylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
  <w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/></w:style>
  <w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/></w:style>
  <w:style w:type="paragraph" w:styleId="berschrift3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/></w:style>
  <w:style w:type="paragraph" w:styleId="AppendixTitle"><w:name w:val="Appendix Heading"/></w:style>
  <w:style w:type="character" w:styleId="Hyperlink"><w:name w:val="Hyperlink"/></w:style>
</w:styles>`

// createTestDocx creates a minimal valid DOCX for testing
func createTestDocx(content string) []byte {
	return buildTestDocx(content, "")
}

// createTestDocxWithStyles adds word/styles.xml to the package
func createTestDocxWithStyles(content string) []byte {
	return buildTestDocx(content, testStylesXML)
}

// testDocumentXML wraps body content in a document part
func testDocumentXML(content string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + content + `</w:body></w:document>`
}

func buildTestDocx(content, styles string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes := `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
  <Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`
	f, _ := w.Create("[Content_Types].xml")
	f.Write([]byte(contentTypes))

	rels := `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`
	f, _ = w.Create("_rels/.rels")
	f.Write([]byte(rels))

	f, _ = w.Create("word/document.xml")
	f.Write([]byte(testDocumentXML(content)))

	if styles != "" {
		f, _ = w.Create("word/styles.xml")
		f.Write([]byte(styles))
	}

	w.Close()
	return buf.Bytes()
}

// p builds a paragraph with an optional style and one run
func p(styleID, text string) string {
	out := "<w:p>"
	if styleID != "" {
		out += `<w:pPr><w:pStyle w:val="` + styleID + `"/></w:pPr>`
	}
	if text != "" {
		out += "<w:r><w:t>" + text + "</w:t></w:r>"
	}
	return out + "</w:p>"
}
