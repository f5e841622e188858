package docx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testStyles(t *testing.T) *Styles {
	t.Helper()
	pkg, err := OpenPackage(createTestDocxWithStyles(p("", "x")))
	require.NoError(t, err)
	return pkg.Styles()
}

func TestStyles_Parsed(t *testing.T) {
	styles := testStyles(t)

	require.Len(t, styles.Styles, 6)
	require.True(t, styles.HasStyle("Heading1"))
	require.True(t, styles.HasStyle(StyleIDHyperlink))
	require.False(t, styles.HasStyle("Missing"))
	require.Equal(t, "Normal", styles.GetStyle("Heading2").BasedOn.Val)
	require.Equal(t, "Normal", styles.DefaultParagraphStyle())
}

func TestStyles_DisplayName(t *testing.T) {
	styles := testStyles(t)

	tests := []struct {
		id   string
		want string
	}{
		{"Heading1", "Heading 1"},
		{"berschrift3", "Heading 3"},
		{"AppendixTitle", "Appendix Heading"},
		{"Heading7", "Heading 7"},
		{"TOC2", "TOC 2"},
		{"Normal", "Normal"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			require.Equal(t, tt.want, styles.DisplayName(tt.id))
		})
	}
}

func TestStyles_StyleID(t *testing.T) {
	styles := testStyles(t)

	tests := []struct {
		name string
		want string
	}{
		{"Heading 1", "Heading1"},
		{"heading 3", "berschrift3"},
		{"Appendix Heading", "AppendixTitle"},
		{"normal", "Normal"},
		{"Heading2", "Heading2"},
		{"TOC 1", "TOC1"},
		// character styles only match by ID
		{"Hyperlink", "Hyperlink"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, styles.StyleID(tt.name))
		})
	}
}

func TestStyles_Empty(t *testing.T) {
	styles := &Styles{}
	require.Equal(t, "", styles.DefaultParagraphStyle())
	require.Equal(t, "Heading 2", styles.DisplayName("Heading2"))
	require.Equal(t, "Heading1", styles.StyleID("Heading 1"))
}
