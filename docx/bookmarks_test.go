package docx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindBookmarks(t *testing.T) {
	raw := []byte(`<w:p><w:bookmarkStart w:id="3" w:name="_Toc1"/><w:r><w:t>x</w:t></w:r>` +
		`<w:bookmarkEnd w:id="3"/><w:bookmarkStart w:name="R&amp;D" w:id="12"/></w:p>`)

	found := findBookmarks(raw)
	require.Len(t, found, 2)
	require.Equal(t, "_Toc1", found[0].name)
	require.Equal(t, "3", found[0].id)
	require.Equal(t, "R&D", found[1].name)
	require.Equal(t, "12", found[1].id)

	require.Equal(t, 12, maxBookmarkID(raw))
	require.Equal(t, -1, maxBookmarkID([]byte(`<w:p/>`)))
}

func TestRemoveBookmark(t *testing.T) {
	raw := []byte(`<w:p><w:bookmarkStart w:id="3" w:name="_Toc1"/><w:r><w:t>x</w:t></w:r><w:bookmarkEnd w:id="3"/><w:bookmarkEnd w:id="31"/></w:p>`)

	out, id, ok := removeBookmarkStart(raw, "_Toc1")
	require.True(t, ok)
	require.Equal(t, "3", id)

	out, ok = removeBookmarkEnd(out, id)
	require.True(t, ok)
	require.Equal(t, `<w:p><w:r><w:t>x</w:t></w:r><w:bookmarkEnd w:id="31"/></w:p>`, string(out))

	_, _, ok = removeBookmarkStart(raw, "Other")
	require.False(t, ok)
	_, ok = removeBookmarkEnd(raw, "99")
	require.False(t, ok)
}

func TestUnescapeAttr(t *testing.T) {
	require.Equal(t, "plain", unescapeAttr("plain"))
	require.Equal(t, `a&b"c`, unescapeAttr("a&amp;b&quot;c"))
}
