package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tenebris-tech/doctoc/docx2toc"
	"github.com/tenebris-tech/doctoc/toc"
)

// isolate keeps the search path away from real config files
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewManager_Defaults(t *testing.T) {
	isolate(t)

	cm, err := NewManager("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cm.Get())
	require.Empty(t, cm.ConfigFile())
}

func TestNewManager_File(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
title: Contents
link_mode: end
indent_points: 18
host_timeout: 45s
commit_attempts: 5
`)

	cm, err := NewManager(path)
	require.NoError(t, err)
	require.Equal(t, path, cm.ConfigFile())

	cfg := cm.Get()
	require.Equal(t, "Contents", cfg.Title)
	require.Equal(t, "end", cfg.LinkMode)
	require.Equal(t, 18.0, cfg.IndentPoints)
	require.Equal(t, 45*time.Second, cfg.HostTimeout)
	require.Equal(t, 5, cfg.CommitAttempts)
	// unset keys keep their defaults
	require.Equal(t, toc.DefaultAnchorPrefix, cfg.AnchorPrefix)
	require.Equal(t, docx2toc.DefaultOutputSuffix, cfg.OutputSuffix)
}

func TestNewManager_HomeConfig(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".docx2toc")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("title: From Home\n"), 0o644))

	cm, err := NewManager("")
	require.NoError(t, err)
	require.Equal(t, "From Home", cm.Get().Title)
}

func TestNewManager_EnvOverride(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "title: Contents\n")
	t.Setenv("DOCX2TOC_TITLE", "Overview")
	t.Setenv("DOCX2TOC_CLEANUP_ANCHORS", "true")

	cm, err := NewManager(path)
	require.NoError(t, err)
	require.Equal(t, "Overview", cm.Get().Title)
	require.True(t, cm.Get().CleanupAnchors)
}

func TestNewManager_Invalid(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"link mode", "link_mode: sideways\n", "sideways"},
		{"indent", "indent_points: -1\n", "indent_points"},
		{"attempts", "commit_attempts: 0\n", "commit_attempts"},
		{"empty title", "title: \"\"\n", "title must not be empty"},
		{"blank title", "title: \"  \"\n", "title must not be empty"},
		{"heading entry style", "entry_style: Heading 2\n", "entry_style must not be a heading style"},
		{"empty entry style", "entry_style: \"\"\n", "entry_style must not be empty"},
		{"syntax", "title: [unclosed\n", "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(writeConfig(t, tt.body))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestWriteDefault(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# docx2toc configuration")
	require.Contains(t, string(data), "title: Table of Contents")

	cm, err := NewManager(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cm.Get())
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Title = "Contents"
	cfg.LinkMode = "end"
	cfg.CommitAttempts = 2

	g := toc.New(cfg.TOCOptions()...)
	opts := g.Options()
	require.Equal(t, "Contents", opts.Title)
	require.Equal(t, toc.LinkEnd, opts.LinkMode)
	require.Equal(t, uint(2), opts.CommitAttempts)

	cfg.OutputSuffix = "-toc"
	c := docx2toc.New(cfg.ConverterOptions()...)
	require.Equal(t, "report-toc.docx", c.OutputPath("report.docx"))
	require.Equal(t, "Contents", c.Generator().Options().Title)
}

func TestWatchConfig(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "title: Before\n")

	cm, err := NewManager(path)
	require.NoError(t, err)

	var latest atomic.Value
	cm.OnChange(func(cfg *Config) { latest.Store(cfg.Title) })
	cm.WatchConfig()

	require.NoError(t, os.WriteFile(path, []byte("title: After\n"), 0o644))
	require.Eventually(t, func() bool {
		return latest.Load() == "After" && cm.Get().Title == "After"
	}, 5*time.Second, 50*time.Millisecond)
}
