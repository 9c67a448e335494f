// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, mediaDir string) string {
	t.Helper()
	cfg := `listen_addr: "127.0.0.1:7070"
chunk_size: 1024
storage:
  roots:
    - id: movies
      type: local
      path: ` + mediaDir + `
      include_ext: [".mp4"]
cache:
  redis:
    password: hunter2
`
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(cfg), 0o600))
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
	assert.Contains(t, out, "commit: "+version.Commit)
}

func TestConfigValidate(t *testing.T) {
	path := writeConfig(t, t.TempDir())

	out, err := execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}

func TestConfigValidate_RequiresFile(t *testing.T) {
	_, err := execute(t, "config", "validate")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestConfigValidate_ReportsErrors(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("listen_addr: \"127.0.0.1:7070\"\n"), 0o600))

	_, err := execute(t, "config", "validate", "-f", p)
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, err.Error(), "storage.roots")
}

func TestConfigDump_MasksSecrets(t *testing.T) {
	path := writeConfig(t, t.TempDir())

	out, err := execute(t, "config", "dump", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "127.0.0.1:7070")
	assert.NotContains(t, out, "hunter2")

	dest := filepath.Join(t.TempDir(), "effective.yaml")
	_, err = execute(t, "config", "dump", "-f", path, "-o", dest)
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chunk_size: 1024")
	assert.NotContains(t, string(data), "hunter2")
}

func TestCatalogCmd(t *testing.T) {
	media := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(media, "b.mp4"), make([]byte, 20), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(media, "a.mp4"), make([]byte, 10), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(media, "notes.txt"), []byte("x"), 0o600))
	path := writeConfig(t, media)

	out, err := execute(t, "catalog", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "a.mp4")
	assert.Contains(t, out, "b.mp4")
	assert.NotContains(t, out, "notes.txt")
	assert.Contains(t, out, "2 videos")
	assert.Less(t, strings.Index(out, "a.mp4"), strings.Index(out, "b.mp4"))

	out, err = execute(t, "catalog", "-c", path, "--json")
	require.NoError(t, err)
	var listing struct {
		Roots   []catalog.RootState `json:"roots"`
		Entries []catalog.Entry     `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	require.Len(t, listing.Entries, 2)
	assert.Equal(t, int64(10), listing.Entries[0].SizeBytes)
	require.Len(t, listing.Roots, 1)
	assert.Equal(t, catalog.RootStatusOK, listing.Roots[0].Status)
	assert.NotContains(t, out, media, "paths stay private")
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "bogus")
	require.Error(t, err)
}

func TestConfigValidate_ShippedExample(t *testing.T) {
	out, err := execute(t, "config", "validate", "-f", filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}
