package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "schema.otl")
	require.NoError(t, os.WriteFile(path, []byte("type A {\nfolder = \"a\"\n}"), 0o600))

	var out bytes.Buffer

	changed, err := formatFile(path, false, false, &out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "type A {\n\tfolder = \"a\"\n}\n", out.String())

	out.Reset()

	changed, err = formatFile(path, true, false, &out)
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "type A {\n\tfolder = \"a\"\n}\n", string(data))

	out.Reset()

	changed, err = formatFile(path, false, true, &out)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, out.String())
}

func TestFormatStdin(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, formatStdin(strings.NewReader("type A {}\n\n\n"), &out))
	assert.Equal(t, "type A {}\n", out.String())

	assert.Error(t, formatStdin(strings.NewReader("type A {"), &out))
}
