package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const growthModel = `
model: {
	values: "BW"
	size: [3, 3]
	origin: true
	root: {kind: "one", rules: [{in: "WB", out: "WW"}]}
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "growth.cue", growthModel)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "growth", m.Name, "unnamed model takes the file name")

	in, err := m.Interpreter()
	require.NoError(t, err)
	assert.Equal(t, 9, in.Run(1, 0))
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "values.cue", "package growth\n\nmodel: values: \"BW\"\n")
	writeFile(t, dir, "root.cue", `package growth

model: {
	name: "split"
	size: [2, 2]
	origin: true
	root: {kind: "one", rules: [{in: "WB", out: "WW"}]}
}
`)

	m, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "split", m.Name)
	assert.Equal(t, 4, m.Grid.Len())
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoad_EmptyDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoFiles))
}

func TestLoad_SyntaxErrorHasPosition(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.cue", "model: {\n\tvalues: \"BW\"\n\troot: {kind: \n")

	_, err := Load(path)
	var ce *CompileError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "cue", ce.Field)
	assert.True(t, ce.Pos.IsValid())
}

func TestLoad_MissingModel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "other.cue", "notmodel: 1\n")

	_, err := Load(path)
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "model", ce.Field)
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", "")
	writeFile(t, dir, "b.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	writeFile(t, filepath.Join(dir, "sub"), "c.cue", "")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue")}, files)
}
