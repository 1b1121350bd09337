package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// ModelPath is where a model file keeps its model struct.
const ModelPath = "model"

var (
	// ErrNotFound is returned when the model path does not exist.
	ErrNotFound = errors.New("model path not found")
	// ErrNoFiles is returned when a directory holds no .cue files.
	ErrNoFiles = errors.New("no CUE files found")
)

// Load compiles the model at path. A file is compiled on its own; a
// directory is loaded as one CUE package. Unnamed models take the file or
// directory name.
func Load(path string) (*Model, error) {
	v, err := LoadValue(path)
	if err != nil {
		return nil, err
	}
	m, err := CompileModel(v.LookupPath(cue.ParsePath(ModelPath)))
	if err != nil {
		return nil, err
	}
	if m.Name == ModelPath {
		m.Name = strings.TrimSuffix(filepath.Base(path), ".cue")
	}
	return m, nil
}

// LoadValue builds the CUE value at path without compiling it.
func LoadValue(path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cue.Value{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return cue.Value{}, err
	}

	ctx := cuecontext.New()
	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, err
		}
		v := ctx.CompileBytes(src, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return v, nil
	}

	files, err := FindCUEFiles(path)
	if err != nil {
		return cue.Value{}, err
	}
	if len(files) == 0 {
		return cue.Value{}, fmt.Errorf("%w in %s", ErrNoFiles, path)
	}
	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("%w in %s", ErrNoFiles, path)
	}
	if err := instances[0].Err; err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	v := ctx.BuildInstance(instances[0])
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// FindCUEFiles lists the .cue files directly inside dir.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
