package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mjgrid/internal/compiler"
	"github.com/roach88/mjgrid/internal/testutil"
)

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"cue", ErrCodeBuildFailed},
		{"model", ErrCodeModelMissing},
		{"values", ErrCodeValues},
		{"unions.A", ErrCodeValues},
		{"size", ErrCodeSize},
		{"size[1]", ErrCodeSize},
		{"polar", ErrCodeSize},
		{"spherical", ErrCodeSize},
		{"symmetry", ErrCodeSymmetry},
		{"root.children[0].symmetry", ErrCodeSymmetry},
		{"root", ErrCodeNodeKind},
		{"root.kind", ErrCodeNodeKind},
		{"root.children[2].kind", ErrCodeNodeKind},
		{"root.search", ErrCodeNodeKind},
		{"root.rules", ErrCodeRules},
		{"root.rules[3].in", ErrCodeRules},
		{"root.fields", ErrCodeFields},
		{"root.fields[0].on", ErrCodeFields},
		{"root.scale", ErrCodeMap},
		{"root.tiles", ErrCodeWFC},
		{"root.sample[1]", ErrCodeWFC},
		{"root.overlap", ErrCodeWFC},
		{"somewhere.else", ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}

func TestLoadModel_Valid(t *testing.T) {
	m, err := LoadModel(writeGrowthModel(t))
	require.NoError(t, err)
	assert.Equal(t, "growth", m.Name)
}

func TestLoadModel_NotFound(t *testing.T) {
	_, err := LoadModel("/nonexistent/model.cue")
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
	assert.False(t, loadErr.Pos.IsValid())
}

func TestLoadModel_CompileErrorKeepsPosition(t *testing.T) {
	path := testutil.WriteModel(t, "bad.cue", `model: {
	values: "BW"
	root: {kind: "teleport"}
}
`)
	_, err := LoadModel(path)
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNodeKind, loadErr.Code)
	assert.Contains(t, loadErr.Message, "root.kind")
	assert.Contains(t, loadErr.Error(), "bad.cue:")
}

func TestConvertLoadError_Unknown(t *testing.T) {
	loadErr := convertLoadError(errors.New("disk on fire"), "m.cue")
	assert.Equal(t, ErrCodeLoadFailed, loadErr.Code)
	assert.Contains(t, loadErr.Message, "disk on fire")
}

func TestConvertLoadError_NoFiles(t *testing.T) {
	loadErr := convertLoadError(compiler.ErrNoFiles, "dir")
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}
