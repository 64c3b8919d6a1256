package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manp/internal/compiler"
	"github.com/roach88/manp/internal/testutil"
)

func TestLoadPrograms_MultipleFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteProgram(t, dir, "dot.cue", testutil.DotProgram)
	testutil.WriteProgram(t, dir, "chain.cue", testutil.ChainProgram)

	result, errs := LoadPrograms(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.FileCount)

	var names []string
	for _, fn := range result.Module.Functions {
		names = append(names, fn.Name)
	}
	assert.ElementsMatch(t, []string{"main", "chain"}, names)
}

func TestLoadPrograms_MissingDirectory(t *testing.T) {
	result, errs := LoadPrograms(filepath.Join(t.TempDir(), "nope"), LoadModeCollectAll)
	assert.Nil(t, result)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadPrograms_NotADirectory(t *testing.T) {
	path := testutil.WriteProgram(t, t.TempDir(), "dot.cue", testutil.DotProgram)

	result, errs := LoadPrograms(path, LoadModeCollectAll)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "not a directory")
}

func TestLoadPrograms_NoFiles(t *testing.T) {
	result, errs := LoadPrograms(t.TempDir(), LoadModeCollectAll)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrCodeNoFiles)
}

func TestLoadPrograms_NoFunctions(t *testing.T) {
	dir := programDir(t, `other: 1`)

	result, errs := LoadPrograms(dir, LoadModeCollectAll)
	require.NotNil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrCodeNoFunctions)
}

func TestLoadPrograms_SyntaxError(t *testing.T) {
	dir := programDir(t, `functions: main: {`)

	result, errs := LoadPrograms(dir, LoadModeCollectAll)
	assert.Nil(t, result)
	require.NotEmpty(t, errs)

	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, ErrCodeBuildFailed, loadErr.Code)
}

func TestFindCUEFiles_Recursive(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteProgram(t, dir, "a.cue", `functions: {}`)
	testutil.WriteProgram(t, dir, "nested/b.cue", `functions: {}`)
	testutil.WriteProgram(t, dir, "notes.txt", "not a program")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"cue", ErrCodeBuildFailed},
		{"functions.main.args[0].type", compiler.ErrInvalidType},
		{"functions.main.body[1].op", compiler.ErrEmptyOperationName},
		{"functions.main.args[0].name", compiler.ErrMissingResult},
		{"functions.main.body[0].value[2]", compiler.ErrLiteralShape},
		{"functions.main", ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}
