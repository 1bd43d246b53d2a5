package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModels(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.cue"), []byte(content), 0o644))
	return dir
}

func TestValidateCommand(t *testing.T) {
	dir := writeModels(t, `
model: Item: {
	table:       "items"
	primary_key: "id"
	columns: {
		id:   "string"
		name: "string"
	}
}
`)
	out, err := execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Validated 1 model(s)")
	assert.Contains(t, out, "Item: table items, pk id, 2 column(s), transactional")
}

func TestValidateCommand_CompileErrorIsFailure(t *testing.T) {
	dir := writeModels(t, `
model: Item: {
	table:       "items"
	primary_key: "id"
	columns: id: "uuid"
}
`)
	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E004")
}

func TestValidateCommand_MissingDirIsCommandError(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
