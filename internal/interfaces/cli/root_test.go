package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
)

func TestRootCommandStructure(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "chemroute", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["extract"], "extract subcommand should be registered")
	assert.True(t, names["watch"], "watch subcommand should be registered")
}

func TestRootCommandGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("debug"))
}

func TestRootCommandVersion(t *testing.T) {
	cmd := NewRootCommand()
	assert.Contains(t, cmd.Version, Version)
	assert.Contains(t, cmd.Version, GitCommit)
}

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestExtractRequiresInput(t *testing.T) {
	err := runCommand(t, "extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestExtractEmptyDirectory(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()

	err := runCommand(t, "extract", "--input", input, "--output", output)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNoInputFiles))
}

func TestExtractRejectsUnknownLanguage(t *testing.T) {
	err := runCommand(t, "extract", "--input", t.TempDir(), "--language", "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "language")
}

func TestWatchRequiresInput(t *testing.T) {
	err := runCommand(t, "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}
