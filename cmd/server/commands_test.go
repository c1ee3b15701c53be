package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/threadcraft-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfig(t *testing.T, cfg *config.Config) {
	t.Helper()
	prev := loadFunc
	loadFunc = func() (*config.Config, error) { return cfg, nil }
	t.Cleanup(func() { loadFunc = prev })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "threadcraft "+version)
}

func TestMigrateCommand(t *testing.T) {
	withConfig(t, testConfig())

	_, err := execute(t, "migrate", "sideways")
	assert.Error(t, err)

	_, err = execute(t, "migrate", "up")
	assert.ErrorContains(t, err, "database.url is required")
}

func TestPointsGrantCommand_RequiresDatabase(t *testing.T) {
	withConfig(t, testConfig())

	_, err := execute(t, "points", "grant", "--user", "user_1", "--amount", "10")
	assert.ErrorContains(t, err, "database.url is required")

	_, err = execute(t, "points", "grant", "--amount", "10")
	assert.Error(t, err, "user flag is required")
}

func TestGenerateCommand(t *testing.T) {
	withConfig(t, testConfig())

	t.Run("reports a failed outcome", func(t *testing.T) {
		out, err := execute(t, "generate", "--user", "user_1", "--type", "twitter", "--prompt", "hello")

		assert.ErrorContains(t, err, "generation failed")
		assert.Contains(t, out, `"state": "failed"`)
	})

	t.Run("missing image file", func(t *testing.T) {
		_, err := execute(t, "generate", "--user", "user_1", "--prompt", "hello",
			"--image", filepath.Join(t.TempDir(), "missing.png"))
		assert.ErrorContains(t, err, "failed to read image")
	})
}

func TestReadImageFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	files, err := readImageFiles([]string{path})

	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "photo.png", files[0].Name)
	assert.Equal(t, 8, files[0].Size)
}
