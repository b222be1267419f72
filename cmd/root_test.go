package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRootCmd_Exists verifies the root command is wired.
func TestRootCmd_Exists(t *testing.T) {
	require.NotNil(t, rootCmd, "Root command should exist")
	assert.Equal(t, "herbdb", rootCmd.Use,
		"Command name should be herbdb")
}

// TestRootCmd_Version verifies the version string carries both
// version and build.
func TestRootCmd_Version(t *testing.T) {
	assert.Contains(t, rootCmd.Version, "version:")
	assert.Contains(t, rootCmd.Version, "build:")
}

// TestRootCmd_Subcommands verifies every pipeline stage has a
// subcommand.
func TestRootCmd_Subcommands(t *testing.T) {
	want := []string{
		"create", "register", "transform", "ancestry",
		"extract", "aggregate", "check", "serve", "export",
	}
	names := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range want {
		assert.True(t, names[name],
			"Subcommand %s should be registered", name)
	}
}

// TestGetCreateCmd_ForceFlag verifies --force flag exists.
func TestGetCreateCmd_ForceFlag(t *testing.T) {
	cmd := getCreateCmd()

	forceFlag := cmd.Flags().Lookup("force")
	require.NotNil(t, forceFlag,
		"--force flag should exist")
	assert.Equal(t, "f", forceFlag.Shorthand,
		"Force flag shorthand should be -f")
	assert.Equal(t, "false", forceFlag.DefValue,
		"Force flag should default to false")
}

// TestGetExtractCmd_Flags verifies engine and jobs flags.
func TestGetExtractCmd_Flags(t *testing.T) {
	cmd := getExtractCmd()

	engineFlag := cmd.Flags().Lookup("engine")
	require.NotNil(t, engineFlag, "--engine flag should exist")
	assert.Equal(t, "tesseract", engineFlag.DefValue,
		"Default engine should be tesseract")

	jobsFlag := cmd.Flags().Lookup("jobs")
	require.NotNil(t, jobsFlag, "--jobs flag should exist")
}

// TestGetCheckCmd_Flags verifies similarity and verifier flags.
func TestGetCheckCmd_Flags(t *testing.T) {
	cmd := getCheckCmd()

	require.NotNil(t, cmd.Flags().Lookup("similarities"),
		"--similarities flag should exist")
	require.NotNil(t, cmd.Flags().Lookup("skip-verifier"),
		"--skip-verifier flag should exist")
}

// TestNewExtractor_UnknownEngine verifies engine validation.
func TestNewExtractor_UnknownEngine(t *testing.T) {
	_, err := newExtractor("nonexistent", "")
	require.Error(t, err, "Unknown engine should fail")
	assert.Contains(t, err.Error(), "nonexistent")
}

// TestCollectFiles_GroupsByStem verifies filename stem grouping.
func TestCollectFiles_GroupsByStem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"IMG_0001.NEF":  "raw bytes",
		"IMG_0001.jpg":  "preview bytes",
		"IMG_0002.jpg":  "other specimen",
		"notes.txt":     "not an image",
		"checksums.md5": "not an image",
	}
	for name, content := range files {
		writeTestFile(t, dir, name, content)
	}

	groups, err := collectFiles(dir)
	require.NoError(t, err)

	require.Len(t, groups, 2,
		"Two stems should yield two specimens")
	assert.Len(t, groups["IMG_0001"], 2,
		"Raw and preview share one specimen")
	assert.Len(t, groups["IMG_0002"], 1)
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
	require.NoError(t, err)
}

// TestFileRole verifies raw vs preview classification.
func TestFileRole(t *testing.T) {
	assert.Equal(t, "raw", fileRole("IMG_0001.NEF"))
	assert.Equal(t, "raw", fileRole("shot.cr2"))
	assert.Equal(t, "preview", fileRole("IMG_0001.jpg"))
}
