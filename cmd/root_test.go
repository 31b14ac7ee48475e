package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCommandVectorsSingle(t *testing.T) {
	vectors := splitCommandVectors([]string{"gopls", "-mode=stdio"})
	require.Len(t, vectors, 1)
	assert.Equal(t, []string{"gopls", "-mode=stdio"}, vectors[0])
}

func TestSplitCommandVectorsMultiple(t *testing.T) {
	vectors := splitCommandVectors([]string{
		"go=gopls", "-mode=stdio",
		"--",
		"eslint=vscode-eslint-language-server", "--stdio",
	})
	require.Len(t, vectors, 2)
	assert.Equal(t, []string{"go=gopls", "-mode=stdio"}, vectors[0])
	assert.Equal(t, []string{"eslint=vscode-eslint-language-server", "--stdio"}, vectors[1])
}

func TestBuildCommandsNamesFromEquals(t *testing.T) {
	vectors := [][]string{
		{"go=gopls", "-mode=stdio"},
		{"eslint=vscode-eslint-language-server", "--stdio"},
	}
	commands, defaultName, err := buildCommands(vectors)
	require.NoError(t, err)
	assert.Equal(t, "go", defaultName)
	assert.Equal(t, []string{"gopls", "-mode=stdio"}, commands["go"])
	assert.Equal(t, []string{"vscode-eslint-language-server", "--stdio"}, commands["eslint"])
}

func TestBuildCommandsNameDefaultsToBasename(t *testing.T) {
	vectors := [][]string{{"/usr/local/bin/gopls"}}
	commands, defaultName, err := buildCommands(vectors)
	require.NoError(t, err)
	assert.Equal(t, "gopls", defaultName)
	assert.Equal(t, []string{"/usr/local/bin/gopls"}, commands["gopls"])
}

func TestBuildCommandsRejectsEmptyVector(t *testing.T) {
	_, _, err := buildCommands([][]string{{"gopls"}, {}})
	assert.Error(t, err)
}

func TestBuildCommandsRejectsDuplicateNames(t *testing.T) {
	_, _, err := buildCommands([][]string{{"gopls"}, {"gopls"}})
	assert.Error(t, err)
}

func TestNormalizeListenBarePort(t *testing.T) {
	addr, err := normalizeListen("8080")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", addr)
}

func TestNormalizeListenAddressUnchanged(t *testing.T) {
	addr, err := normalizeListen("0.0.0.0:8888")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8888", addr)
}

func TestNormalizeListenEmptyUsesDefault(t *testing.T) {
	addr, err := normalizeListen("")
	require.NoError(t, err)
	assert.Equal(t, defaultListen, addr)
}

func TestResolveProjectDirDefaultsToCwd(t *testing.T) {
	dir, err := resolveProjectDir("")
	require.NoError(t, err)
	assert.NotEmpty(t, dir)
}

func TestResolveProjectDirExpandsRelative(t *testing.T) {
	dir, err := resolveProjectDir(".")
	require.NoError(t, err)
	assert.NotEmpty(t, dir)
}
