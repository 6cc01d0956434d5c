package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDefinition(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefinition(t *testing.T) {
	dir := t.TempDir()
	path := writeDefinition(t, dir, "web-fetcher.yaml", `
name: web-fetcher
command: node
args:
  - fetcher.js
  - --quiet
`)

	def, err := LoadDefinition(path)
	require.NoError(t, err)

	assert.Equal(t, "web-fetcher", def.Name)
	assert.Equal(t, "node", def.Command)
	assert.Equal(t, []string{"fetcher.js", "--quiet"}, def.Args)
	assert.Equal(t, TransportStdio, def.Transport)
}

func TestLoadDefinition_NameDefaultsToFileName(t *testing.T) {
	dir := t.TempDir()
	path := writeDefinition(t, dir, "slack-sender.yaml", `
command: python
args: ["slack_server.py"]
`)

	def, err := LoadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, "slack-sender", def.Name)
}

func TestLoadDefinition_EnvPlaceholders(t *testing.T) {
	t.Setenv("NEXUS_TEST_TOKEN", "xoxb-secret")

	dir := t.TempDir()
	path := writeDefinition(t, dir, "slack-sender.yaml", `
command: python
args: ["slack_server.py"]
env:
  SLACK_BOT_TOKEN: "{{ .NEXUS_TEST_TOKEN }}"
`)

	def, err := LoadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, "xoxb-secret", def.Env["SLACK_BOT_TOKEN"])
}

func TestLoadDefinition_MissingPlaceholder(t *testing.T) {
	dir := t.TempDir()
	path := writeDefinition(t, dir, "broken.yaml", `
command: python
env:
  TOKEN: "{{ .NEXUS_DEFINITELY_UNSET_VARIABLE }}"
`)

	_, err := LoadDefinition(path)
	assert.Error(t, err)
}

func TestLoadDefinition_RemoteTransportDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeDefinition(t, dir, "remote.yaml", `
url: http://localhost:9000/mcp
`)

	def, err := LoadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, TransportStreamableHTTP, def.Transport)
}

func TestLoadDefinition_RequiresCommandOrURL(t *testing.T) {
	dir := t.TempDir()
	path := writeDefinition(t, dir, "empty.yaml", `
name: empty
`)

	_, err := LoadDefinition(path)
	assert.Error(t, err)
}

func TestLoadDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "web-fetcher.yaml", "command: node\n")
	writeDefinition(t, dir, "summarizer.yml", "command: python\n")
	writeDefinition(t, dir, "broken.yaml", "command: [not: {valid\n")
	writeDefinition(t, dir, "notes.txt", "not a definition\n")

	defs, err := LoadDefinitions(dir)
	require.NoError(t, err)

	// The broken file is skipped and names come back sorted.
	require.Len(t, defs, 2)
	assert.Equal(t, "summarizer", defs[0].Name)
	assert.Equal(t, "web-fetcher", defs[1].Name)
}

func TestLoadDefinitions_MissingDir(t *testing.T) {
	defs, err := LoadDefinitions(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestDefinitionName(t *testing.T) {
	assert.Equal(t, "web-fetcher", definitionName("/some/dir/web-fetcher.yaml"))
	assert.Equal(t, "summarizer", definitionName("summarizer.yml"))
}

func TestIsYAMLFile(t *testing.T) {
	assert.True(t, isYAMLFile("a.yaml"))
	assert.True(t, isYAMLFile("a.YML"))
	assert.False(t, isYAMLFile("a.txt"))
	assert.False(t, isYAMLFile("yaml"))
}
