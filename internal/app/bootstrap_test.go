package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/registry"
	"nexus/internal/store"
)

// offlineConfig selects the openai provider with an inline key so the
// bootstrap never consults the environment or the network. The oracle client
// is only constructed, never called, in these tests.
const offlineConfig = `broker:
  port: 8123
oracle:
  provider: openai
  apiKey: test-key
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestNewApplication_Bootstraps(t *testing.T) {
	dir := writeTestConfig(t, offlineConfig)

	application, err := NewApplication(context.Background(), NewConfig(false, true, dir))
	require.NoError(t, err)
	defer application.Close()

	assert.Equal(t, dir, application.Config().ConfigPath)
	require.NotNil(t, application.Config().NexusConfig)
	assert.Equal(t, 8123, application.Config().NexusConfig.Broker.Port)

	c := application.Components()
	assert.NotNil(t, c.Store)
	assert.NotNil(t, c.Oracle)
	assert.NotNil(t, c.Registry)
	assert.NotNil(t, c.Manager)
	assert.NotNil(t, c.Caller)
	assert.NotNil(t, c.Index)
	assert.NotNil(t, c.Graph)
	assert.NotNil(t, c.Translator)
	assert.NotNil(t, c.Executor)
	assert.NotNil(t, c.Broker)

	assert.FileExists(t, filepath.Join(dir, "nexus.db"))
}

func TestNewApplication_MissingConfigFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	// Defaults select the gemini provider, whose key comes from the
	// environment. Construction does not call the API.
	t.Setenv("GEMINI_API_KEY", "test-key")

	application, err := NewApplication(context.Background(), NewConfig(false, true, dir))
	require.NoError(t, err)
	defer application.Close()

	assert.Equal(t, 8090, application.Config().NexusConfig.Broker.Port)
	assert.Equal(t, "localhost", application.Config().NexusConfig.Broker.Host)
}

func TestNewApplication_MalformedConfig(t *testing.T) {
	dir := writeTestConfig(t, "broker: [nope")

	_, err := NewApplication(context.Background(), NewConfig(false, true, dir))
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to load nexus configuration")
}

func TestNewApplication_MissingAPIKey(t *testing.T) {
	dir := writeTestConfig(t, "oracle:\n  provider: openai\n")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewApplication(context.Background(), NewConfig(false, true, dir))
	require.Error(t, err)
	assert.ErrorContains(t, err, "no API key")
}

func TestNewApplication_WarmsRegistryFromStore(t *testing.T) {
	dir := writeTestConfig(t, offlineConfig)

	st, err := store.Open(filepath.Join(dir, "nexus.db"))
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, st.SaveServer(context.Background(), &registry.ServerRecord{
		Name:         "web-fetcher",
		Command:      "node",
		Args:         []string{"fetcher.js"},
		Transport:    registry.TransportStdio,
		Status:       registry.StatusProfiled,
		Operations:   []registry.Operation{{Name: "fetch_url", Description: "Fetches a web page"}},
		Profile:      &registry.SemanticProfile{PlainLanguageSummary: "Fetches web pages", Domain: "web"},
		RegisteredAt: now,
		UpdatedAt:    now,
	}))
	require.NoError(t, st.Close())

	application, err := NewApplication(context.Background(), NewConfig(false, true, dir))
	require.NoError(t, err)
	defer application.Close()

	warmed := application.Components().Registry.Get("web-fetcher")
	require.NotNil(t, warmed)
	assert.Equal(t, registry.StatusProfiled, warmed.Status)
	require.Len(t, warmed.Operations, 1)
	assert.Equal(t, "fetch_url", warmed.Operations[0].Name)
	require.NotNil(t, warmed.Profile)
	assert.Equal(t, "web", warmed.Profile.Domain)
}
