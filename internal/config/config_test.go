package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	c := Default()
	require.Equal(t, 8080, c.Server.Port)
	require.Equal(t, 100, c.Limits.MaxConnections)
	require.Equal(t, 10, c.Limits.MaxRequestsPerSession)
	require.Equal(t, "templates", c.TemplateDir)
	require.Equal(t, "info", c.LogLevel)
	require.True(t, c.ObjectStore.Public)
}

func TestLoadWithEmptyPathReturnsDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default().Server.Port, c.Server.Port)
}

func TestLoadOverridesFromTOMLFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.toml")
	require.NoError(t, err)
	_, err = f.WriteString("template_dir = \"custom_templates\"\n[server]\nport = 9090\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	c, err := Load(f.Name())
	require.NoError(t, err)
	require.Equal(t, 9090, c.Server.Port)
	require.Equal(t, "custom_templates", c.TemplateDir)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/no/such/config.toml")
	require.Error(t, err)
}

func TestEnvOverridesTakePriorityOverFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.toml")
	require.NoError(t, err)
	_, err = f.WriteString("log_level = \"warn\"\n[server]\nport = 9090\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Setenv("DIAGRAMSVC_PORT", "7070")
	t.Setenv("DIAGRAMSVC_LOG_LEVEL", "debug")

	c, err := Load(f.Name())
	require.NoError(t, err)
	require.Equal(t, 7070, c.Server.Port)
	require.Equal(t, "debug", c.LogLevel)
}

func TestDurationHelpersConvertMillisecondFields(t *testing.T) {
	c := Default()
	require.Equal(t, and60(t), int64(c.RequestTimeout().Seconds()))
}

func and60(t *testing.T) int64 { return 60 }
