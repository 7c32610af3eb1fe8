package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type openai struct {
	APIKey   string `json:"api_key"`
	Endpoint string `json:"endpoint" validate:"required,url"`
	Timeout  string `json:"timeout"`
}

const sample = `
[global]
app_name = "blendgpt"
app_version = "1.0.0"

[openai]
endpoint = "http://localhost:9999/v1/chat/completions"
timeout = "5s"

[executor]
command = ["python3", "-"]
`

func TestInitFromString(t *testing.T) {
	require.NoError(t, InitFromString(sample))

	assert.True(t, Exists("openai"))
	assert.False(t, Exists("redis"))
	assert.Equal(t, "blendgpt", os.Getenv("APP_NAME"))

	got, err := Load("openai", openai{Timeout: "60s"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/v1/chat/completions", got.Endpoint)
	assert.Equal(t, "5s", got.Timeout)
}

func TestLoadMissingSectionKeepsDefaults(t *testing.T) {
	require.NoError(t, InitFromString(sample))

	def := openai{Endpoint: "https://example.com"}
	got, err := Load("nope", def)
	require.NoError(t, err)
	assert.Equal(t, def, got)
}

func TestLoadValidates(t *testing.T) {
	require.NoError(t, InitFromString(`
[openai]
endpoint = "not a url"
`))
	_, err := Load("openai", openai{})
	assert.Error(t, err)
}

func TestInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	t.Setenv(EnvConfigPath, path)
	require.NoError(t, Init(""))

	section, err := Load("executor", struct {
		Command []string `json:"command"`
	}{})
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "-"}, section.Command)
}

func TestInitMissingFile(t *testing.T) {
	assert.Error(t, Init(filepath.Join(t.TempDir(), "missing.toml")))
}
