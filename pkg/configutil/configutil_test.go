package configutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string            `json:"name"`
	Port    int               `json:"port"`
	Delay   Duration          `json:"delay"`
	Headers map[string]string `json:"headers"`
}

func writeFile(t testing.TB, path, content string) {
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
}

func TestReadConfigMergesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")

	writeFile(t, name, `{
		// defaults
		name: "server",
		port: 8080,
		delay: "5s",
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		port: 9090,
		delay: 2.5,
	}`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "server", cfg.Name)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 2500*time.Millisecond, cfg.Delay.Std())
}

func TestReadConfigIntoKeepsSeed(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	writeFile(t, name, `{port: 0, headers: {b: "2"}}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{delay: "0s"}`)

	cfg := testConfig{
		Name:    "seed",
		Port:    8080,
		Delay:   Duration(5 * time.Second),
		Headers: map[string]string{"a": "1"},
	}
	require.NoError(t, ReadConfigInto(name, &cfg))
	require.Equal(t, testConfig{
		Name:    "seed",
		Port:    0,
		Delay:   0,
		Headers: map[string]string{"a": "1", "b": "2"},
	}, cfg)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{name: "local"}`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Name)
}

func TestReadConfigNotExist(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	writeFile(t, name, `{delay: "soon"}`)

	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "a/b/config.local.json5", LocalPath("a/b/config.json5"))
	require.Equal(t, "config.local", LocalPath("config"))
}
