package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rainbowphysics/tower/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const condoJSON = `{"format_version":3,"groups":[],"items":[{"name":"Chair","guid":"aaaaaaaa-1111-2222-3333-bbbbbbbbbbbb","position":{"x":1.0,"y":2.0,"z":3.0}}],"properties":[{"name":"CondoWeather_C_0","properties":{}}]}`

// fakeConverter copies -i to -o and records the mode it was invoked with.
const fakeConverter = `#!/bin/sh
mode=$1
shift
while [ $# -gt 0 ]; do
  case $1 in
    -i) in=$2; shift ;;
    -o) out=$2; shift ;;
  esac
  shift
done
echo "$mode" >> "$(dirname "$0")/calls.log"
echo "converted $in"
cp "$in" "$out"
`

func writeFakeConverter(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script converter needs a POSIX shell")
	}
	exe := filepath.Join(t.TempDir(), "tower-unite-save")
	require.NoError(t, os.WriteFile(exe, []byte(fakeConverter), 0755))
	return exe
}

func TestBundledPath(t *testing.T) {
	p, err := BundledPath("root", "windows", "amd64")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("root", "lib", "win64", "tower-unite-save-x86_64-pc-windows-msvc.exe"), p)

	p, err = BundledPath("root", "darwin", "arm64")
	require.NoError(t, err)
	assert.Contains(t, p, "apple-aarch64")

	p, err = BundledPath("root", "darwin", "amd64")
	require.NoError(t, err)
	assert.Contains(t, p, "apple-x86")

	_, err = BundledPath("root", "plan9", "386")
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
}

func TestNew(t *testing.T) {
	cfg := config.DefaultConfig()

	c, err := New(cfg, t.TempDir(), true, nil)
	require.NoError(t, err)
	assert.True(t, c.JSONOnly)
	assert.Empty(t, c.Exe)

	cfg.ConverterPath = "/opt/suitebro"
	c, err = New(cfg, t.TempDir(), false, nil)
	require.NoError(t, err)
	assert.Equal(t, "/opt/suitebro", c.Exe)

	cfg.ConverterPath = ""
	cfg.FromSource = true
	_, err = New(cfg, t.TempDir(), false, nil)
	assert.Error(t, err)

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, SourceDir), 0755))
	c, err = New(cfg, root, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "cargo", c.Exe)
	assert.Equal(t, []string{"run", "--release", "--"}, c.Args)
	assert.Equal(t, filepath.Join(root, SourceDir), c.Dir)
}

func TestLoadSave_JSONOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CondoData")
	require.NoError(t, os.WriteFile(JSONPath(path), []byte(condoJSON), 0644))

	c, err := New(config.DefaultConfig(), dir, true, nil)
	require.NoError(t, err)

	save, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "CondoData", save.Filename)
	assert.Equal(t, dir, save.Directory)
	assert.Equal(t, 2, save.Len())

	out := filepath.Join(dir, "out", "Edited")
	require.NoError(t, c.Save(context.Background(), save, out))
	data, err := os.ReadFile(JSONPath(out))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"CondoWeather_C_0"`)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "JSON-only save must not write the binary file")
}

func TestLoadSave_Converter(t *testing.T) {
	exe := writeFakeConverter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "CondoData")
	// the fake converter copies bytes, so the "binary" save is JSON too
	require.NoError(t, os.WriteFile(path, []byte(condoJSON), 0644))

	c, err := New(&config.Config{ConverterPath: exe}, dir, false, nil)
	require.NoError(t, err)

	save, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	assert.NotNil(t, save.FindItem("Chair"))

	out := filepath.Join(dir, "Edited")
	require.NoError(t, c.Save(context.Background(), save, out))
	_, err = os.Stat(out)
	require.NoError(t, err)

	calls, err := os.ReadFile(filepath.Join(filepath.Dir(exe), "calls.log"))
	require.NoError(t, err)
	assert.Equal(t, "to-json\nto-save\n", string(calls))
}

func TestRun_Failure(t *testing.T) {
	c, err := New(&config.Config{ConverterPath: filepath.Join(t.TempDir(), "missing")}, t.TempDir(), false, nil)
	require.NoError(t, err)

	err = c.Run(context.Background(), "in", "out", false)
	assert.True(t, errors.Is(err, ErrConversionFailed))

	_, err = c.Load(context.Background(), filepath.Join(t.TempDir(), "CondoData"))
	assert.True(t, errors.Is(err, ErrConversionFailed))
}
