// Package converter moves saves between the game's binary format and the
// JSON document the tower package edits, by running the external
// tower-unite-suitebro converter.
package converter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rainbowphysics/tower"
	"github.com/rainbowphysics/tower/internal/config"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedPlatform = errors.New("no bundled converter for this platform, use JSON-only mode")
	ErrConversionFailed    = errors.New("converter did not complete successfully")
)

// SourceDir is the checkout used when building the converter from source.
const SourceDir = "tower-unite-suitebro"

// Converter runs the external converter. With JSONOnly set it never starts
// a process and reads or writes the .json sidecar directly.
type Converter struct {
	Exe      string
	Args     []string // leading arguments, e.g. "run --release --" for cargo
	Dir      string   // working directory for the process
	JSONOnly bool
	Logger   *zap.Logger
}

// BundledPath returns the platform converter under root/lib.
func BundledPath(root, goos, goarch string) (string, error) {
	switch goos {
	case "windows":
		return filepath.Join(root, "lib", "win64", "tower-unite-save-x86_64-pc-windows-msvc.exe"), nil
	case "darwin":
		if goarch == "arm64" {
			return filepath.Join(root, "lib", "apple-aarch64", "tower-unite-save-aarch64-apple-darwin"), nil
		}
		return filepath.Join(root, "lib", "apple-x86", "tower-unite-save-x86_64-apple-darwin"), nil
	case "linux":
		if inContainer() {
			return filepath.Join(root, "lib", "linux-container", "tower-unite-save-x86_64-unknown-linux-musl"), nil
		}
		return filepath.Join(root, "lib", "linux", "tower-unite-save-x86_64-unknown-linux-gnu"), nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
}

func inContainer() bool {
	data, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	return bytes.Contains(data, []byte("docker"))
}

// New resolves the converter from cfg. root is the toolkit directory holding
// lib/ and the optional source checkout.
func New(cfg *config.Config, root string, jsonOnly bool, logger *zap.Logger) (*Converter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Converter{JSONOnly: jsonOnly, Logger: logger}
	if jsonOnly {
		return c, nil
	}

	switch {
	case cfg.ConverterPath != "":
		c.Exe = cfg.ConverterPath
	case cfg.FromSource:
		dir := filepath.Join(root, SourceDir)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("could not find %s, is the converter checked out there?", dir)
		}
		c.Exe = "cargo"
		c.Args = []string{"run", "--release", "--"}
		c.Dir = dir
	default:
		exe, err := BundledPath(root, runtime.GOOS, runtime.GOARCH)
		if err != nil {
			return nil, err
		}
		c.Exe = exe
	}
	return c, nil
}

// Run converts input to output. toSave selects the JSON to binary direction.
// Converter stdout is relayed to the logger line by line.
func (c *Converter) Run(ctx context.Context, input, output string, toSave bool) error {
	mode := "to-json"
	if toSave {
		mode = "to-save"
	}
	args := append(append([]string{}, c.Args...), mode, "-!", "-i", input, "-o", output)

	cmd := exec.CommandContext(ctx, c.Exe, args...)
	cmd.Dir = c.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		c.Logger.Info(sc.Text())
	}
	if err != nil {
		c.Logger.Error("converter failed", zap.String("mode", mode), zap.String("stderr", stderr.String()))
		return fmt.Errorf("%w: %s %s: %v", ErrConversionFailed, mode, input, err)
	}

	c.Logger.Info("converted",
		zap.String("input", input),
		zap.String("output", output),
		zap.String("outcome", "success"))
	return nil
}

// JSONPath is the sidecar document written next to a save.
func JSONPath(path string) string {
	return path + ".json"
}

// Load converts the save at path to JSON (unless JSONOnly) and parses it.
func (c *Converter) Load(ctx context.Context, path string) (*tower.Suitebro, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	jsonPath := JSONPath(abs)
	if !c.JSONOnly {
		if err := c.Run(ctx, abs, jsonPath, false); err != nil {
			return nil, err
		}
	}

	c.Logger.Info("loading JSON file", zap.String("path", jsonPath))
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read save JSON: %w", err)
	}
	save, err := tower.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", jsonPath, err)
	}
	save.Filename = filepath.Base(abs)
	save.Directory = filepath.Dir(abs)
	return save, nil
}

// Save writes save's JSON next to path and, unless JSONOnly, converts it to
// the binary save at path.
func (c *Converter) Save(ctx context.Context, save *tower.Suitebro, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := save.MarshalIndent()
	if err != nil {
		return err
	}
	jsonPath := JSONPath(abs)
	if err := os.MkdirAll(filepath.Dir(jsonPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write save JSON: %w", err)
	}
	if c.JSONOnly {
		return nil
	}
	return c.Run(ctx, jsonPath, abs, true)
}
