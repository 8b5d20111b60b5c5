package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nao1215/picdedup/internal/config"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "init" {
			t.Errorf("expected use 'init', got %q", cmd.Use)
		}
	})

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
		if flag.DefValue != config.DefaultConfigFile {
			t.Errorf("expected default %q, got %q", config.DefaultConfigFile, flag.DefValue)
		}
	})

	t.Run("has force flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("force")
		if flag == nil {
			t.Fatal("expected force flag")
		}
		if flag.Shorthand != "f" {
			t.Errorf("expected shorthand 'f', got %q", flag.Shorthand)
		}
	})
}

// TestRunInitCmd tests the init command execution.
func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	run := func(args ...string) (string, error) {
		cmd := NewInitCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return buf.String(), err
	}

	t.Run("creates config file", func(t *testing.T) {
		t.Parallel()
		outputPath := filepath.Join(t.TempDir(), config.DefaultConfigFile)

		out, err := run("-o", outputPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Created configuration file") {
			t.Errorf("unexpected output: %q", out)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		for _, want := range []string{"detectors:", "kind: hash", "thumbnail:"} {
			if !strings.Contains(string(content), want) {
				t.Errorf("expected config to contain %q", want)
			}
		}
	})

	t.Run("fails if file exists without force", func(t *testing.T) {
		t.Parallel()
		outputPath := filepath.Join(t.TempDir(), config.DefaultConfigFile)
		if err := os.WriteFile(outputPath, []byte("existing"), 0o600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		_, err := run("-o", outputPath)
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected 'already exists' error, got %v", err)
		}
	})

	t.Run("overwrites file with force flag", func(t *testing.T) {
		t.Parallel()
		outputPath := filepath.Join(t.TempDir(), config.DefaultConfigFile)
		if err := os.WriteFile(outputPath, []byte("existing"), 0o600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		if _, err := run("-o", outputPath, "-f"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if string(content) == "existing" {
			t.Error("expected file to be overwritten")
		}
	})

	t.Run("creates parent directories with private permissions", func(t *testing.T) {
		t.Parallel()
		outputPath := filepath.Join(t.TempDir(), "photos", "nested", config.DefaultConfigFile)

		if _, err := run("-o", outputPath); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		info, err := os.Stat(outputPath)
		if err != nil {
			t.Fatalf("expected config file to be created: %v", err)
		}
		if runtime.GOOS != "windows" && info.Mode().Perm() != 0o600 {
			t.Errorf("expected permissions 0600, got %o", info.Mode().Perm())
		}
	})

	t.Run("rejects arguments", func(t *testing.T) {
		t.Parallel()
		if _, err := run("extra"); err == nil {
			t.Error("expected error for positional argument")
		}
	})
}

// TestConfigTemplate checks that the embedded template is a loadable
// configuration file.
func TestConfigTemplate(t *testing.T) {
	t.Parallel()

	content, err := configTemplate.ReadFile("templates/picdedup.yaml")
	if err != nil {
		t.Fatalf("failed to read template: %v", err)
	}

	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}

	cf, err := config.LoadConfigFile(path)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	cfg := config.NewConfig()
	cf.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("template does not validate: %v", err)
	}
	if len(cfg.Detectors) != 1 || cfg.Detectors[0].Kind != config.KindHash {
		t.Errorf("expected a single hash stage, got %+v", cfg.Detectors)
	}
}
