package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/inkhuang/nhaneskit/internal/config"
	"github.com/spf13/cobra"
)

// newCmdForTest returns the named subcommand with the root's persistent
// flags merged, so flag lookups behave as they do during execution.
func newCmdForTest(t *testing.T, name string) *cobra.Command {
	t.Helper()

	root := NewRootCmd()
	cmd, _, err := root.Find([]string{name})
	if err != nil {
		t.Fatalf("failed to find %s command: %v", name, err)
	}
	if err := cmd.ParseFlags([]string{}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return cmd
}

// TestNewFetchCmd tests the fetch command creation.
func TestNewFetchCmd(t *testing.T) {
	t.Parallel()

	cmd := NewFetchCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "fetch" {
			t.Errorf("expected use 'fetch', got %q", cmd.Use)
		}
	})

	t.Run("has update flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("update")
		if flag == nil {
			t.Fatal("expected update flag")
		}
		if flag.Shorthand != "u" {
			t.Errorf("expected shorthand 'u', got %q", flag.Shorthand)
		}
	})

	t.Run("has download flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("download")
		if flag == nil {
			t.Fatal("expected download flag")
		}
		if flag.Shorthand != "d" {
			t.Errorf("expected shorthand 'd', got %q", flag.Shorthand)
		}
	})

	t.Run("has retry and delay flags with defaults", func(t *testing.T) {
		t.Parallel()
		retries := cmd.Flags().Lookup("retries")
		if retries == nil {
			t.Fatal("expected retries flag")
		}
		if retries.DefValue != "3" {
			t.Errorf("expected default retries '3', got %q", retries.DefValue)
		}
		delay := cmd.Flags().Lookup("delay")
		if delay == nil {
			t.Fatal("expected delay flag")
		}
	})

	t.Run("has report flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"json", "markdown", "output"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})
}

// TestGetVerboseFlag tests verbose flag resolution.
func TestGetVerboseFlag(t *testing.T) {
	t.Run("returns false when flag not set", func(t *testing.T) {
		cmd := newCmdForTest(t, "fetch")
		if getVerboseFlag(cmd) {
			t.Error("expected false when flag not set")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		root := NewRootCmd()
		_ = root.PersistentFlags().Set("verbose", "true")

		cmd, _, err := root.Find([]string{"fetch"})
		if err != nil {
			t.Fatalf("failed to find fetch command: %v", err)
		}
		if err := cmd.ParseFlags([]string{}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		if !getVerboseFlag(cmd) {
			t.Error("expected true from parent verbose flag")
		}
	})
}

// TestBuildFetchConfig tests configuration building from flags.
func TestBuildFetchConfig(t *testing.T) {
	t.Run("builds config with default values", func(t *testing.T) {
		cmd := newCmdForTest(t, "fetch")
		cfg, err := buildFetchConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg == nil {
			t.Fatal("expected non-nil config")
		}
		if len(cfg.Components) != len(config.DefaultComponents) {
			t.Errorf("expected %d components, got %d",
				len(config.DefaultComponents), len(cfg.Components))
		}
		if !cfg.Download {
			t.Error("expected Download to default to true when neither flag is set")
		}
		if !cfg.UpdateIndex {
			t.Error("expected UpdateIndex to default to true when neither flag is set")
		}
		if !cfg.SaveToCatalog {
			t.Error("expected SaveToCatalog to be true")
		}
	})

	t.Run("builds config with custom flags", func(t *testing.T) {
		cmd := newCmdForTest(t, "fetch")
		_ = cmd.Flags().Set("download", "true")
		_ = cmd.Flags().Set("update", "true")
		_ = cmd.Flags().Set("retries", "5")
		_ = cmd.Flags().Set("batch", "2")
		_ = cmd.Flags().Set("timeout", "30s")
		_ = cmd.Flags().Set("components", "Demographics,Laboratory")

		cfg, err := buildFetchConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.Download || !cfg.UpdateIndex {
			t.Error("expected Download and UpdateIndex to be true")
		}
		if cfg.Retries != 5 {
			t.Errorf("expected Retries 5, got %d", cfg.Retries)
		}
		if cfg.BatchSize != 2 {
			t.Errorf("expected BatchSize 2, got %d", cfg.BatchSize)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout 30s, got %s", cfg.Timeout)
		}
		if len(cfg.Components) != 2 || cfg.Components[0] != "Demographics" {
			t.Errorf("expected components [Demographics Laboratory], got %v", cfg.Components)
		}
	})

	t.Run("update flag alone disables download", func(t *testing.T) {
		cmd := newCmdForTest(t, "fetch")
		_ = cmd.Flags().Set("update", "true")

		cfg, err := buildFetchConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.UpdateIndex {
			t.Error("expected UpdateIndex to be true")
		}
		if cfg.Download {
			t.Error("expected Download to be false when only --update is given")
		}
	})

	t.Run("loads component config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nhaneskit.yaml")
		content := `components:
  Demographics:
    cycles:
      - "2017-2018"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cmd := newCmdForTest(t, "fetch")
		_ = cmd.Flags().Set("config", configPath)

		cfg, err := buildFetchConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// The config file narrows the component set.
		if len(cfg.Components) != 1 || cfg.Components[0] != "Demographics" {
			t.Errorf("expected components [Demographics], got %v", cfg.Components)
		}

		cc := cfg.ComponentConfigs.GetComponentConfig("Demographics")
		if len(cc.Cycles) != 1 || cc.Cycles[0] != "2017-2018" {
			t.Errorf("expected cycles [2017-2018], got %v", cc.Cycles)
		}
	})

	t.Run("components flag overrides config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nhaneskit.yaml")
		content := `components:
  Demographics: {}
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cmd := newCmdForTest(t, "fetch")
		_ = cmd.Flags().Set("config", configPath)
		_ = cmd.Flags().Set("components", "Laboratory")

		cfg, err := buildFetchConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.Components) != 1 || cfg.Components[0] != "Laboratory" {
			t.Errorf("expected components [Laboratory], got %v", cfg.Components)
		}
	})

	t.Run("errors on missing explicit config file", func(t *testing.T) {
		cmd := newCmdForTest(t, "fetch")
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml"))

		_, err := buildFetchConfig(cmd)
		if err == nil {
			t.Fatal("expected error for missing config file")
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected 'not found' error, got %v", err)
		}
	})
}

// TestBuildOrganizeConfig tests the merge/classify flag handling.
func TestBuildOrganizeConfig(t *testing.T) {
	t.Run("reads directory overrides", func(t *testing.T) {
		cmd := newCmdForTest(t, "merge")
		_ = cmd.Flags().Set("input-dir", "/tmp/in")
		_ = cmd.Flags().Set("output-dir", "/tmp/out")

		cfg, err := buildOrganizeConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.InputDir != "/tmp/in" {
			t.Errorf("expected InputDir '/tmp/in', got %q", cfg.InputDir)
		}
		if cfg.OutputDir != "/tmp/out" {
			t.Errorf("expected OutputDir '/tmp/out', got %q", cfg.OutputDir)
		}
	})
}

// TestBuildConvertConfig tests the convert flag handling.
func TestBuildConvertConfig(t *testing.T) {
	t.Run("reads convert flags", func(t *testing.T) {
		cmd := newCmdForTest(t, "convert")
		_ = cmd.Flags().Set("labels", "true")
		_ = cmd.Flags().Set("remove-source", "true")
		_ = cmd.Flags().Set("force", "true")

		cfg, err := buildConvertConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.Labels {
			t.Error("expected Labels to be true")
		}
		if !cfg.RemoveSource {
			t.Error("expected RemoveSource to be true")
		}
		if !cfg.Force {
			t.Error("expected Force to be true")
		}
	})
}
