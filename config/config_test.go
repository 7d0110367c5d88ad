package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPresets(t *testing.T) {
	for _, cluster := range []string{"localnet", "devnet", "mainnet-beta"} {
		cfg, err := Default(cluster)
		if err != nil {
			t.Fatalf("Default(%q): %v", cluster, err)
		}
		if cfg.RPCEndpoint == "" || cfg.ProgramID == "" {
			t.Fatalf("preset %q incomplete: %+v", cluster, cfg)
		}
		if _, err := cfg.Program(); err != nil {
			t.Fatalf("preset %q program id: %v", cluster, err)
		}
	}
	if _, err := Default("testnet"); err == nil {
		t.Fatal("expected error for unknown cluster")
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lend.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cluster != "localnet" {
		t.Fatalf("cluster = %q, want localnet", cfg.Cluster)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	// Reloading picks up the persisted file.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.ProgramID != cfg.ProgramID {
		t.Fatal("reload diverged from created default")
	}
}

func TestLoadAppliesPresetFallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lend.toml")
	if err := os.WriteFile(path, []byte("Cluster = \"mainnet-beta\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProgramID != "BMfi6hbCSpTS962EZjwaa6bRvy2izUCmZrpBMuhJ1BUW" {
		t.Fatalf("program id = %q", cfg.ProgramID)
	}
	if cfg.RPCEndpoint == "" || cfg.LogLevel != "info" {
		t.Fatalf("fallbacks not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lend.toml")
	if err := os.WriteFile(path, []byte("Cluster = \"moonnet\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown cluster")
	}

	if err := os.WriteFile(path, []byte("Cluster = \"localnet\"\nLogLevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for bad log level")
	}
}
