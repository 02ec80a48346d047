package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Dispatch.BatchSize != 500 || cfg.Dispatch.Concurrency != 5 {
		t.Fatalf("dispatch defaults: %+v", cfg.Dispatch)
	}
	if cfg.Pipeline.MaxItemsPerProfile != 5 || cfg.Pipeline.MinViewCount != 5 {
		t.Fatalf("pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.CleverTap.BaseURL != "https://api.clevertap.com" {
		t.Fatalf("base url default: %q", cfg.CleverTap.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartsync.yaml")
	data := `
buckets:
  cartAbandon: cart-exports
  delta: delta-events
dispatch:
  batchSize: 200
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Buckets.CartAbandon != "cart-exports" || cfg.Buckets.Delta != "delta-events" {
		t.Fatalf("buckets: %+v", cfg.Buckets)
	}
	if cfg.Dispatch.BatchSize != 200 {
		t.Fatalf("batch size not overlaid: %d", cfg.Dispatch.BatchSize)
	}
	// Untouched values keep defaults.
	if cfg.Dispatch.Concurrency != 5 || cfg.Pipeline.LookbackDays != 1 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartsync.json")
	data := `{"clevertap":{"accountId":"acct","passcode":"pass"}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CleverTap.AccountID != "acct" || cfg.CleverTap.Passcode != "pass" {
		t.Fatalf("clevertap: %+v", cfg.CleverTap)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartsync.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestFromEnvPrecedence(t *testing.T) {
	t.Setenv("S3_CART_ABANDON_BUCKET", "legacy-cart")
	t.Setenv("CLEVERTAP_ACCOUNT_ID", "legacy-acct")
	t.Setenv("CARTSYNC_CLEVERTAP_ACCOUNT_ID", "new-acct")
	t.Setenv("CARTSYNC_BATCH_SIZE", "50")

	cfg := Default()
	if err := cfg.FromEnv(); err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.Buckets.CartAbandon != "legacy-cart" {
		t.Fatalf("legacy bucket name not applied: %q", cfg.Buckets.CartAbandon)
	}
	if cfg.CleverTap.AccountID != "new-acct" {
		t.Fatalf("CARTSYNC_ name should win: %q", cfg.CleverTap.AccountID)
	}
	if cfg.Dispatch.BatchSize != 50 {
		t.Fatalf("batch size: %d", cfg.Dispatch.BatchSize)
	}
}

func TestFromEnvBadInt(t *testing.T) {
	t.Setenv("CARTSYNC_MAX_RETRIES", "lots")
	cfg := Default()
	if err := cfg.FromEnv(); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Dispatch.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("zero concurrency should fail validation")
	}
	cfg = Default()
	cfg.AWS.Region = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("empty region should fail validation")
	}
}
