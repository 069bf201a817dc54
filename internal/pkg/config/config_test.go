package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.Store != StoreMongo || cfg.Notifier != NotifierRedis {
		t.Errorf("unexpected store/notifier: %q/%q", cfg.Store, cfg.Notifier)
	}
	if cfg.Accounts.PageSizeDefault != 20 || cfg.Accounts.PageSizeMax != 100 {
		t.Errorf("unexpected page sizes: %+v", cfg.Accounts)
	}
	if cfg.Accounts.EmailCaseInsensitive {
		t.Error("email matching must default to case-sensitive")
	}
	if cfg.Tokens.ActivationTTL != 48*time.Hour {
		t.Errorf("expected 48h activation ttl, got %v", cfg.Tokens.ActivationTTL)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":             "s3cret",
		"STORE":                  "postgres",
		"NOTIFIER":               "log",
		"PAGE_SIZE_DEFAULT":      "5",
		"EMAIL_CASE_INSENSITIVE": "true",
		"ACTIVATION_TOKEN_TTL":   "2h",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store != StorePostgres || cfg.Notifier != NotifierLog {
		t.Errorf("unexpected store/notifier: %q/%q", cfg.Store, cfg.Notifier)
	}
	if cfg.Accounts.PageSizeDefault != 5 || !cfg.Accounts.EmailCaseInsensitive {
		t.Errorf("unexpected accounts config: %+v", cfg.Accounts)
	}
	if cfg.Tokens.ActivationTTL != 2*time.Hour {
		t.Errorf("expected 2h, got %v", cfg.Tokens.ActivationTTL)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {},
		"unknown store":  {"JWT_SECRET": "x", "STORE": "sqlite"},
		"bad notifier":   {"JWT_SECRET": "x", "NOTIFIER": "smtp"},
		"default > max":  {"JWT_SECRET": "x", "PAGE_SIZE_DEFAULT": "500"},
		"zero page size": {"JWT_SECRET": "x", "PAGE_SIZE_DEFAULT": "0"},
	}
	for name, env := range cases {
		if _, err := LoadFrom(context.Background(), envconfig.MapLookuper(env)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestValidate_MessageNamesSetting(t *testing.T) {
	cfg := &Config{Store: "cassandra", Notifier: NotifierLog}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "STORE") {
		t.Fatalf("expected STORE error, got %v", err)
	}
}
