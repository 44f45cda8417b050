package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidateYAMLContent_ExampleIsValid(t *testing.T) {
	t.Parallel()

	cfg, err := ValidateYAMLContent([]byte(ExampleYAML()))
	if err != nil {
		t.Fatalf("expected example config to validate: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Batch.GroupLimit != 400 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Report.CacheTTL != 10*time.Minute {
		t.Fatalf("unexpected cache ttl: %s", cfg.Report.CacheTTL)
	}
}

func TestValidateYAMLContent_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := ValidateYAMLContent([]byte("log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("expected config to validate: %v", err)
	}
	if cfg.Storage.SQLitePath != DefaultSQLitePath || cfg.Serve.Addr != DefaultServeAddr {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidateYAMLContent_DriverCaseInsensitive(t *testing.T) {
	t.Parallel()

	cfg, err := ValidateYAMLContent([]byte("storage:\n  driver: \"Memory\"\n"))
	if err != nil {
		t.Fatalf("expected config to validate: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected normalized driver, got %q", cfg.Storage.Driver)
	}
}

func TestValidateYAMLContent_RejectsInvalidValues(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown driver":    "storage:\n  driver: postgres\n",
		"group limit zero":  "batch:\n  group_limit: 0\n",
		"group limit large": "batch:\n  group_limit: 501\n",
		"bad location":      "import:\n  location: Mars/Olympus\n",
		"bad log level":     "log:\n  level: loud\n",
	}
	for name, content := range cases {
		content := content
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := ValidateYAMLContent([]byte(content)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateYAMLContent_MongoRequiresURI(t *testing.T) {
	t.Parallel()

	content := []byte(`storage:
  driver: mongo
  mongo:
    database: clubhours
`)
	_, err := ValidateYAMLContent(content)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "uri") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfigLocation(t *testing.T) {
	t.Parallel()

	cfg := Config{Import: ImportConfig{Location: "UTC"}}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	if loc != time.UTC {
		t.Fatalf("unexpected location: %s", loc)
	}

	local, err := Config{}.Location()
	if err != nil || local != time.Local {
		t.Fatalf("expected local zone, got %v / %v", local, err)
	}
}
