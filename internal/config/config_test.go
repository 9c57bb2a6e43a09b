package config

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"cricketcore/internal/archive/blob"
	"cricketcore/internal/core"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != "sqlite" || cfg.SQLitePath != "cricketcore.db" || cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected storage/http defaults %+v", cfg)
	}
	if cfg.DefaultOversLimit != core.DefaultOversLimit || cfg.UndoDepth != core.DefaultUndoDepth || cfg.NotificationTTL != core.DefaultNotificationTTL {
		t.Fatalf("scoring defaults drifted from core: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"*"}) || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected server defaults %+v", cfg)
	}
	if level, err := cfg.SlogLevel(); err != nil || level != slog.LevelInfo {
		t.Fatalf("unexpected level %v %v", level, err)
	}
	if cfg.Archive().Driver != blob.DriverFilesystem || cfg.StorageOptions().Driver != core.StorageSQLite {
		t.Fatalf("unexpected conversions")
	}
	if len(cfg.ServiceOptions()) != 3 {
		t.Fatalf("expected three service options")
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"CRICKETCORE_STORAGE_DRIVER":   "postgres",
		"CRICKETCORE_POSTGRES_DSN":     "postgres://scorer@db/cricket",
		"CRICKETCORE_CORS_ORIGINS":     "https://a.example,https://b.example",
		"CRICKETCORE_DEFAULT_OVERS":    "50",
		"CRICKETCORE_NOTIFICATION_TTL": "3s",
		"CRICKETCORE_LOG_LEVEL":        "debug",
		"CRICKETCORE_LOG_FORMAT":       "text",
		"CRICKETCORE_ARCHIVE_DRIVER":   "s3",
		"CRICKETCORE_S3_BUCKET":        "cards",
		"CRICKETCORE_S3_PATH_STYLE":    "true",
		"CRICKETCORE_REDIS_URL":        "redis://localhost:6379/0",
		"CRICKETCORE_TRACE_FILE":       "/var/log/scorer/trace.jsonl",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageOptions().PostgresDSN != "postgres://scorer@db/cricket" || cfg.DefaultOversLimit != 50 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.NotificationTTL != 3*time.Second {
		t.Fatalf("unexpected list/duration parsing %+v", cfg)
	}
	arch := cfg.Archive()
	if arch.Driver != blob.DriverS3 || arch.S3.Bucket != "cards" || !arch.S3.PathStyle || arch.S3.Region != "us-east-1" {
		t.Fatalf("unexpected archive config %+v", arch)
	}
	if level, _ := cfg.SlogLevel(); level != slog.LevelDebug {
		t.Fatalf("unexpected level %v", level)
	}
	if cfg.TraceFile != "/var/log/scorer/trace.jsonl" {
		t.Fatalf("unexpected trace file %q", cfg.TraceFile)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		vars map[string]string
		want []string
	}{
		{"bad int", map[string]string{"CRICKETCORE_UNDO_DEPTH": "lots"}, []string{"parse env:"}},
		{"postgres without dsn", map[string]string{"CRICKETCORE_STORAGE_DRIVER": "postgres"}, []string{"POSTGRES_DSN"}},
		{"s3 without bucket", map[string]string{"CRICKETCORE_ARCHIVE_DRIVER": "s3"}, []string{"S3_BUCKET"}},
		{
			"several problems",
			map[string]string{
				"CRICKETCORE_STORAGE_DRIVER": "mongo",
				"CRICKETCORE_ARCHIVE_DRIVER": "tape",
				"CRICKETCORE_UNDO_DEPTH":     "0",
				"CRICKETCORE_DEFAULT_OVERS":  "-1",
				"CRICKETCORE_LOG_LEVEL":      "loud",
				"CRICKETCORE_LOG_FORMAT":     "xml",
			},
			[]string{"storage driver", "archive driver", "undo depth", "default overs", "log level", "log format"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFrom(tc.vars)
			if err == nil {
				t.Fatalf("expected error")
			}
			for _, want := range tc.want {
				if !strings.Contains(err.Error(), want) {
					t.Fatalf("expected %q in %v", want, err)
				}
			}
		})
	}
}
