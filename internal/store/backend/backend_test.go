package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/dictx/internal/config"
	"github.com/JonMunkholm/dictx/internal/store/storetest"
)

func TestOpen_LocalDrivers(t *testing.T) {
	tests := []struct {
		driver string
		file   string
	}{
		{config.DriverSQLite, "dict.db"},
		{config.DriverFile, "dict.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := config.DatabaseConfig{Driver: tt.driver, Path: filepath.Join(t.TempDir(), tt.file)}

			s, err := Open(ctx, cfg, nil)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer s.Close()

			want := storetest.Sample(t)
			if err := s.Save(ctx, want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := s.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			storetest.AssertSame(t, want, got)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mongo"}, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown store driver") {
		t.Errorf("Open() error = %v, want unknown store driver", err)
	}
}

func TestOpen_BadPostgresURL(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: config.DriverPostgres, URL: "://bad"}, nil)
	if err == nil {
		t.Error("Open() expected error for malformed URL")
	}
}
