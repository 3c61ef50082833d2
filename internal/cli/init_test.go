package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"bankrecon/internal/config"
	"bankrecon/internal/log"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, log.ComponentWorker)
	if logger.Component() != log.ComponentWorker {
		t.Fatalf("component = %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug level not applied")
	}

	if l := SetupLogger(nil, ""); l.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("default logger should be info level")
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("BANKRECON_TEST_VALUE=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BANKRECON_TEST_VALUE", "")
	os.Unsetenv("BANKRECON_TEST_VALUE")

	LoadEnvFile(path)
	if got := os.Getenv("BANKRECON_TEST_VALUE"); got != "from-dotenv" {
		t.Fatalf("value = %q", got)
	}

	// Already-set variables win over the file.
	t.Setenv("BANKRECON_TEST_VALUE", "from-env")
	LoadEnvFile(path)
	if got := os.Getenv("BANKRECON_TEST_VALUE"); got != "from-env" {
		t.Fatalf("value = %q", got)
	}

	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}

func TestInitSQLite(t *testing.T) {
	repo := InitSQLite(SetupLogger(nil, log.ComponentStorage), filepath.Join(t.TempDir(), "a", "b.db"))
	defer repo.Close()
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
