package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=cli") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestGracefulShutdownFollowsParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := GracefulShutdown(parent, SetupLogger("error", &bytes.Buffer{}))
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("shutdown context not cancelled with its parent")
	}
}

func TestOpenStore(t *testing.T) {
	logger := SetupLogger("error", &bytes.Buffer{})
	repo, err := OpenStore(logger, filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenStore(logger, filepath.Join(blocker, "app.db")); err == nil {
		t.Error("expected error when the database directory is a file")
	}
}
