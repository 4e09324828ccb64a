package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"hhsfinance/internal/core"
)

func newSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": newSQLite(t),
		"memory": NewMemoryStore(),
	}
}

func TestStoreGetSet(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("expected not found, got ok=%v err=%v", ok, err)
			}
			if err := s.Set(ctx, "k", "v1"); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, "k", "v2"); err != nil {
				t.Fatal(err)
			}
			v, ok, err := s.Get(ctx, "k")
			if err != nil || !ok || v != "v2" {
				t.Fatalf("got %q ok=%v err=%v", v, ok, err)
			}
		})
	}
}

func TestStoreArchiveRetention(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < DefaultArchiveLimit+5; i++ {
				if err := s.Archive(ctx, "remote", fmt.Sprintf("payload-%d", i)); err != nil {
					t.Fatal(err)
				}
			}
			all, err := s.Archived(ctx, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != DefaultArchiveLimit {
				t.Fatalf("expected %d entries, got %d", DefaultArchiveLimit, len(all))
			}
			want := fmt.Sprintf("payload-%d", DefaultArchiveLimit+4)
			if all[0].Payload != want {
				t.Fatalf("newest first: got %s want %s", all[0].Payload, want)
			}
			two, err := s.Archived(ctx, 2)
			if err != nil || len(two) != 2 {
				t.Fatalf("limit ignored: %d %v", len(two), err)
			}
		})
	}
}

func TestSetArchiveLimit(t *testing.T) {
	ctx := context.Background()
	repo := newSQLite(t)
	repo.SetArchiveLimit(3)
	repo.SetArchiveLimit(0) // ignored

	for i := 0; i < 5; i++ {
		if err := repo.Archive(ctx, "pull", fmt.Sprintf("payload-%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	all, err := repo.Archived(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[2].Payload != "payload-2" {
		t.Fatalf("expected the 3 newest entries, got %+v", all)
	}
}

func TestPreferencesState(t *testing.T) {
	ctx := context.Background()
	p := NewPreferences(newSQLite(t))

	if _, found, err := p.LoadState(ctx); err != nil || found {
		t.Fatalf("fresh store should have no state, found=%v err=%v", found, err)
	}

	state := core.DefaultState()
	state.Currency = "MMK"
	state.Transactions = []core.Transaction{{ID: "1", Date: core.NewDate(2024, 5, 1), Amount: core.MustMoney("12.50"), Type: core.Expense, CategoryID: "c3", Note: "lunch"}}
	if err := p.SaveState(ctx, state); err != nil {
		t.Fatal(err)
	}
	got, found, err := p.LoadState(ctx)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if !got.Equal(state) {
		t.Fatalf("state mismatch: %+v", got)
	}
}

func TestPreferencesCorruptState(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, KeyAppState, "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewPreferences(s).LoadState(ctx); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestPreferencesSettingsAndAuth(t *testing.T) {
	ctx := context.Background()
	p := NewPreferences(NewMemoryStore())

	s, err := p.Settings(ctx)
	if err != nil || s.Language != core.English || s.IsDark {
		t.Fatalf("defaults: %+v %v", s, err)
	}
	if err := p.SaveSettings(ctx, core.Settings{Language: core.Myanmar, IsDark: true}); err != nil {
		t.Fatal(err)
	}
	s, _ = p.Settings(ctx)
	if s.Language != core.Myanmar || !s.IsDark {
		t.Fatalf("got %+v", s)
	}
	if err := p.SetLanguage(ctx, "fr"); err == nil {
		t.Fatal("unsupported language accepted")
	}

	if auth, _ := p.Authenticated(ctx); auth {
		t.Fatal("fresh store must be logged out")
	}
	if err := p.SetAuthenticated(ctx, true); err != nil {
		t.Fatal(err)
	}
	if auth, _ := p.Authenticated(ctx); !auth {
		t.Fatal("expected authenticated")
	}
}

func TestMemoryStoreFailWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("disk full")
	s.FailWrites(boom)
	if err := s.Set(ctx, "k", "v"); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	s.FailWrites(nil)
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	s.Close()
	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMigrationsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")

	if v, err := SchemaVersion(path); err != nil || v != 0 {
		t.Fatalf("fresh database: version=%d err=%v", v, err)
	}
	for i := 0; i < 2; i++ {
		v, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if v != 2 {
			t.Errorf("run %d: version=%d, want 2", i, v)
		}
	}
}
