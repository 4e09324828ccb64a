package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hhsfinance/internal/gateway/memory"
	"hhsfinance/internal/services"
	"hhsfinance/internal/storage"
)

type fakeReconciler struct {
	mu    sync.Mutex
	mode  services.Mode
	calls int
	err   error
}

func (f *fakeReconciler) Session() services.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return services.Session{Mode: f.mode}
}

func (f *fakeReconciler) Reconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.mode = services.ConnectedLive
	return nil
}

func TestTickOnlyWhenIdle(t *testing.T) {
	tests := []struct {
		mode services.Mode
		want bool
	}{
		{services.Disconnected, false},
		{services.ConnectedLive, false},
		{services.ConnectedManual, false},
		{services.ConnectedIdle, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			f := &fakeReconciler{mode: tt.mode}
			w := NewReconnectWorker(f, time.Minute, nil)
			if got := w.Tick(context.Background()); got != tt.want {
				t.Errorf("Tick() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTickReportsFailure(t *testing.T) {
	f := &fakeReconciler{mode: services.ConnectedIdle, err: errors.New("still down")}
	w := NewReconnectWorker(f, time.Minute, nil)
	w.Tick(context.Background())
	w.Tick(context.Background())
	if f.calls != 2 {
		t.Errorf("calls = %d, want 2", f.calls)
	}
}

func TestRunRestoresLiveSubscription(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	prefs := storage.NewPreferences(store)
	if err := prefs.SetAuthenticated(ctx, true); err != nil {
		t.Fatal(err)
	}
	hub := memory.NewHub()
	client := memory.NewClient(hub)
	client.SetReady(false)

	rec, err := services.New(ctx, services.Options{Preferences: prefs, Gateway: client, Online: true})
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close(ctx)
	if rec.Mode() != services.ConnectedIdle {
		t.Fatalf("mode = %s, want connected_idle", rec.Mode())
	}

	client.SetReady(true)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = NewReconnectWorker(rec, 10*time.Millisecond, nil).Run(runCtx)
		close(done)
	}()

	deadline := time.Now().Add(3 * time.Second)
	for rec.Mode() != services.ConnectedLive && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if rec.Mode() != services.ConnectedLive {
		t.Fatalf("mode = %s, want connected_live", rec.Mode())
	}
	if hub.Listeners() != 1 {
		t.Errorf("listeners = %d, want 1", hub.Listeners())
	}
}
