package gateway_test

import (
	"context"
	"testing"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
	"hhsfinance/internal/gateway"
	"hhsfinance/internal/gateway/memory"
)

func TestManualOnlyHidesSubscriber(t *testing.T) {
	if gateway.ManualOnly(nil) != nil {
		t.Fatal("ManualOnly(nil) should stay nil")
	}

	client := memory.NewClient(memory.NewHub())
	if _, ok := gateway.Gateway(client).(gateway.Subscriber); !ok {
		t.Fatal("memory client should be a Subscriber")
	}

	g := gateway.ManualOnly(client)
	if _, ok := g.(gateway.Subscriber); ok {
		t.Error("ManualOnly must hide the Subscriber capability")
	}
	if g.Name() != client.Name() || !g.Ready() {
		t.Errorf("ManualOnly should delegate Name and Ready")
	}

	ctx := context.Background()
	if err := g.Push(ctx, backup.Encode(core.DefaultState(), core.DefaultSettings(), core.NewDate(2024, 1, 1).Time)); err != nil {
		t.Fatal(err)
	}
	if _, found, err := g.Pull(ctx); err != nil || !found {
		t.Errorf("Pull after Push: found=%v err=%v", found, err)
	}
}
