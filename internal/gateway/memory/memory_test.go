package memory

import (
	"context"
	"testing"
	"time"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
)

func doc(n int) core.BackupData {
	s := core.DefaultState()
	for i := 0; i < n; i++ {
		s.Transactions = append(s.Transactions, core.Transaction{
			ID: string(rune('a' + i)), Date: core.NewDate(2024, 5, 1), Amount: core.MustMoney("1"), Type: core.Expense, CategoryID: "c3",
		})
	}
	return backup.Encode(s, core.DefaultSettings(), time.Now())
}

func TestPushPull(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	a, b := NewClient(hub), NewClient(hub)

	if _, found, err := b.Pull(ctx); err != nil || found {
		t.Fatalf("empty hub: found=%v err=%v", found, err)
	}
	if err := a.Push(ctx, doc(2)); err != nil {
		t.Fatal(err)
	}
	snap, found, err := b.Pull(ctx)
	if err != nil || !found {
		t.Fatalf("pull: found=%v err=%v", found, err)
	}
	if len(snap.State.Transactions) != 2 || snap.Format != backup.FormatFull {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSubscribeSkipsOwnEchoes(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	a, b := NewClient(hub), NewClient(hub)

	sub, err := a.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	if err := a.Push(ctx, doc(1)); err != nil {
		t.Fatal(err)
	}
	if err := b.Push(ctx, doc(3)); err != nil {
		t.Fatal(err)
	}

	select {
	case snap := <-sub.Updates():
		if len(snap.State.Transactions) != 3 {
			t.Fatalf("expected the other client's document, got %d transactions", len(snap.State.Transactions))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
	}
}

func TestSubscribeDeliversCurrentFirst(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	if err := NewClient(hub).Push(ctx, doc(3)); err != nil {
		t.Fatal(err)
	}
	sub, err := NewClient(hub).Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case snap := <-sub.Updates():
		if len(snap.State.Transactions) != 3 {
			t.Fatalf("got %d", len(snap.State.Transactions))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("initial snapshot not delivered")
	}
	sub.Unsubscribe()
	sub.Unsubscribe()
	if hub.Listeners() != 0 {
		t.Fatalf("listener leaked: %d", hub.Listeners())
	}
	if _, ok := <-sub.Updates(); ok {
		t.Fatal("updates channel must be closed")
	}
}

func TestNotReady(t *testing.T) {
	c := NewClient(NewHub())
	c.SetReady(false)
	if err := c.Push(context.Background(), doc(0)); err == nil {
		t.Fatal("push must fail when not authorized")
	}
	if _, err := c.Subscribe(context.Background()); err == nil {
		t.Fatal("subscribe must fail when not authorized")
	}
}
