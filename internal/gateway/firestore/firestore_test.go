package firestore

import (
	"context"
	"testing"
)

func TestNewValidatesConfig(t *testing.T) {
	cases := []Config{
		{UserID: "admin_default"},
		{ProjectID: "demo"},
	}
	for i, cfg := range cases {
		if _, err := New(context.Background(), cfg, nil); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}
