package gcs

import (
	"context"
	"testing"

	"google.golang.org/api/option"
)

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestNewDefaultsObject(t *testing.T) {
	g, err := New(context.Background(), Config{
		Bucket:  "finance-backups",
		Options: []option.ClientOption{option.WithoutAuthentication()},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()
	if g.object != DefaultObject || g.Name() != "gcs" || !g.Ready() {
		t.Fatalf("unexpected gateway %+v", g)
	}
}
