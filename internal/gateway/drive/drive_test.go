package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
	"hhsfinance/internal/gateway"
)

func TestSearchQuery(t *testing.T) {
	got := searchQuery("it's.json", "folder1")
	want := `name = 'it\'s.json' and trashed = false and 'folder1' in parents`
	if got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
	if got := searchQuery("a.json", ""); strings.Contains(got, "parents") {
		t.Fatalf("no folder clause expected: %s", got)
	}
}

func TestMapErr(t *testing.T) {
	err := mapErr("list", &googleapi.Error{Code: http.StatusUnauthorized})
	if !errors.Is(err, gateway.ErrNotAuthorized) {
		t.Fatalf("401 should map to ErrNotAuthorized, got %v", err)
	}
	err = mapErr("list", &googleapi.Error{Code: http.StatusInternalServerError})
	if errors.Is(err, gateway.ErrNotAuthorized) {
		t.Fatal("500 is not an authorization error")
	}
}

// fakeDrive implements the handful of Drive endpoints the gateway uses.
type fakeDrive struct {
	mu      sync.Mutex
	content []byte
	exists  bool
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
		files := []map[string]string{}
		if f.exists {
			files = append(files, map[string]string{"id": "file1", "name": DefaultFileName})
		}
		json.NewEncoder(w).Encode(map[string]any{"files": files})
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files/file1"):
		if !f.exists {
			http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
			return
		}
		w.Write(f.content)
	case r.Method == http.MethodPost || r.Method == http.MethodPatch:
		body, _ := io.ReadAll(r.Body)
		f.content = extractJSONPart(body)
		f.exists = true
		fmt.Fprint(w, `{"id":"file1"}`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

// extractJSONPart pulls the media part out of a multipart upload body.
func extractJSONPart(body []byte) []byte {
	s := string(body)
	i := strings.Index(s, `"appState"`)
	if i < 0 {
		return body
	}
	start := strings.LastIndex(s[:i], "{")
	end := strings.LastIndex(s, "}")
	return []byte(s[start : end+1])
}

func TestPushPullAgainstFakeServer(t *testing.T) {
	srv := httptest.NewServer(&fakeDrive{})
	defer srv.Close()

	ctx := context.Background()
	g, err := New(ctx, Config{Options: []option.ClientOption{
		option.WithEndpoint(srv.URL + "/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, found, err := g.Pull(ctx); err != nil || found {
		t.Fatalf("empty drive: found=%v err=%v", found, err)
	}

	state := core.DefaultState()
	state.Currency = "EUR"
	if err := g.Push(ctx, backup.Encode(state, core.DefaultSettings(), time.Now())); err != nil {
		t.Fatalf("push: %v", err)
	}
	snap, found, err := g.Pull(ctx)
	if err != nil || !found {
		t.Fatalf("pull: found=%v err=%v", found, err)
	}
	if snap.State.Currency != "EUR" {
		t.Fatalf("currency got %q", snap.State.Currency)
	}
}
