package googleauth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"
)

const clientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret",
"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",
"redirect_uris":["http://localhost:8085/callback"]}}`

const tokenJSON = `{"access_token":"a","token_type":"Bearer","refresh_token":"r","expiry":"2030-01-01T00:00:00Z"}`

func TestClientOptionsOAuth(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(tokenFile, []byte(tokenJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	opts, err := ClientOptions(context.Background(), Credentials{
		OAuthClientJSON: clientJSON,
		OAuthTokenFile:  tokenFile,
	}, "https://www.googleapis.com/auth/drive.file")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opts) != 1 {
		t.Fatalf("expected a token source option, got %d options", len(opts))
	}
}

func TestClientOptionsIncompleteOAuth(t *testing.T) {
	_, err := ClientOptions(context.Background(), Credentials{OAuthClientJSON: clientJSON})
	if !errors.Is(err, ErrIncompleteOAuth) {
		t.Fatalf("expected ErrIncompleteOAuth, got %v", err)
	}
}

func TestClientOptionsServiceAccountWins(t *testing.T) {
	opts, err := ClientOptions(context.Background(), Credentials{
		ServiceAccountJSON: `{"type":"service_account"}`,
		OAuthClientJSON:    clientJSON,
	}, "scope")
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 2 {
		t.Fatalf("expected credentials and scopes, got %d", len(opts))
	}
}

func TestClientOptionsMissingFile(t *testing.T) {
	_, err := ClientOptions(context.Background(), Credentials{ServiceAccountFile: "/does/not/exist.json"})
	if err == nil {
		t.Fatal("expected read error")
	}
}

func TestClientOptionsDefault(t *testing.T) {
	opts, err := ClientOptions(context.Background(), Credentials{})
	if err != nil || len(opts) != 0 {
		t.Fatalf("expected no options, got %d, %v", len(opts), err)
	}
}

func TestOAuthConfigAndSaveToken(t *testing.T) {
	if _, err := OAuthConfig(Credentials{}); err == nil {
		t.Error("expected error without an OAuth client")
	}

	cfg, err := OAuthConfig(Credentials{OAuthClientJSON: clientJSON}, "https://www.googleapis.com/auth/drive.file")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ClientID != "id.apps.googleusercontent.com" || len(cfg.Scopes) != 1 {
		t.Errorf("unexpected config: %+v", cfg)
	}

	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %v, want 0600", fi.Mode().Perm())
	}

	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := TokenSource(context.Background(), []byte(clientJSON), saved); err != nil {
		t.Errorf("saved token not readable: %v", err)
	}
}
