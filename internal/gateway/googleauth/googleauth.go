// Package googleauth turns the configured Google credentials into client
// options shared by the Drive, Cloud Storage and Firestore backends.
package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// Credentials lists every supported source. Service account credentials
// win over an OAuth client + token pair; with neither, Application
// Default Credentials are used.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

var ErrIncompleteOAuth = errors.New("oauth client and token must both be provided")

// ClientOptions builds the options for a client requesting scopes.
func ClientOptions(ctx context.Context, c Credentials, scopes ...string) ([]option.ClientOption, error) {
	saJSON, err := readEither(c.ServiceAccountJSON, c.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	if len(saJSON) > 0 {
		slog.DebugContext(ctx, "Using service account credentials", "size", len(saJSON))
		opts := []option.ClientOption{option.WithCredentialsJSON(saJSON)}
		if len(scopes) > 0 {
			opts = append(opts, option.WithScopes(scopes...))
		}
		return opts, nil
	}

	clientJSON, err := readEither(c.OAuthClientJSON, c.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	tokenJSON, err := readEither(c.OAuthTokenJSON, c.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	switch {
	case len(clientJSON) > 0 && len(tokenJSON) > 0:
		ts, err := TokenSource(ctx, clientJSON, tokenJSON, scopes...)
		if err != nil {
			return nil, err
		}
		slog.DebugContext(ctx, "Using OAuth user credentials")
		return []option.ClientOption{option.WithTokenSource(ts)}, nil
	case len(clientJSON) > 0 || len(tokenJSON) > 0:
		return nil, ErrIncompleteOAuth
	}

	slog.DebugContext(ctx, "Using application default credentials")
	if len(scopes) > 0 {
		return []option.ClientOption{option.WithScopes(scopes...)}, nil
	}
	return nil, nil
}

// TokenSource builds a refreshing token source from an OAuth client file
// and a token previously saved by oauth-init.
func TokenSource(ctx context.Context, clientJSON, tokenJSON []byte, scopes ...string) (oauth2.TokenSource, error) {
	cfg, err := google.ConfigFromJSON(clientJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return cfg.TokenSource(ctx, &tok), nil
}

func readEither(inline, path string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if p := strings.TrimSpace(path); p != "" {
		return os.ReadFile(p)
	}
	return nil, nil
}

// OAuthConfig parses the configured OAuth client for the consent flow.
func OAuthConfig(c Credentials, scopes ...string) (*oauth2.Config, error) {
	clientJSON, err := readEither(c.OAuthClientJSON, c.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if len(clientJSON) == 0 {
		return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
	cfg, err := google.ConfigFromJSON(clientJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// SaveToken writes tok to path, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}
