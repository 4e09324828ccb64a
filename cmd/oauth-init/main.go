package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"hhsfinance/internal/cli"
	"hhsfinance/internal/gateway/drive"
	"hhsfinance/internal/gateway/googleauth"
)

// oauth-init runs the installed-app consent flow once and stores a token
// the drive and gcs backends refresh on their own.
func main() {
	cli.LoadEnvFile()

	port := flag.String("port", envOr("OAUTH_REDIRECT_PORT", "8085"), "Local port for the OAuth redirect")
	out := flag.String("out", envOr("GOOGLE_OAUTH_TOKEN_FILE", "token.json"), "Where to write the token")
	timeout := flag.Duration("timeout", 5*time.Minute, "How long to wait for the browser")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *port, *out, *timeout); err != nil {
		log.Fatalf("oauth-init: %v", err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(ctx context.Context, port, out string, timeout time.Duration) error {
	cfg, err := googleauth.OAuthConfig(googleauth.Credentials{
		OAuthClientJSON: os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"),
		OAuthClientFile: os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"),
	}, drive.Scope, storage.ScopeReadWrite)
	if err != nil {
		return err
	}
	// The OAuth client must list this URI among its authorized redirects.
	cfg.RedirectURL = "http://localhost:" + port + "/callback"

	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("listen for redirect: %w", err)
	}

	state := uuid.NewString()
	codes := make(chan string, 1)
	failures := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			select {
			case failures <- errors.New("consent denied: " + q.Get("error")):
			default:
			}
			return
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codes <- q.Get("code"):
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var code string
	select {
	case code = <-codes:
	case err := <-failures:
		return err
	case <-time.After(timeout):
		return errors.New("authorization timed out")
	case <-ctx.Done():
		return errors.New("interrupted")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	if err := googleauth.SaveToken(out, tok); err != nil {
		return err
	}
	fmt.Printf("Saved token to %s\n", out)
	return nil
}
