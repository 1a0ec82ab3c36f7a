// Package client provides OAuth2 client setup for the Google Sheets writer.
package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	callbackPort  = 8085
	callbackPath  = "/callback"
	serverTimeout = 5 * time.Minute
)

// TokenFile is the default path of the cached OAuth token.
const TokenFile = "data/token.json"

// Options controls where the token is cached.
type Options struct {
	// TokenFile defaults to TokenFile.
	TokenFile string
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.TokenFile == "" {
		o.TokenFile = TokenFile
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// New creates an authorized HTTP client from a client secret file. When no
// cached token exists, the browser consent flow is started.
func New(ctx context.Context, secretFilePath string, opts Options, scope ...string) (*http.Client, error) {
	b, err := os.ReadFile(secretFilePath)
	if err != nil {
		return nil, fmt.Errorf("reading client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, scope...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret: %w", err)
	}

	opts = opts.withDefaults()
	tok, err := LoadToken(opts.TokenFile)
	if err != nil {
		opts.Logger.Info("no existing token found, initiating OAuth flow")
		tok, err = tokenFromWeb(ctx, config, opts.Logger)
		if err != nil {
			return nil, err
		}
		if err := SaveToken(opts.TokenFile, tok); err != nil {
			opts.Logger.Error("failed to save token", "error", err)
		}
	}
	return config.Client(ctx, tok), nil
}

// TokenStatus describes the cached token.
type TokenStatus struct {
	Present    bool
	Expiry     time.Time
	Refreshing bool // a refresh token is available
}

// Status reports whether a usable token is cached at path.
func Status(path string) TokenStatus {
	tok, err := LoadToken(path)
	if err != nil {
		return TokenStatus{}
	}
	return TokenStatus{
		Present:    true,
		Expiry:     tok.Expiry,
		Refreshing: tok.RefreshToken != "",
	}
}

func tokenFromWeb(ctx context.Context, config *oauth2.Config, logger *slog.Logger) (*oauth2.Token, error) {
	config.RedirectURL = fmt.Sprintf("http://localhost:%d%s", callbackPort, callbackPath)

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state token: %w", err)
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	server := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", callbackPort),
		Handler:           callbackHandler(state, codeChan, errChan),
		ReadHeaderTimeout: 10 * time.Second,
	}
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf("port %d unavailable: %w", callbackPort, err)
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("callback server error", "error", err)
			select {
			case errChan <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Printf("\nOpening browser for Google authentication...\n")
	fmt.Printf("If the browser doesn't open automatically, visit this URL:\n%s\n\n", authURL)
	if err := openBrowser(ctx, authURL); err != nil {
		logger.Warn("failed to open browser automatically", "error", err)
	}

	select {
	case code := <-codeChan:
		tok, err := config.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code for token: %w", err)
		}
		fmt.Println("Authentication successful!")
		return tok, nil
	case err := <-errChan:
		return nil, fmt.Errorf("oauth callback error: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(serverTimeout):
		return nil, fmt.Errorf("oauth flow timed out after %v", serverTimeout)
	}
}

// callbackHandler receives the provider redirect. Exactly one result is sent
// on codeChan or errChan per request; both must be buffered.
func callbackHandler(expectedState string, codeChan chan<- string, errChan chan<- error) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		fail := func(err error, status int) {
			select {
			case errChan <- err:
			default:
			}
			http.Error(w, err.Error(), status)
		}

		if q.Get("state") != expectedState {
			fail(errors.New("invalid state parameter"), http.StatusBadRequest)
			return
		}
		if errMsg := q.Get("error"); errMsg != "" {
			fail(fmt.Errorf("%s: %s", errMsg, q.Get("error_description")), http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			fail(errors.New("no authorization code received"), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>momoledger</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh;">
<h1>Authentication successful</h1><p>You can close this window and return to the terminal.</p>
</body></html>`)

		select {
		case codeChan <- code:
		default:
		}
	})
	return mux
}

func openBrowser(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// LoadToken reads a cached token.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return tok, nil
}

// SaveToken writes token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return nil
}
