package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuth scopes for the channel owner commands.
var (
	UploadScopes = []string{
		"https://www.googleapis.com/auth/youtube.upload",
		"https://www.googleapis.com/auth/youtube.force-ssl",
	}
	AnalyticsScopes = []string{
		"https://www.googleapis.com/auth/yt-analytics.readonly",
		"https://www.googleapis.com/auth/yt-analytics-monetary.readonly",
	}
)

// Token file names under the token directory, one per scope set.
const (
	UploadTokenFile    = "youtube_token.json"
	AnalyticsTokenFile = "youtube_analytics_token.json"
)

const consentTimeout = 5 * time.Minute

// OAuthOptions configures TokenSource.
type OAuthOptions struct {
	ClientSecrets string // path to the installed-app client_secrets.json
	TokenFile     string // where the granted token is cached
	Scopes        []string

	// Prompt receives the consent URL when no usable token is cached.
	Prompt io.Writer
	// OpenBrowser is called with the consent URL. Nil only prints it.
	OpenBrowser func(url string) error
	// HTTPClient is used for token exchange and refresh.
	HTTPClient *http.Client
}

// DefaultTokenDir is where tokens are cached when no directory is configured.
func DefaultTokenDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskrelay"
	}
	return filepath.Join(home, ".taskrelay")
}

// TokenSource returns a token source for opts.Scopes. A cached token is
// reused and refreshed as needed; without one, the installed-app consent
// flow runs on a loopback redirect. Granted and refreshed tokens are written
// back to opts.TokenFile.
func TokenSource(ctx context.Context, opts OAuthOptions) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(opts.ClientSecrets)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("client secrets not found: %s\nDownload OAuth credentials from Google Cloud Console.", opts.ClientSecrets)
	}
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}
	conf, err := google.ConfigFromJSON(data, opts.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	tok, err := loadToken(opts.TokenFile)
	if err != nil || (!tok.Valid() && tok.RefreshToken == "") {
		tok, err = consent(ctx, conf, opts)
		if err != nil {
			return nil, err
		}
		if err := saveToken(opts.TokenFile, tok); err != nil {
			return nil, err
		}
	}

	return &cachingSource{
		src:  conf.TokenSource(ctx, tok),
		path: opts.TokenFile,
		last: tok.AccessToken,
	}, nil
}

// HTTPClient returns an http.Client that authorizes requests with ts.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(ctx, ts)
}

// cachingSource writes each newly issued token to disk.
type cachingSource struct {
	src  oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (s *cachingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := saveToken(s.path, tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", path, err)
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

type callback struct {
	code string
	err  error
}

// consent runs the installed-app flow: the user approves in a browser and
// Google redirects to a one-shot server on 127.0.0.1 with the code.
func consent(ctx context.Context, conf *oauth2.Config, opts OAuthOptions) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start OAuth callback listener: %w", err)
	}
	conf.RedirectURL = "http://" + ln.Addr().String() + "/"

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	results := make(chan callback, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			var cb callback
			switch {
			case q.Get("error") != "":
				cb.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
				http.Error(w, "Authorization denied.", http.StatusForbidden)
			case q.Get("code") == "":
				http.Error(w, "missing code", http.StatusBadRequest)
				return
			default:
				cb.code = q.Get("code")
				fmt.Fprintln(w, "Authorization complete. You can close this window.")
			}
			select {
			case results <- cb:
			default:
			}
		}),
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	if opts.Prompt != nil {
		fmt.Fprintf(opts.Prompt, "Open this URL to authorize taskrelay:\n\n%s\n\n", authURL)
	}
	if opts.OpenBrowser != nil {
		if err := opts.OpenBrowser(authURL); err != nil && opts.Prompt != nil {
			fmt.Fprintf(opts.Prompt, "Could not open a browser: %v\n", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, consentTimeout)
	defer cancel()
	select {
	case <-waitCtx.Done():
		return nil, fmt.Errorf("waiting for authorization: %w", waitCtx.Err())
	case cb := <-results:
		if cb.err != nil {
			return nil, cb.err
		}
		tok, err := conf.Exchange(ctx, cb.code, oauth2.VerifierOption(verifier))
		if err != nil {
			return nil, fmt.Errorf("exchange authorization code: %w", err)
		}
		return tok, nil
	}
}
