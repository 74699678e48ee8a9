package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type tokenServer struct {
	srv *httptest.Server

	mu    sync.Mutex
	forms []url.Values
}

func (ts *tokenServer) requests() []url.Values {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.forms
}

func newTokenServer(t *testing.T, access string) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		ts.mu.Lock()
		ts.forms = append(ts.forms, r.PostForm)
		ts.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		writeJSON(t, w, map[string]any{
			"access_token":  access,
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-1",
		})
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func writeSecrets(t *testing.T, dir, tokenURL string) string {
	t.Helper()
	path := filepath.Join(dir, "client_secrets.json")
	data, err := json.Marshal(map[string]any{
		"installed": map[string]any{
			"client_id":     "client-1",
			"client_secret": "secret-1",
			"auth_uri":      "https://accounts.example.com/auth",
			"token_uri":     tokenURL,
			"redirect_uris": []string{"http://localhost"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func readToken(t *testing.T, path string) oauth2.Token {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var tok oauth2.Token
	require.NoError(t, json.Unmarshal(data, &tok))
	return tok
}

func TestTokenSourceUsesCachedToken(t *testing.T) {
	dir := t.TempDir()
	server := newTokenServer(t, "unused")
	tokenFile := filepath.Join(dir, AnalyticsTokenFile)
	require.NoError(t, saveToken(tokenFile, &oauth2.Token{
		AccessToken: "cached",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	ts, err := TokenSource(context.Background(), OAuthOptions{
		ClientSecrets: writeSecrets(t, dir, server.srv.URL),
		TokenFile:     tokenFile,
		Scopes:        AnalyticsScopes,
		OpenBrowser: func(string) error {
			t.Error("consent flow started with a valid cached token")
			return nil
		},
	})
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "cached", tok.AccessToken)
	assert.Empty(t, server.requests())
}

func TestTokenSourceRefreshesAndSaves(t *testing.T) {
	dir := t.TempDir()
	server := newTokenServer(t, "fresh")
	tokenFile := filepath.Join(dir, UploadTokenFile)
	require.NoError(t, saveToken(tokenFile, &oauth2.Token{
		AccessToken:  "stale",
		TokenType:    "Bearer",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	ts, err := TokenSource(context.Background(), OAuthOptions{
		ClientSecrets: writeSecrets(t, dir, server.srv.URL),
		TokenFile:     tokenFile,
		Scopes:        UploadScopes,
	})
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)

	forms := server.requests()
	require.Len(t, forms, 1)
	assert.Equal(t, "refresh_token", forms[0].Get("grant_type"))
	saved := readToken(t, tokenFile)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)
}

// visit follows the consent URL's redirect the way a browser would after
// the user answers, adding extra to the callback query.
func visit(t *testing.T, extra url.Values, status *int) func(string) error {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if !assert.NoError(t, err) {
			return err
		}
		q := u.Query()
		assert.Equal(t, "offline", q.Get("access_type"))
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.NotEmpty(t, q.Get("code_challenge"))

		extra.Set("state", q.Get("state"))
		resp, err := http.Get(q.Get("redirect_uri") + "?" + extra.Encode())
		if !assert.NoError(t, err) {
			return err
		}
		_ = resp.Body.Close()
		*status = resp.StatusCode
		return nil
	}
}

func TestTokenSourceConsentFlow(t *testing.T) {
	dir := t.TempDir()
	server := newTokenServer(t, "granted")
	tokenFile := filepath.Join(dir, "tokens", AnalyticsTokenFile)
	var prompt strings.Builder
	var status int

	ts, err := TokenSource(context.Background(), OAuthOptions{
		ClientSecrets: writeSecrets(t, dir, server.srv.URL),
		TokenFile:     tokenFile,
		Scopes:        AnalyticsScopes,
		Prompt:        &prompt,
		OpenBrowser:   visit(t, url.Values{"code": {"code-1"}}, &status),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, prompt.String(), "Open this URL to authorize taskrelay:")

	forms := server.requests()
	require.Len(t, forms, 1)
	form := forms[0]
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "code-1", form.Get("code"))
	assert.NotEmpty(t, form.Get("code_verifier"))

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "granted", tok.AccessToken)

	info, err := os.Stat(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Equal(t, "refresh-1", readToken(t, tokenFile).RefreshToken)
}

func TestTokenSourceConsentDenied(t *testing.T) {
	dir := t.TempDir()
	server := newTokenServer(t, "never")
	var status int

	_, err := TokenSource(context.Background(), OAuthOptions{
		ClientSecrets: writeSecrets(t, dir, server.srv.URL),
		TokenFile:     filepath.Join(dir, AnalyticsTokenFile),
		Scopes:        AnalyticsScopes,
		OpenBrowser:   visit(t, url.Values{"error": {"access_denied"}}, &status),
	})
	require.EqualError(t, err, "authorization denied: access_denied")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Empty(t, server.requests())
	assert.NoFileExists(t, filepath.Join(dir, AnalyticsTokenFile))
}

func TestTokenSourceMissingSecrets(t *testing.T) {
	dir := t.TempDir()
	_, err := TokenSource(context.Background(), OAuthOptions{
		ClientSecrets: filepath.Join(dir, "missing.json"),
		TokenFile:     filepath.Join(dir, AnalyticsTokenFile),
		Scopes:        AnalyticsScopes,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client secrets not found: ")
	assert.Contains(t, err.Error(), "Download OAuth credentials from Google Cloud Console.")
}
