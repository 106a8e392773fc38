package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/oauth2"

	"portfolio-accounts/internal/domain"
)

type fakeGitHub struct {
	user   map[string]any
	emails []githubEmail
	delay  time.Duration

	mu       sync.Mutex
	verifier string
}

func (f *fakeGitHub) seenVerifier() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifier
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if f.delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(f.delay):
			}
		}
		_ = r.ParseForm()
		f.mu.Lock()
		f.verifier = r.PostForm.Get("code_verifier")
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(f.user)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(f.emails)
	})
	return mux
}

func newTestGitHub(t *testing.T, f *fakeGitHub) *GitHub {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	g, err := NewGitHub(GitHubConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/github/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/login/oauth/authorize",
			TokenURL:  srv.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		APIBase: srv.URL,
	})
	require.NoError(t, err)
	return g
}

func TestGitHub_Exchange(t *testing.T) {
	f := &fakeGitHub{user: map[string]any{
		"id": 42, "login": "janed", "name": "Jane Doe", "email": "Jane@Example.com", "avatar_url": "https://avatars/42",
	}}
	g := newTestGitHub(t, f)

	id, err := g.Exchange(context.Background(), "code", "verifier-123")
	require.NoError(t, err)
	assert.Equal(t, &domain.ExternalIdentity{
		Provider:    "github",
		SubjectID:   "42",
		Email:       "Jane@Example.com",
		DisplayName: "Jane Doe",
		AvatarURL:   "https://avatars/42",
	}, id)
	assert.Equal(t, "verifier-123", f.seenVerifier())
}

func TestGitHub_PrivateEmailFallsBackToEmailsAPI(t *testing.T) {
	f := &fakeGitHub{
		user: map[string]any{"id": 7, "login": "octo"},
		emails: []githubEmail{
			{Email: "old@x.com", Verified: true},
			{Email: "unverified@x.com", Primary: true},
			{Email: "main@x.com", Primary: true, Verified: true},
		},
	}
	id, err := newTestGitHub(t, f).Exchange(context.Background(), "code", "v")
	require.NoError(t, err)
	assert.Equal(t, "main@x.com", id.Email)
	assert.Equal(t, "octo", id.DisplayName)
}

func TestGitHub_AuthCodeURLCarriesPKCE(t *testing.T) {
	g := newTestGitHub(t, &fakeGitHub{})
	u, err := url.Parse(g.AuthCodeURL("st", "challenge"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "st", q.Get("state"))
	assert.Equal(t, "challenge", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "cid", q.Get("client_id"))
}

func TestRegistry_TimeoutIsProviderUnavailable(t *testing.T) {
	f := &fakeGitHub{delay: 2 * time.Second}
	reg := NewRegistry(50*time.Millisecond, zaptest.NewLogger(t), newTestGitHub(t, f))

	p, err := reg.Get("github")
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Exchange(context.Background(), "code", "v")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	reg := NewRegistry(0, nil)
	_, err := reg.Get("myspace")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Empty(t, reg.Names())
}
