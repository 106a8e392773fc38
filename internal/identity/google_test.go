package identity

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/oauth2"

	"portfolio-accounts/internal/domain"
)

const testIssuer = "https://issuer.test"

func newTestGoogle(t *testing.T, claims jwt.MapClaims) *Google {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	base := jwt.MapClaims{
		"iss": testIssuer,
		"aud": "cid",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	for k, v := range claims {
		base[k] = v
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, base).SignedString(key)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok", "token_type": "Bearer", "expires_in": 3600, "id_token": raw,
		})
	}))
	t.Cleanup(srv.Close)

	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	verifier := oidc.NewVerifier(testIssuer, keys, &oidc.Config{ClientID: "cid"})
	return newGoogle(GoogleConfig{ClientID: "cid", ClientSecret: "secret", RedirectURL: "http://localhost/cb"},
		oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
		verifier)
}

func TestGoogle_ExchangeVerifiesIDToken(t *testing.T) {
	g := newTestGoogle(t, jwt.MapClaims{
		"sub": "g-123", "email": "jane@example.com", "email_verified": true,
		"name": "Jane Doe", "picture": "https://lh3/jane",
	})

	id, err := g.Exchange(context.Background(), "code", "v")
	require.NoError(t, err)
	assert.Equal(t, &domain.ExternalIdentity{
		Provider:    "google",
		SubjectID:   "g-123",
		Email:       "jane@example.com",
		DisplayName: "Jane Doe",
		AvatarURL:   "https://lh3/jane",
	}, id)
}

func TestGoogle_UnverifiedEmailIsRejected(t *testing.T) {
	g := newTestGoogle(t, jwt.MapClaims{"sub": "g-1", "email": "jane@example.com", "email_verified": false, "name": "Jane"})
	reg := NewRegistry(time.Second, zaptest.NewLogger(t), g)
	p, err := reg.Get("google")
	require.NoError(t, err)

	_, err = p.Exchange(context.Background(), "code", "v")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentity)
	assert.NotErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestGoogle_WrongAudienceFails(t *testing.T) {
	g := newTestGoogle(t, jwt.MapClaims{"sub": "g-1", "aud": "someone-else", "email": "a@x.com", "email_verified": true})
	_, err := g.Exchange(context.Background(), "code", "v")
	assert.Error(t, err)
}

func TestGoogleClaims_NameFallsBackToEmail(t *testing.T) {
	id, err := googleClaims{Subject: "s", Email: "jane@example.com", EmailVerified: true}.identity()
	require.NoError(t, err)
	assert.Equal(t, "jane", id.DisplayName)
}
