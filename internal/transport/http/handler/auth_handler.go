package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"portfolio-accounts/internal/core/auth"
	"portfolio-accounts/internal/identity"
	"portfolio-accounts/internal/service"
	mdw "portfolio-accounts/internal/transport/http/middleware"
	resp "portfolio-accounts/internal/transport/http/response"
	"portfolio-accounts/pkg/utils"
)

const (
	stateCookie    = "oauth_state"
	verifierCookie = "oauth_verifier"
	nextCookie     = "oauth_next"
	flowCookieAge  = 10 * 60
	flowCookiePath = "/auth"
)

// Failure reasons appended to the failure redirect as ?error=.
const (
	failProvider = "provider"
	failState    = "state"
	failAccount  = "account"
)

type AuthOptions struct {
	SuccessRedirect string
	FailureRedirect string
	CookieSecure    bool
}

// AuthHandler runs the OAuth authorization-code flow with PKCE and issues the
// session cookie once the login is reconciled to an account.
type AuthHandler struct {
	providers  *identity.Registry
	reconciler *service.Reconciler
	jwt        *auth.JWTer
	opt        AuthOptions
	log        *zap.Logger
}

func NewAuthHandler(providers *identity.Registry, reconciler *service.Reconciler, jwt *auth.JWTer, opt AuthOptions, log *zap.Logger) *AuthHandler {
	if opt.SuccessRedirect == "" {
		opt.SuccessRedirect = "/"
	}
	if opt.FailureRedirect == "" {
		opt.FailureRedirect = "/login"
	}
	return &AuthHandler{providers: providers, reconciler: reconciler, jwt: jwt, opt: opt, log: log}
}

func (h *AuthHandler) MountPublic(g *gin.RouterGroup) {
	a := g.Group("/auth/:provider")
	a.GET("/redirect", h.redirect)
	a.GET("/callback", h.callback)
}

func (h *AuthHandler) redirect(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeNotFound, "unknown provider"))
		return
	}
	state := utils.NewID()
	verifier := oauth2.GenerateVerifier()

	h.setFlowCookie(c, stateCookie, state)
	h.setFlowCookie(c, verifierCookie, verifier)
	h.setFlowCookie(c, nextCookie, safeNext(c.Query("next")))
	c.Redirect(http.StatusFound, p.AuthCodeURL(state, oauth2.S256ChallengeFromVerifier(verifier)))
}

func (h *AuthHandler) callback(c *gin.Context) {
	name := c.Param("provider")
	state, _ := c.Cookie(stateCookie)
	verifier, _ := c.Cookie(verifierCookie)
	next, _ := c.Cookie(nextCookie)
	h.clearFlowCookies(c)

	p, err := h.providers.Get(name)
	if err != nil {
		h.fail(c, failProvider, zap.String("provider", name), zap.Error(err))
		return
	}
	if state == "" || verifier == "" || c.Query("state") != state {
		h.fail(c, failState, zap.String("provider", name))
		return
	}
	if e := c.Query("error"); e != "" {
		h.fail(c, failProvider, zap.String("provider", name), zap.String("provider_error", e))
		return
	}

	ext, err := p.Exchange(c.Request.Context(), c.Query("code"), verifier)
	if err != nil {
		h.fail(c, failProvider, zap.String("provider", name), zap.Error(err))
		return
	}
	acct, err := h.reconciler.Reconcile(c.Request.Context(), *ext)
	if err != nil {
		h.fail(c, failAccount, zap.String("provider", name), zap.Error(err))
		return
	}
	tok, err := h.jwt.Issue(acct.ID, acct.Role)
	if err != nil {
		h.fail(c, failAccount, zap.String("account_id", acct.ID), zap.Error(err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(mdw.SessionCookie, tok, int(h.jwt.TTL/time.Second), "/", "", h.opt.CookieSecure, true)
	if next == "" {
		next = h.opt.SuccessRedirect
	}
	c.Redirect(http.StatusFound, next)
}

func (h *AuthHandler) fail(c *gin.Context, reason string, fields ...zap.Field) {
	h.log.Warn("oauth login failed", append(fields, zap.String("reason", reason))...)
	c.Redirect(http.StatusFound, withQuery(h.opt.FailureRedirect, "error", reason))
}

func (h *AuthHandler) setFlowCookie(c *gin.Context, name, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, flowCookieAge, flowCookiePath, "", h.opt.CookieSecure, true)
}

func (h *AuthHandler) clearFlowCookies(c *gin.Context) {
	for _, n := range []string{stateCookie, verifierCookie, nextCookie} {
		c.SetCookie(n, "", -1, flowCookiePath, "", h.opt.CookieSecure, true)
	}
}

// safeNext keeps only same-site absolute paths.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return ""
	}
	return next
}

func withQuery(target, key, value string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
