package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"portfolio-accounts/internal/domain"
)

const (
	githubName    = "github"
	githubAPIBase = "https://api.github.com"
)

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint and APIBase default to github.com.
	Endpoint oauth2.Endpoint
	APIBase  string
}

type GitHub struct {
	oauth   *oauth2.Config
	apiBase string
}

func NewGitHub(cfg GitHubConfig) (*GitHub, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("github oauth config missing required fields")
	}
	ep := cfg.Endpoint
	if ep.TokenURL == "" {
		ep = github.Endpoint
	}
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = githubAPIBase
	}
	return &GitHub{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     ep,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase: base,
	}, nil
}

func (g *GitHub) Name() string { return githubName }

func (g *GitHub) AuthCodeURL(state, codeChallenge string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHub) Exchange(ctx context.Context, code, codeVerifier string) (*domain.ExternalIdentity, error) {
	tok, err := g.oauth.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("github token exchange: %w", err)
	}
	client := g.oauth.Client(ctx, tok)

	var u githubUser
	if err := g.get(ctx, client, "/user", &u); err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, fmt.Errorf("github returned an invalid user")
	}

	// The profile email is empty when the user keeps it private.
	email := u.Email
	if email == "" {
		var emails []githubEmail
		if err := g.get(ctx, client, "/user/emails", &emails); err != nil {
			return nil, err
		}
		email = primaryEmail(emails)
	}

	name := u.Name
	if strings.TrimSpace(name) == "" {
		name = u.Login
	}
	return &domain.ExternalIdentity{
		Provider:    githubName,
		SubjectID:   strconv.FormatInt(u.ID, 10),
		Email:       email,
		DisplayName: name,
		AvatarURL:   u.AvatarURL,
	}, nil
}

func (g *GitHub) get(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("github %s: decode: %w", path, err)
	}
	return nil
}

func primaryEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
