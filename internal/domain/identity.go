package domain

import (
	"fmt"
	"strings"
)

// ExternalIdentity is what an identity provider hands back after a verified
// authorization grant. Facts only; no decisions are made with it here.
type ExternalIdentity struct {
	Provider    string
	SubjectID   string
	Email       string
	DisplayName string
	AvatarURL   string
}

// Validate checks the required fields and normalizes the email in place.
func (e *ExternalIdentity) Validate() error {
	e.Provider = strings.TrimSpace(e.Provider)
	e.SubjectID = strings.TrimSpace(e.SubjectID)
	e.Email = NormalizeEmail(e.Email)
	e.DisplayName = strings.TrimSpace(e.DisplayName)
	e.AvatarURL = strings.TrimSpace(e.AvatarURL)

	switch {
	case e.Provider == "":
		return fmt.Errorf("%w: provider missing", ErrInvalidIdentity)
	case e.SubjectID == "":
		return fmt.Errorf("%w: subject id missing", ErrInvalidIdentity)
	case e.Email == "" || !strings.Contains(e.Email, "@"):
		return fmt.Errorf("%w: email missing", ErrInvalidIdentity)
	case e.DisplayName == "":
		return fmt.Errorf("%w: display name missing", ErrInvalidIdentity)
	}
	return nil
}

type MatchKind int

const (
	NoMatch MatchKind = iota
	ActiveMatch
	SoftDeletedMatch
)

func (k MatchKind) String() string {
	switch k {
	case ActiveMatch:
		return "active"
	case SoftDeletedMatch:
		return "soft_deleted"
	default:
		return "none"
	}
}

// MatchResult is the outcome of resolving an external identity. Account is nil
// for NoMatch.
type MatchResult struct {
	Kind    MatchKind
	Account *Account
}
