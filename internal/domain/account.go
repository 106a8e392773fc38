package domain

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// LifecycleState is the tagged state of an account row.
type LifecycleState int

const (
	StateActive LifecycleState = iota
	StateSoftDeleted
)

func (s LifecycleState) String() string {
	if s == StateSoftDeleted {
		return "soft_deleted"
	}
	return "active"
}

// Lifecycle carries the state and, for soft-deleted accounts, when it happened.
type Lifecycle struct {
	State     LifecycleState
	DeletedAt time.Time
}

func Active() Lifecycle { return Lifecycle{State: StateActive} }

func SoftDeletedAt(t time.Time) Lifecycle {
	return Lifecycle{State: StateSoftDeleted, DeletedAt: t}
}

type Profile struct {
	About      string `json:"about"`
	Occupation string `json:"occupation"`
	Company    string `json:"company"`
	Location   string `json:"location"`
	City       string `json:"city"`
	Website    string `json:"website"`
}

// Account is the central identity record. AvatarPath is relative to the media
// store; AvatarURL is an external picture (e.g. from the identity provider).
type Account struct {
	ID                string    `json:"id"`
	Provider          string    `json:"provider,omitempty"`
	ProviderSubjectID string    `json:"-"`
	Email             string    `json:"email"`
	Username          string    `json:"username"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	Role              string    `json:"role"`
	Profile           Profile   `json:"profile"`
	AvatarPath        string    `json:"-"`
	AvatarURL         string    `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	Lifecycle         Lifecycle `json:"-"`
}

func (a *Account) IsSoftDeleted() bool { return a.Lifecycle.State == StateSoftDeleted }

// HasProviderLink reports whether an external subject id is recorded.
func (a *Account) HasProviderLink() bool { return a.ProviderSubjectID != "" }

// NormalizeEmail is the single canonical form used for storage and matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitDisplayName returns the first whitespace-delimited token and the rest.
func SplitDisplayName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

type WorkExperience struct {
	ID          string
	OwnerID     string
	Company     string
	Position    string
	StartDate   time.Time
	EndDate     *time.Time
	IsCurrent   bool
	Description string
	CreatedAt   time.Time
}

type Portfolio struct {
	ID            string
	OwnerID       string
	Title         string
	ThumbnailPath string
	CreatedAt     time.Time
}

type Like struct {
	ID          string
	AccountID   string
	PortfolioID string
	CreatedAt   time.Time
}

type Comment struct {
	ID          string
	AccountID   string
	PortfolioID string
	Body        string
	CreatedAt   time.Time
}
