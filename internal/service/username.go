package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode"

	"portfolio-accounts/internal/core/metrics"
	"portfolio-accounts/internal/domain"
)

const fallbackUsername = "user"

// UsernameChecker reports whether an active account other than exceptID holds
// a username.
type UsernameChecker interface {
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
}

// UsernamePolicy bounds the candidate sequence: the bare handle, then
// NumericAttempts handles with a suffix in [1, NumericMax], then
// RandomAttempts handles with a RandomLen alphanumeric suffix.
type UsernamePolicy struct {
	MaxLen          int
	NumericAttempts int
	NumericMax      int
	RandomAttempts  int
	RandomLen       int
}

func DefaultUsernamePolicy() UsernamePolicy {
	return UsernamePolicy{MaxLen: 30, NumericAttempts: 5, NumericMax: 999, RandomAttempts: 3, RandomLen: 6}
}

func (p UsernamePolicy) withDefaults() UsernamePolicy {
	d := DefaultUsernamePolicy()
	if p.MaxLen <= 0 {
		p.MaxLen = d.MaxLen
	}
	if p.NumericAttempts < 0 {
		p.NumericAttempts = 0
	}
	if p.NumericMax <= 0 {
		p.NumericMax = d.NumericMax
	}
	if p.RandomAttempts <= 0 {
		p.RandomAttempts = d.RandomAttempts
	}
	if p.RandomLen <= 0 {
		p.RandomLen = d.RandomLen
	}
	if p.RandomLen >= p.MaxLen {
		p.RandomLen = p.MaxLen - 1
	}
	return p
}

type UsernameAllocator struct {
	repo   UsernameChecker
	policy UsernamePolicy
	intN   func(n int) int
}

func NewUsernameAllocator(repo UsernameChecker, p UsernamePolicy) *UsernameAllocator {
	return &UsernameAllocator{repo: repo, policy: p.withDefaults(), intN: rand.IntN}
}

// Allocate derives a handle from a display name that no active account holds
// right now. The database constraint remains the final arbiter under
// concurrent writers.
func (a *UsernameAllocator) Allocate(ctx context.Context, displayName string) (string, error) {
	return a.allocate(ctx, displayName, "")
}

// AllocateFor is Allocate for an existing account; its own row never counts
// as a collision.
func (a *UsernameAllocator) AllocateFor(ctx context.Context, base, accountID string) (string, error) {
	return a.allocate(ctx, base, accountID)
}

func (a *UsernameAllocator) allocate(ctx context.Context, name, exceptID string) (string, error) {
	base := NormalizeUsername(name, a.policy.MaxLen)
	attempts := 0
	defer func() { metrics.UsernameAttempts.Observe(float64(attempts)) }()

	free := func(candidate string) (bool, error) {
		attempts++
		taken, err := a.repo.UsernameTaken(ctx, candidate, exceptID)
		if err != nil {
			return false, fmt.Errorf("check username %q: %w", candidate, err)
		}
		return !taken, nil
	}

	if ok, err := free(base); err != nil || ok {
		return base, err
	}
	for i := 0; i < a.policy.NumericAttempts; i++ {
		c := withSuffix(base, strconv.Itoa(1+a.intN(a.policy.NumericMax)), a.policy.MaxLen)
		if ok, err := free(c); err != nil || ok {
			return c, err
		}
	}
	for i := 0; i < a.policy.RandomAttempts; i++ {
		c := withSuffix(base, a.randomSuffix(), a.policy.MaxLen)
		if ok, err := free(c); err != nil || ok {
			return c, err
		}
	}
	return "", fmt.Errorf("%w: %d candidates for %q", domain.ErrUsernameExhausted, attempts, base)
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func (a *UsernameAllocator) randomSuffix() string {
	b := make([]byte, a.policy.RandomLen)
	for i := range b {
		b[i] = suffixAlphabet[a.intN(len(suffixAlphabet))]
	}
	return string(b)
}

// NormalizeUsername drops whitespace and anything outside letters, digits,
// '_' and '-', lower-cases the rest and truncates to maxLen runes. An empty
// result becomes "user".
func NormalizeUsername(name string, maxLen int) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	s := b.String()
	if s == "" {
		s = fallbackUsername
	}
	return truncateRunes(s, maxLen)
}

func withSuffix(base, suffix string, maxLen int) string {
	keep := maxLen - len(suffix)
	if keep < 1 {
		keep = 1
	}
	return truncateRunes(base, keep) + suffix
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
