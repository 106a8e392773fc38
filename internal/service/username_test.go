package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-accounts/internal/domain"
)

type usernameStub struct {
	taken map[string]bool
	all   bool
	err   error
	calls int
}

func (s *usernameStub) UsernameTaken(_ context.Context, u, _ string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.all || s.taken[u], nil
}

func TestNormalizeUsername(t *testing.T) {
	cases := map[string]string{
		"Jane Doe":       "janedoe",
		"  \t ":          "user",
		"":               "user",
		"a.b!c":          "abc",
		"Zoë Ñandú":      "zoëñandú",
		"dash-and_under": "dash-and_under",
		"!!!":            "user",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeUsername(in, 30), "input %q", in)
	}

	long := NormalizeUsername(strings.Repeat("é", 50), 30)
	assert.Equal(t, 30, utf8.RuneCountInString(long))
}

func TestAllocate_BaseWhenFree(t *testing.T) {
	stub := &usernameStub{}
	a := NewUsernameAllocator(stub, DefaultUsernamePolicy())

	got, err := a.Allocate(context.Background(), "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "janedoe", got)
	assert.Equal(t, 1, stub.calls)
}

func TestAllocate_NumericSuffixOnCollision(t *testing.T) {
	stub := &usernameStub{taken: map[string]bool{"janedoe": true}}
	a := NewUsernameAllocator(stub, DefaultUsernamePolicy())
	a.intN = func(int) int { return 41 }

	got, err := a.Allocate(context.Background(), "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "janedoe42", got)
}

func TestAllocate_RandomSuffixAfterNumeric(t *testing.T) {
	stub := &usernameStub{taken: map[string]bool{"jane": true, "jane1": true}}
	a := NewUsernameAllocator(stub, UsernamePolicy{NumericAttempts: 2, NumericMax: 1, RandomAttempts: 1, RandomLen: 4})
	a.intN = func(int) int { return 0 }

	got, err := a.Allocate(context.Background(), "jane")
	require.NoError(t, err)
	assert.Equal(t, "janeaaaa", got)
	assert.Equal(t, 4, stub.calls)
}

func TestAllocate_TerminatesWhenEverythingIsTaken(t *testing.T) {
	stub := &usernameStub{all: true}
	p := DefaultUsernamePolicy()
	a := NewUsernameAllocator(stub, p)

	_, err := a.Allocate(context.Background(), "Jane Doe")
	assert.ErrorIs(t, err, domain.ErrUsernameExhausted)
	assert.Equal(t, 1+p.NumericAttempts+p.RandomAttempts, stub.calls)
}

func TestAllocate_SuffixedCandidatesRespectMaxLen(t *testing.T) {
	name := strings.Repeat("x", 40)
	stub := &usernameStub{taken: map[string]bool{strings.Repeat("x", 30): true}}
	a := NewUsernameAllocator(stub, DefaultUsernamePolicy())
	a.intN = func(int) int { return 998 }

	got, err := a.Allocate(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 27)+"999", got)
}

func TestAllocate_CheckErrorSurfaces(t *testing.T) {
	boom := errors.New("db down")
	a := NewUsernameAllocator(&usernameStub{err: boom}, DefaultUsernamePolicy())

	_, err := a.Allocate(context.Background(), "jane")
	assert.ErrorIs(t, err, boom)
}
