package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrConflict is a uniqueness violation detected by the database.
	ErrConflict = errors.New("conflict")

	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrInvalidIdentity     = errors.New("invalid external identity")
	ErrUsernameExhausted   = errors.New("username allocation exhausted")

	// ErrRestoreConflict: a soft-deleted account cannot come back because a
	// different active account now holds its email.
	ErrRestoreConflict = errors.New("restore conflicts with an active account")

	ErrStorageDelete = errors.New("media delete failed")
	ErrInvalidMedia  = errors.New("invalid media")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
