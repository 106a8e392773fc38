package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a 32-char lowercase hex id (a UUIDv4 without dashes), sized for
// the varchar(32) primary keys.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
