package service

import (
	"strings"

	"go.uber.org/zap"
)

// maskEmail keeps the first character of the local part and the domain.
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

func emailField(email string) zap.Field { return zap.String("email", maskEmail(email)) }

func emailLockKey(email string) string { return "email:" + email }

func subjectLockKey(provider, subjectID string) string {
	return "subject:" + provider + ":" + subjectID
}
