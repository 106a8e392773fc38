package repo

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"portfolio-accounts/internal/feature/account"
)

type partialUnique struct {
	name    string
	columns []string
	extra   string // additional predicate, postgres/sqlite only
}

var accountUniques = []partialUnique{
	{name: "ux_accounts_email_active", columns: []string{"email"}},
	{name: "ux_accounts_username_active", columns: []string{"username"}},
	{name: "ux_accounts_provider_subject_active", columns: []string{"provider", "provider_subject_id"}, extra: "provider_subject_id IS NOT NULL"},
}

// Migrate creates the tables and the uniqueness guards that only apply to
// non-deleted accounts.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(account.Models()...); err != nil {
		return err
	}
	m := db.Migrator()
	for _, ix := range accountUniques {
		if m.HasIndex(&account.AccountModel{}, ix.name) {
			continue
		}
		if err := db.Exec(uniqueIndexSQL(db.Dialector.Name(), ix)).Error; err != nil {
			return fmt.Errorf("create index %s: %w", ix.name, err)
		}
	}
	return nil
}

func uniqueIndexSQL(dialect string, ix partialUnique) string {
	if dialect == "mysql" {
		// No partial indexes; NULL keys never collide, so index a value that is
		// NULL for soft-deleted rows.
		parts := make([]string, 0, len(ix.columns))
		for _, c := range ix.columns {
			parts = append(parts, fmt.Sprintf("(CASE WHEN deleted_at IS NULL THEN %s END)", c))
		}
		return fmt.Sprintf("CREATE UNIQUE INDEX %s ON accounts (%s)", ix.name, strings.Join(parts, ", "))
	}
	where := "deleted_at IS NULL"
	if ix.extra != "" {
		where += " AND " + ix.extra
	}
	return fmt.Sprintf("CREATE UNIQUE INDEX %s ON accounts (%s) WHERE %s", ix.name, strings.Join(ix.columns, ", "), where)
}
