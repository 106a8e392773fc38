package database

import (
	"path/filepath"
	"testing"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	t.Run("driver dsn keeps its fields", func(t *testing.T) {
		cfg, err := mysqldrv.ParseDSN(normalizeMySQLDSN("root:pw@tcp(db:3306)/app", "", ""))
		require.NoError(t, err)
		assert.Equal(t, "root", cfg.User)
		assert.Equal(t, "pw", cfg.Passwd)
		assert.Equal(t, "db:3306", cfg.Addr)
		assert.Equal(t, "app", cfg.DBName)
		assert.True(t, cfg.ParseTime)
	})

	t.Run("jdbc url with overrides", func(t *testing.T) {
		in := "jdbc:mysql://db:3306/app?useUnicode=true&characterEncoding=utf8&useSSL=false&serverTimezone=UTC"
		dsn := normalizeMySQLDSN(in, "app", "secret")
		assert.Contains(t, dsn, "charset=utf8")
		assert.NotContains(t, dsn, "useUnicode")
		cfg, err := mysqldrv.ParseDSN(dsn)
		require.NoError(t, err)
		assert.Equal(t, "app", cfg.User)
		assert.Equal(t, "secret", cfg.Passwd)
		assert.Equal(t, "tcp", cfg.Net)
		assert.Equal(t, "db:3306", cfg.Addr)
		assert.Equal(t, "app", cfg.DBName)
		assert.Equal(t, "false", cfg.TLSConfig)
		assert.Equal(t, "UTC", cfg.Loc.String())
		assert.True(t, cfg.ParseTime)
	})

	t.Run("url credentials", func(t *testing.T) {
		dsn := normalizeMySQLDSN("mysql://u:p@localhost:3306/accounts", "", "")
		assert.Contains(t, dsn, "charset=utf8mb4")
		cfg, err := mysqldrv.ParseDSN(dsn)
		require.NoError(t, err)
		assert.Equal(t, "u", cfg.User)
		assert.Equal(t, "p", cfg.Passwd)
		assert.Equal(t, "accounts", cfg.DBName)
	})

	assert.Equal(t, "", normalizeMySQLDSN("  ", "", ""))
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "app:****@tcp(db:3306)/app", maskDSN("app:secret@tcp(db:3306)/app"))
	assert.Equal(t, "app@tcp(db:3306)/app", maskDSN("app@tcp(db:3306)/app"))
}

func TestNewGorm(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)

	db, err := NewGorm(Opts{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "app.db"), MaxOpenConns: 1, LogLevel: "silent"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Exec("SELECT 1").Error)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}
