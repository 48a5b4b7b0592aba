package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := Params{User: "gear", Pass: "s3cret", Host: "db", Port: "3306", Name: "gearshare"}.DSN()

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "gear", cfg.User)
	require.Equal(t, "s3cret", cfg.Passwd)
	require.Equal(t, "tcp", cfg.Net)
	require.Equal(t, "db:3306", cfg.Addr)
	require.Equal(t, "gearshare", cfg.DBName)
	require.True(t, cfg.ParseTime)
	require.Equal(t, time.UTC, cfg.Loc)
}

func TestDSNWithoutPassword(t *testing.T) {
	dsn := Params{User: "gear", Host: "localhost", Port: "3306", Name: "gs"}.DSN()
	require.Contains(t, dsn, "gear@tcp(localhost:3306)/gs")
}
