package db

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royal-market-bot/internal/config"
)

func TestPoolConfig_Defaults(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "u",
		Password: "p",
		Name:     "royal",
		PoolSize: 20,
	}

	pc, err := PoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(20), pc.MaxConns)
	assert.Equal(t, int32(5), pc.MinConns)
	assert.Equal(t, 10*time.Second, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, pc.MaxConnIdleTime)
}

func TestPoolConfig_SmallPoolKeepsOneConn(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "h", Port: 5432, User: "u", Name: "d", PoolSize: 2, MaxConnIdleTime: time.Minute}
	pc, err := PoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, time.Minute, pc.MaxConnIdleTime)
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/d?sslmode=disable", MigrateURL("postgres://u:p@h:5432/d?sslmode=disable"))
	assert.Equal(t, "pgx5://u@h/d", MigrateURL("postgresql://u@h/d"))
	assert.Equal(t, "pgx5://already", MigrateURL("pgx5://already"))
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, 5, ups)
	assert.Equal(t, ups, downs)
}
