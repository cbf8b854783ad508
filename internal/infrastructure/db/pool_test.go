package db

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnsureSSLModeRequire(t *testing.T) {
	got := ensureSSLModeRequire("postgres://user:pw@db.example.supabase.co:5432/postgres")
	assert.Equal(t, "postgres://user:pw@db.example.supabase.co:5432/postgres?sslmode=require", got)

	keep := "postgres://localhost:5432/archon?sslmode=disable"
	assert.Equal(t, keep, ensureSSLModeRequire(keep))

	dsn := "host=localhost user=archon dbname=archon"
	assert.Equal(t, dsn, ensureSSLModeRequire(dsn))
}

func TestPoolConfigNormalize(t *testing.T) {
	cfg := PoolConfig{MaxConns: 0, MinConns: 5}.Normalize()
	assert.Equal(t, int32(1), cfg.MaxConns)
	assert.Equal(t, int32(1), cfg.MinConns)
	assert.Equal(t, 30*time.Minute, cfg.MaxConnLifetime)
	assert.Equal(t, 5*time.Minute, cfg.MaxConnIdleTime)
	assert.Equal(t, 30*time.Second, cfg.HealthCheckPeriod)

	neg := PoolConfig{MaxConns: 4, MinConns: -1, HealthCheckPeriod: time.Minute}.Normalize()
	assert.Equal(t, int32(0), neg.MinConns)
	assert.Equal(t, time.Minute, neg.HealthCheckPeriod)
}

func TestStatementsUseChannel(t *testing.T) {
	var fn string
	for _, stmt := range Statements("custom_feed") {
		if strings.Contains(stmt, "archon_notify_change() returns trigger") {
			fn = stmt
		}
	}
	assert.Contains(t, fn, "pg_notify('custom_feed'")
	assert.Contains(t, fn, "row_to_json(OLD)")
}
