//go:build integration

// Package containers provides shared test containers for integration
// tests. Containers start once per test process and are shared across
// suites; Ryuk terminates them when the process exits.
package containers

import (
	"sync"
	"testing"

	braceletstore "safeband/internal/bracelet/store"
	geofencestore "safeband/internal/geofence/store"
)

// Manager hands out singleton containers so every integration suite in
// the process shares one Postgres and one Redis.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redis    *RedisContainer
}

var manager = &Manager{}

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	return manager
}

// GetPostgres returns the shared Postgres container, starting it with
// all store schemas applied on first use.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postgres == nil {
		m.postgres = NewPostgresContainer(t, braceletstore.Schema, geofencestore.Schema)
	}
	return m.postgres
}

// GetRedis returns the shared Redis container, starting it on first use.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.redis == nil {
		m.redis = NewRedisContainer(t)
	}
	return m.redis
}
