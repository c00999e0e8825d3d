package authorization

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestEnforcerDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return gdb
}

func TestEnforcerAdminSurface(t *testing.T) {
	gdb := newTestEnforcerDB(t)

	enforcer, err := NewEnforcer(gdb, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, EnsureDefaultPolicies(enforcer))

	adminPaths := []struct {
		path   string
		method string
	}{
		{"/v1/admin/platform/initialize", "POST"},
		{"/v1/admin/platform/pause", "POST"},
		{"/v1/admin/merchants/123456/approve", "POST"},
		{"/v1/admin/audit/export", "GET"},
		{"/v1/admin/api-keys", "GET"},
	}
	for _, tc := range adminPaths {
		ok, err := enforcer.Enforce("admin", tc.path, tc.method)
		require.NoError(t, err)
		assert.True(t, ok, "admin should reach %s %s", tc.method, tc.path)
	}

	for _, role := range []string{"payer", "merchant", "unknown"} {
		ok, err := enforcer.Enforce(role, "/v1/admin/platform/pause", "POST")
		require.NoError(t, err)
		assert.False(t, ok, "role %s must not reach the admin surface", role)
	}
}

func TestEnsureDefaultPoliciesIdempotent(t *testing.T) {
	gdb := newTestEnforcerDB(t)

	enforcer, err := NewEnforcer(gdb, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, EnsureDefaultPolicies(enforcer))
	require.NoError(t, EnsureDefaultPolicies(enforcer))

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, len(defaultPolicies))
}

func TestPoliciesPersistAcrossEnforcers(t *testing.T) {
	gdb := newTestEnforcerDB(t)

	first, err := NewEnforcer(gdb, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, EnsureDefaultPolicies(first))

	// A fresh enforcer over the same handle sees the stored rules
	// without re-seeding.
	second, err := NewEnforcer(gdb, zap.NewNop())
	require.NoError(t, err)

	ok, err := second.Enforce("admin", "/v1/admin/platform/config", "PUT")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGroupingExtendsRole(t *testing.T) {
	gdb := newTestEnforcerDB(t)

	enforcer, err := NewEnforcer(gdb, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, EnsureDefaultPolicies(enforcer))

	ok, err := enforcer.Enforce("ops", "/v1/admin/platform/pause", "POST")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = enforcer.AddGroupingPolicy("ops", "admin")
	require.NoError(t, err)

	ok, err = enforcer.Enforce("ops", "/v1/admin/platform/pause", "POST")
	require.NoError(t, err)
	assert.True(t, ok)
}
