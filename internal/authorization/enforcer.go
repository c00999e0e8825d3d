// Package authorization guards the admin surface with a casbin RBAC
// policy persisted through the gorm adapter. API-key roles are the
// casbin subjects; route paths are the objects.
package authorization

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// rbacModel matches (role, path, method) requests against stored rules.
// keyMatch2 lets a rule cover a whole subtree ("/v1/admin/*") or a
// parameterized path (":id").
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// defaultPolicies is the minimal rule set the engine needs to run:
// only the admin role reaches the admin surface. Payer and merchant
// surfaces rely on service-level ownership checks, not on casbin.
var defaultPolicies = [][]string{
	{"admin", "/v1/admin/*", "*"},
}

// NewEnforcer builds the enforcer on top of the shared database handle.
// Rules live in the casbin_rules table next to the domain tables, so a
// migration or a seed run can manage them like any other row.
func NewEnforcer(db *gorm.DB, log *zap.Logger) (*casbin.Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", "casbin_rules")
	if err != nil {
		return nil, err
	}

	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}

	log.Named("authorization").Debug("casbin enforcer ready")
	return enforcer, nil
}

// EnsureDefaultPolicies seeds the baseline rules. Existing rules are
// left alone, so the call is safe on every boot.
func EnsureDefaultPolicies(enforcer *casbin.Enforcer) error {
	for _, rule := range defaultPolicies {
		if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return err
		}
	}
	return nil
}
