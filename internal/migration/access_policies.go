package migration

import (
	"context"
	"database/sql"
	"fmt"
)

type policyRule struct {
	Ptype string
	V0    string
	V1    string
	V2    string
}

// Baseline RBAC rules every deployment needs before the first API call:
// the admin role owns the admin surface. Casbin reads these through the
// gorm adapter at boot.
var baselinePolicies = []policyRule{
	{Ptype: "p", V0: "admin", V1: "/v1/admin/*", V2: "*"},
}

func seedAccessPolicies(ctx context.Context, db *sql.DB) error {
	const stmt = `
		INSERT INTO casbin_rules (ptype, v0, v1, v2, v3, v4, v5)
		VALUES ($1, $2, $3, $4, '', '', '')
		ON CONFLICT ON CONSTRAINT unique_index DO NOTHING
	`
	for _, rule := range baselinePolicies {
		if _, err := db.ExecContext(ctx, stmt, rule.Ptype, rule.V0, rule.V1, rule.V2); err != nil {
			return fmt.Errorf("seed access policy %s %s: %w", rule.V0, rule.V1, err)
		}
	}
	return nil
}
