package bootstrap

import (
	"context"

	"go.uber.org/fx"
)

// EnforceSchemaGate fails startup when the schema state does not match
// this binary. Serve and scheduler entrypoints invoke it; migrate does
// not.
func EnforceSchemaGate(lc fx.Lifecycle, gate SchemaGate) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return gate.MustBeActive(ctx)
		},
	})
}
