package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module runs the embedded migrations. Only the migrate entrypoint
// includes it.
var Module = fx.Module("migration",
	fx.Invoke(func(conn *gorm.DB) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return Run(sqlDB)
	}),
)
