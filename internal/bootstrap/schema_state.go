package bootstrap

import "time"

const schemaStateTable = "schema_state"

// SchemaState is the singleton row the migrate entrypoint writes after a
// successful run. id is always true.
type SchemaState struct {
	ID            bool       `gorm:"column:id;primaryKey"`
	Status        string     `gorm:"column:status;not null"`
	SchemaVersion string     `gorm:"column:schema_version;not null"`
	Checksum      *string    `gorm:"column:checksum"`
	ActivatedAt   *time.Time `gorm:"column:activated_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
}

func (SchemaState) TableName() string {
	return schemaStateTable
}
