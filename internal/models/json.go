package models

import (
	"database/sql/driver"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON is an optional structured payload column. It wraps gorm.io/datatypes.JSON so the
// column type can be chosen per dialect.
type JSON struct {
	datatypes.JSON
}

// NewJSON marshals v into a JSON column value. A nil v yields an empty (NULL) value.
func NewJSON(v any) (JSON, error) {
	if v == nil {
		return JSON{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return JSON{}, err
	}
	return JSON{JSON: datatypes.JSON(b)}, nil
}

// IsEmpty reports whether the column holds no payload
func (j JSON) IsEmpty() bool {
	return len(j.JSON) == 0
}

// Value promotes the embedded JSON's Value method
func (j JSON) Value() (driver.Value, error) {
	return j.JSON.Value()
}

// Scan reads a NULL column as an empty payload
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		j.JSON = nil
		return nil
	}
	return j.JSON.Scan(value)
}

// GormDBDataType picks the column type per driver; SQL Server has no json type.
func (JSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}
