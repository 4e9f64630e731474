package builds

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type InstallFile struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BuildID    int64     `gorm:"column:build_id;not null;uniqueIndex:uk_install_file,priority:1" json:"build_id"`
	Name       string    `gorm:"column:name;size:500;not null;uniqueIndex:uk_install_file,priority:2" json:"name"`
	Ftype      string    `gorm:"column:ftype;size:25" json:"ftype,omitempty"`
	Mode       *int      `gorm:"column:mode" json:"mode,omitempty"`
	Owner      *int      `gorm:"column:owner" json:"owner,omitempty"`
	Group      *int      `gorm:"column:group" json:"group,omitempty"`
	ObjectType string    `gorm:"column:object_type;size:25" json:"object_type,omitempty"`
	Hash       string    `gorm:"column:hash;size:250" json:"hash,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (InstallFile) TableName() string { return "install_files" }

const (
	ValueText   = "text"
	ValueBinary = "binary"
	ValueJSON   = "json"
)

// AttributeValue holds exactly one of a text, binary or json payload.
type AttributeValue struct {
	Kind   string
	Text   string
	Binary []byte
	JSON   json.RawMessage
}

func TextValue(s string) AttributeValue { return AttributeValue{Kind: ValueText, Text: s} }

func BinaryValue(b []byte) AttributeValue { return AttributeValue{Kind: ValueBinary, Binary: b} }

func JSONValue(raw json.RawMessage) AttributeValue { return AttributeValue{Kind: ValueJSON, JSON: raw} }

func (v AttributeValue) Validate() error {
	switch v.Kind {
	case ValueText:
		return nil
	case ValueBinary:
		if v.Binary == nil {
			return fmt.Errorf("binary value is empty")
		}
		return nil
	case ValueJSON:
		if !json.Valid(v.JSON) {
			return fmt.Errorf("json value is not valid json")
		}
		return nil
	default:
		return fmt.Errorf("unknown value kind %q", v.Kind)
	}
}

// Attribute is an analyzer result attached to an install file.
type Attribute struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string         `gorm:"column:name;size:150;not null;uniqueIndex:uk_attribute,priority:1" json:"name"`
	Analyzer      string         `gorm:"column:analyzer;size:150;not null;uniqueIndex:uk_attribute,priority:2" json:"analyzer"`
	InstallFileID int64          `gorm:"column:install_file_id;not null;uniqueIndex:uk_attribute,priority:3" json:"install_file_id"`
	ValueKind     string         `gorm:"column:value_kind;size:10;not null" json:"value_kind"`
	Value         *string        `gorm:"column:value;type:text" json:"value,omitempty"`
	BinaryValue   []byte         `gorm:"column:binary_value" json:"-"`
	JSONValue     datatypes.JSON `gorm:"column:json_value" json:"json_value,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Attribute) TableName() string { return "attributes" }

// SetValue stores v and clears the other variants.
func (a *Attribute) SetValue(v AttributeValue) {
	a.ValueKind = v.Kind
	a.Value = nil
	a.BinaryValue = nil
	a.JSONValue = nil
	switch v.Kind {
	case ValueText:
		s := v.Text
		a.Value = &s
	case ValueBinary:
		a.BinaryValue = v.Binary
	case ValueJSON:
		a.JSONValue = datatypes.JSON(v.JSON)
	}
}

func (a Attribute) Payload() AttributeValue {
	switch a.ValueKind {
	case ValueText:
		if a.Value != nil {
			return TextValue(*a.Value)
		}
	case ValueBinary:
		return BinaryValue(a.BinaryValue)
	case ValueJSON:
		return JSONValue(json.RawMessage(a.JSONValue))
	}
	return AttributeValue{}
}

// EnvironmentVariable rows are shared across builds and never mutated.
type EnvironmentVariable struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:250;not null;uniqueIndex:uk_envar,priority:1" json:"name"`
	ValueHash string    `gorm:"column:value_hash;size:64;not null;uniqueIndex:uk_envar,priority:2" json:"-"`
	Value     string    `gorm:"column:value;type:text;not null" json:"value"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (EnvironmentVariable) TableName() string { return "environment_variables" }

func HashEnvarValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

type BuildEnvar struct {
	BuildID               int64     `gorm:"column:build_id;primaryKey" json:"build_id"`
	EnvironmentVariableID int64     `gorm:"column:environment_variable_id;primaryKey;index" json:"environment_variable_id"`
	CreatedAt             time.Time `gorm:"not null" json:"created_at"`
}

func (BuildEnvar) TableName() string { return "build_envars" }
