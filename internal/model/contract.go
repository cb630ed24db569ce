package model

import "fmt"

// FieldType is the semantic type a contract declares for one column.
type FieldType string

const (
	FieldTypeInteger   FieldType = "integer"
	FieldTypeFloat     FieldType = "float"
	FieldTypeString    FieldType = "string"
	FieldTypeBoolean   FieldType = "boolean"
	FieldTypeTimestamp FieldType = "timestamp"
)

// IsValidFieldType checks if a field type is valid
func IsValidFieldType(ft string) bool {
	switch FieldType(ft) {
	case FieldTypeInteger, FieldTypeFloat, FieldTypeString, FieldTypeBoolean, FieldTypeTimestamp:
		return true
	default:
		return false
	}
}

// Field is one named, typed column of a contract.
type Field struct {
	Name     string    `json:"name" mapstructure:"name"`
	Type     FieldType `json:"type" mapstructure:"type"`
	Optional bool      `json:"optional,omitempty" mapstructure:"optional"`
}

// Contract is the declared schema a batch must satisfy before landing in
// the bronze layer. Field order is significant: it becomes the column order
// of the written file. Contracts are authored by the integration owner and
// never derived from data; treat them as immutable once constructed.
type Contract struct {
	Name   string  `json:"name" mapstructure:"name"`
	Fields []Field `json:"fields" mapstructure:"fields"`
}

// NewContract builds a contract, rejecting empty, duplicate or untyped fields.
func NewContract(name string, fields []Field) (*Contract, error) {
	if name == "" {
		return nil, fmt.Errorf("contract name cannot be empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("contract %q has no fields", name)
	}
	seen := make(map[string]struct{}, len(fields))
	copied := make([]Field, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("contract %q: field %d has no name", name, i)
		}
		if !IsValidFieldType(string(f.Type)) {
			return nil, fmt.Errorf("contract %q: field %q has invalid type %q", name, f.Name, f.Type)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("contract %q: duplicate field %q", name, f.Name)
		}
		seen[f.Name] = struct{}{}
		copied[i] = f
	}
	return &Contract{Name: name, Fields: copied}, nil
}

// FieldNames returns the declared column order.
func (c *Contract) FieldNames() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}

// FieldSet returns the declared columns as a set.
func (c *Contract) FieldSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		set[f.Name] = struct{}{}
	}
	return set
}

// Lookup returns the field declaration for a column name.
func (c *Contract) Lookup(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ColumnTypes returns the column name -> type name mapping recorded in the
// metadata sidecar.
func (c *Contract) ColumnTypes() map[string]string {
	types := make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		types[f.Name] = string(f.Type)
	}
	return types
}
