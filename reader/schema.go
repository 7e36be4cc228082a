package reader

import (
	"errors"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// ErrNestedColumn is returned for Parquet schemas with group or repeated
// columns, which have no single-field text rendering
var ErrNestedColumn = errors.New("nested or repeated parquet column")

// ColumnInfo describes one Parquet leaf column.
type ColumnInfo struct {
	Name         string
	PhysicalType string
	Optional     bool
	Repeated     bool
	Nested       bool
}

// DescribeColumns walks the schema and returns every leaf column. Nested
// fields use dot notation (e.g. "address.street").
func DescribeColumns(schema *parquet.Schema) []ColumnInfo {
	var infos []ColumnInfo
	for _, field := range schema.Fields() {
		infos = append(infos, describeField(field, "", false)...)
	}
	return infos
}

// describeField recursively collects leaf columns, carrying the repeated
// flag of any parent group down to its children
func describeField(field parquet.Field, prefix string, parentRepeated bool) []ColumnInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if children := field.Fields(); len(children) > 0 {
		var infos []ColumnInfo
		for _, child := range children {
			for _, info := range describeField(child, name, repeated) {
				info.Nested = true
				infos = append(infos, info)
			}
		}
		return infos
	}

	return []ColumnInfo{{
		Name:         name,
		PhysicalType: physicalType(field),
		Optional:     field.Optional(),
		Repeated:     repeated,
	}}
}

// flatColumns returns the column names of a flat schema
func flatColumns(schema *parquet.Schema) ([]string, error) {
	infos := DescribeColumns(schema)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Nested || info.Repeated {
			return nil, fmt.Errorf("%w: %s", ErrNestedColumn, info.Name)
		}
		names = append(names, info.Name)
	}
	return names, nil
}

// physicalType returns the physical type name of a Parquet leaf field
func physicalType(field parquet.Field) string {
	if field.Type() == nil {
		return "GROUP"
	}

	switch field.Type().Kind() {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

// Describe lists the columns of an open source under its header names.
// Delimited text carries no types, so its columns are reported as TEXT.
func Describe(src Source) []ColumnInfo {
	header := src.Header()
	if p, ok := src.(*parquetSource); ok {
		infos := DescribeColumns(p.pqFile.Schema())
		for i := range infos {
			infos[i].Name = header[i]
		}
		return infos
	}

	infos := make([]ColumnInfo, len(header))
	for i, name := range header {
		infos[i] = ColumnInfo{Name: name, PhysicalType: "TEXT"}
	}
	return infos
}
