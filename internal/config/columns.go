package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"custos/internal/core"
)

// columnsFile is the YAML layout of COLUMNS_FILE.
type columnsFile struct {
	Fields map[string][]string `yaml:"fields"`
}

// LoadSchema returns the built-in schema, overridden by the column mapping
// file when path is set.
func LoadSchema(path string) (core.Schema, error) {
	schema := core.DefaultSchema()
	if path == "" {
		return schema, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema, fmt.Errorf("read columns file: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema applies a YAML column mapping on top of the built-in schema.
func ParseSchema(data []byte) (core.Schema, error) {
	schema := core.DefaultSchema()
	var doc columnsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return schema, fmt.Errorf("parse columns file: %w", err)
	}

	names := make([]string, 0, len(doc.Fields))
	for name := range doc.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := core.Field(name)
		if !core.KnownField(f) {
			return core.DefaultSchema(), fmt.Errorf("columns file: unknown field %q", name)
		}
		next, err := schema.WithVariants(f, doc.Fields[name])
		if err != nil {
			return core.DefaultSchema(), fmt.Errorf("columns file: %w", err)
		}
		schema = next
	}
	return schema, nil
}
