package core

import "fmt"

// FieldSpec describes how a logical field is found and displayed.
// Variants are tried in order; a fixed-name field has exactly one.
type FieldSpec struct {
	Field    Field
	Label    string
	Variants []string
}

// Schema is the immutable column configuration handed to the loader and
// the resolver.
type Schema struct {
	specs []FieldSpec
}

// DefaultSchema returns the column names used by the maintenance cost
// spreadsheet.
func DefaultSchema() Schema {
	return Schema{specs: []FieldSpec{
		{Field: FieldCost, Label: "Valor", Variants: []string{"Valor"}},
		{Field: FieldPlanningGroup, Label: "Grupo", Variants: []string{"Grp.planej.manutenç."}},
		{Field: FieldOrderType, Label: "Tipo de Ordem", Variants: []string{"Tipo de Ordem"}},
		{Field: FieldSite, Label: "Local de Instalação", Variants: []string{"Local de Instalação"}},
		{Field: FieldOrderNumber, Label: "Ordem", Variants: []string{"Ordem"}},
		{Field: FieldOrderHeader, Label: "Cabeçalho da ordem", Variants: []string{"Cabeçalho da ordem"}},
		{Field: FieldEquipment, Label: "Equipamento", Variants: []string{"Equipamento", "EQUIPAMENTO"}},
		{Field: FieldProcess, Label: "Processo", Variants: []string{"PROCESSO", "PROCESSOS"}},
	}}
}

// KnownField reports whether f is one of the logical fields.
func KnownField(f Field) bool {
	for _, spec := range DefaultSchema().specs {
		if spec.Field == f {
			return true
		}
	}
	return false
}

// WithVariants returns a copy of the schema with the variants of f replaced.
func (s Schema) WithVariants(f Field, variants []string) (Schema, error) {
	if len(variants) == 0 {
		return s, fmt.Errorf("field %s: at least one column name is required", f)
	}
	specs := make([]FieldSpec, len(s.specs))
	copy(specs, s.specs)
	for i := range specs {
		if specs[i].Field == f {
			specs[i].Variants = append([]string(nil), variants...)
			return Schema{specs: specs}, nil
		}
	}
	return s, fmt.Errorf("unknown field %q", f)
}

// Fields returns the field specs in declaration order.
func (s Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Spec returns the spec for f.
func (s Schema) Spec(f Field) (FieldSpec, bool) {
	for _, spec := range s.specs {
		if spec.Field == f {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Variants returns the acceptable column names for f, in priority order.
func (s Schema) Variants(f Field) []string {
	spec, _ := s.Spec(f)
	return spec.Variants
}

// Label returns the display label for f.
func (s Schema) Label(f Field) string {
	if spec, ok := s.Spec(f); ok {
		return spec.Label
	}
	return string(f)
}
