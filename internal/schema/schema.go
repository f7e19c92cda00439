package schema

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-records-console/internal/models"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
)

// Placeholder is rendered for columns missing from a record.
const Placeholder = "-"

// ColumnSpec describes one table column in display order.
type ColumnSpec struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Schema is the declarative description of a record kind.
type Schema struct {
	Kind         models.RecordKind
	ResourcePath string
	EntityLabel  string
	Columns      []ColumnSpec
	Fields       []FieldSpec
}

func (s Schema) clone() Schema {
	out := s
	out.Columns = append([]ColumnSpec(nil), s.Columns...)
	out.Fields = append([]FieldSpec(nil), s.Fields...)
	return out
}

func (s Schema) check() error {
	if s.Kind == "" || strings.TrimSpace(s.ResourcePath) == "" {
		return fmt.Errorf("schema %q: kind and resource path are required", s.EntityLabel)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Input == nil {
			return fmt.Errorf("schema %s: field %s has no input", s.Kind, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema %s: duplicate field %s", s.Kind, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	for _, c := range s.Columns {
		if c.Key == "" {
			return fmt.Errorf("schema %s: column without key", s.Kind)
		}
	}
	return nil
}

// Field returns the field named name.
func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// HasColumn reports whether key is a displayed column.
func (s Schema) HasColumn(key string) bool {
	for _, c := range s.Columns {
		if c.Key == key {
			return true
		}
	}
	return false
}

// UniqueFields returns the fields flagged unique.
func (s Schema) UniqueFields() []FieldSpec {
	var out []FieldSpec
	for _, f := range s.Fields {
		if f.Unique {
			out = append(out, f)
		}
	}
	return out
}

// Blank returns an empty form keyed by field name.
func (s Schema) Blank() map[string]string {
	form := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		form[f.Name] = ""
	}
	return form
}

// FormValues pre-fills a form from a persisted record.
func (s Schema) FormValues(rec models.Record) map[string]string {
	form := s.Blank()
	for _, f := range s.Fields {
		if v, ok := rec[f.Name]; ok && v != nil {
			form[f.Name] = f.Input.Format(v)
		}
	}
	return form
}

// Encode converts form text into a record on top of base, which keeps the id
// and any attribute the form does not manage.
func (s Schema) Encode(values map[string]string, base models.Record) (models.Record, error) {
	rec := base.Clone()
	if rec == nil {
		rec = models.Record{}
	}
	var problems []string
	for _, f := range s.Fields {
		raw, ok := values[f.Name]
		if !ok {
			continue
		}
		v, err := f.Input.Parse(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", f.Label, err))
			continue
		}
		rec[f.Name] = v
	}
	if len(problems) > 0 {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid "+strings.ToLower(s.EntityLabel)+" form"), problems)
	}
	return rec, nil
}

// Cell formats a record value for the column key.
func (s Schema) Cell(rec models.Record, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return Placeholder
	}
	var text string
	if f, found := s.Field(key); found {
		text = f.Input.Format(v)
	} else {
		text = models.FormatValue(v)
	}
	if text == "" {
		return Placeholder
	}
	return text
}

// Headers returns the column labels in order.
func (s Schema) Headers() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Label
	}
	return out
}

// Registry maps record kinds to their schemas.
type Registry struct {
	order   []models.RecordKind
	schemas map[models.RecordKind]Schema
}

// NewRegistry validates and indexes the provided schemas.
func NewRegistry(schemas ...Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[models.RecordKind]Schema, len(schemas))}
	for _, s := range schemas {
		if err := s.check(); err != nil {
			return nil, err
		}
		if _, dup := r.schemas[s.Kind]; dup {
			return nil, fmt.Errorf("duplicate schema for %s", s.Kind)
		}
		r.schemas[s.Kind] = s.clone()
		r.order = append(r.order, s.Kind)
	}
	return r, nil
}

// Default returns the registry of the four built-in record kinds.
func Default() *Registry {
	r, err := NewRegistry(Student(), Course(), Instructor(), Employee())
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns a copy of the schema for kind.
func (r *Registry) Lookup(kind models.RecordKind) (Schema, error) {
	s, ok := r.schemas[kind]
	if !ok {
		return Schema{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown record kind %q", kind))
	}
	return s.clone(), nil
}

// Kinds lists the registered kinds in registration order.
func (r *Registry) Kinds() []models.RecordKind {
	return append([]models.RecordKind(nil), r.order...)
}

// ByResource finds the schema served under a REST collection path.
func (r *Registry) ByResource(path string) (Schema, bool) {
	path = strings.Trim(path, "/")
	for _, kind := range r.order {
		if s := r.schemas[kind]; s.ResourcePath == path {
			return s.clone(), true
		}
	}
	return Schema{}, false
}

// Parse resolves a user supplied name (kind, resource path or label) to a kind.
func (r *Registry) Parse(name string) (models.RecordKind, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, kind := range r.order {
		s := r.schemas[kind]
		if needle == string(kind) || needle == s.ResourcePath || needle == strings.ToLower(s.EntityLabel) {
			return kind, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown record kind %q", name))
}
