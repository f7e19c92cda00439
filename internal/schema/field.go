package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-records-console/internal/models"
)

// FieldType enumerates the supported form input types.
type FieldType string

const (
	TypeText   FieldType = "text"
	TypeEmail  FieldType = "email"
	TypeTel    FieldType = "tel"
	TypeNumber FieldType = "number"
	TypeDate   FieldType = "date"
	TypeSelect FieldType = "select"
)

// DateLayout is the wire and form format of date fields.
const DateLayout = "2006-01-02"

// Input is the type-specific part of a field: it converts raw form text into a
// record value and renders a record value back into form text.
type Input interface {
	Type() FieldType
	Parse(raw string) (interface{}, error)
	Format(v interface{}) string
}

type textInput struct {
	kind FieldType
}

func (i textInput) Type() FieldType { return i.kind }

func (i textInput) Parse(raw string) (interface{}, error) {
	return strings.TrimSpace(raw), nil
}

func (i textInput) Format(v interface{}) string { return models.FormatValue(v) }

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseDecimal accepts plain decimal notation only. NaN, infinities, hex and
// underscore forms that strconv.ParseFloat would take are rejected.
func ParseDecimal(raw string) (float64, error) {
	if !decimalPattern.MatchString(raw) {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	return strconv.ParseFloat(raw, 64)
}

type numberInput struct {
	integer bool
}

func (i numberInput) Type() FieldType { return TypeNumber }

func (i numberInput) Parse(raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	n, err := ParseDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", raw)
	}
	if i.integer && n != float64(int64(n)) {
		return nil, fmt.Errorf("%q is not a whole number", raw)
	}
	return n, nil
}

func (i numberInput) Format(v interface{}) string { return models.FormatValue(v) }

type dateInput struct{}

func (dateInput) Type() FieldType { return TypeDate }

func (dateInput) Parse(raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%q is not a valid date", raw)
	}
	return d.Format(DateLayout), nil
}

// Format trims timestamps down to the date part so forms round-trip.
func (dateInput) Format(v interface{}) string {
	s := models.FormatValue(v)
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		return s[:len(DateLayout)]
	}
	return s
}

type selectInput struct {
	options []string
}

func (selectInput) Type() FieldType { return TypeSelect }

func (i selectInput) Parse(raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	for _, opt := range i.options {
		if opt == raw {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("%q is not an allowed option", raw)
}

func (selectInput) Format(v interface{}) string { return models.FormatValue(v) }

// FieldSpec describes one input of the add/edit form.
type FieldSpec struct {
	Name     string
	Label    string
	Required bool
	// Unique fields are checked against persisted records before a create.
	Unique bool
	Input  Input
}

// NewField builds a field, rejecting unknown types and inconsistent options.
func NewField(name, label string, typ FieldType, required bool, options ...string) (FieldSpec, error) {
	if strings.TrimSpace(name) == "" {
		return FieldSpec{}, fmt.Errorf("field name is required")
	}
	if typ != TypeSelect && len(options) > 0 {
		return FieldSpec{}, fmt.Errorf("field %s: options are only allowed on select fields", name)
	}
	var input Input
	switch typ {
	case TypeText, TypeEmail, TypeTel:
		input = textInput{kind: typ}
	case TypeNumber:
		input = numberInput{}
	case TypeDate:
		input = dateInput{}
	case TypeSelect:
		if len(options) == 0 {
			return FieldSpec{}, fmt.Errorf("field %s: select requires options", name)
		}
		input = selectInput{options: append([]string(nil), options...)}
	default:
		return FieldSpec{}, fmt.Errorf("field %s: unsupported type %q", name, typ)
	}
	if label == "" {
		label = name
	}
	return FieldSpec{Name: name, Label: label, Required: required, Input: input}, nil
}

// MustField is NewField for static declarations; it panics on error.
func MustField(name, label string, typ FieldType, required bool, options ...string) FieldSpec {
	f, err := NewField(name, label, typ, required, options...)
	if err != nil {
		panic(err)
	}
	return f
}

// Type returns the input type of the field.
func (f FieldSpec) Type() FieldType {
	if f.Input == nil {
		return ""
	}
	return f.Input.Type()
}

// Options returns a copy of the select options, nil for other types.
func (f FieldSpec) Options() []string {
	if s, ok := f.Input.(selectInput); ok {
		return append([]string(nil), s.options...)
	}
	return nil
}

// WholeNumber restricts a number field to integers.
func (f FieldSpec) WholeNumber() FieldSpec {
	if _, ok := f.Input.(numberInput); ok {
		f.Input = numberInput{integer: true}
	}
	return f
}

// AsUnique marks the field as unique among persisted records.
func (f FieldSpec) AsUnique() FieldSpec {
	f.Unique = true
	return f
}
