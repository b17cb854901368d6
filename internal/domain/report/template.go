package report

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/erp/ledger/internal/domain/formula"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Field is one named line of a report template. Exactly one of Source or
// Formula is set: Source names a context identifier, Formula is an arithmetic
// expression over the context and earlier fields.
type Field struct {
	Name    string `json:"name"`
	Source  string `json:"source,omitempty"`
	Formula string `json:"formula,omitempty"`
}

// Template is a parsed, validated report template
type Template struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`

	compiled []formula.Expr
}

// FieldValue is an evaluated template field
type FieldValue struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

func invalidTemplate(msg string) error {
	return shared.NewDomainError(shared.CodeInvalidTemplate, msg)
}

// ParseTemplate decodes a JSON template and validates its structure. Formulas
// are parsed here once.
func ParseTemplate(body []byte) (*Template, error) {
	var t Template
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, invalidTemplate("template is not valid JSON: " + err.Error())
	}
	if err := t.compile(); err != nil {
		return nil, err
	}
	return &t, nil
}

// NewTemplate builds a template from fields and validates it
func NewTemplate(name string, fields []Field) (*Template, error) {
	t := &Template{Name: name, Fields: fields}
	if err := t.compile(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Template) compile() error {
	if len(t.Fields) == 0 {
		return invalidTemplate("template must define at least one field")
	}
	seen := make(map[string]bool, len(t.Fields))
	t.compiled = make([]formula.Expr, len(t.Fields))
	for i, f := range t.Fields {
		if !fieldNamePattern.MatchString(f.Name) {
			return invalidTemplate("invalid field name: " + f.Name)
		}
		if seen[f.Name] {
			return invalidTemplate("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		switch {
		case f.Source != "" && f.Formula != "":
			return invalidTemplate("field " + f.Name + " sets both source and formula")
		case f.Source != "":
			if !fieldNamePattern.MatchString(f.Source) {
				return invalidTemplate("field " + f.Name + " has an invalid source: " + f.Source)
			}
			t.compiled[i] = formula.Ident{Name: f.Source}
		case f.Formula != "":
			expr, err := formula.Parse(f.Formula, formula.Arithmetic)
			if err != nil {
				return err
			}
			t.compiled[i] = expr
		default:
			return invalidTemplate("field " + f.Name + " needs a source or a formula")
		}
	}
	return nil
}

// Evaluate resolves every field in order. Each field's value is added to the
// context, so later fields may reference earlier ones.
func (t *Template) Evaluate(context formula.Vars) ([]FieldValue, error) {
	if t.compiled == nil {
		if err := t.compile(); err != nil {
			return nil, err
		}
	}
	vars := make(formula.Vars, len(context)+len(t.Fields))
	for k, v := range context {
		vars[k] = v
	}

	out := make([]FieldValue, 0, len(t.Fields))
	for i, f := range t.Fields {
		if f.Source != "" {
			if _, ok := vars[f.Source]; !ok {
				return nil, invalidTemplate("field " + f.Name + " references unknown source " + f.Source)
			}
		}
		value, err := formula.Eval(t.compiled[i], vars)
		if err != nil {
			return nil, err
		}
		vars[f.Name] = value
		out = append(out, FieldValue{Name: f.Name, Value: value})
	}
	return out, nil
}
