// Package catalog applies declarative asset-type templates kept as YAML
// files to a team, and re-applies them when the files change.
package catalog

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/othala/internal/models"
)

// File is the content of one template file:
//
//	assetTypes:
//	  - name: Electronics
//	    fields:
//	      - {name: Brand, type: STRING, showInTable: true}
//	    children:
//	      - name: Laptops
//	        fields:
//	          - {name: RAM (GB), type: NUMBER, min: 1}
type File struct {
	AssetTypes []Template `yaml:"assetTypes"`
}

// Template describes one asset type and the subtree below it.
type Template struct {
	Name     string          `yaml:"name"`
	Fields   []FieldTemplate `yaml:"fields"`
	Children []Template      `yaml:"children"`
}

// FieldTemplate describes one custom field.
type FieldTemplate struct {
	Name        string           `yaml:"name"`
	Type        models.FieldType `yaml:"type"`
	Required    bool             `yaml:"required"`
	ShowInTable bool             `yaml:"showInTable"`
	Min         *float64         `yaml:"min"`
	Max         *float64         `yaml:"max"`
	Currency    *string          `yaml:"currency"`
}

// Definition converts f into a field definition without id or slug.
func (f FieldTemplate) Definition() models.FieldDefinition {
	return models.FieldDefinition{
		Name:          strings.TrimSpace(f.Name),
		Type:          models.FieldType(strings.ToUpper(string(f.Type))),
		InputRequired: f.Required,
		ShowInTable:   f.ShowInTable,
		InputMin:      f.Min,
		InputMax:      f.Max,
		Currency:      f.Currency,
	}
}

// Definitions converts every field of t.
func (t Template) Definitions() []models.FieldDefinition {
	out := make([]models.FieldDefinition, 0, len(t.Fields))
	for _, f := range t.Fields {
		out = append(out, f.Definition())
	}
	return out
}

// Validate checks names and field definitions of t and its subtree.
func (t Template) Validate() error {
	if err := validation.Validate(strings.TrimSpace(t.Name), validation.Required, validation.Length(1, 100)); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	for i, f := range t.Definitions() {
		if err := f.ValidateDefinition(); err != nil {
			return fmt.Errorf("%s: fields[%d]: %w", t.Name, i, err)
		}
	}
	for _, c := range t.Children {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%s > %w", t.Name, err)
		}
	}
	return nil
}

// Parse decodes and validates a template file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	for i, t := range f.AssetTypes {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: assetTypes[%d]: %w", i, err)
		}
	}
	return &f, nil
}

// ApplyResult counts the asset types touched while applying templates.
type ApplyResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Add accumulates o into r.
func (r *ApplyResult) Add(o ApplyResult) {
	r.Created += o.Created
	r.Updated += o.Updated
}
