package models

import (
	"errors"
	"fmt"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// FieldType is the value domain of a custom field.
type FieldType string

// Field types.
const (
	FieldString   FieldType = "STRING"
	FieldNumber   FieldType = "NUMBER"
	FieldBoolean  FieldType = "BOOLEAN"
	FieldDate     FieldType = "DATE"
	FieldTime     FieldType = "TIME"
	FieldDateTime FieldType = "DATETIME"
	FieldCurrency FieldType = "CURRENCY"
	FieldTag      FieldType = "TAG"
)

// FieldTypes lists every supported field type.
var FieldTypes = []FieldType{
	FieldString, FieldNumber, FieldBoolean, FieldDate, FieldTime, FieldDateTime, FieldCurrency, FieldTag,
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	for _, ft := range FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// Facetable reports whether values of this type are offered as discrete facets.
// Numeric and temporal types are excluded.
func (t FieldType) Facetable() bool {
	switch t {
	case FieldString, FieldTag, FieldBoolean:
		return true
	default:
		return false
	}
}

// FieldDefinition is a custom field declared on an asset type.
type FieldDefinition struct {
	ID            string    `json:"id"`
	AssetTypeID   string    `json:"assetTypeId"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Type          FieldType `json:"fieldType"`
	InputRequired bool      `json:"inputRequired"`
	ShowInTable   bool      `json:"showInTable"`
	InputMin      *float64  `json:"inputMin,omitempty"`
	InputMax      *float64  `json:"inputMax,omitempty"`
	Currency      *string   `json:"currency,omitempty"`
	ParentTagID   *string   `json:"parentTagId,omitempty"`
	Position      int       `json:"position"`
}

// FieldSpec is the type-specific part of a field definition. The set of
// implementations is closed: StringSpec, NumberSpec, BooleanSpec,
// TemporalSpec, CurrencySpec and TagSpec.
type FieldSpec interface {
	FieldType() FieldType
	sealed()
}

// StringSpec bounds the length of a STRING value.
type StringSpec struct {
	MinLength *int
	MaxLength *int
}

// NumberSpec bounds a NUMBER value.
type NumberSpec struct {
	Min *float64
	Max *float64
}

// BooleanSpec carries no constraints.
type BooleanSpec struct{}

// TemporalSpec covers DATE, TIME and DATETIME.
type TemporalSpec struct {
	Kind FieldType
}

// CurrencySpec bounds a CURRENCY amount and names its currency.
type CurrencySpec struct {
	Min      *float64
	Max      *float64
	Currency string
}

// TagSpec bounds how many tags may be selected and restricts them to the
// descendants of ParentTagID when set.
type TagSpec struct {
	MinCount    *int
	MaxCount    *int
	ParentTagID *string
}

func (StringSpec) FieldType() FieldType     { return FieldString }
func (NumberSpec) FieldType() FieldType     { return FieldNumber }
func (BooleanSpec) FieldType() FieldType    { return FieldBoolean }
func (s TemporalSpec) FieldType() FieldType { return s.Kind }
func (CurrencySpec) FieldType() FieldType   { return FieldCurrency }
func (TagSpec) FieldType() FieldType        { return FieldTag }

func (StringSpec) sealed()   {}
func (NumberSpec) sealed()   {}
func (BooleanSpec) sealed()  {}
func (TemporalSpec) sealed() {}
func (CurrencySpec) sealed() {}
func (TagSpec) sealed()      {}

// Spec returns the type-specific view of f. It returns an error for an
// unknown field type.
func (f FieldDefinition) Spec() (FieldSpec, error) {
	switch f.Type {
	case FieldString:
		return StringSpec{MinLength: toInt(f.InputMin), MaxLength: toInt(f.InputMax)}, nil
	case FieldNumber:
		return NumberSpec{Min: f.InputMin, Max: f.InputMax}, nil
	case FieldBoolean:
		return BooleanSpec{}, nil
	case FieldDate, FieldTime, FieldDateTime:
		return TemporalSpec{Kind: f.Type}, nil
	case FieldCurrency:
		cur := ""
		if f.Currency != nil {
			cur = *f.Currency
		}
		return CurrencySpec{Min: f.InputMin, Max: f.InputMax, Currency: cur}, nil
	case FieldTag:
		return TagSpec{MinCount: toInt(f.InputMin), MaxCount: toInt(f.InputMax), ParentTagID: f.ParentTagID}, nil
	default:
		return nil, fmt.Errorf("unknown field type %q", f.Type)
	}
}

// ValidateDefinition checks that f is well formed for its field type.
func (f FieldDefinition) ValidateDefinition() error {
	if err := validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&f.Type, validation.Required, validation.By(func(any) error {
			if !f.Type.Valid() {
				return fmt.Errorf("unknown field type %q", f.Type)
			}
			return nil
		})),
	); err != nil {
		return err
	}
	if f.Currency != nil && f.Type != FieldCurrency {
		return errors.New("currency is only allowed on CURRENCY fields")
	}
	if f.ParentTagID != nil && f.Type != FieldTag {
		return errors.New("parentTagId is only allowed on TAG fields")
	}
	if f.InputMin != nil && f.InputMax != nil && *f.InputMin > *f.InputMax {
		return errors.New("inputMin must not exceed inputMax")
	}

	spec, err := f.Spec()
	if err != nil {
		return err
	}
	switch s := spec.(type) {
	case StringSpec:
		if s.MaxLength != nil && *s.MaxLength == 0 {
			return errors.New("maximum length must be at least 1")
		}
		return validateCountBounds(f, "length")
	case TagSpec:
		return validateCountBounds(f, "selection count")
	case CurrencySpec:
		return validation.Validate(s.Currency, validation.Required.Error("currency is required on CURRENCY fields"), validation.Length(3, 3))
	case NumberSpec, BooleanSpec, TemporalSpec:
		if _, ok := s.(NumberSpec); !ok && (f.InputMin != nil || f.InputMax != nil) {
			return fmt.Errorf("%s fields do not accept bounds", f.Type)
		}
		return nil
	default:
		return fmt.Errorf("unhandled field spec %T", spec)
	}
}

func validateCountBounds(f FieldDefinition, what string) error {
	for _, b := range []*float64{f.InputMin, f.InputMax} {
		if b == nil {
			continue
		}
		if *b < 0 || *b != math.Trunc(*b) {
			return fmt.Errorf("%s bounds must be non-negative integers", what)
		}
	}
	return nil
}

func toInt(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}
