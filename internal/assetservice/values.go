package assetservice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// Value layouts.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// tagIndex resolves tags of one team by id.
type tagIndex map[string]models.Tag

func newTagIndex(tags []models.Tag) tagIndex {
	ti := make(tagIndex, len(tags))
	for _, t := range tags {
		ti[t.ID] = t
	}
	return ti
}

// descendsFrom reports whether ancestor is a proper ancestor of id.
func (ti tagIndex) descendsFrom(id, ancestor string) bool {
	seen := map[string]bool{id: true}
	t, ok := ti[id]
	for ok && t.ParentID != nil {
		p := *t.ParentID
		if p == ancestor {
			return true
		}
		if seen[p] {
			return false
		}
		seen[p] = true
		t, ok = ti[p]
	}
	return false
}

func (ti tagIndex) names(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := ti[id]; ok {
			out = append(out, t.Name)
		}
	}
	return out
}

// validateValues checks in against the effective fields of an asset type and
// returns the values in canonical form, ordered like fields. Empty optional
// values are dropped. Errors are keyed by field slug.
func validateValues(fields []models.FieldDefinition, in []models.FieldValue, tags tagIndex) ([]models.FieldValue, error) {
	byField := make(map[string]models.FieldValue, len(in))
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.ID] = true
	}
	errs := validation.Errors{}
	for _, v := range in {
		if !known[v.FieldID] {
			errs[v.FieldID] = errors.New("unknown field for this asset type")
			continue
		}
		if _, dup := byField[v.FieldID]; dup {
			errs[v.FieldID] = errors.New("value given more than once")
			continue
		}
		byField[v.FieldID] = v
	}

	out := make([]models.FieldValue, 0, len(byField))
	for _, f := range fields {
		v, err := validateValue(f, byField[f.ID], tags)
		if err != nil {
			errs[f.Slug] = err
			continue
		}
		if v.Value != "" || len(v.TagIDs) > 0 {
			out = append(out, v)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, errs)
	}
	return out, nil
}

func validateValue(f models.FieldDefinition, v models.FieldValue, tags tagIndex) (models.FieldValue, error) {
	spec, err := f.Spec()
	if err != nil {
		return v, err
	}
	v.FieldID = f.ID

	if s, ok := spec.(models.TagSpec); ok {
		v.Value = ""
		v.TagIDs = dedup(v.TagIDs)
		if f.InputRequired && len(v.TagIDs) == 0 {
			return v, errors.New("at least one tag is required")
		}
		if err := validateCount(len(v.TagIDs), s.MinCount, s.MaxCount); err != nil && len(v.TagIDs) > 0 {
			return v, err
		}
		for _, id := range v.TagIDs {
			if _, ok := tags[id]; !ok {
				return v, fmt.Errorf("tag %s does not exist", id)
			}
			if s.ParentTagID != nil && !tags.descendsFrom(id, *s.ParentTagID) {
				return v, fmt.Errorf("tag %q is not below the field's parent tag", tags[id].Name)
			}
		}
		return v, nil
	}

	v.TagIDs = nil
	v.Value = strings.TrimSpace(v.Value)
	if v.Value == "" {
		if f.InputRequired {
			return v, validation.ErrRequired
		}
		return v, nil
	}

	switch s := spec.(type) {
	case models.StringSpec:
		return v, validateLength(v.Value, s.MinLength, s.MaxLength)
	case models.NumberSpec:
		return canonicalNumber(v, s.Min, s.Max)
	case models.CurrencySpec:
		return canonicalNumber(v, s.Min, s.Max)
	case models.BooleanSpec:
		b, err := strconv.ParseBool(v.Value)
		if err != nil {
			return v, errors.New("must be true or false")
		}
		v.Value = strconv.FormatBool(b)
		return v, nil
	case models.TemporalSpec:
		layout := map[models.FieldType]string{
			models.FieldDate:     DateLayout,
			models.FieldTime:     TimeLayout,
			models.FieldDateTime: time.RFC3339,
		}[s.Kind]
		if err := validation.Validate(v.Value, validation.Date(layout)); err != nil {
			return v, err
		}
		if s.Kind == models.FieldDateTime {
			ts, _ := time.Parse(time.RFC3339, v.Value)
			v.Value = ts.UTC().Format(time.RFC3339)
		}
		return v, nil
	default:
		return v, fmt.Errorf("unhandled field spec %T", spec)
	}
}

func canonicalNumber(v models.FieldValue, lo, hi *float64) (models.FieldValue, error) {
	n, err := strconv.ParseFloat(v.Value, 64)
	if err != nil {
		return v, errors.New("must be a number")
	}
	rules := []validation.Rule{}
	if lo != nil {
		rules = append(rules, validation.Min(*lo))
	}
	if hi != nil {
		rules = append(rules, validation.Max(*hi))
	}
	if err := validation.Validate(n, rules...); err != nil {
		return v, err
	}
	v.Value = strconv.FormatFloat(n, 'f', -1, 64)
	return v, nil
}

// validateLength bounds the rune length of s. RuneLength(0, 0) means "must be
// empty", so a rule is only added for bounds that are set.
func validateLength(s string, lo, hi *int) error {
	switch {
	case hi != nil:
		min := 0
		if lo != nil {
			min = *lo
		}
		return validation.Validate(s, validation.RuneLength(min, *hi))
	case lo != nil && *lo > 0:
		return validation.Validate(s, validation.RuneLength(*lo, 0))
	default:
		return nil
	}
}

func validateCount(n int, lo, hi *int) error {
	if lo != nil && n < *lo {
		return fmt.Errorf("select at least %d", *lo)
	}
	if hi != nil && n > *hi {
		return fmt.Errorf("select at most %d", *hi)
	}
	return nil
}

func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
