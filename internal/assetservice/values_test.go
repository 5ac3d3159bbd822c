package assetservice

import (
	"testing"

	"github.com/starford/othala/internal/models"
)

func bound(v float64) *float64 { return &v }

func TestValidateValue_Specs(t *testing.T) {
	root := "loc"
	tags := newTagIndex([]models.Tag{
		{ID: root, Name: "Location"},
		{ID: "fridge", Name: "Fridge", ParentID: &root},
		{ID: "pantry", Name: "Pantry", ParentID: &root},
		{ID: "red", Name: "Red"},
	})
	eur := "EUR"

	tests := []struct {
		name    string
		field   models.FieldDefinition
		value   models.FieldValue
		want    string
		wantErr bool
	}{
		{"string unbounded", models.FieldDefinition{Type: models.FieldString}, models.FieldValue{Value: " white "}, "white", false},
		{"string max ok", models.FieldDefinition{Type: models.FieldString, InputMax: bound(5)}, models.FieldValue{Value: "white"}, "white", false},
		{"string max exceeded", models.FieldDefinition{Type: models.FieldString, InputMax: bound(3)}, models.FieldValue{Value: "white"}, "", true},
		{"string min only ok", models.FieldDefinition{Type: models.FieldString, InputMin: bound(2)}, models.FieldValue{Value: "ab"}, "ab", false},
		{"string min only short", models.FieldDefinition{Type: models.FieldString, InputMin: bound(2)}, models.FieldValue{Value: "a"}, "", true},
		{"string zero min", models.FieldDefinition{Type: models.FieldString, InputMin: bound(0)}, models.FieldValue{Value: "long enough"}, "long enough", false},
		{"string both bounds", models.FieldDefinition{Type: models.FieldString, InputMin: bound(2), InputMax: bound(4)}, models.FieldValue{Value: "Ölen"}, "Ölen", false},
		{"string empty optional", models.FieldDefinition{Type: models.FieldString, InputMin: bound(2)}, models.FieldValue{}, "", false},
		{"string empty required", models.FieldDefinition{Type: models.FieldString, InputRequired: true}, models.FieldValue{Value: "  "}, "", true},

		{"number unbounded", models.FieldDefinition{Type: models.FieldNumber}, models.FieldValue{Value: "-12.50"}, "-12.5", false},
		{"number in range", models.FieldDefinition{Type: models.FieldNumber, InputMin: bound(0), InputMax: bound(10)}, models.FieldValue{Value: "10"}, "10", false},
		{"number below min", models.FieldDefinition{Type: models.FieldNumber, InputMin: bound(0)}, models.FieldValue{Value: "-1"}, "", true},
		{"number above max", models.FieldDefinition{Type: models.FieldNumber, InputMax: bound(10)}, models.FieldValue{Value: "11"}, "", true},
		{"number garbage", models.FieldDefinition{Type: models.FieldNumber}, models.FieldValue{Value: "ten"}, "", true},

		{"currency unbounded", models.FieldDefinition{Type: models.FieldCurrency, Currency: &eur}, models.FieldValue{Value: "19.90"}, "19.9", false},
		{"currency below min", models.FieldDefinition{Type: models.FieldCurrency, Currency: &eur, InputMin: bound(0)}, models.FieldValue{Value: "-0.01"}, "", true},

		{"boolean", models.FieldDefinition{Type: models.FieldBoolean}, models.FieldValue{Value: "TRUE"}, "true", false},
		{"boolean garbage", models.FieldDefinition{Type: models.FieldBoolean}, models.FieldValue{Value: "yes"}, "", true},

		{"date", models.FieldDefinition{Type: models.FieldDate}, models.FieldValue{Value: "2024-02-29"}, "2024-02-29", false},
		{"date invalid", models.FieldDefinition{Type: models.FieldDate}, models.FieldValue{Value: "2023-02-29"}, "", true},
		{"time", models.FieldDefinition{Type: models.FieldTime}, models.FieldValue{Value: "07:30"}, "07:30", false},
		{"datetime to utc", models.FieldDefinition{Type: models.FieldDateTime}, models.FieldValue{Value: "2024-05-01T10:00:00+02:00"}, "2024-05-01T08:00:00Z", false},

		{"tag unbounded", models.FieldDefinition{Type: models.FieldTag}, models.FieldValue{TagIDs: []string{"red", "fridge", "red"}}, "", false},
		{"tag below parent", models.FieldDefinition{Type: models.FieldTag, ParentTagID: &root}, models.FieldValue{TagIDs: []string{"pantry"}}, "", false},
		{"tag outside parent", models.FieldDefinition{Type: models.FieldTag, ParentTagID: &root}, models.FieldValue{TagIDs: []string{"red"}}, "", true},
		{"tag max count", models.FieldDefinition{Type: models.FieldTag, InputMax: bound(1)}, models.FieldValue{TagIDs: []string{"red", "fridge"}}, "", true},
		{"tag min count", models.FieldDefinition{Type: models.FieldTag, InputMin: bound(2)}, models.FieldValue{TagIDs: []string{"red"}}, "", true},
		{"tag unknown", models.FieldDefinition{Type: models.FieldTag}, models.FieldValue{TagIDs: []string{"ghost"}}, "", true},
		{"tag required", models.FieldDefinition{Type: models.FieldTag, InputRequired: true}, models.FieldValue{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.field.ID, tt.field.Name = "f1", "Field"
			got, err := validateValue(tt.field, tt.value, tags)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.FieldID != "f1" || got.Value != tt.want {
				t.Errorf("validateValue() = %+v, want value %q", got, tt.want)
			}
		})
	}
}

func TestValidateValue_TagsDeduplicated(t *testing.T) {
	tags := newTagIndex([]models.Tag{{ID: "red", Name: "Red"}})
	got, err := validateValue(models.FieldDefinition{ID: "f1", Type: models.FieldTag},
		models.FieldValue{Value: "ignored", TagIDs: []string{"red", "", "red"}}, tags)
	if err != nil {
		t.Fatal(err)
	}
	if got.Value != "" || len(got.TagIDs) != 1 {
		t.Errorf("tag value = %+v", got)
	}
}
