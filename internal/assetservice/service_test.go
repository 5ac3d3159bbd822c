package assetservice_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/assetservice"
	"github.com/starford/othala/internal/catalog"
	"github.com/starford/othala/internal/facet"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
	"github.com/starford/othala/internal/testutil"
)

const owner = testutil.Owner

func float(v float64) *float64 { return &v }
func str(s string) *string     { return &s }

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) PublishChange(_, resource, kind, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, resource+"."+kind)
}

func (r *recorder) has(ev string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == ev {
			return true
		}
	}
	return false
}

// kitchen creates Food(location TAG, color STRING) > Dairy(fat NUMBER 0..100)
// with a Location > Fridge/Pantry tag tree.
type kitchen struct {
	*testutil.Env
	food, dairy           string
	location, fridge, pan string
}

func newKitchen(t *testing.T, opts ...assetservice.Option) *kitchen {
	t.Helper()
	env := testutil.NewEnv(t, opts...)
	svc, ctx := env.Service, context.Background()
	k := &kitchen{Env: env}

	loc, err := svc.CreateTag(ctx, owner, env.TeamID, assetservice.TagInput{Name: "Location"})
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	fridge, _ := svc.CreateTag(ctx, owner, env.TeamID, assetservice.TagInput{Name: "Fridge", ParentID: &loc.ID})
	pantry, _ := svc.CreateTag(ctx, owner, env.TeamID, assetservice.TagInput{Name: "Pantry", ParentID: &loc.ID})
	k.location, k.fridge, k.pan = loc.ID, fridge.ID, pantry.ID

	food, err := svc.CreateAssetType(ctx, owner, env.TeamID, assetservice.AssetTypeInput{
		Name: "Food",
		Fields: []models.FieldDefinition{
			{Name: "Location", Type: models.FieldTag, ParentTagID: &loc.ID},
			{Name: "Color", Type: models.FieldString},
		},
	})
	if err != nil {
		t.Fatalf("CreateAssetType(Food): %v", err)
	}
	dairy, err := svc.CreateAssetType(ctx, owner, env.TeamID, assetservice.AssetTypeInput{
		Name:     "Dairy",
		ParentID: &food.ID,
		Fields: []models.FieldDefinition{
			{Name: "Fat", Type: models.FieldNumber, InputMin: float(0), InputMax: float(100), InputRequired: true},
		},
	})
	if err != nil {
		t.Fatalf("CreateAssetType(Dairy): %v", err)
	}
	k.food, k.dairy = food.ID, dairy.ID
	return k
}

func (k *kitchen) fieldID(t *testing.T, typeID, slug string) string {
	t.Helper()
	n, err := k.Service.GetAssetType(context.Background(), owner, k.TeamID, typeID)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range n.EffectiveFields {
		if f.Slug == slug {
			return f.ID
		}
	}
	t.Fatalf("no field %q on %s", slug, n.Name)
	return ""
}

func (k *kitchen) addDairy(t *testing.T, name, fat, color, tagID string) *assetservice.AssetDetail {
	t.Helper()
	values := []models.FieldValue{
		{FieldID: k.fieldID(t, k.dairy, "fat"), Value: fat},
		{FieldID: k.fieldID(t, k.dairy, "color"), Value: color},
	}
	if tagID != "" {
		values = append(values, models.FieldValue{FieldID: k.fieldID(t, k.dairy, "location"), TagIDs: []string{tagID}})
	}
	a, err := k.Service.CreateAsset(context.Background(), owner, k.TeamID, assetservice.AssetInput{
		AssetTypeID: k.dairy, Name: name, Values: values,
	})
	if err != nil {
		t.Fatalf("CreateAsset(%s): %v", name, err)
	}
	return a
}

func TestMembershipRequired(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	if _, err := env.Service.Tree(ctx, "stranger", env.TeamID); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("Tree as stranger: err = %v", err)
	}
	if err := env.Service.AddMember(ctx, owner, env.TeamID, "friend", models.RoleMember); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Service.Tree(ctx, "friend", env.TeamID); err != nil {
		t.Errorf("Tree as member: %v", err)
	}
	if err := env.Service.AddMember(ctx, "friend", env.TeamID, "other", models.RoleMember); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("AddMember as member: err = %v", err)
	}
	if _, err := env.Service.Reindex(ctx, "friend", env.TeamID); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("Reindex as member: err = %v", err)
	}
}

func TestAssetTypes_SlugsAndInheritance(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()

	n, err := k.Service.GetAssetType(ctx, owner, k.TeamID, k.dairy)
	if err != nil {
		t.Fatal(err)
	}
	var slugs []string
	for _, f := range n.EffectiveFields {
		slugs = append(slugs, f.Slug)
	}
	if len(slugs) != 3 || slugs[0] != "location" || slugs[1] != "color" || slugs[2] != "fat" {
		t.Errorf("effective slugs = %v", slugs)
	}

	// A child field named like an inherited one gets a distinct slug.
	cheese, err := k.Service.CreateAssetType(ctx, owner, k.TeamID, assetservice.AssetTypeInput{
		Name: "Cheese", ParentID: &k.dairy,
		Fields: []models.FieldDefinition{{Name: "Color", Type: models.FieldString}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := cheese.OwnFields[0].Slug; got != "color_2" {
		t.Errorf("cheese color slug = %q, want color_2", got)
	}

	// Renaming a field keeps its slug; changing its type is rejected.
	f := cheese.OwnFields[0]
	f.Name = "Rind colour"
	updated, err := k.Service.UpdateAssetType(ctx, owner, k.TeamID, cheese.ID, assetservice.AssetTypeInput{
		Name: "Cheese", ParentID: &k.dairy, Fields: []models.FieldDefinition{f},
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.OwnFields[0].Slug != "color_2" || updated.OwnFields[0].Name != "Rind colour" {
		t.Errorf("renamed field = %+v", updated.OwnFields[0])
	}
	f.Type = models.FieldNumber
	if _, err := k.Service.UpdateAssetType(ctx, owner, k.TeamID, cheese.ID, assetservice.AssetTypeInput{
		Name: "Cheese", ParentID: &k.dairy, Fields: []models.FieldDefinition{f},
	}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("type change: err = %v", err)
	}
}

func TestAssetTypes_HierarchyErrors(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()

	if _, err := k.Service.UpdateAssetType(ctx, owner, k.TeamID, k.food, assetservice.AssetTypeInput{
		Name: "Food", ParentID: &k.dairy,
	}); !errors.Is(err, apperr.ErrInvalidHierarchy) {
		t.Errorf("move below descendant: err = %v", err)
	}
	if _, err := k.Service.CreateAssetType(ctx, owner, k.TeamID, assetservice.AssetTypeInput{
		Name: "Orphan", ParentID: str("missing"),
	}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown parent: err = %v", err)
	}
	if _, err := k.Service.CreateAssetType(ctx, owner, k.TeamID, assetservice.AssetTypeInput{Name: "  "}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank name: err = %v", err)
	}
	if _, err := k.Service.CreateAssetType(ctx, owner, k.TeamID, assetservice.AssetTypeInput{
		Name:   "Bad",
		Fields: []models.FieldDefinition{{Name: "Tag", Type: models.FieldTag, ParentTagID: str("missing")}},
	}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown parent tag: err = %v", err)
	}
}

func TestAssets_ValueValidation(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()
	fat := k.fieldID(t, k.dairy, "fat")
	loc := k.fieldID(t, k.dairy, "location")

	cases := map[string][]models.FieldValue{
		"missing required": {},
		"out of range":     {{FieldID: fat, Value: "120"}},
		"not a number":     {{FieldID: fat, Value: "lots"}},
		"unknown field":    {{FieldID: fat, Value: "3"}, {FieldID: "nope", Value: "x"}},
		"tag outside root": {{FieldID: fat, Value: "3"}, {FieldID: loc, TagIDs: []string{k.location}}},
		"unknown tag":      {{FieldID: fat, Value: "3"}, {FieldID: loc, TagIDs: []string{"ghost"}}},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := k.Service.CreateAsset(ctx, owner, k.TeamID, assetservice.AssetInput{
				AssetTypeID: k.dairy, Name: "Milk", Values: values,
			})
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("err = %v, want validation", err)
			}
		})
	}

	a := k.addDairy(t, "Milk", " 3.50 ", "", k.fridge)
	if len(a.Values) != 2 || a.Values[1].Value != "3.5" {
		t.Errorf("canonical values = %+v", a.Values)
	}
	if a.AssetTypeName != "Dairy" || len(a.Fields) != 3 {
		t.Errorf("detail = %+v", a)
	}
}

func TestAssets_UnboundedStringValue(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	box, err := env.Service.CreateAssetType(ctx, owner, env.TeamID, assetservice.AssetTypeInput{
		Name:   "Box",
		Fields: []models.FieldDefinition{{Name: "Label", Type: models.FieldString}},
	})
	if err != nil {
		t.Fatal(err)
	}
	a, err := env.Service.CreateAsset(ctx, owner, env.TeamID, assetservice.AssetInput{
		AssetTypeID: box.ID,
		Name:        "b1",
		Values:      []models.FieldValue{{FieldID: box.OwnFields[0].ID, Value: "winter clothes"}},
	})
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	if len(a.Values) != 1 || a.Values[0].Value != "winter clothes" {
		t.Errorf("values = %+v", a.Values)
	}
}

func TestAssetTypes_ReservedSlugs(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	red, err := env.Service.CreateTag(ctx, owner, env.TeamID, assetservice.TagInput{Name: "Red"})
	if err != nil {
		t.Fatal(err)
	}
	box, err := env.Service.CreateAssetType(ctx, owner, env.TeamID, assetservice.AssetTypeInput{
		Name: "Box",
		Fields: []models.FieldDefinition{
			{Name: "Tags", Type: models.FieldString, InputMax: float(100)},
			{Name: "Asset type name", Type: models.FieldString},
			{Name: "AssetTypeId", Type: models.FieldString},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"tags_2", "asset_type_name", "assettypeid_2"}
	for i, f := range box.OwnFields {
		if f.Slug != want[i] {
			t.Errorf("slug[%d] = %q, want %q", i, f.Slug, want[i])
		}
	}

	if _, err := env.Service.CreateAsset(ctx, owner, env.TeamID, assetservice.AssetInput{
		AssetTypeID: box.ID,
		Name:        "b1",
		Values:      []models.FieldValue{{FieldID: box.OwnFields[0].ID, Value: "fragile"}},
		TagIDs:      []string{red.ID},
	}); err != nil {
		t.Fatal(err)
	}
	resp, err := env.Service.Search(ctx, owner, env.TeamID, index.SearchRequest{Filter: `"tags" = "Red"`})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Errorf("asset tag search total = %d, want 1", resp.Total)
	}
}

func TestAssetTypes_ReparentSlugCollision(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	create := func(name string, parentID *string, fields ...string) *schema.Node {
		t.Helper()
		in := assetservice.AssetTypeInput{Name: name, ParentID: parentID}
		for _, f := range fields {
			in.Fields = append(in.Fields, models.FieldDefinition{Name: f, Type: models.FieldString})
		}
		n, err := env.Service.CreateAssetType(ctx, owner, env.TeamID, in)
		if err != nil {
			t.Fatalf("CreateAssetType(%s): %v", name, err)
		}
		return n
	}
	a := create("A", nil, "Color")
	x := create("X", nil)
	d := create("D", &x.ID, "Color")

	_, err := env.Service.UpdateAssetType(ctx, owner, env.TeamID, x.ID, assetservice.AssetTypeInput{Name: "X", ParentID: &a.ID})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("reparent err = %v, want validation", err)
	}
	n := mustNodeIn(t, env, d.ID)
	if len(n.EffectiveFields) != 1 {
		t.Errorf("D effective fields = %+v", n.EffectiveFields)
	}

	// Without a clash the move goes through.
	b := create("B", nil, "Size")
	if _, err := env.Service.UpdateAssetType(ctx, owner, env.TeamID, x.ID, assetservice.AssetTypeInput{Name: "X", ParentID: &b.ID}); err != nil {
		t.Fatal(err)
	}
	if n := mustNodeIn(t, env, d.ID); len(n.EffectiveFields) != 2 || n.EffectiveFields[0].Slug != "size" {
		t.Errorf("D effective fields = %+v", n.EffectiveFields)
	}
}

func mustNodeIn(t *testing.T, env *testutil.Env, id string) *schema.Node {
	t.Helper()
	n, err := env.Service.GetAssetType(context.Background(), owner, env.TeamID, id)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestAssets_IndexedAndSearchable(t *testing.T) {
	rec := &recorder{}
	k := newKitchen(t, assetservice.WithPublisher(rec))
	ctx := context.Background()
	milk := k.addDairy(t, "Milk", "3.5", "white", k.fridge)
	k.addDairy(t, "Yoghurt", "10", "white", k.pan)

	resp, err := k.Service.Search(ctx, owner, k.TeamID, index.SearchRequest{
		Filter: `"location" = "Fridge" AND "assetTypeName" = "Dairy"`,
		Facets: []string{"color", "fat"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Hits[0].ID != milk.ID {
		t.Errorf("hits = %+v", resp.Hits)
	}
	if resp.FacetDistribution["color"]["white"] != 1 || resp.FacetStats["fat"].Max != 3.5 {
		t.Errorf("facets = %+v / %+v", resp.FacetDistribution, resp.FacetStats)
	}

	// Renaming the type rewrites the documents of its assets.
	if _, err := k.Service.UpdateAssetType(ctx, owner, k.TeamID, k.dairy, assetservice.AssetTypeInput{
		Name:     "Milk products",
		ParentID: &k.food,
		Fields:   mustNode(t, k, k.dairy).OwnFields,
	}); err != nil {
		t.Fatal(err)
	}
	resp, _ = k.Service.Search(ctx, owner, k.TeamID, index.SearchRequest{Filter: `"assetTypeName" = "Milk products"`})
	if resp.Total != 2 {
		t.Errorf("after rename total = %d, want 2", resp.Total)
	}

	if err := k.Service.DeleteAsset(ctx, owner, k.TeamID, milk.ID); err != nil {
		t.Fatal(err)
	}
	resp, _ = k.Service.Search(ctx, owner, k.TeamID, index.SearchRequest{Query: "Milk", Filter: `"location" = "Fridge"`})
	if resp.Total != 0 {
		t.Errorf("deleted asset still indexed: %+v", resp.Hits)
	}
	for _, ev := range []string{"asset.created", "assetType.updated", "asset.deleted", "tag.created"} {
		if !rec.has(ev) {
			t.Errorf("missing event %s in %v", ev, rec.events)
		}
	}
}

func mustNode(t *testing.T, k *kitchen, id string) *schema.Node {
	t.Helper()
	n, err := k.Service.GetAssetType(context.Background(), owner, k.TeamID, id)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDeleteAssetType(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()
	cheese, err := k.Service.CreateAssetType(ctx, owner, k.TeamID, assetservice.AssetTypeInput{Name: "Cheese", ParentID: &k.dairy})
	if err != nil {
		t.Fatal(err)
	}
	k.addDairy(t, "Milk", "3", "", "")

	if err := k.Service.DeleteAssetType(ctx, owner, k.TeamID, k.dairy); !errors.Is(err, apperr.ErrInUse) {
		t.Fatalf("delete used type: err = %v", err)
	}

	// An unused type in the middle is spliced out.
	mid, _ := k.Service.CreateAssetType(ctx, owner, k.TeamID, assetservice.AssetTypeInput{
		Name: "Aged", ParentID: &cheese.ID,
		Fields: []models.FieldDefinition{{Name: "Months", Type: models.FieldNumber}},
	})
	leaf, _ := k.Service.CreateAssetType(ctx, owner, k.TeamID, assetservice.AssetTypeInput{Name: "Parmesan", ParentID: &mid.ID})
	if err := k.Service.DeleteAssetType(ctx, owner, k.TeamID, mid.ID); err != nil {
		t.Fatal(err)
	}
	got := mustNode(t, k, leaf.ID)
	if got.ParentID == nil || *got.ParentID != cheese.ID {
		t.Errorf("leaf parent = %v, want %s", got.ParentID, cheese.ID)
	}
	for _, f := range got.EffectiveFields {
		if f.Slug == "months" {
			t.Error("leaf still inherits the deleted type's field")
		}
	}
}

func TestTags_CyclesAndDelete(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()

	shelf, err := k.Service.CreateTag(ctx, owner, k.TeamID, assetservice.TagInput{Name: "Shelf", ParentID: &k.fridge})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.Service.UpdateTag(ctx, owner, k.TeamID, k.location, assetservice.TagInput{
		Name: "Location", ParentID: &shelf.ID,
	}); !errors.Is(err, apperr.ErrInvalidHierarchy) {
		t.Errorf("cycle: err = %v", err)
	}
	if _, err := k.Service.UpdateTag(ctx, owner, k.TeamID, k.fridge, assetservice.TagInput{
		Name: "Fridge", ParentID: &k.fridge,
	}); !errors.Is(err, apperr.ErrInvalidHierarchy) {
		t.Errorf("self parent: err = %v", err)
	}

	milk := k.addDairy(t, "Milk", "3", "", k.fridge)
	if _, err := k.Service.UpdateTag(ctx, owner, k.TeamID, k.fridge, assetservice.TagInput{
		Name: "Cold store", ParentID: &k.location,
	}); err != nil {
		t.Fatal(err)
	}
	resp, _ := k.Service.Search(ctx, owner, k.TeamID, index.SearchRequest{Filter: `"location" = "Cold store"`})
	if resp.Total != 1 {
		t.Errorf("renamed tag not reindexed: total = %d", resp.Total)
	}

	if err := k.Service.DeleteTag(ctx, owner, k.TeamID, k.fridge); err != nil {
		t.Fatal(err)
	}
	a, _ := k.Service.GetAsset(ctx, owner, k.TeamID, milk.ID)
	for _, v := range a.Values {
		if len(v.TagIDs) > 0 {
			t.Errorf("deleted tag still assigned: %+v", v)
		}
	}
	got, _ := k.Service.GetTag(ctx, owner, k.TeamID, shelf.ID)
	if got.ParentID == nil || *got.ParentID != k.location {
		t.Errorf("shelf parent = %v", got.ParentID)
	}
	resp, _ = k.Service.Search(ctx, owner, k.TeamID, index.SearchRequest{Filter: `"location" = "Cold store"`})
	if resp.Total != 0 {
		t.Errorf("deleted tag still indexed: total = %d", resp.Total)
	}
}

func TestSessionSearch_AutoSelectAndFilters(t *testing.T) {
	k := newKitchen(t, assetservice.WithGroupedClauses(true))
	ctx := context.Background()
	k.addDairy(t, "Milk", "3", "white", k.fridge)
	k.addDairy(t, "Butter", "80", "yellow", k.fridge)
	k.addDairy(t, "Ghee", "99", "yellow", k.pan)

	res, err := k.Service.SessionSearch(ctx, owner, k.TeamID, "s1", assetservice.SessionSearchInput{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.AutoSelected || len(res.Session.SelectedAssetTypeNames) != 1 || res.Session.SelectedAssetTypeNames[0] != "Dairy" {
		t.Errorf("auto selection = %+v", res.Session)
	}
	if res.Session.Expression != `"assetTypeName" = "Dairy"` {
		t.Errorf("expression = %q", res.Session.Expression)
	}
	var faceted []string
	for _, f := range res.FacetedFields {
		faceted = append(faceted, f.Slug)
	}
	if len(faceted) != 2 || faceted[0] != "location" || faceted[1] != "color" {
		t.Errorf("faceted fields = %v", faceted)
	}

	colorID := k.fieldID(t, k.dairy, "color")
	view, err := k.Service.UpsertSessionFilter(ctx, owner, k.TeamID, "s1", colorID, []facet.Condition{
		{Value: "yellow"}, {Value: "white"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `("color" = "yellow" OR "color" = "white") AND "assetTypeName" = "Dairy"`
	if view.Expression != want {
		t.Errorf("expression = %q, want %q", view.Expression, want)
	}

	if _, err := k.Service.UpsertSessionFilter(ctx, owner, k.TeamID, "s1", colorID, []facet.Condition{{Value: "yellow"}}); err != nil {
		t.Fatal(err)
	}
	res, err = k.Service.SessionSearch(ctx, owner, k.TeamID, "s1", assetservice.SessionSearchInput{})
	if err != nil {
		t.Fatal(err)
	}
	if res.AutoSelected || res.Results.Total != 2 {
		t.Errorf("filtered search: auto=%v total=%d", res.AutoSelected, res.Results.Total)
	}

	view, _ = k.Service.ClearSession(ctx, owner, k.TeamID, "s1")
	if len(view.Filters) != 0 || len(view.SelectedAssetTypeNames) != 1 {
		t.Errorf("cleared session = %+v", view)
	}
	view, _ = k.Service.SetSessionSelection(ctx, owner, k.TeamID, "s1", nil)
	if view.Expression != "" {
		t.Errorf("empty session expression = %q", view.Expression)
	}

	if _, err := k.Service.UpsertSessionFilter(ctx, owner, k.TeamID, "s1", "ghost", []facet.Condition{{Value: "x"}}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown field: err = %v", err)
	}
}

func TestReindexAll_RestoresDocuments(t *testing.T) {
	k := newKitchen(t)
	ctx := context.Background()
	milk := k.addDairy(t, "Milk", "3", "", "")
	if err := k.Index.DeleteDocument(ctx, k.TeamID, milk.ID); err != nil {
		t.Fatal(err)
	}
	if err := k.Index.UpsertDocument(ctx, k.TeamID, index.Document{ID: "stale", Title: "Stale"}); err != nil {
		t.Fatal(err)
	}

	if err := k.Service.ReindexAll(ctx); err != nil {
		t.Fatal(err)
	}
	ids, _ := k.Index.DocumentIDs(ctx, k.TeamID)
	if _, ok := ids[milk.ID]; !ok || len(ids) != 1 {
		t.Errorf("indexed ids = %v", ids)
	}

	res, err := k.Service.Reindex(ctx, owner, k.TeamID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Upserted != 1 || res.Removed != 0 {
		t.Errorf("reindex = %+v", res)
	}
}

func TestApplyTemplates_Idempotent(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	templates := []catalog.Template{{
		Name:   "Electronics",
		Fields: []catalog.FieldTemplate{{Name: "Brand", Type: models.FieldString}},
		Children: []catalog.Template{{
			Name:   "Laptops",
			Fields: []catalog.FieldTemplate{{Name: "RAM", Type: models.FieldNumber}, {Name: "Brand", Type: models.FieldString}},
		}},
	}}

	res, err := env.Service.ApplyTemplates(ctx, env.TeamID, templates)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 2 || res.Updated != 0 {
		t.Errorf("first apply = %+v", res)
	}
	res, _ = env.Service.ApplyTemplates(ctx, env.TeamID, templates)
	if res.Created != 0 || res.Updated != 0 {
		t.Errorf("second apply = %+v", res)
	}

	templates[0].Fields = append(templates[0].Fields, catalog.FieldTemplate{Name: "Warranty", Type: models.FieldDate})
	res, _ = env.Service.ApplyTemplates(ctx, env.TeamID, templates)
	if res.Updated != 1 {
		t.Errorf("third apply = %+v", res)
	}

	flat, _ := env.Service.Flatten(ctx, owner, env.TeamID, true)
	if len(flat) != 2 || flat[1].Node.Name != "Laptops" || flat[1].Depth != 1 {
		t.Fatalf("flat = %+v", flat)
	}
	if n := len(flat[1].Node.EffectiveFields); n != 3 {
		t.Errorf("laptop effective fields = %d, want 3 (brand, warranty, ram)", n)
	}

	if _, err := env.Service.ApplyTemplates(ctx, "missing", templates); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown team: err = %v", err)
	}
}
