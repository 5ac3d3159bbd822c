package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/othala/internal/authz"
	"github.com/starford/othala/internal/facet"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/testutil"
)

// testEnv wires a router over a fresh Env. The default user is the team
// owner.
func testEnv(t *testing.T, auth AuthConfig) (*testutil.Env, http.Handler) {
	t.Helper()
	env := testutil.NewEnv(t)
	if auth.DefaultUser == "" {
		auth.DefaultUser = testutil.Owner
	}
	broker := sse.NewBroker(time.Second, nil)
	t.Cleanup(broker.Close)
	return env, NewRouter(env.Service, auth, broker)
}

func do(t *testing.T, router http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

// createTools creates a "Tools" type with a Color field and returns it.
func createTools(t *testing.T, router http.Handler, teamID string) *schema.Node {
	t.Helper()
	w := do(t, router, http.MethodPost, "/teams/"+teamID+"/asset-types", AssetTypeRequest{
		Name:   "Tools",
		Fields: []models.FieldDefinition{{Name: "Color", Type: models.FieldString}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create type = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[*schema.Node](t, w)
}

func createHammer(t *testing.T, router http.Handler, teamID string, tools *schema.Node) AssetDetail {
	t.Helper()
	w := do(t, router, http.MethodPost, "/teams/"+teamID+"/assets", AssetRequest{
		AssetTypeID: tools.ID,
		Name:        "Hammer",
		Values:      []models.FieldValue{{FieldID: tools.OwnFields[0].ID, Value: "red"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create asset = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[AssetDetail](t, w)
}

func TestTeams(t *testing.T) {
	env, router := testEnv(t, AuthConfig{})

	w := do(t, router, http.MethodPost, "/teams", CreateTeamRequest{Name: "Garage"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create team = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/teams", nil)
	teams := decode[[]models.Team](t, w)
	if len(teams) != 2 {
		t.Errorf("teams = %+v, want 2", teams)
	}

	w = do(t, router, http.MethodPost, "/teams", CreateTeamRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty team name = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPost, "/teams/"+env.TeamID+"/members", AddMemberRequest{UserID: "bob", Role: "owner"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad role = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPost, "/teams/"+env.TeamID+"/members", AddMemberRequest{UserID: "bob", Role: models.RoleMember})
	if w.Code != http.StatusNoContent {
		t.Errorf("add member = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAssetTypeLifecycle(t *testing.T) {
	env, router := testEnv(t, AuthConfig{})
	base := "/teams/" + env.TeamID + "/asset-types"
	tools := createTools(t, router, env.TeamID)

	child := AssetTypeRequest{Name: "Saws", ParentID: &tools.ID}
	w := do(t, router, http.MethodPost, base, child)
	if w.Code != http.StatusCreated {
		t.Fatalf("create child = %d, body = %s", w.Code, w.Body.String())
	}
	saws := decode[*schema.Node](t, w)
	if len(saws.EffectiveFields) != 1 || saws.EffectiveFields[0].Slug != "color" {
		t.Errorf("inherited fields = %+v", saws.EffectiveFields)
	}

	w = do(t, router, http.MethodGet, base, nil)
	tree := decode[schema.Tree](t, w)
	if len(tree.Roots) != 1 || len(tree.Roots[0].Children) != 1 {
		t.Errorf("tree = %+v", tree)
	}
	w = do(t, router, http.MethodGet, base+"?view=flat", nil)
	flat := decode[[]schema.Entry](t, w)
	if len(flat) != 2 || flat[1].Depth != 1 {
		t.Errorf("flat = %+v", flat)
	}

	// Moving Tools below its own child is a cycle.
	w = do(t, router, http.MethodPut, base+"/"+tools.ID, AssetTypeRequest{Name: "Tools", ParentID: &saws.ID, Fields: tools.OwnFields})
	if w.Code != http.StatusBadRequest {
		t.Errorf("cycle = %d, want 400", w.Code)
	}

	createHammer(t, router, env.TeamID, tools)
	w = do(t, router, http.MethodDelete, base+"/"+tools.ID, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("delete in use = %d, want 409", w.Code)
	}
	w = do(t, router, http.MethodDelete, base+"/"+saws.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, base+"/"+saws.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", w.Code)
	}
}

func TestAssetLifecycle(t *testing.T) {
	env, router := testEnv(t, AuthConfig{})
	base := "/teams/" + env.TeamID + "/assets"
	tools := createTools(t, router, env.TeamID)
	hammer := createHammer(t, router, env.TeamID, tools)

	w := do(t, router, http.MethodGet, base+"/"+hammer.ID, nil)
	got := decode[AssetDetail](t, w)
	if got.Name != "Hammer" || got.AssetTypeName != "Tools" {
		t.Errorf("get = %+v", got)
	}

	w = do(t, router, http.MethodGet, base+"?assetTypeId="+tools.ID+"&descendants=true", nil)
	if list := decode[[]models.Asset](t, w); len(list) != 1 {
		t.Errorf("list = %+v", list)
	}

	w = do(t, router, http.MethodPut, base+"/"+hammer.ID, AssetRequest{
		AssetTypeID: tools.ID,
		Name:        "Sledge",
		Values:      []models.FieldValue{{FieldID: "unknown", Value: "x"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown field = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodDelete, base+"/"+hammer.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, base+"/"+hammer.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", w.Code)
	}
}

func TestInvalidJSON(t *testing.T) {
	env, router := testEnv(t, AuthConfig{})
	req := httptest.NewRequest(http.MethodPost, "/teams/"+env.TeamID+"/tags", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}
}

func TestTags(t *testing.T) {
	env, router := testEnv(t, AuthConfig{})
	base := "/teams/" + env.TeamID + "/tags"

	w := do(t, router, http.MethodPost, base, TagRequest{Name: "Location"})
	loc := decode[models.Tag](t, w)
	w = do(t, router, http.MethodPost, base, TagRequest{Name: "Shed", ParentID: &loc.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("create child tag = %d", w.Code)
	}
	shed := decode[models.Tag](t, w)

	w = do(t, router, http.MethodPut, base+"/"+loc.ID, TagRequest{Name: "Location", ParentID: &shed.ID})
	if w.Code != http.StatusBadRequest {
		t.Errorf("tag cycle = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodDelete, base+"/"+loc.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete tag = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, base+"/"+shed.ID, nil)
	if got := decode[models.Tag](t, w); got.ParentID != nil {
		t.Errorf("child parent = %v, want nil after splice", *got.ParentID)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env, router := testEnv(t, AuthConfig{})
	tools := createTools(t, router, env.TeamID)
	hammer := createHammer(t, router, env.TeamID, tools)
	path := "/teams/" + env.TeamID + "/search"

	w := do(t, router, http.MethodPost, path, SearchRequest{
		Filter: `"color" = "red" AND "assetTypeName" = "Tools"`,
		Facets: []string{"color"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[SearchResponse](t, w)
	if resp.Total != 1 || resp.Hits[0].ID != hammer.ID {
		t.Errorf("search = %+v", resp)
	}

	w = do(t, router, http.MethodPost, path, SearchRequest{Filter: `"color" = "red" AND`})
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed filter = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPost, "/teams/"+env.TeamID+"/reindex", nil)
	if w.Code != http.StatusOK {
		t.Errorf("reindex = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestFilterSession(t *testing.T) {
	env, router := testEnv(t, AuthConfig{})
	tools := createTools(t, router, env.TeamID)
	createHammer(t, router, env.TeamID, tools)
	base := "/teams/" + env.TeamID + "/filter-sessions/s1"

	w := do(t, router, http.MethodPost, base+"/search", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("session search = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[SessionSearchResponse](t, w)
	if !res.AutoSelected || res.Session.Expression != `"assetTypeName" = "Tools"` {
		t.Errorf("auto select = %+v", res.Session)
	}

	w = do(t, router, http.MethodPut, base+"/filters/"+tools.OwnFields[0].ID, FilterRequest{
		Conditions: []facet.Condition{{Value: "red"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("upsert filter = %d, body = %s", w.Code, w.Body.String())
	}
	view := decode[SessionView](t, w)
	if !strings.Contains(view.Expression, `"color" = "red"`) {
		t.Errorf("expression = %q", view.Expression)
	}

	w = do(t, router, http.MethodPut, base+"/filters/ghost", FilterRequest{Conditions: []facet.Condition{{Value: "x"}}})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown field = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodPut, base+"/selection", SelectionRequest{AssetTypeNames: []string{}})
	view = decode[SessionView](t, w)
	if len(view.SelectedAssetTypeNames) != 0 {
		t.Errorf("selection = %v", view.SelectedAssetTypeNames)
	}

	w = do(t, router, http.MethodDelete, base+"/filters", nil)
	view = decode[SessionView](t, w)
	if len(view.Filters) != 0 || view.Expression != "" {
		t.Errorf("cleared = %+v", view)
	}

	w = do(t, router, http.MethodGet, base, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get session = %d", w.Code)
	}
}

func TestForeignTeamForbidden(t *testing.T) {
	env, router := testEnv(t, AuthConfig{})
	other, err := env.Service.CreateTeam(context.Background(), "mallory", "Private")
	if err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{"/asset-types", "/assets", "/tags"} {
		w := do(t, router, http.MethodGet, "/teams/"+other.ID+path, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("GET %s on foreign team = %d, want 403", path, w.Code)
		}
	}
}

func TestAuthMiddleware_Token(t *testing.T) {
	_, router := testEnv(t, AuthConfig{Mode: AuthToken, Token: "secret123"})

	if w := do(t, router, http.MethodGet, "/teams", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/teams", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/teams", nil, "Authorization", "Bearer secret123"); w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_JWT(t *testing.T) {
	v, err := authz.NewTokenVerifier("jwt-secret", "othala")
	if err != nil {
		t.Fatal(err)
	}
	env, router := testEnv(t, AuthConfig{Mode: AuthJWT, Verifier: v})

	ownerToken, _ := v.Issue(testutil.Owner, time.Hour)
	w := do(t, router, http.MethodGet, "/teams", nil, "Authorization", "Bearer "+ownerToken)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), env.TeamID) {
		t.Errorf("owner teams = %d %s", w.Code, w.Body.String())
	}

	strangerToken, _ := v.Issue("stranger", time.Hour)
	w = do(t, router, http.MethodGet, "/teams/"+env.TeamID+"/tags", nil, "Authorization", "Bearer "+strangerToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("stranger = %d, want 403", w.Code)
	}

	other, _ := authz.NewTokenVerifier("other-secret", "othala")
	forged, _ := other.Issue(testutil.Owner, time.Hour)
	w = do(t, router, http.MethodGet, "/teams", nil, "Authorization", "Bearer "+forged)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("forged = %d, want 401", w.Code)
	}
}

func TestEvents(t *testing.T) {
	env, router := testEnv(t, AuthConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/teams/"+env.TeamID+"/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("events = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	w = do(t, router, http.MethodGet, "/teams/nope/events", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign events = %d, want 403", w.Code)
	}
}
