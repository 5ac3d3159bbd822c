//go:build sqlite_fts5

package index

import (
	"context"
	"strings"
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents_fts`).Scan(&count); err != nil {
		t.Fatalf("documents_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	doc := Document{ID: "drill", Title: "Drill", Body: "Cordless drill with powerful brushless motor."}
	if err := db.UpsertDocument(ctx, "team", doc); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	res, err := db.Search(ctx, "team", SearchRequest{Query: "powerful"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != "drill" {
		t.Fatalf("hits = %+v", res.Hits)
	}
	if !strings.Contains(res.Hits[0].Snippet, "<b>") {
		t.Errorf("snippet = %q, want match markers", res.Hits[0].Snippet)
	}
}

func TestFTS5_CombinedWithFilterAndFacets(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	res, err := db.Search(context.Background(), "team", SearchRequest{
		Query:  "ketchup",
		Filter: `"location" = "fridge"`,
		Facets: []string{"color"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 1 || res.FacetDistribution["color"]["red"] != 1 {
		t.Errorf("res = %+v", res)
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.UpsertDocument(ctx, "team", Document{ID: "gone", Body: "vanishing content"})
	_ = db.DeleteDocument(ctx, "team", "gone")

	res, _ := db.Search(ctx, "team", SearchRequest{Query: "vanishing"})
	if len(res.Hits) != 0 {
		t.Error("deleted document still in FTS index")
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.UpsertDocument(ctx, "team", Document{ID: "evo", Title: "Old", Body: "original text"})
	_ = db.UpsertDocument(ctx, "team", Document{ID: "evo", Title: "New", Body: "replacement text"})

	res, _ := db.Search(ctx, "team", SearchRequest{Query: "original"})
	if len(res.Hits) != 0 {
		t.Error("old FTS content should be gone")
	}
	res, _ = db.Search(ctx, "team", SearchRequest{Query: "replacement"})
	if len(res.Hits) != 1 || res.Hits[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", res.Hits)
	}
}
