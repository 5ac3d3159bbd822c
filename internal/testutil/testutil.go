// Package testutil provides shared test helpers for setting up databases and
// a wired asset service.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/othala/internal/assetservice"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/store"
)

// Owner is the user that owns the team created by NewEnv.
const Owner = "owner"

// tempFile returns the path of an empty temporary file removed at cleanup.
func tempFile(t *testing.T, pattern string) string {
	t.Helper()
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

// TestStore creates a temporary store database that is automatically cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(tempFile(t, "othala-store-*.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestIndex creates a temporary search index that is automatically cleaned up.
func TestIndex(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(tempFile(t, "othala-index-*.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Env is a wired service over temporary databases with one team owned by
// Owner.
type Env struct {
	Store   *store.DB
	Index   *index.DB
	Service *assetservice.Service
	TeamID  string
}

// NewEnv builds an Env. opts are passed to assetservice.New.
func NewEnv(t *testing.T, opts ...assetservice.Option) *Env {
	t.Helper()
	st := TestStore(t)
	idx := TestIndex(t)
	svc := assetservice.New(st, idx, DiscardLogger(), opts...)
	team, err := svc.CreateTeam(context.Background(), Owner, "Home")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	return &Env{Store: st, Index: idx, Service: svc, TeamID: team.ID}
}
