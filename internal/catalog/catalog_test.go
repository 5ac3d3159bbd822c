package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/othala/internal/models"
)

const electronics = `
assetTypes:
  - name: Electronics
    fields:
      - {name: Brand, type: string, showInTable: true}
    children:
      - name: Laptops
        fields:
          - {name: RAM (GB), type: NUMBER, min: 1}
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(electronics))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.AssetTypes) != 1 || f.AssetTypes[0].Name != "Electronics" {
		t.Fatalf("asset types = %+v", f.AssetTypes)
	}
	defs := f.AssetTypes[0].Definitions()
	if len(defs) != 1 || defs[0].Type != models.FieldString || !defs[0].ShowInTable {
		t.Errorf("fields = %+v", defs)
	}
	laptops := f.AssetTypes[0].Children[0]
	if laptops.Fields[0].Min == nil || *laptops.Fields[0].Min != 1 {
		t.Errorf("laptop fields = %+v", laptops.Fields)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"syntax":        "assetTypes: [",
		"missing name":  "assetTypes:\n  - fields: []\n",
		"unknown type":  "assetTypes:\n  - name: A\n    fields:\n      - {name: X, type: BLOB}\n",
		"nested":        "assetTypes:\n  - name: A\n    children:\n      - name: ''\n",
		"currency code": "assetTypes:\n  - name: A\n    fields:\n      - {name: Price, type: CURRENCY}\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(src)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFS_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", electronics)
	writeFile(t, dir, "sub/a.yml", electronics)
	writeFile(t, dir, "notes.md", "# no")
	writeFile(t, dir, ".hidden.yaml", electronics)

	fsys, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := fsys.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Path != "b.yaml" || entries[1].Path != "sub/a.yml" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Checksum != entries[1].Checksum {
		t.Error("identical content should have identical checksums")
	}
	if _, err := fsys.Read("../outside.yaml"); err == nil {
		t.Error("expected traversal to be rejected")
	}
}

type recordingApplier struct {
	mu    sync.Mutex
	calls [][]Template
}

func (r *recordingApplier) ApplyTemplates(_ context.Context, _ string, templates []Template) (ApplyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, templates)
	return ApplyResult{Created: len(templates)}, nil
}

func (r *recordingApplier) last() []Template {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func (r *recordingApplier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestSyncer_AppliesChangedFilesOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", electronics)
	writeFile(t, dir, "broken.yaml", "assetTypes: [")
	fsys, _ := NewFS(dir)
	app := &recordingApplier{}
	s := NewSyncer(fsys, app, "team", discardLogger())
	ctx := context.Background()

	rep, err := s.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Applied != 1 || rep.Failed != 1 || rep.Result.Created != 1 {
		t.Errorf("first pass = %+v", rep)
	}

	rep, _ = s.Sync(ctx)
	if rep.Applied != 0 || rep.Unchanged != 1 || rep.Failed != 1 {
		t.Errorf("second pass = %+v", rep)
	}

	writeFile(t, dir, "a.yaml", electronics+"  - name: Food\n")
	rep, _ = s.Sync(ctx)
	if rep.Applied != 1 || rep.Result.Created != 2 {
		t.Errorf("after change = %+v", rep)
	}
	if app.count() != 2 {
		t.Errorf("applier calls = %d, want 2", app.count())
	}
}

func TestWatch_AppliesNewFiles(t *testing.T) {
	dir := t.TempDir()
	fsys, _ := NewFS(dir)
	app := &recordingApplier{}
	s := NewSyncer(fsys, app, "team", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, s, 20*time.Millisecond, discardLogger(), nil)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "new.yaml", electronics)

	deadline := time.Now().Add(5 * time.Second)
	for len(app.last()) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := app.last(); len(got) != 1 || got[0].Name != "Electronics" {
		t.Fatalf("last applied = %+v", got)
	}
}
