package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/jsondb/internal/docpath"
	"github.com/maruel/jsondb/internal/storage"
	"github.com/maruel/jsondb/internal/value"
)

func TestRepo(t *testing.T) {
	t.Parallel()

	t.Run("Init", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "data")
		r, err := Open(t.Context(), dir, Author{})
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
			t.Errorf(".git directory not created: %v", err)
		}
		n, err := r.CommitCount(t.Context())
		if err != nil || n != 0 {
			t.Errorf("CommitCount() = %d, %v; want 0", n, err)
		}
		cfg, err := r.repo.Config()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.User.Name != "jsondb" || cfg.User.Email != "jsondb@localhost" {
			t.Errorf("user = %q <%q>", cfg.User.Name, cfg.User.Email)
		}

		// Reopening keeps the existing repository.
		if _, err := Open(t.Context(), dir, Author{Name: "Other"}); err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
	})

	t.Run("Record", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		dir := t.TempDir()
		r, err := Open(ctx, dir, Author{Name: "Test User", Email: "test@example.com"})
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, "db.json")
		e := storage.Open(path, &storage.Options{Recorder: r})

		if err := e.Set(ctx, docpath.MustNew("a", "b"), value.Int(1)); err != nil {
			t.Fatal(err)
		}
		if err := e.Set(ctx, docpath.MustNew("x"), value.String("y")); err != nil {
			t.Fatal(err)
		}
		// Same content, no new commit.
		if err := e.Set(ctx, docpath.MustNew("x"), value.String("y")); err != nil {
			t.Fatal(err)
		}
		if err := e.Delete(ctx, docpath.MustNew("a")); err != nil {
			t.Fatal(err)
		}

		n, err := r.CommitCount(ctx)
		if err != nil || n != 3 {
			t.Fatalf("CommitCount() = %d, %v; want 3", n, err)
		}
		history, err := r.History(ctx, path, 0)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"delete a", "set x", "set a/b"}
		if len(history) != len(want) {
			t.Fatalf("History() returned %d commits, want %d", len(history), len(want))
		}
		for i, c := range history {
			if c.Message != want[i] {
				t.Errorf("commit %d message = %q, want %q", i, c.Message, want[i])
			}
			if c.Author != "Test User" {
				t.Errorf("commit %d author = %q", i, c.Author)
			}
		}
		limited, err := r.History(ctx, path, 1)
		if err != nil || len(limited) != 1 {
			t.Errorf("History(1) = %d commits, %v", len(limited), err)
		}

		head, err := r.FileAt(ctx, "HEAD", path)
		if err != nil {
			t.Fatal(err)
		}
		onDisk, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(head) != string(onDisk) {
			t.Errorf("FileAt(HEAD) = %q, want %q", head, onDisk)
		}
		first, err := r.FileAt(ctx, history[2].Hash, path)
		if err != nil {
			t.Fatal(err)
		}
		v, err := value.Parse(first)
		if err != nil {
			t.Fatal(err)
		}
		if got := v.String(); got != `{"a":{"b":1}}` {
			t.Errorf("first revision = %s", got)
		}
		short, err := r.FileAt(ctx, history[2].Hash[:12], path)
		if err != nil {
			t.Fatalf("FileAt(abbreviated) error = %v", err)
		}
		if string(short) != string(first) {
			t.Errorf("FileAt(abbreviated) = %q, want %q", short, first)
		}
		if _, err := r.FileAt(ctx, "0000000000000000000000000000000000000bad", path); err == nil {
			t.Error("FileAt(unknown) succeeded")
		}
	})

	t.Run("outside the repository", func(t *testing.T) {
		t.Parallel()
		r, err := Open(t.Context(), t.TempDir(), Author{})
		if err != nil {
			t.Fatal(err)
		}
		if err := r.Record(t.Context(), filepath.Join(t.TempDir(), "db.json"), "x"); err == nil {
			t.Error("Record() outside the repository succeeded")
		}
	})

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		r, err := Open(t.Context(), dir, Author{})
		if err != nil {
			t.Fatal(err)
		}
		history, err := r.History(t.Context(), filepath.Join(dir, "db.json"), 10)
		if err != nil || len(history) != 0 {
			t.Errorf("History() = %v, %v", history, err)
		}
	})
}
