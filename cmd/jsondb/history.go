package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/maruel/jsondb/internal/storage/git"
)

// docFile is the document file name inside the data directory.
const docFile = "db.json"

// printHistory writes the last n revisions of the document, newest first, one
// per line.
func printHistory(ctx context.Context, w io.Writer, dataDir string, n int) error {
	repo, err := git.Open(ctx, dataDir, git.Author{})
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	commits, err := repo.History(ctx, filepath.Join(repo.Dir(), docFile), n)
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		_, err = fmt.Fprintln(w, "no history")
		return err
	}
	for _, c := range commits {
		if _, err := fmt.Fprintf(w, "%s %s %-12s %s\n", c.Hash[:12], c.AuthorDate.Local().Format(time.DateTime), c.Author, c.Message); err != nil {
			return err
		}
	}
	return nil
}

// printAt writes the document as it was at revision rev.
func printAt(ctx context.Context, w io.Writer, dataDir, rev string) error {
	repo, err := git.Open(ctx, dataDir, git.Author{})
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	b, err := repo.FileAt(ctx, rev, filepath.Join(repo.Dir(), docFile))
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
