package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchExecutable calls stop when the running binary is rewritten or
// replaced, so a rebuilt server restarts under its supervisor.
//
// The parent directory is watched rather than the file: "go build -o" writes
// a temporary file and renames it over the binary, which drops a watch held
// on the old inode.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(exe)); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if restartEvent(exe, ev) {
					slog.InfoContext(ctx, "Executable replaced, initiating shutdown", "op", ev.Op.String())
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}

// restartEvent reports whether ev changes the binary at exe.
func restartEvent(exe string, ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != exe {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) ||
		ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Chmod)
}
