// Package server accepts connections and answers one framed request on each.
//
// The accept loop hands every connection to its own goroutine, which then
// waits on a FIFO weighted semaphore sized to the worker count. At most that
// many requests are handled at once; the rest queue without ever blocking
// Accept.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/maruel/jsondb/internal/docpath"
	"github.com/maruel/jsondb/internal/server/ratelimit"
	"github.com/maruel/jsondb/internal/value"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Store is the document store the server dispatches to.
type Store interface {
	Get(ctx context.Context, p docpath.Path) (value.Value, error)
	Set(ctx context.Context, p docpath.Path, v value.Value) error
	Delete(ctx context.Context, p docpath.Path) error
}

// Config configures a Server.
type Config struct {
	// Workers bounds concurrently handled connections. 0 means
	// runtime.NumCPU().
	Workers int
	// Limiter, if set, throttles connections per remote host.
	Limiter *ratelimit.Limiter
}

// Server serves the document store over a stream listener.
type Server struct {
	store   Store
	workers int
	limiter *ratelimit.Limiter

	mu       sync.Mutex
	ln       net.Listener
	stopped  bool
	stopOnce sync.Once
}

// New returns a Server dispatching to store.
func New(store Store, cfg *Config) *Server {
	s := &Server{store: store, workers: runtime.NumCPU()}
	if cfg != nil {
		if cfg.Workers > 0 {
			s.workers = cfg.Workers
		}
		s.limiter = cfg.Limiter
	}
	return s
}

// Workers returns the size of the worker pool.
func (s *Server) Workers() int {
	return s.workers
}

// ListenAndServe listens on the TCP address addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	slog.InfoContext(ctx, "Server listening", "addr", ln.Addr().String(), "workers", s.workers)
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until Stop is called, an exit request is
// received, or ctx is canceled. It then waits for every accepted connection,
// including queued ones, to be handled before returning. ln is closed on
// return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.ln != nil {
		s.mu.Unlock()
		return errors.New("server is already serving")
	}
	s.ln = ln
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		s.closeListener()
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	// In-flight connections finish even when ctx is canceled.
	connCtx := context.WithoutCancel(ctx)

	sem := semaphore.NewWeighted(int64(s.workers))
	var g errgroup.Group
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isStopped() || errors.Is(err, net.ErrClosed) {
				break
			}
			delay = min(max(2*delay, 5*time.Millisecond), time.Second)
			slog.WarnContext(ctx, "Accept failed", "err", err, "retry", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0
		g.Go(func() error {
			if err := sem.Acquire(connCtx, 1); err != nil {
				_ = conn.Close()
				return err
			}
			defer sem.Release(1)
			s.handle(connCtx, conn)
			return nil
		})
	}
	err := g.Wait()
	slog.InfoContext(ctx, "Server stopped")
	return err
}

// Stop stops accepting connections. Connections already accepted are still
// handled. It is safe to call Stop before or during Serve, and more than
// once.
func (s *Server) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.closeListener()
}

func (s *Server) closeListener() {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return
	}
	s.stopOnce.Do(func() {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Warn("Failed to close listener", "err", err)
		}
	})
}

func (s *Server) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
