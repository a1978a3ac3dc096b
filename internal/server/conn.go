package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	dberrors "github.com/maruel/jsondb/internal/errors"
	"github.com/maruel/jsondb/internal/protocol"
	"github.com/maruel/jsondb/internal/server/ratelimit"
	"github.com/maruel/ksid"
)

// handle reads one request from conn, answers it, and closes conn.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	log := slog.With("conn", ksid.NewID().String(), "remote", conn.RemoteAddr().String())
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.DebugContext(ctx, "Failed to close connection", "err", err)
		}
	}()

	payload, err := protocol.ReadFrame(conn)
	if err != nil {
		if errors.Is(err, io.EOF) {
			log.DebugContext(ctx, "Connection closed before a request")
		} else {
			log.WarnContext(ctx, "Failed to read request", "err", err)
		}
		return
	}

	var resp protocol.Response
	exit := false
	if s.limiter != nil && !s.limiter.AllowAddr(conn.RemoteAddr()).Allowed {
		resp = protocol.FromError(dberrors.RateLimited(ratelimit.HostKey(conn.RemoteAddr())))
		log.WarnContext(ctx, "Rate limited")
	} else if req, err := protocol.DecodeRequest(payload); err != nil {
		resp = protocol.FromError(err)
		log.WarnContext(ctx, "Malformed request", "err", err)
	} else {
		resp, exit = s.dispatch(ctx, log, req)
	}

	out := resp.Encode()
	if len(out) > protocol.MaxFrameSize {
		err := dberrors.ValueTooLarge(len(out))
		log.WarnContext(ctx, "Response does not fit in a frame", "err", err)
		out = protocol.FromError(err).Encode()
	}
	if err := protocol.WriteFrame(conn, out); err != nil {
		log.WarnContext(ctx, "Failed to write response", "err", err)
	}
	if exit {
		log.InfoContext(ctx, "Exit requested, no longer accepting connections")
		s.Stop()
	}
}

// dispatch runs req against the store. The second result is true for exit.
func (s *Server) dispatch(ctx context.Context, log *slog.Logger, req protocol.Request) (protocol.Response, bool) {
	var resp protocol.Response
	var err error
	switch req.Op {
	case protocol.OpGet:
		v, getErr := s.store.Get(ctx, req.Path)
		resp, err = protocol.OKValue(v), getErr
	case protocol.OpSet:
		if err = s.store.Set(ctx, req.Path, req.Value); err == nil {
			resp = protocol.OK()
		}
	case protocol.OpDelete:
		if err = s.store.Delete(ctx, req.Path); err == nil {
			resp = protocol.OK()
		}
	case protocol.OpExit:
		return protocol.ExitAck(), true
	default:
		err = dberrors.MalformedRequest("unknown operation " + string(req.Op))
	}
	if err != nil {
		switch dberrors.CodeOf(err) {
		case dberrors.ErrNoSuchKey:
			log.DebugContext(ctx, "Request failed", "op", req.Op, "key", req.Path.String(), "err", err)
		case dberrors.ErrPersistenceFailure, dberrors.ErrInternal:
			log.ErrorContext(ctx, "Request failed", "op", req.Op, "key", req.Path.String(), "err", err)
		default:
			log.WarnContext(ctx, "Request failed", "op", req.Op, "key", req.Path.String(), "err", err)
		}
		return protocol.FromError(err), false
	}
	log.DebugContext(ctx, "Request served", "op", req.Op, "key", req.Path.String())
	return resp, false
}
