package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-nosql/pkg/domain"
	"github.com/adfharrison1/go-nosql/pkg/metrics"
)

// ErrServerClosed is returned by Serve after Shutdown
var ErrServerClosed = errors.New("server closed")

// DefaultWorkers bounds concurrent connection handlers
const DefaultWorkers = 10

// Server accepts line protocol connections and hands each one to a worker
// from a bounded pool. A connection occupies its worker until it closes.
type Server struct {
	handler *Handler
	logger  *zap.SugaredLogger
	workers int
	pool    *ants.Pool

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	shutdown bool

	wg sync.WaitGroup
}

// NewServer creates a server over engine
func NewServer(engine domain.DatabaseEngine, options ...ServerOption) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("database engine is required")
	}
	s := &Server{
		logger:  zap.NewNop().Sugar(),
		workers: DefaultWorkers,
		conns:   make(map[net.Conn]struct{}),
	}
	for _, option := range options {
		option(s)
	}
	if s.workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", s.workers)
	}

	pool, err := ants.NewPool(s.workers, ants.WithPanicHandler(func(v interface{}) {
		s.logger.Errorw("connection handler panic", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	s.pool = pool
	s.handler = NewHandler(engine, s.logger)
	return s, nil
}

// ListenAndServe listens on addr and calls Serve
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown. When every worker is busy
// the accept loop waits for one to free up.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Infow("line server listening", "addr", ln.Addr().String(), "workers", s.workers)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warnw("accept timeout", "error", err)
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		if !s.track(conn) {
			conn.Close()
			continue
		}

		if err := s.pool.Submit(func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}); err != nil {
			s.wg.Done()
			s.untrack(conn)
			conn.Close()
			s.logger.Errorw("failed to submit connection handler", "error", err)
		}
	}
}

// Addr returns the listener address, or nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting, lets every connection finish the request it is
// serving, then releases the worker pool. When ctx expires first the
// remaining connections are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true

	var err error
	if s.listener != nil {
		if cerr := s.listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}
	// Idle readers wake up; a handler busy with a request still writes its reply
	for conn := range s.conns {
		_ = conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.closeConnections()
		<-done
		err = multierr.Append(err, ctx.Err())
	}

	err = multierr.Append(err, s.pool.ReleaseTimeout(3*time.Second))
	s.logger.Info("line server stopped")
	return err
}

func (s *Server) closing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// track registers conn and counts it against the shutdown wait. Both happen
// under mu so Shutdown never waits on a count that is still growing.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// handleConnection serves one request per line until EOF, EXIT or shutdown
func (s *Server) handleConnection(conn net.Conn) {
	log := s.logger.With("conn_id", uuid.New().String(), "remote", conn.RemoteAddr().String())
	metrics.ActiveConnections.Inc()
	defer func() {
		metrics.ActiveConnections.Dec()
		s.untrack(conn)
		conn.Close()
		log.Debug("connection closed")
	}()
	log.Debug("new connection")

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			if !errors.Is(err, os.ErrDeadlineExceeded) && !errors.Is(err, net.ErrClosed) {
				log.Warnw("read failed", "error", err)
			}
			return
		}

		// A final line without a newline is still a request
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			result, exit := s.handler.Handle(trimmed)
			if werr := writeResult(writer, result); werr != nil {
				log.Warnw("write failed", "error", werr)
				return
			}
			if exit {
				return
			}
		}

		if err != nil {
			return
		}
	}
}

func writeResult(w *bufio.Writer, result domain.Result) error {
	b, err := json.Marshal(result)
	if err != nil {
		b, _ = json.Marshal(domain.Result{Message: "internal error: failed to encode response"})
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}
