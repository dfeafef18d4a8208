// Package controlserver implements a line-delimited JSON-RPC 2.0 server
// that exposes repository, pull-request, and branch operations over TCP,
// one connection at a time, for operators and sidecar tooling.
package controlserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/agpm-go/agpm/internal/domain/model"
)

// Backend is the capability set the control server dispatches requests
// against. github.Client satisfies it directly.
type Backend interface {
	ListRepositories(ctx context.Context) ([]model.RepoRef, error)
	ListBranches(ctx context.Context, repo model.RepoRef) ([]model.Branch, error)
	ListPullRequests(ctx context.Context, repo model.RepoRef, includeMerged bool, perPage int, since time.Duration) ([]model.PullRequest, error)
	MergePullRequest(ctx context.Context, repo model.RepoRef, number int) (bool, error)
	ClosePullRequest(ctx context.Context, repo model.RepoRef, number int) (bool, error)
	DeleteBranch(ctx context.Context, repo model.RepoRef, ref string) (bool, error)
}

// EventSink receives a human-readable line for every accept/parse/request/
// response/error, for operators to mirror to logs or a sidecar display.
type EventSink func(message string)

// Options configures a Server's listening socket and session limits.
type Options struct {
	Bind       string
	Port       int
	Backlog    int
	MaxClients int
	Sink       EventSink
	Logger     *slog.Logger
}

// Server is the control-server acceptor. One connection is served at a
// time; after MaxClients connections have been fully handled (MaxClients
// <= 0 means unbounded) the listener is closed and Run returns.
type Server struct {
	backend Backend
	opts    Options
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
}

// NewServer constructs a Server bound to backend. Backlog is advisory; Go's
// net package does not expose a listen backlog knob directly, so it is
// surfaced only through the event sink for operator visibility.
func NewServer(backend Backend, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{backend: backend, opts: opts, logger: logger}
}

// Run listens on opts.Bind:opts.Port and serves connections sequentially
// until ctx is cancelled, Shutdown is called, or MaxClients connections
// have been handled. Accept errors encountered while shutting down are not
// returned.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.opts.Bind, s.opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.emit(fmt.Sprintf("control server listening on %s (backlog=%d, max_clients=%d)", addr, s.opts.Backlog, s.opts.MaxClients))

	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()

	handled := 0
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return nil
			}
			s.emit("accept error: " + err.Error())
			return fmt.Errorf("accepting connection: %w", err)
		}

		s.emit("accepted connection from " + conn.RemoteAddr().String())
		done := s.handleConn(ctx, conn)
		handled++

		if done || (s.opts.MaxClients > 0 && handled >= s.opts.MaxClients) {
			_ = s.Shutdown()
			return nil
		}
	}
}

// Shutdown closes the listening socket, unblocking Accept. Idempotent.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) emit(message string) {
	s.logger.Debug("control server event", "message", message)
	if s.opts.Sink != nil {
		s.opts.Sink(message)
	}
}

// handleConn serves one connection to completion, reading line-delimited
// JSON-RPC requests until EOF or a shutdown method is handled. It returns
// true if the session ended via the shutdown method.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) (shutdownRequested bool) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		var req request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.emit("parse error: " + err.Error())
			_ = enc.Encode(errorResponse(nil, codeParseError, "parse error: "+err.Error()))
			continue
		}

		s.emit("request: " + req.Method)
		resp, stop := s.dispatch(ctx, req)
		shutdownRequested = shutdownRequested || stop

		if req.isNotification() {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			s.emit("send error: " + err.Error())
			return shutdownRequested
		}
		s.emit("response sent for: " + req.Method)

		if shutdownRequested {
			return true
		}
	}

	if err := scanner.Err(); err != nil {
		s.emit("connection read error: " + err.Error())
	}
	return shutdownRequested
}
