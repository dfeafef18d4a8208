package controlserver

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agpm-go/agpm/internal/domain/model"
)

type fakeBackend struct {
	repos       []model.RepoRef
	branches    map[string][]model.Branch
	pullReqs    map[string][]model.PullRequest
	mergeResult bool
	mergeErr    error
	closeResult bool
	deleteOK    bool
}

func (f *fakeBackend) ListRepositories(ctx context.Context) ([]model.RepoRef, error) {
	return f.repos, nil
}

func (f *fakeBackend) ListBranches(ctx context.Context, repo model.RepoRef) ([]model.Branch, error) {
	return f.branches[repo.Slug()], nil
}

func (f *fakeBackend) ListPullRequests(ctx context.Context, repo model.RepoRef, includeMerged bool, perPage int, since time.Duration) ([]model.PullRequest, error) {
	return f.pullReqs[repo.Slug()], nil
}

func (f *fakeBackend) MergePullRequest(ctx context.Context, repo model.RepoRef, number int) (bool, error) {
	return f.mergeResult, f.mergeErr
}

func (f *fakeBackend) ClosePullRequest(ctx context.Context, repo model.RepoRef, number int) (bool, error) {
	return f.closeResult, nil
}

func (f *fakeBackend) DeleteBranch(ctx context.Context, repo model.RepoRef, ref string) (bool, error) {
	return f.deleteOK, nil
}

func startTestServer(t *testing.T, backend Backend) (*Server, string) {
	t.Helper()
	srv := NewServer(backend, Options{Bind: "127.0.0.1", Port: 0, Backlog: 4})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	_ = ln.Close()

	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	srv.opts.Bind = host
	srv.opts.Port = port

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = srv.Run(ctx)
	}()
	<-ready
	time.Sleep(20 * time.Millisecond)

	return srv, addr
}

func dialAndExchange(t *testing.T, addr string, req request) response {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	data, err := json.Marshal(req)
	require.NoError(t, err)
	_, err = conn.Write(append(data, '\n'))
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())

	var resp response
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	return resp
}

func TestServer_Ping(t *testing.T) {
	_, addr := startTestServer(t, &fakeBackend{})
	resp := dialAndExchange(t, addr, request{JSONRPC: "2.0", Method: "ping", ID: json.RawMessage("1")})
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"message": "pong"}, resp.Result)
}

func TestServer_MethodNotFound(t *testing.T) {
	_, addr := startTestServer(t, &fakeBackend{})
	resp := dialAndExchange(t, addr, request{JSONRPC: "2.0", Method: "bogus", ID: json.RawMessage("2")})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestServer_ListRepositories(t *testing.T) {
	backend := &fakeBackend{repos: []model.RepoRef{{Owner: "acme", Name: "widgets"}}}
	_, addr := startTestServer(t, backend)

	resp := dialAndExchange(t, addr, request{JSONRPC: "2.0", Method: "listRepositories", ID: json.RawMessage("3")})
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	repos, ok := result["repositories"].([]any)
	require.True(t, ok)
	require.Len(t, repos, 1)
}

func TestServer_MergePullRequestDeclined(t *testing.T) {
	backend := &fakeBackend{mergeResult: false}
	_, addr := startTestServer(t, backend)

	params, _ := json.Marshal(map[string]any{"owner": "acme", "repo": "widgets", "number": 7})
	resp := dialAndExchange(t, addr, request{JSONRPC: "2.0", Method: "mergePullRequest", Params: params, ID: json.RawMessage("4")})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMergeDeclined, resp.Error.Code)
}

func TestServer_InvalidParams(t *testing.T) {
	_, addr := startTestServer(t, &fakeBackend{})
	resp := dialAndExchange(t, addr, request{JSONRPC: "2.0", Method: "mergePullRequest", ID: json.RawMessage("5")})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestServer_NotificationGetsNoResponse(t *testing.T) {
	_, addr := startTestServer(t, &fakeBackend{})

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	notification, _ := json.Marshal(request{JSONRPC: "2.0", Method: "ping"})
	_, err = conn.Write(append(notification, '\n'))
	require.NoError(t, err)

	req, _ := json.Marshal(request{JSONRPC: "2.0", Method: "ping", ID: json.RawMessage("6")})
	_, err = conn.Write(append(req, '\n'))
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())
	var resp response
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	assert.Equal(t, json.RawMessage("6"), resp.ID)
}

func TestServer_Shutdown(t *testing.T) {
	_, addr := startTestServer(t, &fakeBackend{})

	resp := dialAndExchange(t, addr, request{JSONRPC: "2.0", Method: "shutdown", ID: json.RawMessage("7")})
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"acknowledged": true}, resp.Result)

	time.Sleep(50 * time.Millisecond)
	_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)
}
