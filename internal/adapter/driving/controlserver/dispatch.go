package controlserver

import (
	"context"
	"encoding/json"

	"github.com/agpm-go/agpm/internal/domain/model"
)

// dispatch routes one decoded request to its method handler and reports
// whether the session should end after this response is flushed (true only
// for a successful shutdown call).
func (s *Server) dispatch(ctx context.Context, req request) (response, bool) {
	if req.JSONRPC != "" && req.JSONRPC != "2.0" {
		return errorResponse(req.ID, codeInvalidRequest, "jsonrpc must be \"2.0\""), false
	}

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, map[string]any{
			"protocolVersion": "0.1",
			"capabilities": map[string]bool{
				"repositories": true,
				"pullRequests": true,
				"branches":     true,
			},
		}), false

	case "ping":
		return resultResponse(req.ID, map[string]string{"message": "pong"}), false

	case "shutdown":
		return resultResponse(req.ID, map[string]bool{"acknowledged": true}), true

	case "listRepositories":
		return s.handleListRepositories(ctx, req)

	case "listBranches":
		return s.handleListBranches(ctx, req)

	case "listPullRequests":
		return s.handleListPullRequests(ctx, req)

	case "mergePullRequest":
		return s.handleMergePullRequest(ctx, req)

	case "closePullRequest":
		return s.handleClosePullRequest(ctx, req)

	case "deleteBranch":
		return s.handleDeleteBranch(ctx, req)

	default:
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method), false
	}
}

func (s *Server) handleListRepositories(ctx context.Context, req request) (response, bool) {
	repos, err := s.backend.ListRepositories(ctx)
	if err != nil {
		s.emit("listRepositories error: " + err.Error())
		return errorResponse(req.ID, codeInternal, err.Error()), false
	}

	out := make([]map[string]string, 0, len(repos))
	for _, r := range repos {
		out = append(out, map[string]string{"owner": r.Owner, "name": r.Name, "slug": r.Slug()})
	}
	return resultResponse(req.ID, map[string]any{"repositories": out}), false
}

type repoParams struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func (s *Server) handleListBranches(ctx context.Context, req request) (response, bool) {
	var params repoParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Owner == "" || params.Repo == "" {
		return errorResponse(req.ID, codeInvalidParams, "expected {owner, repo}"), false
	}

	branches, err := s.backend.ListBranches(ctx, model.RepoRef{Owner: params.Owner, Name: params.Repo})
	if err != nil {
		s.emit("listBranches error: " + err.Error())
		return errorResponse(req.ID, codeInternal, err.Error()), false
	}

	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.Ref)
	}
	return resultResponse(req.ID, map[string]any{"branches": names}), false
}

func (s *Server) handleListPullRequests(ctx context.Context, req request) (response, bool) {
	var params struct {
		Owner         string `json:"owner"`
		Repo          string `json:"repo"`
		IncludeMerged bool   `json:"includeMerged"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Owner == "" || params.Repo == "" {
		return errorResponse(req.ID, codeInvalidParams, "expected {owner, repo, includeMerged?}"), false
	}

	prs, err := s.backend.ListPullRequests(ctx, model.RepoRef{Owner: params.Owner, Name: params.Repo}, params.IncludeMerged, 0, 0)
	if err != nil {
		s.emit("listPullRequests error: " + err.Error())
		return errorResponse(req.ID, codeInternal, err.Error()), false
	}

	out := make([]map[string]any, 0, len(prs))
	for _, pr := range prs {
		out = append(out, map[string]any{
			"number": pr.Number,
			"title":  pr.Title,
			"merged": pr.Merged,
			"owner":  pr.Owner,
			"repo":   pr.Name,
		})
	}
	return resultResponse(req.ID, map[string]any{"pullRequests": out}), false
}

type prParams struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

func (s *Server) handleMergePullRequest(ctx context.Context, req request) (response, bool) {
	var params prParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Owner == "" || params.Repo == "" || params.Number == 0 {
		return errorResponse(req.ID, codeInvalidParams, "expected {owner, repo, number}"), false
	}

	ok, err := s.backend.MergePullRequest(ctx, model.RepoRef{Owner: params.Owner, Name: params.Repo}, params.Number)
	if err != nil {
		s.emit("mergePullRequest error: " + err.Error())
		return errorResponse(req.ID, codeInternal, err.Error()), false
	}
	if !ok {
		return errorResponse(req.ID, codeMergeDeclined, "merge gate blocked or remote declined"), false
	}
	return resultResponse(req.ID, map[string]bool{"merged": true}), false
}

func (s *Server) handleClosePullRequest(ctx context.Context, req request) (response, bool) {
	var params prParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Owner == "" || params.Repo == "" || params.Number == 0 {
		return errorResponse(req.ID, codeInvalidParams, "expected {owner, repo, number}"), false
	}

	ok, err := s.backend.ClosePullRequest(ctx, model.RepoRef{Owner: params.Owner, Name: params.Repo}, params.Number)
	if err != nil {
		s.emit("closePullRequest error: " + err.Error())
		return errorResponse(req.ID, codeInternal, err.Error()), false
	}
	if !ok {
		return errorResponse(req.ID, codeMergeDeclined, "remote declined to close"), false
	}
	return resultResponse(req.ID, map[string]bool{"closed": true}), false
}

func (s *Server) handleDeleteBranch(ctx context.Context, req request) (response, bool) {
	var params struct {
		Owner  string `json:"owner"`
		Repo   string `json:"repo"`
		Branch string `json:"branch"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Owner == "" || params.Repo == "" || params.Branch == "" {
		return errorResponse(req.ID, codeInvalidParams, "expected {owner, repo, branch}"), false
	}

	ok, err := s.backend.DeleteBranch(ctx, model.RepoRef{Owner: params.Owner, Name: params.Repo}, params.Branch)
	if err != nil {
		s.emit("deleteBranch error: " + err.Error())
		return errorResponse(req.ID, codeInternal, err.Error()), false
	}
	if !ok {
		return errorResponse(req.ID, codeDeleteDeclined, "branch is protected or remote declined"), false
	}
	return resultResponse(req.ID, map[string]bool{"deleted": true}), false
}
