// Package web exposes the clippy pipelines over HTTP.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/clippit/github"
	"github.com/hazyhaar/clippit/pipeline"
)

// errorReply is the error object the original clients expect. Primary
// upstream failures are reported inside a 200 body; only bad inbound
// requests get a real error status.
type errorReply struct {
	Msg string `json:"msg"`
}

var noIssueReply = errorReply{Msg: "no issue matching request"}

type handler struct {
	github *github.Client
	svc    *pipeline.Service
}

// NewRouter wires the service's routes:
//
//	GET /health
//	GET /{owner}/{repo}/issues/{issue}
//	GET /{owner}/{repo}/issues/{issue}/clippy
//	GET /{owner}/{repo}/issues/latest/clippy?days=N
//
// An inbound "Authorization: Bearer <token>" header is forwarded to every
// upstream call.
func NewRouter(gh *github.Client, svc *pipeline.Service) http.Handler {
	h := &handler{github: gh, svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	// chi prefers the static "latest" segment over the {issue} parameter.
	r.Get("/{owner}/{repo}/issues/latest/clippy", h.clippyRecent)
	r.Get("/{owner}/{repo}/issues/{issue}", h.issue)
	r.Get("/{owner}/{repo}/issues/{issue}/clippy", h.clippyIssue)

	return r
}

func (h *handler) issue(w http.ResponseWriter, r *http.Request) {
	owner, repo, number, ok := issueParams(w, r)
	if !ok {
		return
	}
	issue, err := h.github.GetIssue(r.Context(), owner, repo, number, bearerToken(r))
	if err != nil {
		slog.Warn("issue fetch failed", "owner", owner, "repo", repo, "issue", number, "error", err)
		writeJSON(w, 200, noIssueReply)
		return
	}
	writeJSON(w, 200, issue)
}

func (h *handler) clippyIssue(w http.ResponseWriter, r *http.Request) {
	owner, repo, number, ok := issueParams(w, r)
	if !ok {
		return
	}
	outputs, err := h.svc.ClippyIssue(r.Context(), owner, repo, number, bearerToken(r))
	if err != nil {
		slog.Warn("clippy pipeline failed", "owner", owner, "repo", repo, "issue", number, "error", err)
		writeJSON(w, 200, noIssueReply)
		return
	}
	writeOutputs(w, outputs)
}

func (h *handler) clippyRecent(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, 401, errorReply{Msg: "listing recent issues requires a bearer token"})
		return
	}
	days := queryInt(r, "days", pipeline.DefaultRecentDays)

	outputs, err := h.svc.ClippyRecent(r.Context(), owner, repo, days, token)
	if err != nil {
		if errors.Is(err, github.ErrTokenRequired) {
			writeJSON(w, 401, errorReply{Msg: err.Error()})
			return
		}
		slog.Warn("recent pipeline failed", "owner", owner, "repo", repo, "error", err)
		writeJSON(w, 200, noIssueReply)
		return
	}
	writeOutputs(w, outputs)
}

// issueParams pulls owner/repo/issue out of the route. A non-numeric issue
// segment is the caller's mistake, not an upstream one.
func issueParams(w http.ResponseWriter, r *http.Request) (owner, repo string, number int, ok bool) {
	owner = chi.URLParam(r, "owner")
	repo = chi.URLParam(r, "repo")
	number, err := strconv.Atoi(chi.URLParam(r, "issue"))
	if err != nil {
		writeJSON(w, 400, errorReply{Msg: "issue number must be numeric"})
		return "", "", 0, false
	}
	return owner, repo, number, true
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
// The scheme is matched case-insensitively; anything else yields no token.
func bearerToken(r *http.Request) string {
	v := r.Header.Get("Authorization")
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return v[7:]
	}
	return ""
}

func writeOutputs(w http.ResponseWriter, outputs []pipeline.Output) {
	if outputs == nil {
		outputs = []pipeline.Output{}
	}
	writeJSON(w, 200, outputs)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// requestLog logs one line per request via slog.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
