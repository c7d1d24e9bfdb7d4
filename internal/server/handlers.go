package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nikbrunner/minimark/internal/checker"
	"github.com/nikbrunner/minimark/internal/exporter"
	"github.com/nikbrunner/minimark/internal/logger"
	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/service"
	"github.com/nikbrunner/minimark/internal/view"
)

// item is the wire shape of a bookmark: the export record plus the
// transient flags a client needs to render progress.
type item struct {
	model.Record
	Loading bool `json:"loading"`
	Pending bool `json:"pending"`
}

func toItem(b model.Bookmark) item {
	return item{Record: b.Record(), Loading: b.Loading, Pending: b.Pending}
}

func toItems(bs []model.Bookmark) []item {
	out := make([]item, len(bs))
	for i, b := range bs {
		out[i] = toItem(b)
	}
	return out
}

type checkResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Title        string `json:"title"`
	TitleChanged bool   `json:"titleChanged"`
	Skipped      bool   `json:"skipped"`
}

type addLinkRequest struct {
	URL      string  `json:"url"`
	ParentID *string `json:"parentId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"items":  len(s.svc.Items()),
	})
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sortKey, err := view.ParseSortKey(q.Get("sort"))
	if err != nil {
		s.writeError(w, badRequest(err))
		return
	}
	order, err := view.ParseGroupLinkOrder(q.Get("order"))
	if err != nil {
		s.writeError(w, badRequest(err))
		return
	}

	items := s.svc.View(view.Options{
		Scope:  scopeFrom(r),
		Search: q.Get("q"),
		Fuzzy:  queryBool(r, "fuzzy"),
		Sort:   sortKey,
		Order:  order,
	})
	writeJSON(w, http.StatusOK, toItems(items))
}

func (s *Server) breadcrumbs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Breadcrumbs(scopeFrom(r)))
}

func (s *Server) export(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="bookmarks-export.json"`)
	if err := s.svc.Export(w, exporter.FormatJSON); err != nil {
		s.log.Error("export failed", logger.Error(err))
	}
}

func (s *Server) addLink(w http.ResponseWriter, r *http.Request) {
	var req addLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, badRequest(errors.New("invalid JSON body")))
		return
	}

	p, err := s.svc.Paste(r.Context(), req.URL, req.ParentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toItem(p.Link))
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(b))
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteItem(r.Context(), chi.URLParam(r, "id"), queryBool(r, "cascade")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) click(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Click(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(b))
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Check(r.Context(), chi.URLParam(r, "id"), queryBool(r, "force"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{
		ID:           res.ID,
		Status:       string(res.Status),
		Title:        res.Title,
		TitleChanged: res.TitleChanged(),
		Skipped:      res.Skipped,
	})
}

func (s *Server) pin(w http.ResponseWriter, r *http.Request) {
	pinned, err := s.svc.TogglePin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pinned": pinned})
}

func scopeFrom(r *http.Request) view.Scope {
	if queryBool(r, "archive") {
		return view.ArchiveScope
	}
	if g := strings.TrimSpace(r.URL.Query().Get("group")); g != "" {
		return view.InGroup(g)
	}
	return view.TopLevel
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return requestError{err} }

func statusFor(err error) int {
	var reqErr requestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, model.ErrInvalidURL),
		errors.Is(err, model.ErrEmptyTitle),
		errors.Is(err, model.ErrInvalidMove),
		errors.Is(err, service.ErrUnknownParameter):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDuplicateURL),
		errors.Is(err, model.ErrArchived):
		return http.StatusConflict
	case errors.Is(err, checker.ErrClientOffline):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
