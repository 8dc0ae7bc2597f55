package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"eng_portal/internal/portal"
)

// maxUploadSize bounds attachment request bodies.
const maxUploadSize = 32 << 20

type collectionHandlers[T any] struct {
	s       *server
	section func(*portal.Workspace) *portal.Section[T]
}

// registerCollection adds the form and list routes of one record kind under
// /api/<path>.
func registerCollection[T any](r *mux.Router, s *server, path string, section func(*portal.Workspace) *portal.Section[T]) {
	h := &collectionHandlers[T]{s: s, section: section}
	base := "/api/" + path

	r.HandleFunc(base+"/form", s.requireAuth(h.getFormHandler)).Methods("GET")
	r.HandleFunc(base+"/form", s.requireAuth(h.updateFormHandler)).Methods("PATCH")
	r.HandleFunc(base+"/form/submit", s.requireAuth(h.submitHandler)).Methods("POST")
	r.HandleFunc(base+"/form/cancel", s.requireAuth(h.cancelHandler)).Methods("POST")

	r.HandleFunc(base, s.requireAuth(h.listHandler)).Methods("GET")
	r.HandleFunc(base+"/export.csv", s.requireAuth(h.exportHandler)).Methods("GET")
	r.HandleFunc(base+"/sync", s.requireAuth(h.syncHandler)).Methods("POST")
	r.HandleFunc(base+"/{id}/toggle", s.requireAuth(h.toggleHandler)).Methods("POST")
	r.HandleFunc(base+"/{id}/edit", s.requireAuth(h.editHandler)).Methods("POST")
	r.HandleFunc(base+"/{id}", s.requireAuth(h.deleteHandler)).Methods("DELETE")
}

// Form handlers

func (h *collectionHandlers[T]) getFormHandler(w http.ResponseWriter, r *http.Request) {
	f, err := h.section(workspaceFrom(r)).Form()
	if err != nil {
		h.s.httpError(w, "Form unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, f.State())
}

func (h *collectionHandlers[T]) updateFormHandler(w http.ResponseWriter, r *http.Request) {
	f, err := h.section(workspaceFrom(r)).Form()
	if err != nil {
		h.s.httpError(w, "Form unavailable", err)
		return
	}
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := f.SetFields(fields); err != nil {
		h.s.httpError(w, "Error updating form", err)
		return
	}
	writeJSON(w, http.StatusOK, f.State())
}

func (h *collectionHandlers[T]) submitHandler(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	f, err := h.section(ws).Form()
	if err != nil {
		h.s.httpError(w, "Form unavailable", err)
		return
	}
	msg, err := f.Submit(r.Context())
	if err != nil {
		h.s.httpError(w, "Error saving record", err)
		return
	}
	nav := h.s.nav(ws)
	writeJSON(w, http.StatusOK, messageResponse{Message: msg, Nav: &nav})
}

func (h *collectionHandlers[T]) cancelHandler(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	f, err := h.section(ws).Form()
	if err != nil {
		h.s.httpError(w, "Form unavailable", err)
		return
	}
	f.Cancel()
	writeJSON(w, http.StatusOK, h.s.nav(ws))
}

func (s *server) attachmentHandler(w http.ResponseWriter, r *http.Request) {
	f, err := workspaceFrom(r).Actions.Form()
	if err != nil {
		s.httpError(w, "Form unavailable", err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file uploaded: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := f.Attach(r.Context(), header.Filename, file)
	if err != nil {
		s.httpError(w, "Upload failed", err)
		return
	}
	writeJSON(w, http.StatusOK, attachmentResponse{URL: url})
}

// List handlers

func (h *collectionHandlers[T]) listHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.section(workspaceFrom(r)).List()
	if err != nil {
		h.s.httpError(w, "List unavailable", err)
		return
	}
	if q, ok := r.URL.Query()["q"]; ok && len(q) > 0 {
		list.Filter(q[0])
	}
	writeJSON(w, http.StatusOK, list.Snapshot())
}

// syncHandler refetches the list. A failed fetch is logged and the stale
// rows are returned.
func (h *collectionHandlers[T]) syncHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.section(workspaceFrom(r)).List()
	if err != nil {
		h.s.httpError(w, "List unavailable", err)
		return
	}
	_ = list.Fetch(r.Context())
	writeJSON(w, http.StatusOK, list.Snapshot())
}

func (h *collectionHandlers[T]) toggleHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.section(workspaceFrom(r)).List()
	if err != nil {
		h.s.httpError(w, "List unavailable", err)
		return
	}
	list.ToggleDetail(mux.Vars(r)["id"])
	writeJSON(w, http.StatusOK, list.Snapshot())
}

func (h *collectionHandlers[T]) editHandler(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	section := h.section(ws)
	if err := section.Edit(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.s.httpError(w, "Cannot edit record", err)
		return
	}
	f, err := section.Form()
	if err != nil {
		h.s.httpError(w, "Form unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, editResponse[T]{Nav: h.s.nav(ws), Form: f.State()})
}

// deleteHandler deletes only with ?confirm=true. Without it the response is
// 428 carrying the confirmation prompt.
func (h *collectionHandlers[T]) deleteHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.section(workspaceFrom(r)).List()
	if err != nil {
		h.s.httpError(w, "List unavailable", err)
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"
	var prompt string
	deleted, err := list.Delete(r.Context(), mux.Vars(r)["id"], func(p string) bool {
		prompt = p
		return confirmed
	})
	if err != nil {
		h.s.httpError(w, "Error deleting record", err)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusPreconditionRequired, confirmResponse{Prompt: prompt})
		return
	}
	writeJSON(w, http.StatusOK, list.Snapshot())
}

func (h *collectionHandlers[T]) exportHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.section(workspaceFrom(r)).List()
	if err != nil {
		h.s.httpError(w, "List unavailable", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+list.FileName(h.s.now())+`"`)
	if err := list.ExportCSV(w); err != nil {
		h.s.logger.Error("failed to export csv", zap.Error(err))
	}
}
