package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"eng_portal/internal/enums"
	"eng_portal/internal/portal"
)

func (s *server) registerNav(r *mux.Router) {
	r.HandleFunc("/api/nav", s.requireAuth(s.getNavHandler)).Methods("GET")
	r.HandleFunc("/api/nav/{view}", s.requireAuth(s.navigateHandler)).Methods("POST")
	r.HandleFunc("/api/enums/{name}", s.requireAuth(s.getEnumHandler)).Methods("GET")
}

func (s *server) nav(ws *portal.Workspace) navResponse {
	return navResponse{
		Active: ws.Active(),
		Header: ws.Header(),
		Menu:   portal.Menu,
		User:   newSessionInfo(ws.Session),
	}
}

func (s *server) getNavHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.nav(workspaceFrom(r)))
}

func (s *server) navigateHandler(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)
	view, err := portal.ParseView(mux.Vars(r)["view"])
	if err != nil {
		s.httpError(w, "Navigation failed", err)
		return
	}
	if err := ws.Navigate(r.Context(), view); err != nil {
		s.httpError(w, "Navigation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, s.nav(ws))
}

// getEnumHandler returns one enumeration. A failed lookup yields an empty list.
func (s *server) getEnumHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	opts := enums.Load(r.Context(), s.client, s.logger, name)
	writeJSON(w, http.StatusOK, enumResponse{Name: name, Values: opts.Get(name)})
}
