package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"eng_portal/internal/auth"
	"eng_portal/internal/backend"
	"eng_portal/internal/form"
	"eng_portal/internal/portal"
	"eng_portal/internal/records"
	"eng_portal/internal/storage"
)

const sessionName = "session"

type server struct {
	cfg    config
	logger *zap.Logger
	store  *sessions.CookieStore
	auth   *auth.Service
	portal *portal.Registry
	client backend.Client
	now    func() time.Time
}

func newServer(cfg config, logger *zap.Logger, client backend.Client, users auth.UserStore) *server {
	store := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.Session.Secure
	store.Options.SameSite = http.SameSiteLaxMode

	svc := auth.NewService(users, logger)
	s := &server{
		cfg:    cfg,
		logger: logger,
		store:  store,
		auth:   svc,
		portal: portal.NewRegistry(client, svc, logger),
		client: client,
		now:    time.Now,
	}
	s.portal.Now = func() time.Time { return s.now() }
	return s
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.PathPrefix("/files/").Handler(http.StripPrefix("/files/", downloadOnly(http.FileServer(http.Dir(s.cfg.Storage.Dir)))))

	r.HandleFunc("/register", s.registerHandler).Methods("POST")
	r.HandleFunc("/login", s.loginHandler).Methods("POST")
	r.HandleFunc("/logout", s.logoutHandler).Methods("POST")
	r.HandleFunc("/api/check-auth", s.checkAuthHandler).Methods("GET")

	s.registerNav(r)
	registerCollection(r, s, "logs", func(ws *portal.Workspace) *portal.Section[records.DailyLog] { return ws.Logs })
	registerCollection(r, s, "actions", func(ws *portal.Workspace) *portal.Section[records.ActionItem] { return ws.Actions })
	registerCollection(r, s, "training", func(ws *portal.Workspace) *portal.Section[records.TrainingRecord] { return ws.Training })
	r.HandleFunc("/api/actions/form/attachment", s.requireAuth(s.attachmentHandler)).Methods("POST")

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.Static.Dir)))
	return r
}

// Session gate

func (s *server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	err := s.auth.SignUp(r.Context(), req.Email, req.Password, auth.Profile{FirstName: req.FirstName, Surname: req.Surname})
	if err != nil {
		s.httpError(w, "Registration failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Account created! Please log in."})
}

func (s *server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	sess, err := s.auth.SignIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		s.httpError(w, "Login failed", err)
		return
	}

	session, _ := s.store.Get(r, sessionName)
	// Logging in over a live cookie replaces its session.
	if prev, ok := sessionFromValues(session.Values); ok {
		s.auth.SignOut(r.Context(), prev)
	}
	session.Values["session_id"] = sess.ID
	session.Values["user_id"] = sess.UserID
	session.Values["email"] = sess.Email
	session.Values["first_name"] = sess.FirstName
	session.Values["surname"] = sess.Surname
	session.Values["issued_at"] = sess.IssuedAt.Unix()
	session.Values["last_activity"] = s.now().Unix()
	if err := session.Save(r, w); err != nil {
		s.httpError(w, "Session error", err)
		return
	}

	ws := s.portal.Open(r.Context(), *sess)
	writeJSON(w, http.StatusOK, s.nav(ws))
}

func (s *server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := s.store.Get(r, sessionName)
	if sess, ok := sessionFromValues(session.Values); ok {
		s.auth.SignOut(r.Context(), sess)
	}
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	session.Save(r, w)
	w.WriteHeader(http.StatusOK)
}

func (s *server) checkAuthHandler(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		s.logger.Warn("session error", zap.Error(err))
		http.Error(w, "Session error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	sess, ok := s.touch(w, r, session)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionInfo(sess))
}

// touch checks the idle timeout and refreshes last_activity. On failure it
// writes the 401 response and returns false.
func (s *server) touch(w http.ResponseWriter, r *http.Request, session *sessions.Session) (auth.Session, bool) {
	sess, ok := sessionFromValues(session.Values)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return auth.Session{}, false
	}

	lastActivity, ok := session.Values["last_activity"].(int64)
	if !ok || s.now().Sub(time.Unix(lastActivity, 0)) > s.cfg.Session.IdleTimeout {
		s.auth.SignOut(r.Context(), sess)
		session.Values = map[any]any{}
		session.Options.MaxAge = -1
		session.Save(r, w)
		http.Error(w, "Session expired", http.StatusUnauthorized)
		return auth.Session{}, false
	}

	session.Values["last_activity"] = s.now().Unix()
	if err := session.Save(r, w); err != nil {
		s.httpError(w, "Session error", err)
		return auth.Session{}, false
	}
	return sess, true
}

type workspaceKey struct{}

func (s *server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := s.store.Get(r, sessionName)
		sess, ok := s.touch(w, r, session)
		if !ok {
			return
		}
		ws := s.portal.Open(r.Context(), sess)
		next(w, r.WithContext(context.WithValue(r.Context(), workspaceKey{}, ws)))
	}
}

func workspaceFrom(r *http.Request) *portal.Workspace {
	ws, _ := r.Context().Value(workspaceKey{}).(*portal.Workspace)
	return ws
}

func sessionFromValues(v map[any]any) (auth.Session, bool) {
	id, _ := v["session_id"].(string)
	userID, _ := v["user_id"].(string)
	if id == "" || userID == "" {
		return auth.Session{}, false
	}
	email, _ := v["email"].(string)
	first, _ := v["first_name"].(string)
	surname, _ := v["surname"].(string)
	issued, _ := v["issued_at"].(int64)
	return auth.Session{
		ID:        id,
		UserID:    userID,
		Email:     email,
		FirstName: first,
		Surname:   surname,
		IssuedAt:  time.Unix(issued, 0),
	}, true
}

// Responses

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, portal.ErrNotMounted):
		return http.StatusConflict
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidSignUp),
		errors.Is(err, form.ErrRequired),
		errors.Is(err, form.ErrNotAnOption),
		errors.Is(err, form.ErrInvalidField),
		errors.Is(err, form.ErrNoAttachment),
		errors.Is(err, portal.ErrUnknownView),
		errors.Is(err, backend.ErrUnknownCollection),
		errors.Is(err, storage.ErrInvalidPath):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *server) httpError(w http.ResponseWriter, msg string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	}
	http.Error(w, msg+": "+err.Error(), code)
}

// Middleware

// downloadOnly makes browsers save uploaded files instead of rendering them
// on this origin.
func downloadOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Disposition", "attachment")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", "sandbox")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
