package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/analysis"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/export"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/parser"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/pipeline"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/source"
)

// CookieName carries the session id.
const CookieName = "iw58_session"

// Options configures a Server.
type Options struct {
	// User and Password enable the credential gate when both are set.
	User     string
	Password string
	Logger   *slog.Logger
}

// Server is the HTTP surface over one pipeline.
type Server struct {
	pipe     *pipeline.Pipeline
	sessions *pipeline.SessionStore
	user     string
	password string
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New wires the routes.
func New(p *pipeline.Pipeline, sessions *pipeline.SessionStore, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		pipe:     p,
		sessions: sessions,
		user:     opts.User,
		password: opts.Password,
		logger:   opts.Logger,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /logout", s.handleLogout)
	s.mux.HandleFunc("GET /api/states", s.gated(s.handleStates))
	s.mux.HandleFunc("POST /api/selection", s.gated(s.handleSelection))
	s.mux.HandleFunc("GET /api/report", s.gated(s.handleReport))
	s.mux.HandleFunc("POST /api/refresh", s.gated(s.handleRefresh))
	s.mux.HandleFunc("GET /export.csv", s.gated(s.handleExport(".csv", export.ContentTypeCSV, export.WriteCSV)))
	s.mux.HandleFunc("GET /export.xlsx", s.gated(s.handleExport(".xlsx", export.ContentTypeXLSX, export.WriteXLSX)))
	s.mux.HandleFunc("GET /{$}", s.gated(s.handleIndex))
	return s
}

// ServeHTTP implements http.Handler with request logging.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rid := uuid.NewString()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	rec.Header().Set("X-Request-Id", rid)
	s.mux.ServeHTTP(rec, r)
	s.logger.Info("http request", "request_id", rid, "method", r.Method, "path", r.URL.Path,
		"status", rec.status, "duration", time.Since(start))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) gateEnabled() bool { return s.user != "" && s.password != "" }

// session returns the caller's stored session. Requests without a known
// cookie get an unstored draft; nothing is kept until they select or log in.
func (s *Server) session(r *http.Request) (pipeline.Session, bool) {
	if c, err := r.Cookie(CookieName); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess, true
		}
	}
	return s.sessions.Draft(), false
}

func setSessionCookie(w http.ResponseWriter, sess pipeline.Session) {
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: sess.ID, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

func (s *Server) gated(h func(http.ResponseWriter, *http.Request, pipeline.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := s.session(r)
		if s.gateEnabled() && !sess.Authenticated {
			writeError(w, http.StatusUnauthorized, errors.New("login required"))
			return
		}
		h(w, r, sess)
	}
}

type credentials struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.session(r)
	var in credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode credentials: %w", err))
			return
		}
	} else {
		in.User, in.Password = r.FormValue("user"), r.FormValue("password")
	}
	if s.gateEnabled() && !s.checkCredentials(in) {
		s.logger.Warn("login rejected", "session", sess.ID, "user", in.User)
		writeError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}
	// Login always issues a new id; the presented one is dropped.
	sess = s.sessions.Rotate(sess, func(x *pipeline.Session) { x.Authenticated = true })
	setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, map[string]any{"session": sess.ID, "authenticated": true})
}

func (s *Server) checkCredentials(in credentials) bool {
	u := subtle.ConstantTimeCompare([]byte(in.User), []byte(s.user))
	p := subtle.ConstantTimeCompare([]byte(in.Password), []byte(s.password))
	return u&p == 1
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		s.sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request, sess pipeline.Session) {
	states, err := s.pipe.States(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": states, "selection": sess.Selection})
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request, sess pipeline.Session) {
	var in struct {
		State string `json:"state"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode selection: %w", err))
			return
		}
	} else {
		in.State = r.FormValue("state")
	}
	updated, ok := s.sessions.Update(sess.ID, func(x *pipeline.Session) { x.Select(in.State) })
	if !ok {
		updated = s.sessions.Rotate(sess, func(x *pipeline.Session) { x.Select(in.State) })
		setSessionCookie(w, updated)
	}
	writeJSON(w, http.StatusOK, map[string]any{"selection": updated.Selection})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, sess pipeline.Session) {
	rep, err := s.pipe.Run(r.Context(), sess)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, _ pipeline.Session) {
	snap, err := s.pipe.Refresh(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loaded_at": snap.LoadedAt,
		"records":   snap.Dataset.Len(),
		"undated":   snap.Dataset.Undated,
		"warnings":  snap.Warnings,
	})
}

func (s *Server) handleExport(ext, contentType string, write func(io.Writer, *analysis.Dataset) error) func(http.ResponseWriter, *http.Request, pipeline.Session) {
	return func(w http.ResponseWriter, r *http.Request, sess pipeline.Session) {
		rep, err := s.pipe.Run(r.Context(), sess)
		if err != nil {
			s.fail(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.FileBase()+ext))
		if err := write(w, rep.View); err != nil {
			s.logger.Error("export failed", "session", sess.ID, "format", ext, "err", err)
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, sess pipeline.Session) {
	rep, err := s.pipe.Run(r.Context(), sess)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(rep.Markdown()))
}

// fail maps pipeline errors to HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var te *source.TransportError
	var nf *source.NotFoundError
	switch {
	case errors.Is(err, analysis.ErrMissingColumns):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, parser.ErrNotTabular), errors.As(err, &te), errors.As(err, &nf):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	s.logger.Error("request failed", "status", status, "err", err)
	writeError(w, status, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
