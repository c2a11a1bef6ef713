// Package server exposes the dashboard page and its JSON API over HTTP.
// Every state change goes through the dispatcher.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/seatrace/trackdash/internal/crossfilter"
	"github.com/seatrace/trackdash/internal/dispatcher"
	"github.com/seatrace/trackdash/internal/render"
	"github.com/seatrace/trackdash/internal/session"
	"github.com/seatrace/trackdash/pkg/core"
)

const maxBodyBytes = 1 << 20

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Registry    *session.Registry
	Dispatcher  *dispatcher.Dispatcher
	CrossFilter *crossfilter.Engine
	Renderer    *render.Renderer
	Vessels     []core.VesselID
	Center      core.Point
	MinSpeed    int
	MaxSpeed    int
	// Refresh is how often a running dashboard reloads itself.
	Refresh time.Duration
	Logger  *slog.Logger
}

type Server struct {
	deps Dependencies
	log  *slog.Logger
}

// PlaybackView is the JSON answer of the playback endpoints.
type PlaybackView struct {
	Status session.Status    `json:"status"`
	Frame  *render.FrameView `json:"frame"`
}

type crossFilterRequest struct {
	Source    string  `json:"source"`
	Label     *string `json:"label"`
	Selection string  `json:"selection"`
}

type speedRequest struct {
	Speed int `json:"speed"`
}

func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{deps: deps, log: deps.Logger}
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.log, s.ServeMux())
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.dashboard)
	mux.HandleFunc("GET /healthcheck", s.healthcheck)
	mux.HandleFunc("GET /api/vessels", s.listVessels)
	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.deleteSession)
	mux.HandleFunc("GET /api/playback", s.showPlayback)
	mux.HandleFunc("POST /api/playback/toggle", s.playbackCommand(dispatcher.CmdToggle, noArgs))
	mux.HandleFunc("POST /api/playback/drift", s.playbackCommand(dispatcher.CmdDrift, noArgs))
	mux.HandleFunc("POST /api/playback/reset", s.playbackCommand(dispatcher.CmdReset, noArgs))
	mux.HandleFunc("POST /api/playback/vessels", s.playbackCommand(dispatcher.CmdVessels, vesselArgs))
	mux.HandleFunc("POST /api/playback/speed", s.playbackCommand(dispatcher.CmdSpeed, speedArgs))
	mux.HandleFunc("POST /api/crossfilter", s.crossFilter)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status and duration.
func LoggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Debug("HTTP request",
			"method", r.Method,
			"uri", r.RequestURI,
			"status", lrw.statusCode,
			"durationMs", float64(time.Since(start).Nanoseconds())/1e6)
	})
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		s.writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidArgs):
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatcher.ErrBusy):
		s.writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("Request failed", "error", err)
		s.writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func dashboardURL(sessionID, selection string) string {
	q := url.Values{}
	q.Set("session", sessionID)
	if selection != "" {
		q.Set("selection", selection)
	}
	return "/?" + q.Encode()
}

func (s *Server) healthcheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.deps.Registry.Len(),
		"vessels":  len(s.deps.Vessels),
	})
}

func (s *Server) listVessels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Vessels)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := s.deps.Registry.Create()
	s.writeJSON(w, http.StatusCreated, s.playbackView(sess))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.deps.Registry.Get(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.deps.Registry.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) playbackView(sess *session.Session) PlaybackView {
	v := PlaybackView{Status: sess.Status()}
	if frame, ok := sess.Frame(); ok {
		fv := render.NewFrameView(frame)
		v.Frame = &fv
	}
	return v
}

func (s *Server) showPlayback(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Registry.Get(r.URL.Query().Get("session"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.playbackView(sess))
}

// argsFunc extracts dispatcher arguments from a request.
type argsFunc func(r *http.Request, asJSON bool) ([]string, error)

func noArgs(*http.Request, bool) ([]string, error) {
	return nil, nil
}

// vesselArgs reads a JSON list of IDs or repeated "vessel" form fields.
func vesselArgs(r *http.Request, asJSON bool) ([]string, error) {
	if !asJSON {
		return r.PostForm["vessel"], nil
	}
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		return nil, errors.Join(ErrInvalidArgs, err)
	}
	return ids, nil
}

// speedArgs reads {"speed": n} or the "speed" form field.
func speedArgs(r *http.Request, asJSON bool) ([]string, error) {
	if !asJSON {
		return []string{r.PostForm.Get("speed")}, nil
	}
	var req speedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(ErrInvalidArgs, err)
	}
	return []string{strconv.Itoa(req.Speed)}, nil
}

// playbackCommand dispatches cmd for the session named in the query. JSON
// requests get the new playback state; form posts go back to the dashboard.
func (s *Server) playbackCommand(cmd string, args argsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		asJSON := isJSON(r)
		if !asJSON {
			if err := r.ParseForm(); err != nil {
				s.writeError(w, errors.Join(ErrInvalidArgs, err))
				return
			}
		}

		id := r.URL.Query().Get("session")
		sess, err := s.deps.Registry.Get(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		a, err := args(r, asJSON)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if _, err := s.deps.Dispatcher.Dispatch(dispatcher.Event{Command: cmd, Session: id, Args: a}); err != nil {
			s.writeError(w, err)
			return
		}

		if !asJSON {
			http.Redirect(w, r, dashboardURL(id, r.PostForm.Get("selection")), http.StatusSeeOther)
			return
		}
		s.writeJSON(w, http.StatusOK, s.playbackView(sess))
	}
}

// crossFilter accepts {"source","label","selection"} as JSON, or a form
// where the clicked button is named after its chart.
func (s *Server) crossFilter(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	asJSON := isJSON(r)

	var req crossFilterRequest
	if asJSON {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, errors.Join(ErrInvalidArgs, err))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			s.writeError(w, errors.Join(ErrInvalidArgs, err))
			return
		}
		req.Selection = r.PostForm.Get("selection")
		for _, src := range []crossfilter.EventSource{crossfilter.SourceShipType, crossfilter.SourceNavStatus} {
			if vals, ok := r.PostForm[src.String()]; ok && len(vals) > 0 {
				req.Source = src.String()
				req.Label = &vals[0]
				break
			}
		}
	}

	args := []string{req.Source, req.Selection}
	if req.Label != nil {
		args = append(args, *req.Label)
	}
	out, err := s.deps.Dispatcher.Dispatch(dispatcher.Event{
		Command: dispatcher.CmdCrossFilter,
		Session: r.URL.Query().Get("session"),
		Args:    args,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	res := out.(crossfilter.Result)

	if !asJSON {
		http.Redirect(w, r, dashboardURL(r.URL.Query().Get("session"), res.Encoded), http.StatusSeeOther)
		return
	}
	s.writeJSON(w, http.StatusOK, render.NewCrossFilterView(res))
}

// dashboard renders the page for the session in the query, creating one
// when it is missing or unknown.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess, err := s.deps.Registry.Get(q.Get("session"))
	if err != nil {
		sess = s.deps.Registry.Create()
		http.Redirect(w, r, dashboardURL(sess.ID(), q.Get("selection")), http.StatusSeeOther)
		return
	}

	st := sess.Status()
	frame, _ := sess.Frame()
	if st.Enabled && s.deps.Refresh > 0 {
		w.Header().Set("Refresh", strconv.Itoa(int(math.Ceil(s.deps.Refresh.Seconds()))))
	}

	d := render.Dashboard{
		SessionID:   st.ID,
		Vessels:     s.deps.Vessels,
		Selected:    st.Vessels,
		Speed:       st.Speed,
		MinSpeed:    s.deps.MinSpeed,
		MaxSpeed:    s.deps.MaxSpeed,
		Running:     st.Enabled,
		Frame:       frame,
		Center:      s.deps.Center,
		CrossFilter: s.deps.CrossFilter.Update(crossfilter.Event{Source: crossfilter.SourceNone}, q.Get("selection")),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.deps.Renderer.WriteDashboard(w, d); err != nil {
		s.log.Error("Failed to render dashboard", "session", st.ID, "error", err)
	}
}

