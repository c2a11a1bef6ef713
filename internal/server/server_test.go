package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatrace/trackdash/internal/attribute"
	"github.com/seatrace/trackdash/internal/crossfilter"
	"github.com/seatrace/trackdash/internal/dispatcher"
	"github.com/seatrace/trackdash/internal/logging"
	"github.com/seatrace/trackdash/internal/playback"
	"github.com/seatrace/trackdash/internal/render"
	"github.com/seatrace/trackdash/internal/session"
	"github.com/seatrace/trackdash/internal/track"
	"github.com/seatrace/trackdash/pkg/core"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

type fakeTelemetry struct {
	mu      sync.Mutex
	frames  []string
	filters []crossfilter.Result
}

func (f *fakeTelemetry) WriteFrame(id string, _ playback.Frame, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, id)
	return nil
}

func (f *fakeTelemetry) WriteCrossFilter(res crossfilter.Result, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, res)
	return nil
}

type fixture struct {
	server    *Server
	handler   http.Handler
	registry  *session.Registry
	commands  *Commands
	telemetry *fakeTelemetry
}

func newFixture(t *testing.T, opts ...func(*session.Defaults)) *fixture {
	t.Helper()
	store := track.NewStore([]core.PositionSample{
		{VesselID: "a", Timestamp: t0, Latitude: 55.0, Longitude: 12.0},
		{VesselID: "a", Timestamp: t0.Add(10 * time.Minute), Latitude: 55.1, Longitude: 12.1},
		{VesselID: "a", Timestamp: t0.Add(20 * time.Minute), Latitude: 55.2, Longitude: 12.2},
		{VesselID: "b", Timestamp: t0.Add(5 * time.Minute), Latitude: 56.0, Longitude: 11.0},
		{VesselID: "b", Timestamp: t0.Add(15 * time.Minute), Latitude: 56.1, Longitude: 11.1},
	})
	table := attribute.NewTable([]core.AttributeRecord{
		{VesselID: "a", ShipType: "Cargo", NavStatus: "Moored"},
		{VesselID: "b", ShipType: "Tanker", NavStatus: "Underway"},
		{VesselID: "c", ShipType: "Cargo", NavStatus: "Underway"},
	})

	engine := playback.NewEngine(store, playback.Config{}, nil)
	defaults := session.Defaults{Vessels: store.VesselIDs()[:1], Speed: 10}
	for _, opt := range opts {
		opt(&defaults)
	}
	registry := session.NewRegistry(engine, defaults, nil)
	xf := crossfilter.NewEngine(table, nil)

	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	tel := &fakeTelemetry{}
	cmds := &Commands{Registry: registry, CrossFilter: xf, Telemetry: tel, MinSpeed: 1, MaxSpeed: 60}
	cmds.Register(d)

	srv := New(Dependencies{
		Registry:    registry,
		Dispatcher:  d,
		CrossFilter: xf,
		Renderer:    render.New(render.Config{}),
		Vessels:     store.VesselIDs(),
		Center:      store.Center(),
		MinSpeed:    1,
		MaxSpeed:    60,
		Refresh:     time.Second,
	})
	return &fixture{server: srv, handler: srv.Handler(), registry: registry, commands: cmds, telemetry: tel}
}

func (f *fixture) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthcheck(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthcheck", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":0,"vessels":2}`, rec.Body.String())
}

func TestListVessels(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/vessels", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["a","b"]`, rec.Body.String())
}

func TestDashboard_CreatesSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, 1, f.registry.Len())
	loc := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "/?session="), loc)

	rec = f.do(t, http.MethodGet, loc, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Maritime Traffic Analysis Dashboard")
	assert.Contains(t, body, "Ship a Full Path")
	assert.Contains(t, body, "Cargo (2)")
	assert.Empty(t, rec.Header().Get("Refresh"), "stopped playback does not reload")
}

func TestDashboard_SessionCap(t *testing.T) {
	f := newFixture(t, func(d *session.Defaults) { d.MaxSessions = 50 })

	var last string
	for i := 0; i < 500; i++ {
		rec := f.do(t, http.MethodGet, "/", "", "")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		last = rec.Header().Get("Location")
	}
	assert.Equal(t, 50, f.registry.Len())

	rec := f.do(t, http.MethodGet, last, "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "newest session survives")
}

func TestDashboard_RefreshWhileRunning(t *testing.T) {
	f := newFixture(t)
	sess := f.registry.Create()
	sess.Toggle()

	rec := f.do(t, http.MethodGet, "/?session="+sess.ID(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Refresh"))
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/sessions", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[PlaybackView](t, rec)
	require.NotEmpty(t, created.Status.ID)
	require.NotNil(t, created.Frame)
	assert.Equal(t, "a", created.Frame.Overlays[0].VesselID)

	rec = f.do(t, http.MethodGet, "/api/playback?session="+created.Status.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/sessions/"+created.Status.ID, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/sessions/"+created.Status.ID, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayback_UnknownSession(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{"/api/playback/toggle", "/api/playback/toggle?session=nope"} {
		rec := f.do(t, http.MethodPost, target, "application/json", "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
	rec := f.do(t, http.MethodGet, "/api/playback?session=nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayback_JSONCommands(t *testing.T) {
	f := newFixture(t)
	sess := f.registry.Create()
	q := "?session=" + sess.ID()

	rec := f.do(t, http.MethodPost, "/api/playback/toggle"+q, "application/json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[PlaybackView](t, rec).Status.Enabled)

	rec = f.do(t, http.MethodPost, "/api/playback/speed"+q, "application/json", `{"speed": 500}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 60, decode[PlaybackView](t, rec).Status.Speed, "speed is clamped")

	rec = f.do(t, http.MethodPost, "/api/playback/vessels"+q, "application/json", `["b","zz"]`)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[PlaybackView](t, rec)
	assert.Equal(t, []core.VesselID{"b", "zz"}, view.Status.Vessels)
	require.NotNil(t, view.Frame)
	require.Len(t, view.Frame.Overlays, 1, "unknown vessels are skipped")

	rec = f.do(t, http.MethodPost, "/api/playback/drift"+q, "application/json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "drift", decode[PlaybackView](t, rec).Status.Mode)

	rec = f.do(t, http.MethodPost, "/api/playback/reset"+q, "application/json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[PlaybackView](t, rec).Status.Tick)
}

func TestPlayback_BadInput(t *testing.T) {
	f := newFixture(t)
	q := "?session=" + f.registry.Create().ID()

	rec := f.do(t, http.MethodPost, "/api/playback/speed"+q, "application/json", `{"speed": "fast"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/playback/speed"+q, "application/x-www-form-urlencoded", "speed=fast")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/playback/vessels"+q, "application/json", `{"vessels":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlayback_FormRedirects(t *testing.T) {
	f := newFixture(t)
	sess := f.registry.Create()

	form := url.Values{"vessel": {"a", "b"}, "selection": {`{"ship_type":"Cargo","nav_status":null}`}}
	rec := f.do(t, http.MethodPost, "/api/playback/vessels?session="+sess.ID(),
		"application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), loc.Query().Get("session"))
	assert.Equal(t, `{"ship_type":"Cargo","nav_status":null}`, loc.Query().Get("selection"))
	assert.Equal(t, []core.VesselID{"a", "b"}, sess.Status().Vessels)

	rec = f.do(t, http.MethodPost, "/api/playback/speed?session="+sess.ID(),
		"application/x-www-form-urlencoded", "speed=0")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, sess.Status().Speed)
}

func TestCrossFilter_JSON(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/crossfilter", "application/json",
		`{"source":"ship_type","label":"Cargo","selection":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[render.CrossFilterView](t, rec)
	assert.Equal(t, []attribute.CategoryCount{{Label: "Cargo", Count: 2}}, view.ShipType)
	assert.Equal(t, []attribute.CategoryCount{{Label: "Moored", Count: 1}, {Label: "Underway", Count: 1}}, view.NavStatus)
	assert.JSONEq(t, `{"ship_type":"Cargo","nav_status":null}`, view.Selection)

	body, err := json.Marshal(map[string]any{"source": "ship_type", "label": "Cargo", "selection": view.Selection})
	require.NoError(t, err)
	rec = f.do(t, http.MethodPost, "/api/crossfilter", "application/json", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := decode[render.CrossFilterView](t, rec)
	assert.Len(t, cleared.ShipType, 2, "same click clears the filter")

	f.telemetry.mu.Lock()
	assert.Len(t, f.telemetry.filters, 2)
	f.telemetry.mu.Unlock()
}

func TestCrossFilter_NoLabelChangesNothing(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/crossfilter", "application/json",
		`{"source":"nav_status","selection":"{\"ship_type\":\"Tanker\",\"nav_status\":null}"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[render.CrossFilterView](t, rec)
	assert.JSONEq(t, `{"ship_type":"Tanker","nav_status":null}`, view.Selection)
}

func TestCrossFilter_Form(t *testing.T) {
	f := newFixture(t)
	sess := f.registry.Create()

	form := url.Values{"nav_status": {"Underway"}, "selection": {""}}
	rec := f.do(t, http.MethodPost, "/api/crossfilter?session="+sess.ID(),
		"application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), loc.Query().Get("session"))
	assert.JSONEq(t, `{"ship_type":null,"nav_status":"Underway"}`, loc.Query().Get("selection"))

	rec = f.do(t, http.MethodGet, rec.Header().Get("Location"), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tanker (1)")
}

func TestCrossFilter_BadJSON(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/crossfilter", "application/json", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/playback/toggle", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
