package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-pkgz/lgr"
	"github.com/tmaxmax/go-sse"

	"github.com/nexuslink/dealdesk/pkg/crm"
	"github.com/nexuslink/dealdesk/pkg/deal"
	"github.com/nexuslink/dealdesk/pkg/form"
	"github.com/nexuslink/dealdesk/pkg/status"
	"github.com/nexuslink/dealdesk/pkg/submit"
)

//go:embed templates static
var content embed.FS

// sse event types.
const (
	sseSnapshot = "snapshot"
	sseActivity = "activity"
)

// maxFieldBody caps the size of a field edit request.
const maxFieldBody = 64 << 10

// Submitter starts and cancels form submissions.
type Submitter interface {
	Submit() form.Outcome
	Cancel()
}

// DealSource lists deals created in this process.
type DealSource interface {
	Deals() []submit.Created
	Count() int
}

// ServerConfig holds configuration for the web server.
type ServerConfig struct {
	Port     int  // port to listen on
	DarkMode bool // theme when the browser chose none
}

// ServerDeps are the components the server renders and drives.
type ServerDeps struct {
	Store     *form.Store
	Submitter Submitter
	Deals     DealSource
	Sample    *crm.Sample
	Buffer    *Buffer // activity history, may be nil
	Logger    lgr.L   // lgr.NoOp if nil
}

// Server provides the HTTP dashboard and API.
type Server struct {
	cfg       ServerConfig
	store     *form.Store
	submitter Submitter
	deals     DealSource
	buffer    *Buffer
	log       lgr.L
	tmpl      *template.Template
	events    *sse.Server
	srv       *http.Server

	sampleMu sync.RWMutex
	sample   *crm.Sample
}

// NewServer creates a web server. it subscribes to the store so every form change is
// pushed to connected clients as a "snapshot" event.
func NewServer(cfg ServerConfig, deps ServerDeps) (*Server, error) {
	if deps.Store == nil || deps.Submitter == nil {
		return nil, errors.New("store and submitter are required")
	}
	tmpl, err := template.New("dashboard.html").Funcs(templateFuncs).ParseFS(content, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		store:     deps.Store,
		submitter: deps.Submitter,
		deals:     deps.Deals,
		buffer:    deps.Buffer,
		log:       deps.Logger,
		tmpl:      tmpl,
		events:    &sse.Server{},
		sample:    deps.Sample,
	}
	if s.log == nil {
		s.log = lgr.NoOp
	}
	if s.buffer == nil {
		s.buffer = NewBuffer(0)
	}
	if s.sample == nil {
		s.sample = &crm.Sample{}
	}
	s.store.Subscribe(func(snap form.Snapshot) { s.publish(sseSnapshot, snap) })
	return s, nil
}

// PublishActivity pushes an activity event to connected clients.
// it is meant to be registered with Activity.OnEvent.
func (s *Server) PublishActivity(e Event) {
	data, err := e.JSON()
	if err != nil {
		s.log.Logf("[WARN] %s event: %v", sseActivity, err)
		return
	}
	s.send(sseActivity, data)
}

// SetSample replaces the dashboard sample data, e.g. after a config reload.
func (s *Server) SetSample(sample *crm.Sample) {
	s.sampleMu.Lock()
	s.sample = sample
	s.sampleMu.Unlock()
}

// Routes returns the HTTP handler with all dashboard routes.
func (s *Server) Routes() (http.Handler, error) {
	staticFS, err := fs.Sub(content, "static")
	if err != nil {
		return nil, fmt.Errorf("static filesystem: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	r.Handle("/events", s.events)

	r.Route("/api", func(r chi.Router) {
		r.Route("/form", func(r chi.Router) {
			r.Get("/", s.handleForm)
			r.Put("/fields/{field}", s.handleSetField)
			r.Post("/submit", s.handleSubmit)
			r.Post("/cancel", s.handleCancel)
		})
		r.Get("/contacts", s.handleContacts)
		r.Get("/stats", s.handleStats)
		r.Get("/deals", s.handleDeals)
		r.Get("/activity", s.handleActivity)
	})
	return r, nil
}

// Start begins listening for HTTP requests.
// blocks until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Routes()
	if err != nil {
		return err
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// event streams never finish on their own, close them before draining requests
		if err := s.events.Shutdown(shutdownCtx); err != nil {
			s.log.Logf("[DEBUG] sse shutdown: %v", err)
		}
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	err = s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("http server: %w", err)
}

// pageData holds data for the dashboard template.
type pageData struct {
	View     ViewState
	Stats    []crm.Stat
	Contacts []crm.Contact
	Form     form.Snapshot
	Stages   []deal.Stage
	Activity []Event
}

// handleIndex serves the dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sample := s.currentSample()
	data := pageData{
		View:     viewStateFrom(w, r, s.cfg.DarkMode),
		Stats:    sample.Stats,
		Contacts: sample.Contacts,
		Form:     s.store.Snapshot(),
		Stages:   deal.Stages(),
		Activity: s.buffer.Last(10),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.log.Logf("[WARN] render dashboard: %v", err)
		http.Error(w, "template execution error", http.StatusInternalServerError)
	}
}

func (s *Server) handleForm(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// fieldRequest is the body of a field edit.
type fieldRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	field, err := deal.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req fieldRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFieldBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := s.store.SetField(field, req.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// submitResponse is the reply to a submit request.
type submitResponse struct {
	Outcome form.Outcome  `json:"outcome"`
	Form    form.Snapshot `json:"form"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, _ *http.Request) {
	outcome := s.submitter.Submit()
	code := http.StatusAccepted
	switch outcome {
	case form.OutcomeBusy:
		code = http.StatusConflict
	case form.OutcomeInvalid:
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, submitResponse{Outcome: outcome, Form: s.store.Snapshot()})
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	s.submitter.Cancel()
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleContacts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.currentSample().Contacts)
}

// statView is a stat card with its display strings.
type statView struct {
	crm.Stat
	Display string    `json:"display"`
	Label   string    `json:"label"`
	Trend   crm.Trend `json:"trend"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.currentSample().Stats
	res := make([]statView, 0, len(stats))
	for _, st := range stats {
		res = append(res, statView{Stat: st, Display: st.DisplayValue(), Label: st.ChangeLabel(), Trend: st.Trend()})
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeals(w http.ResponseWriter, _ *http.Request) {
	res := []submit.Created{}
	if s.deals != nil {
		res = append(res, s.deals.Deals()...)
	}
	writeJSON(w, http.StatusOK, res)
}

// handleActivity lists buffered activity events, oldest first. ?status= keeps events recorded
// in that form status, ?limit= keeps the newest n. X-Total-Count is the unfiltered size.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	events := s.buffer.All()
	if st := r.URL.Query().Get("status"); st != "" {
		if !status.Status(st).Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", st))
			return
		}
		events = s.buffer.ByStatus(status.Status(st))
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		if n < len(events) {
			events = events[len(events)-n:]
		}
	}
	if events == nil {
		events = []Event{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(s.buffer.Count()))
	writeJSON(w, http.StatusOK, events)
}

// currentSample returns the sample with the Active Deals card bumped by deals created so far.
func (s *Server) currentSample() *crm.Sample {
	s.sampleMu.RLock()
	sample := s.sample
	s.sampleMu.RUnlock()
	if s.deals == nil {
		return sample
	}
	return sample.WithDeals(s.deals.Count())
}

// publish sends v as JSON to all event stream clients.
func (s *Server) publish(typ string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Logf("[WARN] marshal %s event: %v", typ, err)
		return
	}
	s.send(typ, data)
}

// send publishes one message of the given type to all event stream clients.
func (s *Server) send(typ string, data []byte) {
	m := &sse.Message{Type: sse.Type(typ)}
	m.AppendData(string(data))
	if err := s.events.Publish(m); err != nil {
		s.log.Logf("[DEBUG] publish %s event: %v", typ, err)
	}
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

var templateFuncs = template.FuncMap{
	"money": func(v string) string { return formatValue(v) },
	"since": func(t time.Time) string { return humanize.Time(t) },
	"fieldError": func(snap form.Snapshot, f string) string {
		return snap.Errors[deal.Field(f)].Message
	},
}
