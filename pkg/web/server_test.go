package web

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuslink/dealdesk/pkg/crm"
	"github.com/nexuslink/dealdesk/pkg/deal"
	"github.com/nexuslink/dealdesk/pkg/form"
	"github.com/nexuslink/dealdesk/pkg/status"
	"github.com/nexuslink/dealdesk/pkg/submit"
)

// testEnv is a server backed by a real store and orchestrator on a manual clock.
type testEnv struct {
	store   *form.Store
	sched   *submit.ManualScheduler
	backend *submit.SimulatedBackend
	srv     *Server
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := form.NewStore()
	sched := submit.NewManualScheduler()
	backend := submit.NewSimulatedBackend(submit.SimulatedParams{
		Scheduler: sched,
		Outcome:   submit.FixedOutcome(true),
		Latency:   time.Second,
	})
	orch := submit.New(store, backend, submit.Options{Scheduler: sched, ResetDelay: 2 * time.Second})
	t.Cleanup(orch.Close)

	sample, err := crm.LoadSample("")
	require.NoError(t, err)
	srv, err := NewServer(ServerConfig{}, ServerDeps{Store: store, Submitter: orch, Deals: backend, Sample: sample})
	require.NoError(t, err)
	handler, err := srv.Routes()
	require.NoError(t, err)
	return &testEnv{store: store, sched: sched, backend: backend, srv: srv, handler: handler}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) fill(t *testing.T) {
	t.Helper()
	fields := map[deal.Field]string{
		deal.FieldTitle:        "Annual Renewal",
		deal.FieldCompany:      "Acme Corp",
		deal.FieldContactName:  "Sarah Johnson",
		deal.FieldContactEmail: "sarah@acmecorp.com",
		deal.FieldValue:        "12500",
		deal.FieldCloseDate:    "2026-12-31",
	}
	for f, v := range fields {
		w := e.do(t, http.MethodPut, "/api/form/fields/"+string(f), fmt.Sprintf(`{"value":%q}`, v))
		require.Equal(t, http.StatusOK, w.Code, "set %s: %s", f, w.Body.String())
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(ServerConfig{}, ServerDeps{})
	require.Error(t, err)

	srv, err := NewServer(ServerConfig{Port: 8080}, ServerDeps{Store: form.NewStore(), Submitter: &fakeSubmitter{}})
	require.NoError(t, err)
	assert.NotNil(t, srv.buffer, "default buffer")
	assert.NotNil(t, srv.sample, "default sample")
}

func TestServer_HandleIndex(t *testing.T) {
	env := newTestEnv(t)

	t.Run("renders dashboard", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

		body := w.Body.String()
		assert.Contains(t, body, "Create New Deal")
		assert.Contains(t, body, "1,284")
		assert.Contains(t, body, "+12%")
		assert.Contains(t, body, "Sarah Johnson")
		assert.Contains(t, body, ">SJ<")
		assert.Contains(t, body, `<option value="Qualification" selected>`)
		assert.Contains(t, body, "Closed Lost")
		assert.Contains(t, body, `data-theme="light"`)
		assert.NotContains(t, body, "data-theme-explicit")
		assert.Contains(t, body, "sidebar-open")
	})

	t.Run("theme query sets cookie", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/?theme=dark", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `data-theme="dark" data-theme-explicit="true"`)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, themeCookie, cookies[0].Name)
		assert.Equal(t, "dark", cookies[0].Value)
	})

	t.Run("cookies restore view", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/", "",
			&http.Cookie{Name: themeCookie, Value: "dark"}, &http.Cookie{Name: sidebarCookie, Value: "closed"})
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `data-theme="dark"`)
		assert.Contains(t, body, "sidebar-closed")
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("shows field errors", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/form/submit", "")
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w = env.do(t, http.MethodGet, "/", "")
		assert.Contains(t, w.Body.String(), "Deal title is required")
		env.do(t, http.MethodPost, "/api/form/cancel", "")
	})

	t.Run("unknown path", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/other", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_SetField(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/form/fields/title", `{"value":"Renewal"}`)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[form.Snapshot](t, w)
	assert.Equal(t, "Renewal", snap.Draft.Title)
	assert.Equal(t, "Renewal", env.store.Snapshot().Draft.Title)

	w = env.do(t, http.MethodPut, "/api/form/fields/stage", `{"value":"Negotiation"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, deal.StageNegotiation, decode[form.Snapshot](t, w).Draft.Stage)

	tests := []struct {
		name, path, body string
		code             int
	}{
		{name: "unknown field", path: "/api/form/fields/budget", body: `{"value":"1"}`, code: http.StatusNotFound},
		{name: "bad body", path: "/api/form/fields/title", body: `{"value":`, code: http.StatusBadRequest},
		{name: "invalid stage", path: "/api/form/fields/stage", body: `{"value":"Won"}`, code: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPut, tc.path, tc.body)
			assert.Equal(t, tc.code, w.Code)
			assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
		})
	}
	assert.Equal(t, deal.StageNegotiation, env.store.Snapshot().Draft.Stage, "rejected edit leaves draft alone")
}

func TestServer_SubmitFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/form/submit", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[submitResponse](t, w)
	assert.Equal(t, form.OutcomeInvalid, resp.Outcome)
	assert.Len(t, resp.Form.Errors, 6)
	assert.Equal(t, status.Idle, resp.Form.Status)

	env.fill(t)
	w = env.do(t, http.MethodPost, "/api/form/submit", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	resp = decode[submitResponse](t, w)
	assert.Equal(t, form.OutcomeStarted, resp.Outcome)
	assert.Equal(t, status.Submitting, resp.Form.Status)

	w = env.do(t, http.MethodPost, "/api/form/submit", "")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, form.OutcomeBusy, decode[submitResponse](t, w).Outcome)

	require.Eventually(t, func() bool { return env.sched.Pending() == 1 }, time.Second, 5*time.Millisecond)
	env.sched.Advance(time.Second)
	require.Eventually(t, func() bool { return env.store.Snapshot().Status == status.Succeeded },
		time.Second, 5*time.Millisecond)

	w = env.do(t, http.MethodGet, "/api/form", "")
	snap := decode[form.Snapshot](t, w)
	assert.Equal(t, deal.SuccessBanner, snap.Banner)
	assert.NotEmpty(t, snap.DealID)

	w = env.do(t, http.MethodGet, "/api/deals", "")
	deals := decode[[]submit.Created](t, w)
	require.Len(t, deals, 1)
	assert.Equal(t, snap.DealID, deals[0].ID)
	assert.Equal(t, "Annual Renewal", deals[0].Deal.Title)
	assert.InDelta(t, 12500.0, deals[0].Deal.Value, 1e-9)

	w = env.do(t, http.MethodGet, "/api/stats", "")
	stats := decode[[]statView](t, w)
	require.Len(t, stats, 3)
	assert.Equal(t, crm.ActiveDealsTitle, stats[1].Title)
	assert.Equal(t, int64(65), stats[1].Value, "created deal counted")
	assert.Equal(t, "65", stats[1].Display)
	assert.Equal(t, "+5%", stats[1].Label)

	// reset timer clears the form after the success banner
	require.Eventually(t, func() bool { return env.sched.Pending() == 1 }, time.Second, 5*time.Millisecond)
	env.sched.Advance(2 * time.Second)
	snap = env.store.Snapshot()
	assert.Equal(t, status.Idle, snap.Status)
	assert.Empty(t, snap.Draft.Title)
}

func TestServer_Cancel(t *testing.T) {
	env := newTestEnv(t)
	env.fill(t)

	w := env.do(t, http.MethodPost, "/api/form/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[form.Snapshot](t, w)
	assert.Equal(t, status.Idle, snap.Status)
	assert.Empty(t, snap.Draft.Title)
	assert.Equal(t, deal.StageQualification, snap.Draft.Stage)
}

func TestServer_ReadEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("contacts", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/contacts", "")
		require.Equal(t, http.StatusOK, w.Code)
		contacts := decode[[]crm.Contact](t, w)
		require.Len(t, contacts, 3)
		assert.Equal(t, "Michael Chen", contacts[1].Name)
	})

	t.Run("deals empty", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/deals", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("activity", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/activity", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())

		env.srv.buffer.Add(NewWarnEvent(status.Idle, "backend slow"))
		w = env.do(t, http.MethodGet, "/api/activity", "")
		events := decode[[]Event](t, w)
		require.Len(t, events, 1)
		assert.Equal(t, "backend slow", events[0].Text)
		assert.Equal(t, "1", w.Header().Get("X-Total-Count"))
	})

	t.Run("activity filtered", func(t *testing.T) {
		env.srv.buffer.Add(NewStatusEvent(status.Failed, "first failure"))
		env.srv.buffer.Add(NewStatusEvent(status.Submitting, "retrying"))
		env.srv.buffer.Add(NewStatusEvent(status.Failed, "second failure"))

		w := env.do(t, http.MethodGet, "/api/activity?status=failed", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"first failure", "second failure"}, texts(decode[[]Event](t, w)))
		assert.Equal(t, "4", w.Header().Get("X-Total-Count"))

		w = env.do(t, http.MethodGet, "/api/activity?status=failed&limit=1", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"second failure"}, texts(decode[[]Event](t, w)))

		w = env.do(t, http.MethodGet, "/api/activity?limit=2", "")
		assert.Equal(t, []string{"retrying", "second failure"}, texts(decode[[]Event](t, w)))

		w = env.do(t, http.MethodGet, "/api/activity?status=succeeded", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("activity bad query", func(t *testing.T) {
		for _, q := range []string{"status=done", "limit=0", "limit=many"} {
			w := env.do(t, http.MethodGet, "/api/activity?"+q, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
	})

	t.Run("sample swap", func(t *testing.T) {
		env.srv.SetSample(&crm.Sample{Contacts: []crm.Contact{{Name: "Solo"}}})
		w := env.do(t, http.MethodGet, "/api/contacts", "")
		contacts := decode[[]crm.Contact](t, w)
		require.Len(t, contacts, 1)
		assert.Equal(t, "Solo", contacts[0].Name)
	})
}

func TestServer_StaticFiles(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		w := env.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Body.String(), path)
	}
	w := env.do(t, http.MethodGet, "/static/missing.js", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Events(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// keep changing the form until the stream is subscribed and delivers a snapshot
	go func() {
		for i := 0; ctx.Err() == nil; i++ {
			_ = env.store.SetField(deal.FieldTitle, fmt.Sprintf("deal %d", i))
			env.srv.PublishActivity(NewWarnEvent(status.Idle, "ping"))
			time.Sleep(20 * time.Millisecond)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	seen := map[string]string{}
	scanner := bufio.NewScanner(resp.Body)
	var typ string
	for scanner.Scan() && len(seen) < 2 {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			typ = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:") && typ != "":
			seen[typ] = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			typ = ""
		}
	}
	cancel()

	require.Contains(t, seen, sseSnapshot)
	require.Contains(t, seen, sseActivity)
	var snap form.Snapshot
	require.NoError(t, json.Unmarshal([]byte(seen[sseSnapshot]), &snap))
	assert.True(t, strings.HasPrefix(snap.Draft.Title, "deal "))
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(seen[sseActivity]), &ev))
	assert.Equal(t, "ping", ev.Text)
}

func TestServer_StartStop(t *testing.T) {
	port := freePort(t)
	env := newTestEnv(t)
	env.srv.cfg.Port = port

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://localhost:%d/api/form", port)) //nolint:noctx // test
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}

// fakeSubmitter records calls without touching any store.
type fakeSubmitter struct {
	outcome  form.Outcome
	submits  int
	canceled int
}

func (f *fakeSubmitter) Submit() form.Outcome {
	f.submits++
	return f.outcome
}

func (f *fakeSubmitter) Cancel() { f.canceled++ }

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}
