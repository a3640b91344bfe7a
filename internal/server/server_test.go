package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"sitedesk/internal/config"
	"sitedesk/internal/db"
	"sitedesk/internal/engine"
	"sitedesk/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default("proj-1")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	if _, err := e.InitProject(context.Background(), engine.ProjectCreateOptions{
		ID:      cfg.Project.ID,
		OrgID:   "org-gc",
		OrgName: "General Contractor",
		Name:    "Riverside Tower",
		ActorID: "tester",
	}); err != nil {
		t.Fatalf("init project: %v", err)
	}
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth: AuthConfig{
			JWTSecret:              "test-secret",
			AllowLegacyActorHeader: true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", "tester")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestRFILifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0/projects/proj-1"

	res, data := doJSON(t, client, http.MethodPost, base+"/rfis", map[string]any{
		"subject":         "Footing rebar size",
		"question":        "Drawing S-201 conflicts with the spec. Which governs?",
		"priority":        "high",
		"assigned_to_id":  "architect-1",
		"assigned_to_org": "org-ae",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create rfi: %d %s", res.StatusCode, string(data))
	}
	var created RFIResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal rfi: %v", err)
	}
	if created.Number != 1 || created.Status != "draft" {
		t.Fatalf("unexpected rfi: number=%d status=%s", created.Number, created.Status)
	}
	if created.BallInCourt.UserID != "tester" {
		t.Fatalf("draft court should be with creator, got %q", created.BallInCourt.UserID)
	}

	// Closing a draft is not a legal transition.
	res, data = doJSON(t, client, http.MethodPost, base+"/rfis/"+created.ID+"/close", nil, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict closing draft, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/rfis/"+created.ID+"/submit", map[string]any{}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("submit rfi: %d %s", res.StatusCode, string(data))
	}
	var submitted RFIResponse
	_ = json.Unmarshal(data, &submitted)
	if submitted.Status != "submitted" || submitted.SubmittedAt == nil || submitted.ResponseDueDate == nil {
		t.Fatalf("submit did not stamp workflow fields: %+v", submitted)
	}
	if submitted.BallInCourt.UserID != "architect-1" {
		t.Fatalf("submitted court should be with assignee, got %q", submitted.BallInCourt.UserID)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/court/architect-1", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("court: %d %s", res.StatusCode, string(data))
	}
	var court []CourtEntryResponse
	if err := json.Unmarshal(data, &court); err != nil {
		t.Fatalf("unmarshal court: %v", err)
	}
	if len(court) != 1 || court[0].RFI.ID != created.ID {
		t.Fatalf("expected one court entry for architect-1, got %+v", court)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/rfis/"+created.ID+"/review", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("start review: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/rfis/"+created.ID+"/answer", map[string]any{
		"answer": "The drawing governs. Use #6 bars.",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("answer rfi: %d %s", res.StatusCode, string(data))
	}
	var answered RFIResponse
	_ = json.Unmarshal(data, &answered)
	if answered.Status != "answered" || answered.AnsweredAt == nil {
		t.Fatalf("answer did not stamp: %+v", answered)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/rfis/"+created.ID+"/close", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("close rfi: %d %s", res.StatusCode, string(data))
	}
}

func TestSLAMetricsOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0/projects/proj-1"

	res, data := doJSON(t, client, http.MethodPost, base+"/rfis", map[string]any{
		"subject":  "Paint color",
		"question": "Confirm finish schedule for level 2 lobby.",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create rfi: %d %s", res.StatusCode, string(data))
	}
	var created RFIResponse
	_ = json.Unmarshal(data, &created)

	if res, data = doJSON(t, client, http.MethodPost, base+"/rfis/"+created.ID+"/submit", map[string]any{}, nil); res.StatusCode != http.StatusOK {
		t.Fatalf("submit: %d %s", res.StatusCode, string(data))
	}
	if res, data = doJSON(t, client, http.MethodPost, base+"/rfis/"+created.ID+"/review", nil, nil); res.StatusCode != http.StatusOK {
		t.Fatalf("start review: %d %s", res.StatusCode, string(data))
	}
	if res, data = doJSON(t, client, http.MethodPost, base+"/rfis/"+created.ID+"/answer", map[string]any{"answer": "Finish F-3 per schedule."}, nil); res.StatusCode != http.StatusOK {
		t.Fatalf("answer: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/metrics/rfi-sla", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %d %s", res.StatusCode, string(data))
	}
	var metrics RFISLAMetricsResponse
	if err := json.Unmarshal(data, &metrics); err != nil {
		t.Fatalf("unmarshal metrics: %v", err)
	}
	if metrics.ByStatus["answered"] != 1 {
		t.Fatalf("expected one answered rfi, got %+v", metrics.ByStatus)
	}
	if metrics.ComplianceTotal != 1 || metrics.ComplianceCompliant != 1 || metrics.CompliancePercentage != 100 {
		t.Fatalf("expected full compliance, got %+v", metrics)
	}
	if metrics.OpenOverdue != 0 {
		t.Fatalf("expected no open overdue, got %d", metrics.OpenOverdue)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v0/projects/proj-1/rfis", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", res.StatusCode)
	}
}

func TestForbiddenWithoutRole(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/proj-1/rfis", map[string]any{
		"subject":  "No access",
		"question": "Should fail.",
	}, map[string]string{"X-Actor-Id": "stranger"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for actor without role, got %d %s", res.StatusCode, string(data))
	}
}

func TestDevLoginAndBearerAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v0/auth/dev/login", bytes.NewReader(mustJSON(t, map[string]any{
		"actor_id": "jwt-user",
		"org_id":   "org-gc",
		"scopes":   []string{"rfi.create", "rfi.list"},
	})))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}
	data, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login: %d %s", res.StatusCode, string(data))
	}
	var login DevLoginResponse
	if err := json.Unmarshal(data, &login); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	if login.Token == "" {
		t.Fatal("expected a token")
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/proj-1/rfis", map[string]any{
		"subject":  "Bearer created",
		"question": "Does scope-based auth work?",
	}, map[string]string{"Authorization": "Bearer " + login.Token, "X-Actor-Id": ""})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create via bearer: %d %s", res.StatusCode, string(data))
	}
	var created RFIResponse
	_ = json.Unmarshal(data, &created)
	if created.CreatedBy != "jwt-user" {
		t.Fatalf("expected creator jwt-user, got %s", created.CreatedBy)
	}
}

func TestSubmittalRevisionOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0/projects/proj-1"

	res, data := doJSON(t, client, http.MethodPost, base+"/submittals", map[string]any{
		"title":        "Curtain wall shop drawings",
		"spec_section": "08 44 00",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create submittal: %d %s", res.StatusCode, string(data))
	}
	var created SubmittalResponse
	_ = json.Unmarshal(data, &created)

	for _, step := range []map[string]any{
		{"status": "submitted"},
		{"status": "gc_review", "reviewer_org": "org-gc"},
		{"status": "revise_resubmit"},
	} {
		res, data = doJSON(t, client, http.MethodPost, base+"/submittals/"+created.ID+"/status", step, nil)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("set status %v: %d %s", step, res.StatusCode, string(data))
		}
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/submittals/"+created.ID+"/revise", nil, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("revise: %d %s", res.StatusCode, string(data))
	}
	var revised SubmittalResponse
	_ = json.Unmarshal(data, &revised)
	if revised.Revision != 2 || revised.Number != created.Number || revised.Status != "draft" {
		t.Fatalf("unexpected revision: %+v", revised)
	}
}

func TestEventListOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0/projects/proj-1"

	res, data := doJSON(t, client, http.MethodPost, base+"/rfis", map[string]any{
		"subject":  "Event trail",
		"question": "Is the audit trail written?",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create rfi: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/events?entity_kind=rfi", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events: %d %s", res.StatusCode, string(data))
	}
	var page paginatedEvents
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(page.Items) == 0 {
		t.Fatal("expected at least one rfi event")
	}
	if page.Items[0].Type != "rfi.created" {
		t.Fatalf("expected rfi.created first, got %s", page.Items[0].Type)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
