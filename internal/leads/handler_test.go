package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/harborgate/site-api/pkg/logging"
)

type stubNotifier struct {
	enabled bool
	err     error
	sent    []*Lead
}

func (n *stubNotifier) Enabled() bool { return n.enabled }

func (n *stubNotifier) NotifyLead(_ context.Context, lead *Lead) error {
	n.sent = append(n.sent, lead)
	return n.err
}

type failingRepository struct {
	Repository
	err error
}

func (f *failingRepository) Create(context.Context, CreateLeadData) (*Lead, error) {
	return nil, f.err
}

func submit(t *testing.T, h *Handler, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	h.SubmitContact(w, req)
	return w
}

func validBody(t *testing.T) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"message": "Interested in your enterprise plan, please contact me.",
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestSubmitContactSuccess(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())

	w := submit(t, handler, validBody(t), nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID      int64  `json:"id"`
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Data.ID == 0 {
		t.Error("expected a numeric id")
	}
	if resp.Data.Message != "Contact form submitted successfully" {
		t.Errorf("unexpected message %q", resp.Data.Message)
	}

	lead, err := repo.FindByID(context.Background(), resp.Data.ID)
	if err != nil {
		t.Fatalf("lead not stored: %v", err)
	}
	if lead.Source == nil || *lead.Source != SourceContactForm {
		t.Errorf("expected source %q, got %v", SourceContactForm, lead.Source)
	}
	if lead.Locale == nil || *lead.Locale != "en" {
		t.Errorf("expected defaulted locale en, got %v", lead.Locale)
	}
	if lead.Status != "new" {
		t.Errorf("expected status new, got %q", lead.Status)
	}
}

func TestSubmitContactLogOmitsEmail(t *testing.T) {
	var buf bytes.Buffer
	logger := &logging.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	handler := NewHandler(NewInMemoryRepository(), nil, nil, logger)

	w := submit(t, handler, validBody(t), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}

	logs := buf.String()
	if !strings.Contains(logs, "lead_id") {
		t.Error("expected lead_id in the success log")
	}
	if strings.Contains(logs, "jane@example.com") {
		t.Errorf("contact address must not appear in logs:\n%s", logs)
	}
}

func TestSubmitContactNotIdempotent(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())

	first := submit(t, handler, validBody(t), nil)
	second := submit(t, handler, validBody(t), nil)
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected both submissions to succeed, got %d and %d", first.Code, second.Code)
	}

	count, err := repo.CountByStatus(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected 2 distinct rows, got %d", count)
	}
}

func TestSubmitContactInvalidJSON(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), nil, nil, logging.Default())

	w := submit(t, handler, "{", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestSubmitContactValidationErrors(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), nil, nil, logging.Default())

	body := `{"name":"","email":"not-an-email","message":"short"}`
	w := submit(t, handler, body, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Message string              `json:"message"`
			Details map[string][]string `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error.Message != "Validation failed" {
		t.Errorf("unexpected error message %q", resp.Error.Message)
	}
	for _, field := range []string{"name", "email", "message"} {
		if len(resp.Error.Details[field]) == 0 {
			t.Errorf("expected error for field %q, got %v", field, resp.Error.Details)
		}
	}
	if len(resp.Error.Details) != 3 {
		t.Errorf("expected exactly the violated fields, got %v", resp.Error.Details)
	}
}

func TestSubmitContactClientIPPriority(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())

	header := http.Header{}
	header.Set("CF-Connecting-IP", "203.0.113.7")
	header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	header.Set("User-Agent", "test-agent/1.0")
	w := submit(t, handler, validBody(t), header)
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}

	lead, _ := repo.FindByID(context.Background(), 1)
	if lead.IPAddress == nil || *lead.IPAddress != "203.0.113.7" {
		t.Errorf("expected edge header to win, got %v", lead.IPAddress)
	}
	if lead.UserAgent == nil || *lead.UserAgent != "test-agent/1.0" {
		t.Errorf("unexpected user agent %v", lead.UserAgent)
	}

	// Without the edge header the first forwarded-for entry wins.
	header = http.Header{}
	header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	w = submit(t, handler, validBody(t), header)
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}
	lead, _ = repo.FindByID(context.Background(), 2)
	if lead.IPAddress == nil || *lead.IPAddress != "198.51.100.1" {
		t.Errorf("expected first forwarded-for entry, got %v", lead.IPAddress)
	}

	// No proxy headers at all: IP and user agent stored as NULL.
	w = submit(t, handler, validBody(t), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}
	lead, _ = repo.FindByID(context.Background(), 3)
	if lead.IPAddress != nil {
		t.Errorf("expected nil ip, got %v", *lead.IPAddress)
	}
}

func TestSubmitContactStoreUnavailable(t *testing.T) {
	unavailable := &StoreError{Op: "create", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	handler := NewHandler(&failingRepository{err: unavailable}, nil, nil, logging.Default())

	w := submit(t, handler, validBody(t), nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("internal error detail leaked to caller")
	}
}

func TestSubmitContactStoreError(t *testing.T) {
	handler := NewHandler(&failingRepository{err: &StoreError{Op: "create", Err: errors.New("boom")}}, nil, nil, logging.Default())

	w := submit(t, handler, validBody(t), nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Error("internal error detail leaked to caller")
	}
}

func TestSubmitContactNotificationFailureDoesNotAlterResponse(t *testing.T) {
	notifier := &stubNotifier{enabled: true, err: errors.New("smtp down")}
	handler := NewHandler(NewInMemoryRepository(), notifier, nil, logging.Default())

	w := submit(t, handler, validBody(t), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d despite notify failure, got %d", http.StatusCreated, w.Code)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification attempt, got %d", len(notifier.sent))
	}
}

func TestSubmitContactDisabledNotifierSkipped(t *testing.T) {
	notifier := &stubNotifier{enabled: false}
	handler := NewHandler(NewInMemoryRepository(), notifier, nil, logging.Default())

	w := submit(t, handler, validBody(t), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("expected no notification attempt, got %d", len(notifier.sent))
	}
}

func adminRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/leads", h.ListLeads)
	r.Get("/api/leads/stats", h.LeadStats)
	r.Get("/api/leads/{id}", h.GetLead)
	r.Patch("/api/leads/{id}/status", h.UpdateLeadStatus)
	r.Delete("/api/leads/{id}", h.DeleteLead)
	return r
}

func seedLeads(t *testing.T, repo Repository, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := repo.Create(context.Background(), CreateLeadData{
			Name:    "Jane Doe",
			Email:   "jane@example.com",
			Message: "Interested in your enterprise plan, please contact me.",
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestListLeads(t *testing.T) {
	repo := NewInMemoryRepository()
	seedLeads(t, repo, 3)
	r := adminRouter(NewHandler(repo, nil, nil, logging.Default()))

	req := httptest.NewRequest(http.MethodGet, "/api/leads?limit=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var resp struct {
		Data struct {
			Leads []*Lead `json:"leads"`
			Count int     `json:"count"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Count != 2 {
		t.Errorf("expected 2 leads, got %d", resp.Data.Count)
	}
}

func TestGetLeadNotFound(t *testing.T) {
	r := adminRouter(NewHandler(NewInMemoryRepository(), nil, nil, logging.Default()))

	req := httptest.NewRequest(http.MethodGet, "/api/leads/42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateLeadStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	seedLeads(t, repo, 1)
	r := adminRouter(NewHandler(repo, nil, nil, logging.Default()))

	req := httptest.NewRequest(http.MethodPatch, "/api/leads/1/status", bytes.NewReader([]byte(`{"status":"contacted"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	lead, _ := repo.FindByID(context.Background(), 1)
	if lead.Status != "contacted" {
		t.Errorf("expected status contacted, got %q", lead.Status)
	}
}

func TestDeleteLead(t *testing.T) {
	repo := NewInMemoryRepository()
	seedLeads(t, repo, 1)
	r := adminRouter(NewHandler(repo, nil, nil, logging.Default()))

	req := httptest.NewRequest(http.MethodDelete, "/api/leads/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if _, err := repo.FindByID(context.Background(), 1); !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("expected lead gone, got %v", err)
	}
}

func TestLeadStats(t *testing.T) {
	repo := NewInMemoryRepository()
	seedLeads(t, repo, 2)
	r := adminRouter(NewHandler(repo, nil, nil, logging.Default()))

	req := httptest.NewRequest(http.MethodGet, "/api/leads/stats?status=new", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var resp struct {
		Data struct {
			Count int64 `json:"count"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Count != 2 {
		t.Errorf("expected count 2, got %d", resp.Data.Count)
	}
}
