package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"budgetbuddy/internal/advisor"
	"budgetbuddy/internal/ingest"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/ledger/memory"
)

const testSecret = "test-secret-at-least-16-chars"

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	importer := ingest.NewImporter(store, ingest.NewNormalizer(ingest.DefaultToNow))
	adv, err := advisor.New(context.Background(), "", "")
	if err != nil {
		t.Fatalf("advisor.New: %v", err)
	}

	s := NewServer(":0", Deps{
		Importer:   importer,
		Aggregator: ledger.NewAggregator(store),
		Store:      store,
		Auth:       NewAuthenticator(testSecret),
		Advisor:    adv,
	})
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s, store
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func authedRequest(t *testing.T, method, target, subject string, body *bytes.Buffer) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer "+signToken(t, subject))
	return req
}

func multipartCSV(t *testing.T, csv string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "transactions.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(csv)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestAPIRejectsMissingToken(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Errorf("expected error envelope, got %s", rec.Body.String())
	}
}

func TestAPIRejectsBadToken(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	if rec := doRequest(t, s, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	// Token signed with a different key
	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"})
	forged, _ := other.SignedString([]byte("wrong-secret-wrong-secret"))
	req = httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	if rec := doRequest(t, s, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token status = %d, want 401", rec.Code)
	}
}

func TestCSVUploadAndSummary(t *testing.T) {
	s, _ := newTestServer(t)

	today := time.Now().Format("2006-01-02")
	csv := "date,description,amount,transaction_type,category\n" +
		today + ",Paycheck,2000.00,income,Salary\n" +
		today + ",Coffee,-4.50,,Food\n"

	body, contentType := multipartCSV(t, csv)
	req := authedRequest(t, http.MethodPost, "/api/csv/upload", "user-1", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(t, s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	var res ingest.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !res.Success || res.Imported != 2 || res.Skipped != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	rec = doRequest(t, s, authedRequest(t, http.MethodGet, "/api/summary", "user-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if !resp.Success {
		t.Error("success should be true")
	}
	if resp.Balance != 1995.50 {
		t.Errorf("balance = %v, want 1995.50", resp.Balance)
	}
	if resp.Summary.Income != 2000.00 || resp.Summary.Expenses != 4.50 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if resp.Summary.AllTime {
		t.Error("current month has data, all_time should be false")
	}
}

func TestCSVUploadMissingColumns(t *testing.T) {
	s, _ := newTestServer(t)

	body, contentType := multipartCSV(t, "description,category\nCoffee,Food\n")
	req := authedRequest(t, http.MethodPost, "/api/csv/upload", "user-1", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(t, s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "date") || !strings.Contains(rec.Body.String(), "amount") {
		t.Errorf("error should name missing columns, got %s", rec.Body.String())
	}
}

func TestCSVUploadMissingFileField(t *testing.T) {
	s, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no file here")
	mw.Close()

	req := authedRequest(t, http.MethodPost, "/api/csv/upload", "user-1", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if rec := doRequest(t, s, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTransactionsListAndScoping(t *testing.T) {
	s, _ := newTestServer(t)

	today := time.Now().Format("2006-01-02")
	csv := "date,description,amount\n" + today + ",Coffee,-4.50\n"
	body, contentType := multipartCSV(t, csv)
	req := authedRequest(t, http.MethodPost, "/api/csv/upload", "user-1", body)
	req.Header.Set("Content-Type", contentType)
	if rec := doRequest(t, s, req); rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", rec.Code)
	}

	rec := doRequest(t, s, authedRequest(t, http.MethodGet, "/api/transactions", "user-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var payload struct {
		Transactions []transactionResponse `json:"transactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Transactions) != 1 || payload.Transactions[0].Description != "Coffee" {
		t.Fatalf("unexpected transactions %+v", payload.Transactions)
	}
	if payload.Transactions[0].Type != "expense" {
		t.Errorf("type = %s, want expense", payload.Transactions[0].Type)
	}

	// Another user sees nothing
	rec = doRequest(t, s, authedRequest(t, http.MethodGet, "/api/transactions", "user-2", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Transactions) != 0 {
		t.Errorf("user-2 should see no transactions, got %+v", payload.Transactions)
	}
}

func TestTransactionsInvalidLimit(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, authedRequest(t, http.MethodGet, "/api/transactions?limit=9999", "user-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBankRoutesUnavailableWithoutClient(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/api/plaid/create-link-token", "/api/plaid/exchange-token", "/api/plaid/sync"} {
		req := authedRequest(t, http.MethodPost, path, "user-1", bytes.NewBufferString(`{"access_token":"tok","public_token":"tok"}`))
		rec := doRequest(t, s, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("POST %s = %d, want 503", path, rec.Code)
		}
	}
}

type capturePublisher struct {
	userIDs []string
	tokens  []string
}

func (p *capturePublisher) PublishBankSync(_ context.Context, userID, accessToken string) error {
	p.userIDs = append(p.userIDs, userID)
	p.tokens = append(p.tokens, accessToken)
	return nil
}

func TestPlaidSyncQueuesWhenPublisherConfigured(t *testing.T) {
	s, _ := newTestServer(t)
	pub := &capturePublisher{}
	s.publisher = pub

	req := authedRequest(t, http.MethodPost, "/api/plaid/sync", "user-1", bytes.NewBufferString(`{"access_token":"access-sandbox-123"}`))
	rec := doRequest(t, s, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", rec.Code, rec.Body.String())
	}
	if len(pub.userIDs) != 1 || pub.userIDs[0] != "user-1" || pub.tokens[0] != "access-sandbox-123" {
		t.Errorf("publish not recorded: %+v", pub)
	}
}

func TestInsightsUsesAggregates(t *testing.T) {
	s, _ := newTestServer(t)

	today := time.Now().Format("2006-01-02")
	csv := "date,description,amount,transaction_type,category\n" +
		today + ",Paycheck,1000.00,income,Salary\n" +
		today + ",Rent,-900.00,,Housing\n"
	body, contentType := multipartCSV(t, csv)
	req := authedRequest(t, http.MethodPost, "/api/csv/upload", "user-1", body)
	req.Header.Set("Content-Type", contentType)
	if rec := doRequest(t, s, req); rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", rec.Code)
	}

	rec := doRequest(t, s, authedRequest(t, http.MethodGet, "/api/insights", "user-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("insights status = %d, body %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Insights string `json:"insights"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(payload.Insights, "Housing") {
		t.Errorf("insights should mention top category, got %q", payload.Insights)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, authedRequest(t, http.MethodGet, "/api/csv/upload", "user-1", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if rec.Header().Get("Allow") != http.MethodPost {
		t.Errorf("Allow = %q, want POST", rec.Header().Get("Allow"))
	}
}
