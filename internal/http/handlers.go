package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"budgetbuddy/internal/ingest"
	applog "budgetbuddy/internal/log"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// handleCSVUpload accepts a multipart CSV under the "file" field and runs it
// through the import pipeline for the authenticated user.
func (s *Server) handleCSVUpload(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing 'file' field")
		return
	}
	defer file.Close()

	res, err := s.importer.ImportCSV(r.Context(), user, file)
	if err != nil {
		var missing *ingest.MissingColumnsError
		switch {
		case errors.As(err, &missing):
			writeError(w, http.StatusBadRequest, missing.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusRequestTimeout, "Import cancelled")
		default:
			slog.ErrorContext(r.Context(), "CSV import failed", "error", err, "user_id", user.ID, "filename", header.Filename)
			writeError(w, http.StatusInternalServerError, "Import failed")
		}
		return
	}

	if s.advisor != nil {
		s.advisor.Invalidate(user.ID)
	}

	fields := applog.NewFields().
		WithUser(user.ID).
		WithOperation(applog.OpImport).
		WithImportResult(res.Imported, res.Skipped, res.Total)
	fields["filename"] = header.Filename
	applog.FromContext(r.Context()).InfoContext(r.Context(), "CSV imported", fields.ToSlice()...)

	writeJSON(w, http.StatusOK, res)
}

type summaryResponse struct {
	Success bool    `json:"success"`
	Balance float64 `json:"balance"`
	Summary struct {
		Income      float64 `json:"income"`
		Expenses    float64 `json:"expenses"`
		Savings     float64 `json:"savings"`
		SavingsRate float64 `json:"savings_rate"`
		AllTime     bool    `json:"all_time"`
		Year        int     `json:"year"`
		Month       int     `json:"month"`
	} `json:"summary"`
}

// handleSummary returns the all-time balance plus the summary for the
// requested month, defaulting to the current one.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year")
			return
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "Invalid month")
			return
		}
		month = m
	}

	balance, err := s.aggregator.TotalBalance(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Balance query failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Failed to compute balance")
		return
	}

	summary, err := s.aggregator.MonthlySummary(r.Context(), user.ID, year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary query failed", "error", err, "user_id", user.ID, "year", year, "month", month)
		writeError(w, http.StatusInternalServerError, "Failed to compute summary")
		return
	}

	var resp summaryResponse
	resp.Success = true
	resp.Balance = balance.Float()
	resp.Summary.Income = summary.Income.Float()
	resp.Summary.Expenses = summary.Expenses.Float()
	resp.Summary.Savings = summary.Savings.Float()
	resp.Summary.SavingsRate = summary.SavingsRate
	resp.Summary.AllTime = summary.AllTime
	resp.Summary.Year = year
	resp.Summary.Month = month
	writeJSON(w, http.StatusOK, resp)
}

type transactionResponse struct {
	ID          int64   `json:"id"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"transaction_type"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"transaction_date"`
}

// handleTransactions lists the most recent transactions, newest first.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	txs, err := s.store.QueryRecent(r.Context(), user.ID, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction query failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:          tx.ID,
			Amount:      tx.Amount.Float(),
			Type:        string(tx.Type),
			Category:    tx.Category,
			Description: tx.Description,
			Date:        tx.Date.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

// handleCreateLinkToken starts the bank link flow.
func (s *Server) handleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if s.bankClient == nil {
		writeError(w, http.StatusServiceUnavailable, "Bank sync is not configured")
		return
	}

	linkToken, err := s.bankClient.CreateLinkToken(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Link token creation failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusBadGateway, "Bank provider unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link_token": linkToken})
}

// handleExchangeToken swaps the public token from the link flow for the
// long-lived access token.
func (s *Server) handleExchangeToken(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := UserFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if s.bankClient == nil {
		writeError(w, http.StatusServiceUnavailable, "Bank sync is not configured")
		return
	}

	var req struct {
		PublicToken string `json:"public_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PublicToken == "" {
		writeError(w, http.StatusBadRequest, "Missing public_token")
		return
	}

	accessToken, err := s.bankClient.ExchangePublicToken(r.Context(), req.PublicToken)
	if err != nil {
		slog.ErrorContext(r.Context(), "Token exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "Token exchange failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": accessToken})
}

// handlePlaidSync imports the last 30 days of bank transactions. With a
// queue configured the job runs on the worker and the request returns 202;
// otherwise the sync runs inline.
func (s *Server) handlePlaidSync(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if s.syncer == nil && s.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "Bank sync is not configured")
		return
	}

	var req struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "Missing access_token")
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishBankSync(r.Context(), user.ID, req.AccessToken); err != nil {
			slog.ErrorContext(r.Context(), "Failed to enqueue sync", "error", err, "user_id", user.ID)
			writeError(w, http.StatusInternalServerError, "Failed to enqueue sync")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "queued": true})
		return
	}

	res, err := s.syncer.Sync(r.Context(), user, req.AccessToken)
	if err != nil {
		slog.ErrorContext(r.Context(), "Inline sync failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusBadGateway, "Bank sync failed")
		return
	}

	if s.advisor != nil {
		s.advisor.Invalidate(user.ID)
	}
	writeJSON(w, http.StatusOK, res)
}

// handleInsights returns advisor text derived from the user's aggregates.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if s.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "Insights are not configured")
		return
	}

	now := time.Now()
	summary, err := s.aggregator.MonthlySummary(r.Context(), user.ID, now.Year(), int(now.Month()))
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary for insights failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Failed to compute summary")
		return
	}
	byCategory, err := s.aggregator.ExpensesByCategory(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category totals for insights failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Failed to compute category totals")
		return
	}

	text, err := s.advisor.SpendingInsights(r.Context(), user.ID, summary, byCategory)
	if err != nil {
		slog.ErrorContext(r.Context(), "Insights generation failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusBadGateway, "Insights generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"insights": text})
}
