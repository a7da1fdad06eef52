package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"pocketbook/internal/core"
	"pocketbook/internal/summary"
)

// summaryData drives the summary panel partial.
type summaryData struct {
	Summary  summary.Summary
	Currency string
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	sum, err := s.summaryCache.GetOrCompute(sess.AccountID, func() (summary.Summary, error) {
		txs, err := s.transactions(r.Context(), sess.AccountID)
		if err != nil {
			return summary.Summary{}, err
		}
		return summary.Build(txs, time.Now()), nil
	})
	if err != nil {
		slog.Error("Failed to build summary", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to build summary").Write(w)
		return
	}

	profile, err := s.store.Profile(r.Context(), sess.AccountID)
	if err != nil {
		slog.Error("Failed to load profile", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to load profile").Write(w)
		return
	}

	s.render(w, "summary.html", summaryData{Summary: sum, Currency: profile.Currency})
}

// chartPayload is the JSON shape the dashboard charts consume. Amounts are
// rendered as fixed-point strings so the client never sees float artifacts.
type chartPayload struct {
	Weekly []chartPoint `json:"weekly"`
	Top    []chartPoint `json:"topExpenses"`
	Pie    []chartPoint `json:"spendVsIncome"`
}

type chartPoint struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	txs, err := s.transactions(r.Context(), sess.AccountID)
	if err != nil {
		slog.Error("Failed to load transactions", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to load transactions").Write(w)
		return
	}

	now := time.Now()
	payload := chartPayload{
		Weekly: make([]chartPoint, 0, 7),
		Top:    make([]chartPoint, 0, summary.TopExpenseLimit+1),
		Pie:    make([]chartPoint, 0, 2),
	}
	for _, b := range summary.WeeklySpending(txs, now) {
		payload.Weekly = append(payload.Weekly, chartPoint{Label: b.Date, Amount: b.Amount.StringFixed(2)})
	}
	for _, g := range summary.TopExpenses(txs, summary.TopExpenseLimit) {
		payload.Top = append(payload.Top, chartPoint{Label: g.Label, Amount: g.Amount.StringFixed(2)})
	}
	for _, p := range summary.SpendVsIncome(txs) {
		payload.Pie = append(payload.Pie, chartPoint{Label: p.Label, Amount: p.Amount.StringFixed(2)})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode chart data", "error", err)
	}
}

// parseResult drives the parse draft partial rendered below the entry form.
type parseResult struct {
	Transaction *core.Transaction
	Failed      bool
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form data").Write(w)
		return
	}

	text := sanitizeInput(r.FormValue("text"))
	if text == "" {
		BadRequestError("nothing to parse").Write(w)
		return
	}

	// Parsing never blocks manual entry: any failure degrades to an empty
	// draft the user fills in by hand.
	var tx *core.Transaction
	if s.parser != nil {
		tx = s.parser.ParseTransaction(r.Context(), text)
	}
	s.render(w, "parse_result.html", parseResult{Transaction: tx, Failed: tx == nil})
}
