package http

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"pocketbook/internal/core"
	"pocketbook/internal/session"
)

// listData drives the transaction list partial.
type listData struct {
	Transactions []core.Transaction
	SelectedID   string
	Mode         string
	Currency     string
}

func (s *Server) renderList(w http.ResponseWriter, r *http.Request, sess *session.Session, builder *HTMXResponseBuilder) {
	txs, err := s.transactions(r.Context(), sess.AccountID)
	if err != nil {
		slog.Error("Failed to load transactions", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to load transactions").Write(w)
		return
	}

	profile, err := s.store.Profile(r.Context(), sess.AccountID)
	if err != nil {
		slog.Error("Failed to load profile", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to load profile").Write(w)
		return
	}

	mode, selected := sess.View.Current()
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "transaction_list.html", listData{
		Transactions: txs,
		SelectedID:   selected,
		Mode:         string(mode),
		Currency:     profile.Currency,
	}); err != nil {
		slog.Error("Failed to render transaction list", "error", err)
		InternalServerError("render failed").Write(w)
		return
	}

	if builder == nil {
		builder = NewHTMXResponse()
	}
	builder.BodyHTML(buf.String()).Write(w)
}

func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	s.renderList(w, r, sess, nil)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
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

	tx, err := parseTransactionForm(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	tx.ID = "" // IDs are assigned by the store

	if err := tx.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	txID, err := s.store.AddTransaction(r.Context(), sess.AccountID, tx)
	if err != nil {
		slog.Error("Failed to add transaction", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to save transaction").Write(w)
		return
	}
	s.logger.LogTransactionWrite(r.Context(), "create", sess.AccountID, txID, string(tx.Kind), tx.Amount.StringFixed(2))
	s.summaryCache.Delete(sess.AccountID)
	if err := s.refreshSnapshot(r.Context(), sess.AccountID); err != nil {
		slog.Warn("Snapshot refresh failed", "error", err, "account_id", sess.AccountID)
	}

	s.renderList(w, r, sess, NewHTMXResponse().
		TriggerSummaryRefresh().
		TriggerFormReset().
		TriggerSuccessNotification("Transaction saved"))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
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
	txID := strings.TrimSpace(r.FormValue("id"))
	if txID == "" {
		BadRequestError("missing transaction id").Write(w)
		return
	}

	// Selecting the already-selected row toggles it off.
	sess.View.Select(txID)
	s.renderList(w, r, sess, nil)
}

func (s *Server) handleEditModal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	txID := sess.View.StartEdit()
	if txID == "" {
		BadRequestError("select a transaction first").Write(w)
		return
	}

	txs, err := s.transactions(r.Context(), sess.AccountID)
	if err != nil {
		slog.Error("Failed to load transactions", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to load transactions").Write(w)
		return
	}
	for _, tx := range txs {
		if tx.ID == txID {
			s.render(w, "edit_modal.html", tx)
			return
		}
	}

	// The selected row vanished underneath us, likely via another session.
	sess.View.Reset()
	NotFoundError("transaction no longer exists").Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
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

	tx, err := parseTransactionForm(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if tx.ID == "" {
		BadRequestError("missing transaction id").Write(w)
		return
	}
	if err := tx.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if err := s.store.UpdateTransaction(r.Context(), sess.AccountID, tx); err != nil {
		if errors.Is(err, core.ErrTransactionMissing) {
			sess.View.Reset()
			NotFoundError("transaction no longer exists").Write(w)
			return
		}
		slog.Error("Failed to update transaction", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to update transaction").Write(w)
		return
	}
	sess.View.FinishEdit()
	s.logger.LogTransactionWrite(r.Context(), "update", sess.AccountID, tx.ID, string(tx.Kind), tx.Amount.StringFixed(2))
	s.summaryCache.Delete(sess.AccountID)
	if err := s.refreshSnapshot(r.Context(), sess.AccountID); err != nil {
		slog.Warn("Snapshot refresh failed", "error", err, "account_id", sess.AccountID)
	}

	s.renderList(w, r, sess, NewHTMXResponse().
		TriggerSummaryRefresh().
		TriggerModalClose().
		TriggerSuccessNotification("Transaction updated"))
}

func (s *Server) handleRequestDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	txID := sess.View.RequestDelete()
	if txID == "" {
		BadRequestError("select a transaction first").Write(w)
		return
	}
	s.render(w, "confirm_delete.html", txID)
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	txID := sess.View.ConfirmDelete()
	if txID == "" {
		BadRequestError("no pending deletion").Write(w)
		return
	}

	// Deleting an already-gone transaction is a no-op by contract.
	if err := s.store.DeleteTransaction(r.Context(), sess.AccountID, txID); err != nil {
		slog.Error("Failed to delete transaction", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to delete transaction").Write(w)
		return
	}
	s.logger.LogTransactionWrite(r.Context(), "delete", sess.AccountID, txID, "", "")
	s.summaryCache.Delete(sess.AccountID)
	if err := s.refreshSnapshot(r.Context(), sess.AccountID); err != nil {
		slog.Warn("Snapshot refresh failed", "error", err, "account_id", sess.AccountID)
	}

	s.renderList(w, r, sess, NewHTMXResponse().
		TriggerSummaryRefresh().
		TriggerModalClose().
		TriggerSuccessNotification("Transaction deleted"))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	sess.View.Cancel()
	s.renderList(w, r, sess, NewHTMXResponse().TriggerModalClose())
}
