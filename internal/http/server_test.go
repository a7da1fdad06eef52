package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketbook/internal/core"
	"pocketbook/internal/session"
	"pocketbook/internal/store/file"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := file.New(t.TempDir())
	require.NoError(t, err)

	sessions := session.NewManager(time.Hour)
	t.Cleanup(sessions.Stop)

	s := NewServer(":0", st, sessions, Options{})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

// registerAccount creates an adult account through the store and returns its
// ID plus a valid session cookie.
func registerAccount(t *testing.T, s *Server) (string, *http.Cookie) {
	t.Helper()
	profile, err := s.store.RegisterUser(context.Background(), core.UserProfile{
		Name: "Dana", Age: 30, Currency: "EUR",
	}, "hunter2hunter2")
	require.NoError(t, err)

	sess := s.sessions.Create(profile.AccountID)
	return profile.AccountID, &http.Cookie{Name: sessionCookieName, Value: sess.Token}
}

func postForm(s *Server, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestIndexRedirectsWithoutSession(t *testing.T) {
	s := newTestServer(t)

	rec := get(s, "/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRegisterAndLoginFlow(t *testing.T) {
	s := newTestServer(t)

	rec := postForm(s, "/register", url.Values{
		"name":     {"Dana"},
		"password": {"hunter2hunter2"},
		"age":      {"30"},
		"currency": {"eur"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Write it down")

	var accountID string
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			sess := s.sessions.Get(c.Value)
			require.NotNil(t, sess)
			accountID = sess.AccountID
		}
	}
	require.NotEmpty(t, accountID)

	rec = postForm(s, "/login", url.Values{
		"account_id": {accountID},
		"password":   {"wrong password"},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = postForm(s, "/login", url.Values{
		"account_id": {accountID},
		"password":   {"hunter2hunter2"},
	}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestRegisterMinorRequiresGuardian(t *testing.T) {
	s := newTestServer(t)

	rec := postForm(s, "/register", url.Values{
		"name":     {"Sam"},
		"password": {"hunter2hunter2"},
		"age":      {"15"},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "guardian")

	// Phone alone satisfies the contact requirement.
	rec = postForm(s, "/register", url.Values{
		"name":           {"Sam"},
		"password":       {"hunter2hunter2"},
		"age":            {"15"},
		"guardian_phone": {"+39 333 1234567"},
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTransactionRendersList(t *testing.T) {
	s := newTestServer(t)
	_, cookie := registerAccount(t, s)

	rec := postForm(s, "/transactions", url.Values{
		"description": {"Groceries"},
		"amount":      {"42.50"},
		"date":        {"2026-08-27"},
		"kind":        {"expense"},
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Groceries")
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "summary:refresh")
}

func TestCreateTransactionRejectsBadAmount(t *testing.T) {
	s := newTestServer(t)
	_, cookie := registerAccount(t, s)

	rec := postForm(s, "/transactions", url.Values{
		"description": {"Groceries"},
		"amount":      {"not money"},
		"date":        {"2026-08-27"},
		"kind":        {"expense"},
	}, cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSelectEditUpdateFlow(t *testing.T) {
	s := newTestServer(t)
	accountID, cookie := registerAccount(t, s)

	txID, err := s.store.AddTransaction(context.Background(), accountID, core.Transaction{
		Date: core.NewDate(2026, 8, 27), Description: "Coffee", Amount: dec("3.50"), Kind: core.Expense,
	})
	require.NoError(t, err)

	// Editing with nothing selected is rejected.
	rec := get(s, "/ui/edit", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postForm(s, "/transactions/select", url.Values{"id": {txID}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "selected")

	rec = get(s, "/ui/edit", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Coffee")

	rec = postForm(s, "/transactions/update", url.Values{
		"id":          {txID},
		"description": {"Espresso"},
		"amount":      {"4.00"},
		"date":        {"2026-08-27"},
		"kind":        {"expense"},
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Espresso")

	txs, err := s.store.Transactions(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Espresso", txs[0].Description)
}

func TestWriteRendersFreshCollectionWhileWatching(t *testing.T) {
	s := newTestServer(t)
	accountID, cookie := registerAccount(t, s)

	// Start the subscription and wait for the initial (empty) snapshot to
	// land in the cache, as it would for a logged-in account.
	s.watchAccount(accountID)
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.snapMu.Lock()
		_, cached := s.snapshots[accountID]
		s.snapMu.Unlock()
		if cached || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The response to the write must include the new row even if the
	// watcher has not delivered the post-write push yet.
	rec := postForm(s, "/transactions", url.Values{
		"description": {"Groceries"},
		"amount":      {"42.50"},
		"date":        {"2026-08-27"},
		"kind":        {"expense"},
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Groceries")
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	s := newTestServer(t)
	accountID, cookie := registerAccount(t, s)

	txID, err := s.store.AddTransaction(context.Background(), accountID, core.Transaction{
		Date: core.NewDate(2026, 8, 27), Description: "Coffee", Amount: dec("3.50"), Kind: core.Expense,
	})
	require.NoError(t, err)

	rec := postForm(s, "/transactions/select", url.Values{"id": {txID}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postForm(s, "/transactions/delete", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be undone")

	// Still present until confirmed.
	txs, err := s.store.Transactions(context.Background(), accountID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	rec = postForm(s, "/transactions/delete/confirm", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	txs, err = s.store.Transactions(context.Background(), accountID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestCancelClearsSelection(t *testing.T) {
	s := newTestServer(t)
	accountID, cookie := registerAccount(t, s)

	txID, err := s.store.AddTransaction(context.Background(), accountID, core.Transaction{
		Date: core.NewDate(2026, 8, 27), Description: "Coffee", Amount: dec("3.50"), Kind: core.Expense,
	})
	require.NoError(t, err)

	postForm(s, "/transactions/select", url.Values{"id": {txID}}, cookie)
	postForm(s, "/transactions/delete", nil, cookie)
	postForm(s, "/transactions/cancel", nil, cookie)

	// Cancel resets to idle, so delete needs a fresh selection.
	rec := postForm(s, "/transactions/delete", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	postForm(s, "/transactions/select", url.Values{"id": {txID}}, cookie)
	rec = postForm(s, "/transactions/delete", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChartDataShape(t *testing.T) {
	s := newTestServer(t)
	accountID, cookie := registerAccount(t, s)

	today := core.Today(time.Now())
	_, err := s.store.AddTransaction(context.Background(), accountID, core.Transaction{
		Date: today, Description: "Salary", Amount: dec("1000"), Kind: core.Income,
	})
	require.NoError(t, err)
	_, err = s.store.AddTransaction(context.Background(), accountID, core.Transaction{
		Date: today, Description: "Rent", Amount: dec("400"), Kind: core.Expense,
	})
	require.NoError(t, err)

	rec := get(s, "/api/charts", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Weekly []struct{ Label, Amount string } `json:"weekly"`
		Top    []struct{ Label, Amount string } `json:"topExpenses"`
		Pie    []struct{ Label, Amount string } `json:"spendVsIncome"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

	assert.Len(t, payload.Weekly, 7)
	assert.Equal(t, today.String(), payload.Weekly[6].Label)
	assert.Equal(t, "400.00", payload.Weekly[6].Amount)
	require.Len(t, payload.Top, 1)
	assert.Equal(t, "Rent", payload.Top[0].Label)
	require.Len(t, payload.Pie, 2)
	assert.Equal(t, "Spent", payload.Pie[0].Label)
	assert.Equal(t, "400.00", payload.Pie[0].Amount)
	assert.Equal(t, "600.00", payload.Pie[1].Amount)
}

func TestProfileUpdateGuardianValidation(t *testing.T) {
	s := newTestServer(t)
	_, cookie := registerAccount(t, s)

	// Dropping the age under the limit without a guardian contact fails.
	rec := postForm(s, "/profile", url.Values{
		"name": {"Dana"},
		"age":  {"16"},
	}, cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "guardian")

	rec = postForm(s, "/profile", url.Values{
		"name":           {"Dana"},
		"age":            {"16"},
		"guardian_email": {"parent@example.com"},
		"cadence":        {"weekly"},
	}, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutClearsSession(t *testing.T) {
	s := newTestServer(t)
	_, cookie := registerAccount(t, s)

	rec := postForm(s, "/logout", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	assert.Nil(t, s.sessions.Get(cookie.Value))
}

func TestSecurityHeadersPresent(t *testing.T) {
	s := newTestServer(t)

	rec := get(s, "/login", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}
