package http

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pocketbook/internal/core"
	"pocketbook/internal/session"
)

const sessionCookieName = "pocketbook_session"

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// currentSession resolves the session cookie, nil when absent or expired.
func (s *Server) currentSession(r *http.Request) *session.Session {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	return s.sessions.Get(c.Value)
}

// requireSession resolves the session or redirects to the login page.
// Partial requests get a 401 instead so HTMX surfaces the expiry.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := s.currentSession(r)
	if sess != nil {
		return sess
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return nil
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return nil
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// parseTransactionForm builds a transaction from the submitted form fields.
// The returned transaction still needs Validate before it reaches the store.
func parseTransactionForm(r *http.Request) (core.Transaction, error) {
	desc := sanitizeInput(r.FormValue("description"))

	amount, err := core.ParseAmount(r.FormValue("amount"))
	if err != nil {
		return core.Transaction{}, err
	}

	date, err := core.ParseDate(r.FormValue("date"))
	if err != nil {
		return core.Transaction{}, err
	}

	kind := core.Kind(strings.TrimSpace(r.FormValue("kind")))
	if !kind.Valid() {
		return core.Transaction{}, core.ErrInvalidKind
	}

	return core.Transaction{
		ID:          strings.TrimSpace(r.FormValue("id")),
		Date:        date,
		Description: desc,
		Amount:      amount,
		Kind:        kind,
	}, nil
}

// templateFuncs are the helpers available inside every template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatAmount": func(d decimal.Decimal, currency string) string {
			return core.FormatAmount(d, currency)
		},
		"formatSigned": func(t core.Transaction, currency string) string {
			s := core.FormatAmount(t.Amount, currency)
			if t.Kind == core.Expense {
				return "-" + s
			}
			return "+" + s
		},
		"isExpense": func(t core.Transaction) bool {
			return t.Kind == core.Expense
		},
		"decString": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"itoa": strconv.Itoa,
	}
}

// render executes a named template, logging and replying 500 on failure.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}
