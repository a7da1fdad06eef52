package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pocketbook/internal/core"
	"pocketbook/internal/summary"
)

// indexData is everything the main page template needs.
type indexData struct {
	Profile      core.UserProfile
	Transactions []core.Transaction
	Summary      summary.Summary
	SelectedID   string
	Mode         string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("page not found").Write(w)
		return
	}
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	sess := s.currentSession(r)
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	profile, err := s.store.Profile(r.Context(), sess.AccountID)
	if err != nil {
		slog.Error("Failed to load profile", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to load profile").Write(w)
		return
	}

	txs, err := s.transactions(r.Context(), sess.AccountID)
	if err != nil {
		slog.Error("Failed to load transactions", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to load transactions").Write(w)
		return
	}

	mode, selected := sess.View.Current()
	s.render(w, "index.html", indexData{
		Profile:      profile,
		Transactions: txs,
		Summary:      summary.Build(txs, time.Now()),
		SelectedID:   selected,
		Mode:         string(mode),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "login.html", nil)

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			BadRequestError("invalid form data").Write(w)
			return
		}
		accountID := sanitizeInput(r.FormValue("account_id"))
		password := r.FormValue("password")
		if accountID == "" || password == "" {
			BadRequestError("account ID and password are required").Write(w)
			return
		}

		profile, err := s.store.LoginUser(r.Context(), accountID, password)
		if err != nil {
			if errors.Is(err, core.ErrInvalidCredentials) {
				UnprocessableEntityError("wrong account ID or password").Write(w)
				return
			}
			slog.Error("Login failed", "error", err)
			InternalServerError("login failed").Write(w)
			return
		}

		sess := s.sessions.Create(profile.AccountID)
		setSessionCookie(w, sess.Token)
		s.watchAccount(profile.AccountID)

		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", "/")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)

	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "register.html", nil)

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			BadRequestError("invalid form data").Write(w)
			return
		}

		age, err := strconv.Atoi(strings.TrimSpace(r.FormValue("age")))
		if err != nil {
			UnprocessableEntityError("age must be a number").Write(w)
			return
		}

		profile := core.UserProfile{
			Name:          sanitizeInput(r.FormValue("name")),
			Age:           age,
			ReportCadence: core.ReportCadence(strings.TrimSpace(r.FormValue("cadence"))),
			Currency:      strings.ToUpper(sanitizeInput(r.FormValue("currency"))),
		}

		guardianEmail := sanitizeInput(r.FormValue("guardian_email"))
		guardianPhone := sanitizeInput(r.FormValue("guardian_phone"))
		if guardianEmail != "" || guardianPhone != "" {
			profile.Guardian = &core.Guardian{Email: guardianEmail, Phone: guardianPhone}
		}

		password := r.FormValue("password")
		if len(password) < 8 {
			UnprocessableEntityError("password must be at least 8 characters").Write(w)
			return
		}

		if err := profile.Validate(); err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}

		created, err := s.store.RegisterUser(r.Context(), profile, password)
		if err != nil {
			if errors.Is(err, core.ErrUserExists) {
				UnprocessableEntityError("please try again").Write(w)
				return
			}
			slog.Error("Registration failed", "error", err)
			InternalServerError("registration failed").Write(w)
			return
		}

		sess := s.sessions.Create(created.AccountID)
		setSessionCookie(w, sess.Token)
		s.watchAccount(created.AccountID)

		s.render(w, "registered.html", created)

	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}

	sess := s.currentSession(r)
	if sess != nil {
		s.stopWatching(sess.AccountID)
		if err := s.store.LogoutUser(r.Context(), sess.AccountID); err != nil {
			slog.Warn("Logout cleanup failed", "error", err, "account_id", sess.AccountID)
		}
		s.sessions.Delete(sess.Token)
		s.summaryCache.Delete(sess.AccountID)
	}
	clearSessionCookie(w)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
