package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"pocketbook/internal/core"
)

const maxAvatarSize = 5 << 20 // 5 MiB

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := s.store.Profile(r.Context(), sess.AccountID)
		if err != nil {
			slog.Error("Failed to load profile", "error", err, "account_id", sess.AccountID)
			InternalServerError("failed to load profile").Write(w)
			return
		}
		s.render(w, "profile.html", profile)

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			BadRequestError("invalid form data").Write(w)
			return
		}

		current, err := s.store.Profile(r.Context(), sess.AccountID)
		if err != nil {
			slog.Error("Failed to load profile", "error", err, "account_id", sess.AccountID)
			InternalServerError("failed to load profile").Write(w)
			return
		}

		age, err := strconv.Atoi(strings.TrimSpace(r.FormValue("age")))
		if err != nil {
			UnprocessableEntityError("age must be a number").Write(w)
			return
		}

		updated := current
		updated.Name = sanitizeInput(r.FormValue("name"))
		updated.Age = age
		updated.ReportCadence = core.ReportCadence(strings.TrimSpace(r.FormValue("cadence")))
		updated.Currency = strings.ToUpper(sanitizeInput(r.FormValue("currency")))

		guardianEmail := sanitizeInput(r.FormValue("guardian_email"))
		guardianPhone := sanitizeInput(r.FormValue("guardian_phone"))
		if guardianEmail != "" || guardianPhone != "" {
			updated.Guardian = &core.Guardian{Email: guardianEmail, Phone: guardianPhone}
		} else {
			updated.Guardian = nil
		}

		if err := updated.Validate(); err != nil {
			if errors.Is(err, core.ErrGuardianRequired) {
				UnprocessableEntityError("provide either a guardian email or phone").Write(w)
				return
			}
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}

		if err := s.store.UpdateUserProfile(r.Context(), updated); err != nil {
			slog.Error("Failed to update profile", "error", err, "account_id", sess.AccountID)
			InternalServerError("failed to update profile").Write(w)
			return
		}

		var buf strings.Builder
		if err := s.templates.ExecuteTemplate(&buf, "profile.html", updated); err != nil {
			slog.Error("Failed to render profile", "error", err)
			InternalServerError("render failed").Write(w)
			return
		}
		NewHTMXResponse().
			TriggerSuccessNotification("Profile saved").
			BodyHTML(buf.String()).
			Write(w)

	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleAvatarUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	if s.avatars == nil {
		UnprocessableEntityError("avatar uploads are not configured").Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		BadRequestError("upload too large or malformed").Write(w)
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		BadRequestError("missing avatar file").Write(w)
		return
	}
	defer file.Close()

	url, err := s.avatars.Save(r.Context(), sess.AccountID, header.Filename, file)
	if err != nil {
		slog.Error("Failed to store avatar", "error", err, "account_id", sess.AccountID)
		UnprocessableEntityError("could not store avatar").Write(w)
		return
	}

	profile, err := s.store.Profile(r.Context(), sess.AccountID)
	if err != nil {
		slog.Error("Failed to load profile", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to load profile").Write(w)
		return
	}
	profile.AvatarURL = url
	if err := s.store.UpdateUserProfile(r.Context(), profile); err != nil {
		slog.Error("Failed to save avatar URL", "error", err, "account_id", sess.AccountID)
		InternalServerError("failed to update profile").Write(w)
		return
	}

	s.render(w, "profile.html", profile)
}
