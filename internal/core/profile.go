package core

import (
	"errors"
	"strings"
)

const (
	ReportWeekly  ReportCadence = "weekly"
	ReportMonthly ReportCadence = "monthly"

	// MinorAgeLimit is the oldest age that still requires a guardian contact.
	MinorAgeLimit = 17
)

type (
	// ReportCadence is how often a guardian report email goes out.
	// The zero value means reports are disabled.
	ReportCadence string

	// Guardian is the secondary contact linked to an underage profile.
	// At least one of Email or Phone must be set.
	Guardian struct {
		Email string
		Phone string
	}

	// UserProfile is the account identity and its preferences. Credentials are
	// deliberately not part of the profile; password hashes live in a separate
	// credential store keyed by AccountID.
	UserProfile struct {
		AccountID     string // 8-digit display identifier
		Name          string
		AvatarURL     string
		Age           int
		Guardian      *Guardian // populated only when Age <= MinorAgeLimit
		ReportCadence ReportCadence
		Currency      string // ISO 4217 code, optional
	}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidAge       = errors.New("invalid age")
	ErrGuardianRequired = errors.New("provide either a guardian email or phone")
	ErrGuardianNotMinor = errors.New("guardian contact allowed only for minors")
	ErrInvalidCadence   = errors.New("invalid report cadence")
	ErrInvalidCurrency  = errors.New("invalid currency code")
)

func (c ReportCadence) Valid() bool {
	return c == "" || c == ReportWeekly || c == ReportMonthly
}

// Empty reports whether no guardian contact is present at all.
func (g *Guardian) Empty() bool {
	return g == nil || (strings.TrimSpace(g.Email) == "" && strings.TrimSpace(g.Phone) == "")
}

// IsMinor reports whether the profile requires a guardian contact.
func (p UserProfile) IsMinor() bool {
	return p.Age <= MinorAgeLimit
}

func (p UserProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Age < 1 || p.Age > 120 {
		return ErrInvalidAge
	}
	if p.IsMinor() {
		if p.Guardian.Empty() {
			return ErrGuardianRequired
		}
	} else if !p.Guardian.Empty() {
		return ErrGuardianNotMinor
	}
	if !p.ReportCadence.Valid() {
		return ErrInvalidCadence
	}
	if p.ReportCadence != "" && p.Guardian.Empty() {
		return ErrInvalidCadence
	}
	if c := strings.TrimSpace(p.Currency); c != "" && len(c) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}
