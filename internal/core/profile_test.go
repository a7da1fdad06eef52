package core

import (
	"errors"
	"testing"
)

func TestUserProfileValidate(t *testing.T) {
	adult := UserProfile{AccountID: "12345678", Name: "Ada", Age: 30}
	if err := adult.Validate(); err != nil {
		t.Fatalf("adult: expected ok, got %v", err)
	}

	minor := UserProfile{Name: "Kim", Age: 16, Guardian: &Guardian{Email: "parent@example.com"}}
	if err := minor.Validate(); err != nil {
		t.Fatalf("minor with guardian: expected ok, got %v", err)
	}

	// Age 16 with neither guardian email nor phone must not validate.
	noGuardian := UserProfile{Name: "Kim", Age: 16}
	if err := noGuardian.Validate(); !errors.Is(err, ErrGuardianRequired) {
		t.Fatalf("minor without guardian: got %v", err)
	}
	emptyGuardian := UserProfile{Name: "Kim", Age: 16, Guardian: &Guardian{Email: " ", Phone: ""}}
	if err := emptyGuardian.Validate(); !errors.Is(err, ErrGuardianRequired) {
		t.Fatalf("minor with blank guardian: got %v", err)
	}

	// Guardian contact is only for minors.
	adultGuardian := UserProfile{Name: "Ada", Age: 30, Guardian: &Guardian{Phone: "555"}}
	if err := adultGuardian.Validate(); !errors.Is(err, ErrGuardianNotMinor) {
		t.Fatalf("adult with guardian: got %v", err)
	}

	// Phone alone satisfies the "provide either" rule.
	phoneOnly := UserProfile{Name: "Kim", Age: 12, Guardian: &Guardian{Phone: "555-0101"}}
	if err := phoneOnly.Validate(); err != nil {
		t.Fatalf("phone-only guardian: got %v", err)
	}
}

func TestUserProfileValidateCadenceAndCurrency(t *testing.T) {
	p := UserProfile{Name: "Kim", Age: 15, Guardian: &Guardian{Email: "g@example.com"}}

	p.ReportCadence = ReportWeekly
	if err := p.Validate(); err != nil {
		t.Fatalf("weekly cadence: got %v", err)
	}
	p.ReportCadence = "daily"
	if err := p.Validate(); !errors.Is(err, ErrInvalidCadence) {
		t.Fatalf("bogus cadence: got %v", err)
	}

	// A cadence needs a guardian to deliver to.
	orphan := UserProfile{Name: "Ada", Age: 30, ReportCadence: ReportMonthly}
	if err := orphan.Validate(); !errors.Is(err, ErrInvalidCadence) {
		t.Fatalf("cadence without guardian: got %v", err)
	}

	p.ReportCadence = ""
	p.Currency = "EURO"
	if err := p.Validate(); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("bad currency: got %v", err)
	}
	p.Currency = "GBP"
	if err := p.Validate(); err != nil {
		t.Fatalf("good currency: got %v", err)
	}
}

func TestGuardianEmpty(t *testing.T) {
	var g *Guardian
	if !g.Empty() {
		t.Fatal("nil guardian should be empty")
	}
	if (&Guardian{Email: "x@y.z"}).Empty() {
		t.Fatal("guardian with email should not be empty")
	}
}
