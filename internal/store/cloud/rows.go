package cloud

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"pocketbook/internal/core"
	"pocketbook/internal/store"
)

type transactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	AccountID string `bigquery:"account_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Description     string     `bigquery:"description"`      // REQUIRED STRING
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC
	Kind            string     `bigquery:"kind"`             // REQUIRED STRING

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

type userRow struct {
	AccountID     string                 `bigquery:"account_id"`
	Name          string                 `bigquery:"name"`
	AvatarURL     bigquery.NullString    `bigquery:"avatar_url"`
	Age           int64                  `bigquery:"age"`
	GuardianEmail bigquery.NullString    `bigquery:"guardian_email"`
	GuardianPhone bigquery.NullString    `bigquery:"guardian_phone"`
	ReportCadence bigquery.NullString    `bigquery:"report_cadence"`
	Currency      bigquery.NullString    `bigquery:"currency"`
	LastReportTS  bigquery.NullTimestamp `bigquery:"last_report_ts"`
	CreatedTS     time.Time              `bigquery:"created_ts"`
}

type credentialRow struct {
	AccountID    string    `bigquery:"account_id"`
	PasswordHash string    `bigquery:"password_hash"`
	CreatedTS    time.Time `bigquery:"created_ts"`
}

func toTransactionRow(accountID string, t core.Transaction, now time.Time) *transactionRow {
	return &transactionRow{
		TransactionID:   t.ID,
		AccountID:       accountID,
		TransactionDate: civil.DateOf(t.Date.Time),
		Description:     t.Description,
		Amount:          t.Amount.Rat(),
		Kind:            string(t.Kind),
		CreatedTS:       now.UTC(),
	}
}

func (r *transactionRow) toTransaction() core.Transaction {
	amount := decimal.Zero
	if r.Amount != nil {
		amount = decimal.NewFromBigRat(r.Amount, 2)
	}
	return core.Transaction{
		ID:          r.TransactionID,
		Date:        core.NewDate(r.TransactionDate.Year, int(r.TransactionDate.Month), r.TransactionDate.Day),
		Description: r.Description,
		Amount:      amount,
		Kind:        core.Kind(r.Kind),
	}
}

func toUserRow(p core.UserProfile, now time.Time) *userRow {
	row := &userRow{
		AccountID: p.AccountID,
		Name:      p.Name,
		AvatarURL: nullString(p.AvatarURL),
		Age:       int64(p.Age),
		Currency:  nullString(p.Currency),
		CreatedTS: now.UTC(),
	}
	if p.ReportCadence != "" {
		row.ReportCadence = nullString(string(p.ReportCadence))
	}
	if p.Guardian != nil {
		row.GuardianEmail = nullString(p.Guardian.Email)
		row.GuardianPhone = nullString(p.Guardian.Phone)
	}
	return row
}

func (r *userRow) toProfile() core.UserProfile {
	p := core.UserProfile{
		AccountID:     r.AccountID,
		Name:          r.Name,
		AvatarURL:     r.AvatarURL.StringVal,
		Age:           int(r.Age),
		ReportCadence: core.ReportCadence(r.ReportCadence.StringVal),
		Currency:      r.Currency.StringVal,
	}
	g := core.Guardian{Email: r.GuardianEmail.StringVal, Phone: r.GuardianPhone.StringVal}
	if !g.Empty() {
		p.Guardian = &g
	}
	return p
}

func (r *userRow) toCandidate() store.ReportCandidate {
	c := store.ReportCandidate{Profile: r.toProfile()}
	if r.LastReportTS.Valid {
		c.LastReport = r.LastReportTS.Timestamp
	}
	return c
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
