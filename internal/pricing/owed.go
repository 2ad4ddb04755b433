package pricing

import (
	"errors"
	"fmt"
	"strings"

	"dance-ops/internal/enrollment"

	"github.com/shopspring/decimal"
)

// ErrNoPrice means the table has no entry for a student's location, session and key.
var ErrNoPrice = errors.New("no price for schedule")

// PaymentStatus is the tuition payment state recorded by staff.
type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "UNPAID"
	StatusPartial PaymentStatus = "PARTIAL"
	StatusPaid    PaymentStatus = "PAID"
)

// ParsePaymentStatus accepts any case.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusUnpaid, StatusPartial, StatusPaid:
		return st, nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

// Key returns the price key implied by the schedule's frequency: no key for zero days,
// the day name for one day, "both" for two or more.
func Key(s *enrollment.Schedule) string {
	if s == nil {
		return ""
	}
	switch len(s.SelectedDays) {
	case 0:
		return ""
	case 1:
		return s.SelectedDays[0].String()
	default:
		return BothKey
	}
}

// Quote is the outcome of pricing one schedule.
type Quote struct {
	Key        string
	Price      decimal.Decimal
	AmountOwed decimal.Decimal
	Priced     bool
}

// AmountOwed prices a schedule for a student. PAID students owe nothing whatever the
// table says. PARTIAL students owe the price minus what they already paid, never less
// than zero. A missing table entry returns ErrNoPrice with a zero amount.
func (t *Table) AmountOwed(status PaymentStatus, amountPaid decimal.Decimal, location string, s *enrollment.Schedule) (Quote, error) {
	q := Quote{Key: Key(s), Price: decimal.Zero, AmountOwed: decimal.Zero}

	if status == StatusPaid {
		q.Priced = true
		if price, ok := t.Lookup(location, sessionOf(s), q.Key); ok {
			q.Price = price
		}
		return q, nil
	}

	if q.Key == "" {
		q.Priced = true
		return q, nil
	}

	price, ok := t.Lookup(location, s.SessionLabel, q.Key)
	if !ok {
		return q, fmt.Errorf("%w: location=%s session=%s key=%s", ErrNoPrice, location, s.SessionLabel, q.Key)
	}

	q.Price = price
	q.Priced = true
	q.AmountOwed = price
	if status == StatusPartial {
		q.AmountOwed = price.Sub(amountPaid)
		if q.AmountOwed.IsNegative() {
			q.AmountOwed = decimal.Zero
		}
	}
	return q, nil
}

func sessionOf(s *enrollment.Schedule) string {
	if s == nil {
		return ""
	}
	return s.SessionLabel
}
