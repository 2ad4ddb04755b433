package pricing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dance-ops/internal/enrollment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = `
locations:
  Downtown:
    a:
      Monday: 100
      wednesday: "100.50"
      both: 180
    B:
      monday: 90
      both: 160
`

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func schedule(label string, days ...enrollment.Day) *enrollment.Schedule {
	return &enrollment.Schedule{SessionLabel: label, SelectedDays: days, Frequency: len(days)}
}

func TestParseNormalizesKeys(t *testing.T) {
	table, err := Parse([]byte(sampleTable))
	require.NoError(t, err)

	price, ok := table.Lookup("DOWNTOWN", "a", "MONDAY")
	require.True(t, ok)
	assert.True(t, d("100").Equal(price))

	price, ok = table.Lookup("downtown", "A", "wednesday")
	require.True(t, ok)
	assert.True(t, d("100.50").Equal(price))

	_, ok = table.Lookup("uptown", "A", "monday")
	assert.False(t, ok)
	_, ok = table.Lookup("downtown", "C", "monday")
	assert.False(t, ok)
	_, ok = table.Lookup("downtown", "B", "friday")
	assert.False(t, ok)

	assert.Equal(t, "USD", table.Currency)
}

func TestParseRejectsBadPrice(t *testing.T) {
	_, err := Parse([]byte("locations:\n  x:\n    A:\n      both: ten\n"))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTable), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"downtown"}, table.LocationNames())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultTableIsValid(t *testing.T) {
	table := Default()
	require.NoError(t, table.Validate())
	assert.Contains(t, table.LocationNames(), "downtown")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr []string
	}{
		{
			name:    "valid",
			yaml:    "locations:\n  downtown:\n    A:\n      wed: 185\n      both: 340\n",
			wantErr: nil,
		},
		{
			name:    "missing both",
			yaml:    "locations:\n  downtown:\n    A:\n      monday: 100\n",
			wantErr: []string{`downtown/A: missing "both" price`},
		},
		{
			name:    "negative price",
			yaml:    "locations:\n  downtown:\n    B:\n      monday: -5\n      both: 150\n",
			wantErr: []string{"negative price"},
		},
		{
			name:    "misspelled day",
			yaml:    "locations:\n  downtown:\n    A:\n      wendesday: 185\n      both: 340\n",
			wantErr: []string{`unknown price key "wendesday"`, "no single-day price"},
		},
		{
			name:    "only both",
			yaml:    "locations:\n  downtown:\n    A:\n      both: 340\n",
			wantErr: []string{"downtown/A: no single-day price"},
		},
		{
			name:    "no locations",
			yaml:    "currency: USD\n",
			wantErr: []string{"no locations"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)

			err = table.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestParseExpandsDayAbbreviations(t *testing.T) {
	table, err := Parse([]byte("locations:\n  downtown:\n    A:\n      Wed: 185\n      both: 340\n"))
	require.NoError(t, err)

	price, ok := table.Lookup("downtown", "A", "wednesday")
	require.True(t, ok)
	assert.True(t, d("185").Equal(price))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "", Key(nil))
	assert.Equal(t, "", Key(schedule("A")))
	assert.Equal(t, "monday", Key(schedule("A", enrollment.Monday)))
	assert.Equal(t, BothKey, Key(schedule("A", enrollment.Monday, enrollment.Wednesday)))
	assert.Equal(t, BothKey, Key(schedule("A", enrollment.Monday, enrollment.Wednesday, enrollment.Friday)))
}

func TestAmountOwed(t *testing.T) {
	table, err := Parse([]byte(sampleTable))
	require.NoError(t, err)

	tests := []struct {
		name       string
		status     PaymentStatus
		paid       string
		sched      *enrollment.Schedule
		wantOwed   string
		wantKey    string
		wantPriced bool
		wantErr    error
	}{
		{
			name:       "paid owes nothing",
			status:     StatusPaid,
			paid:       "0",
			sched:      schedule("A", enrollment.Monday, enrollment.Wednesday),
			wantOwed:   "0",
			wantKey:    BothKey,
			wantPriced: true,
		},
		{
			name:       "paid owes nothing even without a price",
			status:     StatusPaid,
			paid:       "0",
			sched:      schedule("Z", enrollment.Friday),
			wantOwed:   "0",
			wantKey:    "friday",
			wantPriced: true,
		},
		{
			name:       "unpaid single day",
			status:     StatusUnpaid,
			paid:       "0",
			sched:      schedule("A", enrollment.Wednesday),
			wantOwed:   "100.50",
			wantKey:    "wednesday",
			wantPriced: true,
		},
		{
			name:       "unpaid both days",
			status:     StatusUnpaid,
			paid:       "0",
			sched:      schedule("B", enrollment.Monday, enrollment.Wednesday),
			wantOwed:   "160",
			wantKey:    BothKey,
			wantPriced: true,
		},
		{
			name:       "partial subtracts paid amount",
			status:     StatusPartial,
			paid:       "60",
			sched:      schedule("A", enrollment.Monday, enrollment.Wednesday),
			wantOwed:   "120",
			wantKey:    BothKey,
			wantPriced: true,
		},
		{
			name:       "partial overpaid floors at zero",
			status:     StatusPartial,
			paid:       "500",
			sched:      schedule("A", enrollment.Monday),
			wantOwed:   "0",
			wantKey:    "monday",
			wantPriced: true,
		},
		{
			name:       "no days owes nothing",
			status:     StatusUnpaid,
			paid:       "0",
			sched:      schedule(""),
			wantOwed:   "0",
			wantKey:    "",
			wantPriced: true,
		},
		{
			name:     "missing price",
			status:   StatusUnpaid,
			paid:     "0",
			sched:    schedule("B", enrollment.Wednesday),
			wantOwed: "0",
			wantKey:  "wednesday",
			wantErr:  ErrNoPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := table.AmountOwed(tt.status, d(tt.paid), "downtown", tt.sched)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				require.NoError(t, err)
			}
			assert.True(t, d(tt.wantOwed).Equal(q.AmountOwed), "owed = %s, want %s", q.AmountOwed, tt.wantOwed)
			assert.Equal(t, tt.wantKey, q.Key)
			assert.Equal(t, tt.wantPriced, q.Priced)
		})
	}
}

func TestParsePaymentStatus(t *testing.T) {
	st, err := ParsePaymentStatus("paid")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, st)

	_, err = ParsePaymentStatus("refunded")
	assert.Error(t, err)
}
