package pricing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"dance-ops/internal/enrollment"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// BothKey is the price key for students attending two or more days a week.
const BothKey = "both"

//go:embed prices.yaml
var defaultTable []byte

// Amount is a decimal tuition amount that can be read from YAML numbers or strings.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: price must be a scalar", value.Line)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid price %q: %w", value.Line, value.Value, err)
	}
	a.Decimal = d
	return nil
}

func (a Amount) MarshalYAML() (interface{}, error) {
	return a.StringFixed(2), nil
}

// Table holds tuition prices keyed by location, session label and price key.
type Table struct {
	Currency  string                                  `yaml:"currency"`
	Locations map[string]map[string]map[string]Amount `yaml:"locations"`
}

// Parse reads a YAML price table and normalizes its keys.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse price table: %w", err)
	}
	t.normalize()
	return &t, nil
}

// Load reads a price table from disk.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read price table %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the price table embedded in the binary.
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded price table is invalid: %v", err))
	}
	return t
}

// LoadOrDefault loads path when it is set, otherwise returns the embedded table.
func LoadOrDefault(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (t *Table) normalize() {
	locations := make(map[string]map[string]map[string]Amount, len(t.Locations))
	for loc, sessions := range t.Locations {
		normSessions := make(map[string]map[string]Amount, len(sessions))
		for label, prices := range sessions {
			normPrices := make(map[string]Amount, len(prices))
			for key, amount := range prices {
				normPrices[priceKey(key)] = amount
			}
			normSessions[normalizeLabel(label)] = normPrices
		}
		locations[normalizeKey(loc)] = normSessions
	}
	t.Locations = locations
	if t.Currency == "" {
		t.Currency = "USD"
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// priceKey lowercases a key and expands day abbreviations ("Wed") to the day name
// used for lookups.
func priceKey(s string) string {
	key := normalizeKey(s)
	if d, err := enrollment.ParseDay(key); err == nil {
		return d.String()
	}
	return key
}

func normalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Lookup returns the price for location, session label and key.
func (t *Table) Lookup(location, session, key string) (decimal.Decimal, bool) {
	sessions, ok := t.Locations[normalizeKey(location)]
	if !ok {
		return decimal.Zero, false
	}
	prices, ok := sessions[normalizeLabel(session)]
	if !ok {
		return decimal.Zero, false
	}
	amount, ok := prices[normalizeKey(key)]
	if !ok {
		return decimal.Zero, false
	}
	return amount.Decimal, true
}

// LocationNames returns the configured locations in sorted order.
func (t *Table) LocationNames() []string {
	names := make([]string, 0, len(t.Locations))
	for loc := range t.Locations {
		names = append(names, loc)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every session has a "both" price plus at least one weekday
// price, that every other key is a weekday, and that no price is negative.
func (t *Table) Validate() error {
	if len(t.Locations) == 0 {
		return errors.New("price table has no locations")
	}

	var errs []error
	for _, loc := range t.LocationNames() {
		sessions := t.Locations[loc]
		if len(sessions) == 0 {
			errs = append(errs, fmt.Errorf("%s: no sessions", loc))
			continue
		}
		for label, prices := range sessions {
			if _, ok := prices[BothKey]; !ok {
				errs = append(errs, fmt.Errorf("%s/%s: missing %q price", loc, label, BothKey))
			}
			days := 0
			for key, amount := range prices {
				if key != BothKey {
					if _, err := enrollment.ParseDay(key); err != nil {
						errs = append(errs, fmt.Errorf("%s/%s: unknown price key %q", loc, label, key))
					} else {
						days++
					}
				}
				if amount.IsNegative() {
					errs = append(errs, fmt.Errorf("%s/%s/%s: negative price %s", loc, label, key, amount.String()))
				}
			}
			if days == 0 {
				errs = append(errs, fmt.Errorf("%s/%s: no single-day price", loc, label))
			}
		}
	}
	return errors.Join(errs...)
}
