package notify

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Recipient is one family to contact.
type Recipient struct {
	StudentName string
	Email       string
	AmountOwed  decimal.Decimal
}

// Mailto builds an RFC 6068 mailto URL. Blank and duplicate addresses are skipped,
// case-insensitively. With no direct recipients every address goes in bcc so families
// do not see each other.
func Mailto(to, bcc []string, subject, body string) string {
	seen := map[string]bool{}
	toList := dedupe(to, seen)
	bccList := dedupe(bcc, seen)

	var b strings.Builder
	b.WriteString("mailto:")
	for i, addr := range toList {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(escape(addr))
	}

	var params []string
	if len(bccList) > 0 {
		params = append(params, "bcc="+escape(strings.Join(bccList, ",")))
	}
	if subject != "" {
		params = append(params, "subject="+escape(subject))
	}
	if body != "" {
		params = append(params, "body="+escape(strings.ReplaceAll(body, "\n", "\r\n")))
	}
	if len(params) > 0 {
		b.WriteString("?")
		b.WriteString(strings.Join(params, "&"))
	}
	return b.String()
}

func dedupe(addrs []string, seen map[string]bool) []string {
	var out []string
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// escape percent-encodes with %20 for spaces, keeping "@" and "," literal since mail
// clients expect them that way in address lists.
func escape(s string) string {
	e := strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
	e = strings.ReplaceAll(e, "%40", "@")
	return strings.ReplaceAll(e, "%2C", ",")
}

// SectionBroadcast addresses every parent of a section in bcc.
func SectionBroadcast(sectionName string, recipients []Recipient) string {
	return Mailto(nil, emails(recipients), fmt.Sprintf("Update for %s", sectionName), "")
}

// PaymentReminder addresses families with an outstanding balance. A single recipient
// gets a personal message with the amount; a group gets a generic reminder in bcc.
func PaymentReminder(currency string, recipients []Recipient) string {
	const subject = "Tuition payment reminder"
	if len(recipients) == 1 {
		r := recipients[0]
		body := fmt.Sprintf("Hello,\n\nOur records show an outstanding tuition balance of %s %s for %s.\n\nThank you!",
			currency, r.AmountOwed.StringFixed(2), r.StudentName)
		return Mailto([]string{r.Email}, nil, subject, body)
	}
	body := "Hello,\n\nOur records show an outstanding tuition balance for your dancer. Please contact the office for details.\n\nThank you!"
	return Mailto(nil, emails(recipients), subject, body)
}

func emails(recipients []Recipient) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, r.Email)
	}
	sort.Strings(out)
	return out
}
