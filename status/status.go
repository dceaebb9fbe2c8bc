// Package status derives the account state shown on the najdi.si SMS page.
package status

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// AccountStatus is what the page says about the current session. Nil fields
// were not present on the page.
type AccountStatus struct {
	IsLoggedIn        bool    `json:"isLoggedIn"`
	Name              *string `json:"name"`
	SmsCount          *int    `json:"smsCount"`
	MaxSmsCount       *int    `json:"maxSmsCount"`
	IsSenderSet       *bool   `json:"isSenderSet"`
	PhoneNumberSender *string `json:"phoneNumberSender"`
}

// SenderConfigured reports whether the page showed a verified sender number.
func (s AccountStatus) SenderConfigured() bool {
	return s.IsSenderSet != nil && *s.IsSenderSet
}

// Selectors locate the parts of the page the extractor reads.
type Selectors struct {
	// LoginLink is only rendered for anonymous visitors.
	LoginLink string
	Name      string
	SmsForm   string
	// Labels scopes the search for the quota and sender labels. The SMS form
	// is searched when the scope is missing from the page.
	Labels string
}

var DefaultSelectors = Selectors{
	LoginLink: `a[href*="/prijava"]`,
	Name:      "div#nav1 div.pull-right strong",
	SmsForm:   "form#smsForm",
	Labels:    "#smsZone",
}

var (
	quotaPattern  = regexp.MustCompile(`^\d+\s*/\s*\d+$`)
	senderPattern = regexp.MustCompile(`^\d+\s*/\s*\d+\s*-\s*\d+$`)
)

func Extract(doc *goquery.Document) AccountStatus {
	return ExtractWith(doc, DefaultSelectors)
}

func ExtractWith(doc *goquery.Document, sel Selectors) AccountStatus {
	var out AccountStatus
	if doc.Find(sel.LoginLink).Length() > 0 {
		return out
	}
	out.IsLoggedIn = true

	if name := doc.Find(sel.Name).First(); name.Length() > 0 {
		text := strings.TrimSpace(name.Text())
		out.Name = &text
	}

	smsForm := doc.Find(sel.SmsForm).First()
	if smsForm.Length() == 0 {
		return out
	}
	senderSet := false
	out.IsSenderSet = &senderSet

	scope := doc.Find(sel.Labels).First()
	if scope.Length() == 0 {
		scope = smsForm
	}

	var quotaFound, senderFound bool
	scope.Find("*").Each(func(_ int, el *goquery.Selection) {
		if el.Children().Length() > 0 {
			return
		}
		text := strings.TrimSpace(el.Text())
		switch {
		case !quotaFound && quotaPattern.MatchString(text):
			quotaFound = true
			current, limit := splitQuota(text)
			out.SmsCount = &current
			out.MaxSmsCount = &limit
		case !senderFound && senderPattern.MatchString(text):
			senderFound = true
			senderSet = true
			out.PhoneNumberSender = &text
		}
	})
	return out
}

// splitQuota parses "current / max". The pattern guarantees both sides are
// digit runs.
func splitQuota(text string) (int, int) {
	left, right, _ := strings.Cut(text, "/")
	current, _ := strconv.Atoi(strings.TrimSpace(left))
	limit, _ := strconv.Atoi(strings.TrimSpace(right))
	return current, limit
}
