package internal

import (
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders numbers and dates for display in an explicit locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	now     func() time.Time
}

// NewFormatter builds a Formatter for a BCP 47 locale tag. Unparseable tags fall
// back to English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		LogWarn("Unknown locale %q, falling back to en", locale)
		tag = language.English
	}
	return &Formatter{
		tag:     tag,
		printer: message.NewPrinter(tag),
		now:     time.Now,
	}
}

// Locale returns the tag in use.
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Tokens formats a token count with locale digit grouping.
func (f *Formatter) Tokens(n int64) string {
	return f.printer.Sprintf("%d", n)
}

// Count formats a plain integer counter.
func (f *Formatter) Count(n int) string {
	return f.printer.Sprintf("%d", n)
}

// Cost formats a USD amount with six decimals.
func (f *Formatter) Cost(v float64) string {
	return "$" + f.printer.Sprintf("%.6f", v)
}

// Percent formats a percentage with two decimals.
func (f *Formatter) Percent(v float64) string {
	return f.printer.Sprintf("%.2f", v) + "%"
}

// Expiry renders an expiry timestamp as an absolute time plus a relative hint.
func (f *Formatter) Expiry(ts string) string {
	t, ok := ParseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.Format("2006-01-02 03:04 PM") + " (" + humanize.RelTime(t, f.now(), "ago", "from now") + ")"
}
