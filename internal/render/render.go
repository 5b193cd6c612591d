// Package render fills %NAME% placeholders of the status page.
//
// Each placeholder maps to a pure function of View. The transform is total:
// a function returning an empty string renders the fallback, and unknown
// placeholders render as empty.
package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
)

// Fallback is shown for known placeholders without a value.
const Fallback = "--"

// View is everything a page may show.
type View struct {
	Status    *domain.Status
	Audit     []string
	History   []string
	Commit    string
	BootTime  time.Time
	Now       time.Time
	QuotaUsed int
	Quota     int
}

// Func renders one placeholder.
type Func func(View) string

// Placeholders maps placeholder names to renderers.
type Placeholders map[string]Func

// Default returns the placeholders of the built-in status page.
func Default() Placeholders {
	return Placeholders{
		"TEMP": func(v View) string {
			if v.Status == nil || !v.Status.HasReading {
				return ""
			}

			return strconv.FormatFloat(v.Status.Temperature, 'f', 1, 64)
		},
		"STATE": func(v View) string {
			if v.Status == nil {
				return ""
			}

			return v.Status.State.String()
		},
		"TRIGGER": func(v View) string {
			if v.Status == nil {
				return ""
			}

			return strconv.FormatFloat(v.Status.Thresholds.TriggerC, 'f', 1, 64)
		},
		"RESET": func(v View) string {
			if v.Status == nil {
				return ""
			}

			return strconv.FormatFloat(v.Status.Thresholds.ResetC, 'f', 1, 64)
		},
		"PHONES": func(v View) string {
			if v.Status == nil {
				return ""
			}

			return html.EscapeString(strings.Join(v.Status.Phones, ", "))
		},
		"CHANGED": func(v View) string {
			if v.Status == nil || v.Status.Changed.IsZero() {
				return ""
			}

			changed := v.Status.Changed.Format(time.DateTime)
			if v.Status.LastActor != nil {
				changed += " (" + html.EscapeString(v.Status.LastActor.String()) + ")"
			}

			return changed
		},
		"AUDIT": func(v View) string {
			return lines(v.Audit)
		},
		"HISTORY": func(v View) string {
			return lines(v.History)
		},
		"QUOTA": func(v View) string {
			if v.Quota == 0 {
				return ""
			}

			return fmt.Sprintf("%d/%d", v.QuotaUsed, v.Quota)
		},
		"COMMIT": func(v View) string {
			return html.EscapeString(v.Commit)
		},
		"BOOT": func(v View) string {
			return formatTime(v.BootTime)
		},
		"NOW": func(v View) string {
			return formatTime(v.Now)
		},
	}
}

// Lookup renders one placeholder. ok is false for unknown names.
func (p Placeholders) Lookup(name string, v View) (string, bool) {
	fn, ok := p[name]
	if !ok {
		return "", false
	}

	if out := fn(v); out != "" {
		return out, true
	}

	return Fallback, true
}

// Execute replaces every %NAME% in page. "%%" renders a literal percent sign.
func (p Placeholders) Execute(page string, v View) string {
	var b strings.Builder

	b.Grow(len(page))

	for {
		start := strings.IndexByte(page, '%')
		if start < 0 {
			b.WriteString(page)
			break
		}

		b.WriteString(page[:start])
		page = page[start+1:]

		end := strings.IndexByte(page, '%')
		if end < 0 {
			b.WriteByte('%')
			b.WriteString(page)

			break
		}

		name := page[:end]
		page = page[end+1:]

		switch {
		case name == "":
			b.WriteByte('%')
		case !isName(name):
			// Not a placeholder: keep the text and reconsider the closing '%'.
			b.WriteByte('%')
			b.WriteString(name)

			page = "%" + page
		default:
			out, _ := p.Lookup(name, v)
			b.WriteString(out)
		}
	}

	return b.String()
}

func isName(s string) bool {
	for i := range len(s) {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}

	return true
}

func lines(records []string) string {
	if len(records) == 0 {
		return ""
	}

	escaped := make([]string, len(records))
	for i, r := range records {
		escaped[i] = html.EscapeString(r)
	}

	return strings.Join(escaped, "\n")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.RFC3339)
}
