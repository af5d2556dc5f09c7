// Package dates turns the loose date expressions users type into calendar dates.
//
// Parse is best-effort: it never returns an error. An empty or unrecognized
// expression yields ok=false, which callers treat as "no date".
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dayMonthYearPattern = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})$`)
	yearMonthDayPattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	spanishLongPattern  = regexp.MustCompile(`^(\d{1,2})\s+de\s+([a-záéíóú]+)(?:\s+(?:de|del)\s+(\d{4}))?$`)
)

// relativeOffsets maps relative day terms to a day offset from today.
var relativeOffsets = map[string]int{
	"hoy":                0,
	"today":              0,
	"mañana":             1,
	"manana":             1,
	"tomorrow":           1,
	"pasado mañana":      2,
	"pasado manana":      2,
	"day after tomorrow": 2,
	"ayer":               -1,
	"yesterday":          -1,
}

var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// fallbackLayouts are tried in order once the explicit grammar has not matched.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// Parse converts text into a date relative to now. Results carry now's location
// and, except for timestamp inputs, are truncated to the start of the day.
func Parse(text string, now time.Time) (time.Time, bool) {
	normalized := normalize(text)
	if normalized == "" {
		return time.Time{}, false
	}
	today := StartOfDay(now)

	if offset, ok := relativeOffsets[normalized]; ok {
		return today.AddDate(0, 0, offset), true
	}
	if match := dayMonthYearPattern.FindStringSubmatch(normalized); match != nil {
		return strictDate(match[3], match[2], match[1], now.Location())
	}
	if match := yearMonthDayPattern.FindStringSubmatch(normalized); match != nil {
		return strictDate(match[1], match[2], match[3], now.Location())
	}
	if match := spanishLongPattern.FindStringSubmatch(normalized); match != nil {
		month, ok := spanishMonths[match[2]]
		if !ok {
			return time.Time{}, false
		}
		year := match[3]
		if year == "" {
			year = strconv.Itoa(today.Year())
		}
		return strictDate(year, strconv.Itoa(int(month)), match[1], now.Location())
	}

	raw := strings.TrimSpace(text)
	for _, layout := range fallbackLayouts {
		parsed, err := time.ParseInLocation(layout, raw, now.Location())
		if err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// Format renders a date the way replies present it (DD/MM/YYYY).
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// strictDate builds a date and rejects values that time.Date would normalize,
// such as 31/02 rolling over into March.
func strictDate(yearText, monthText, dayText string, loc *time.Location) (time.Time, bool) {
	year, errYear := strconv.Atoi(yearText)
	month, errMonth := strconv.Atoi(monthText)
	day, errDay := strconv.Atoi(dayText)
	if errYear != nil || errMonth != nil || errDay != nil {
		return time.Time{}, false
	}
	candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if candidate.Year() != year || int(candidate.Month()) != month || candidate.Day() != day {
		return time.Time{}, false
	}
	return candidate, true
}

func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
