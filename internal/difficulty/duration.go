package difficulty

import (
	"strconv"
	"strings"
)

// durationRule extracts a number of hours from lowercased text.
type durationRule func(text string) (float64, bool)

// durationRules are evaluated in order; the first match wins. Whole-day
// phrases come before any numeric pattern so that "half day (2-3 hours)"
// resolves to a half day.
var durationRules = []durationRule{
	phraseRule(4, "半天", "半日", "half day", "half-day", "half a day"),
	phraseRule(8, "全天", "全日", "一整天", "full day", "full-day", "whole day", "all day"),
	unitRule(1, "个小时", "小时", "hours", "hour", "hrs", "hr", "h"),
	unitRule(8, "天", "days", "day"),
	unitRule(1.0/60, "分钟", "minutes", "minute", "mins", "min"),
}

// typicalStayHours maps the canonical typicalStay values to hours.
var typicalStayHours = map[string]float64{
	"30分钟":       0.5,
	"1小时":        1,
	"2小时":        2,
	"半天":         4,
	"全天":         8,
	"30 minutes": 0.5,
	"1 hour":     1,
	"2 hours":    2,
	"half day":   4,
	"full day":   8,
}

// ParseDuration converts free-form Chinese or English duration text into
// hours. It reports false when nothing recognizable is found.
func ParseDuration(text string) (float64, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0, false
	}
	for _, rule := range durationRules {
		if h, ok := rule(text); ok {
			return h, true
		}
	}
	return 0, false
}

// visitHours resolves the visit length from visitDuration, then the
// typicalStay table, then typicalStay parsed as free text.
func visitHours(in Input) (float64, bool) {
	if h, ok := ParseDuration(in.VisitDuration); ok {
		return h, true
	}
	stay := strings.ToLower(strings.TrimSpace(in.TypicalStay))
	if stay == "" {
		return 0, false
	}
	if h, ok := typicalStayHours[stay]; ok {
		return h, true
	}
	return ParseDuration(stay)
}

func phraseRule(hours float64, phrases ...string) durationRule {
	return func(text string) (float64, bool) {
		for _, p := range phrases {
			if strings.Contains(text, p) {
				return hours, true
			}
		}
		return 0, false
	}
}

// unitRule matches the first "<number> <unit>" occurrence whose unit is in
// units and returns number*scale. Units must be listed longest first. ASCII
// units must not run into a following letter, so "5 hikes" is not 5 hours.
func unitRule(scale float64, units ...string) durationRule {
	return func(text string) (float64, bool) {
		for i := 0; i < len(text); i++ {
			if !isDigit(text[i]) || (i > 0 && (isDigit(text[i-1]) || text[i-1] == '.')) {
				continue
			}
			value, end := scanNumber(text, i)
			rest := strings.TrimLeft(text[end:], " \t")
			for _, u := range units {
				if !strings.HasPrefix(rest, u) {
					continue
				}
				if isASCIIWord(u) && len(rest) > len(u) && isLetter(rest[len(u)]) {
					continue
				}
				return value * scale, true
			}
		}
		return 0, false
	}
}

// scanNumber reads digits with an optional fractional part starting at i.
func scanNumber(text string, i int) (float64, int) {
	end := i
	for end < len(text) && isDigit(text[end]) {
		end++
	}
	if end+1 < len(text) && text[end] == '.' && isDigit(text[end+1]) {
		end++
		for end < len(text) && isDigit(text[end]) {
			end++
		}
	}
	v, err := strconv.ParseFloat(text[i:end], 64)
	if err != nil {
		return 0, end
	}
	return v, end
}

func isDigit(b byte) bool  { return b >= '0' && b <= '9' }
func isLetter(b byte) bool { return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' }

func isASCIIWord(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) {
			return false
		}
	}
	return true
}
