package timing

import (
	"fmt"
	"strings"
)

// ParseChain parses a comma-separated category list, e.g. "Order,Delivery".
func ParseChain(s string) ([]Category, error) {
	var out []Category
	seen := map[Category]bool{}
	for _, p := range strings.Split(s, ",") {
		c := Category(strings.TrimSpace(p))
		if c == "" {
			continue
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate category %q", c)
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty category chain")
	}
	return out, nil
}

func ParseRollover(s string) (Rollover, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "literal":
		return RolloverLiteral, nil
	case "wrap":
		return RolloverWrap, nil
	}
	return 0, fmt.Errorf("unknown rollover mode %q (want literal or wrap)", s)
}

func ParseWeekdays(s string) (Weekdays, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "iso":
		return WeekdaysISO, nil
	case "sunday-zero":
		return WeekdaysSundayZero, nil
	}
	return 0, fmt.Errorf("unknown weekday numbering %q (want iso or sunday-zero)", s)
}
