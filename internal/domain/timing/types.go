package timing

import (
	"strconv"
	"strings"
	"time"

	"github.com/example/storehours/internal/domain/tags"
)

const (
	TagTiming = "timing"

	FieldType     = "type"
	FieldLocation = "location"
	FieldDayFrom  = "day_from"
	FieldDayTo    = "day_to"
	FieldTimeFrom = "time_from"
	FieldTimeTo   = "time_to"
)

// Category is the kind of operational window a timing declaration describes.
type Category string

const (
	CategoryAll        Category = "ALL"
	CategoryOrder      Category = "Order"
	CategoryDelivery   Category = "Delivery"
	CategorySelfPickup Category = "Self-Pickup"
)

// DefaultChain is the order categories are tried in when no declaration
// covers all operations.
var DefaultChain = []Category{CategoryOrder, CategoryDelivery, CategorySelfPickup}

// Window is a resolved open/close pair in HHmm form. Both fields are empty
// when nothing applies.
type Window struct {
	TimeFrom string `json:"time_from"`
	TimeTo   string `json:"time_to"`
}

func (w Window) IsZero() bool { return w.TimeFrom == "" && w.TimeTo == "" }

// OpenAt reports whether the wall clock of t falls inside the window.
// Windows with an unparsable bound are never open.
func (w Window) OpenAt(t time.Time) bool {
	return contains(ParseBound(w.TimeFrom), ParseBound(w.TimeTo), Clock(t))
}

// Bound is an optional integer parsed from a decimal string field.
type Bound struct {
	Value int
	Valid bool
}

// ParseBound parses s, returning an invalid Bound for empty or non-numeric input.
func ParseBound(s string) Bound {
	s = strings.TrimSpace(s)
	if s == "" {
		return Bound{}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Bound{}
	}
	return Bound{Value: n, Valid: true}
}

// contains is inclusive on both ends; an absent bound contains nothing.
func contains(from, to Bound, v int) bool {
	return from.Valid && to.Valid && from.Value <= v && v <= to.Value
}

// Clock returns the HHmm value of t as an integer, e.g. 9:05 → 905.
func Clock(t time.Time) int {
	return t.Hour()*100 + t.Minute()
}

// Declaration is a timing tag with its range fields parsed.
type Declaration struct {
	Tag tags.Tag

	DayFrom, DayTo   Bound
	TimeFrom, TimeTo Bound
}

// Declare parses the range fields of a timing tag. When a field repeats the
// last occurrence is used.
func Declare(t tags.Tag) Declaration {
	d := Declaration{Tag: t}
	for _, it := range t.List {
		switch it.Code {
		case FieldDayFrom:
			d.DayFrom = ParseBound(it.Value)
		case FieldDayTo:
			d.DayTo = ParseBound(it.Value)
		case FieldTimeFrom:
			d.TimeFrom = ParseBound(it.Value)
		case FieldTimeTo:
			d.TimeTo = ParseBound(it.Value)
		}
	}
	return d
}

// Window returns the raw time_from/time_to strings of the declaration.
func (d Declaration) Window() Window {
	from, _ := d.Tag.Value(FieldTimeFrom)
	to, _ := d.Tag.Value(FieldTimeTo)
	return Window{TimeFrom: from, TimeTo: to}
}

func (d Declaration) Is(c Category) bool { return d.Tag.Has(FieldType, string(c)) }

func (d Declaration) OnDay(day int) bool { return contains(d.DayFrom, d.DayTo, day) }

func (d Declaration) OpenAtClock(clock int) bool { return contains(d.TimeFrom, d.TimeTo, clock) }

func (d Declaration) StartsAfter(clock int) bool {
	return d.TimeFrom.Valid && d.TimeFrom.Value > clock
}

// Candidates returns the timing declarations that reference localID, in
// their original order.
func Candidates(ts []tags.Tag, localID string) []Declaration {
	var out []Declaration
	for _, t := range ts {
		if t.Code != TagTiming || !t.Has(FieldLocation, localID) {
			continue
		}
		out = append(out, Declare(t))
	}
	return out
}
