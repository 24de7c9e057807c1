// Package timing resolves the operating window of a seller location from its
// timing declarations.
//
// Resolution order:
//   - a single declaration for the location is returned as is
//   - a declaration of type ALL covers every operation
//   - otherwise each category of the chain is tried in turn: a slot open now,
//     then a later slot today, then the earliest slot tomorrow
package timing

import (
	"sort"
	"time"

	"github.com/example/storehours/internal/domain/tags"
)

// Rule names the step that produced a Resolution.
type Rule string

const (
	RuleNone     Rule = "none"
	RuleSingle   Rule = "single"
	RuleAll      Rule = "all"
	RuleCategory Rule = "category"
)

// Match names how a category slot was selected.
type Match string

const (
	MatchCurrent  Match = "current"
	MatchUpcoming Match = "upcoming"
	MatchNextDay  Match = "next-day"
)

// Resolution is a resolved window together with how it was found.
type Resolution struct {
	Window
	Rule     Rule
	Category Category
	Match    Match
}

// OpenAt reports whether the store is open at t. Slots found by the upcoming
// or next-day search are never open yet, even when their clock range covers t.
func (r Resolution) OpenAt(t time.Time) bool {
	if r.Match == MatchUpcoming || r.Match == MatchNextDay {
		return false
	}
	return r.Window.OpenAt(t)
}

// Rollover controls how the next-day search treats the last day of the week.
type Rollover int

const (
	// RolloverLiteral searches day+1 without wrapping, so on the last weekday
	// the next-day search finds nothing.
	RolloverLiteral Rollover = iota
	// RolloverWrap continues from the last weekday to the first.
	RolloverWrap
)

// Weekdays selects the day numbering day_from/day_to are written in.
type Weekdays int

const (
	// WeekdaysISO numbers Monday 1 through Sunday 7.
	WeekdaysISO Weekdays = iota
	// WeekdaysSundayZero numbers Sunday 0 through Saturday 6.
	WeekdaysSundayZero
)

func (w Weekdays) of(t time.Time) int {
	d := int(t.Weekday())
	if w == WeekdaysISO && d == 0 {
		return 7
	}
	return d
}

func (w Weekdays) bounds() (first, last int) {
	if w == WeekdaysSundayZero {
		return 0, 6
	}
	return 1, 7
}

// Resolver is immutable and safe for concurrent use.
type Resolver struct {
	chain    []Category
	rollover Rollover
	weekdays Weekdays
	loc      *time.Location
	clock    func() time.Time
}

type Option func(*Resolver)

// WithChain replaces the category fallback order.
func WithChain(chain ...Category) Option {
	return func(r *Resolver) {
		r.chain = append([]Category(nil), chain...)
	}
}

func WithRollover(m Rollover) Option {
	return func(r *Resolver) { r.rollover = m }
}

func WithWeekdays(w Weekdays) Option {
	return func(r *Resolver) { r.weekdays = w }
}

// WithLocation evaluates the weekday and clock of an instant in loc instead
// of the instant's own location.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) { r.loc = loc }
}

// WithClock sets the source of "now" for ResolveNow.
func WithClock(clock func() time.Time) Option {
	return func(r *Resolver) { r.clock = clock }
}

func New(opts ...Option) *Resolver {
	r := &Resolver{
		chain: DefaultChain,
		clock: time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var defaultResolver = New()

// Resolve uses the default chain, literal rollover and ISO weekdays.
func Resolve(ts []tags.Tag, localID string, now time.Time) Window {
	return defaultResolver.Resolve(ts, localID, now)
}

func (r *Resolver) Chain() []Category { return append([]Category(nil), r.chain...) }

// Now returns the current instant from the resolver's clock.
func (r *Resolver) Now() time.Time { return r.clock() }

// In converts t to the resolver's evaluation location.
func (r *Resolver) In(t time.Time) time.Time {
	if r.loc == nil {
		return t
	}
	return t.In(r.loc)
}

func (r *Resolver) Resolve(ts []tags.Tag, localID string, now time.Time) Window {
	return r.Explain(ts, localID, now).Window
}

func (r *Resolver) ResolveNow(ts []tags.Tag, localID string) Window {
	return r.Resolve(ts, localID, r.clock())
}

// Explain resolves the window for localID at now and reports which rule
// produced it.
func (r *Resolver) Explain(ts []tags.Tag, localID string, now time.Time) Resolution {
	candidates := Candidates(ts, localID)
	switch len(candidates) {
	case 0:
		return Resolution{Rule: RuleNone}
	case 1:
		return Resolution{Window: candidates[0].Window(), Rule: RuleSingle}
	}

	for _, d := range candidates {
		if d.Is(CategoryAll) {
			return Resolution{Window: d.Window(), Rule: RuleAll, Category: CategoryAll}
		}
	}

	for _, c := range r.chain {
		if d, m, ok := r.resolveCategory(candidates, c, now); ok {
			return Resolution{Window: d.Window(), Rule: RuleCategory, Category: c, Match: m}
		}
	}
	return Resolution{Rule: RuleNone}
}

// ResolveCategory picks the declaration of category c that applies at now:
// one open now, else the first one starting later today, else the earliest
// one tomorrow.
func (r *Resolver) ResolveCategory(candidates []Declaration, c Category, now time.Time) (Declaration, bool) {
	d, _, ok := r.resolveCategory(candidates, c, now)
	return d, ok
}

func (r *Resolver) resolveCategory(candidates []Declaration, c Category, now time.Time) (Declaration, Match, bool) {
	now = r.In(now)
	day := r.weekdays.of(now)
	clock := Clock(now)

	byType := filter(candidates, func(d Declaration) bool { return d.Is(c) })
	if len(byType) == 0 {
		return Declaration{}, "", false
	}
	byDay := filter(byType, func(d Declaration) bool { return d.OnDay(day) })

	for _, d := range byDay {
		if d.OpenAtClock(clock) {
			return d, MatchCurrent, true
		}
	}
	for _, d := range byDay {
		if d.StartsAfter(clock) {
			return d, MatchUpcoming, true
		}
	}

	next := r.nextDay(day)
	nextDay := filter(byType, func(d Declaration) bool { return d.OnDay(next) })
	if len(nextDay) == 0 {
		return Declaration{}, "", false
	}
	sort.SliceStable(nextDay, func(i, j int) bool {
		a, b := nextDay[i].TimeFrom, nextDay[j].TimeFrom
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.Value < b.Value
	})
	return nextDay[0], MatchNextDay, true
}

func (r *Resolver) nextDay(day int) int {
	first, last := r.weekdays.bounds()
	if r.rollover == RolloverWrap && day >= last {
		return first
	}
	return day + 1
}

// filter always returns a fresh slice so callers may reorder it.
func filter(ds []Declaration, keep func(Declaration) bool) []Declaration {
	out := make([]Declaration, 0, len(ds))
	for _, d := range ds {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
