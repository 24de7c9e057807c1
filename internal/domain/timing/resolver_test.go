package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storehours/internal/domain/tags"
)

// 2024-01-01 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, time.UTC)
}

const (
	monday   = 1
	saturday = 6
	sunday   = 7
)

func timing(location string, kv ...string) tags.Tag {
	t := tags.Tag{Code: TagTiming, List: []tags.Item{{Code: FieldLocation, Value: location}}}
	for i := 0; i+1 < len(kv); i += 2 {
		t.List = append(t.List, tags.Item{Code: kv[i], Value: kv[i+1]})
	}
	return t
}

func slot(location string, c Category, dayFrom, dayTo, from, to string) tags.Tag {
	return timing(location,
		FieldType, string(c),
		FieldDayFrom, dayFrom, FieldDayTo, dayTo,
		FieldTimeFrom, from, FieldTimeTo, to,
	)
}

func TestResolveNoCandidates(t *testing.T) {
	tests := []struct {
		name string
		tags []tags.Tag
	}{
		{"nil", nil},
		{"empty", []tags.Tag{}},
		{"other location", []tags.Tag{timing("loc2", FieldTimeFrom, "0800", FieldTimeTo, "2200")}},
		{"other codes only", []tags.Tag{
			{Code: "veg_nonveg", List: []tags.Item{{Code: "veg", Value: "yes"}}},
			{Code: "serviceability", List: []tags.Item{{Code: FieldLocation, Value: "loc1"}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.tags, "loc1", at(monday, 10, 0))
			assert.Equal(t, Window{}, got)
			assert.True(t, got.IsZero())
		})
	}
}

func TestResolveSingleDeclarationShortcut(t *testing.T) {
	ts := []tags.Tag{
		timing("loc1", FieldTimeFrom, "0800", FieldTimeTo, "2200"),
		timing("loc2", FieldTimeFrom, "1000", FieldTimeTo, "1100"),
	}
	for _, now := range []time.Time{at(monday, 3, 0), at(saturday, 23, 59), at(sunday, 12, 0)} {
		assert.Equal(t, Window{TimeFrom: "0800", TimeTo: "2200"}, Resolve(ts, "loc1", now), now.String())
	}

	// No day or category filtering applies to a lone declaration.
	lone := []tags.Tag{slot("loc1", CategoryOrder, "1", "1", "0900", "1000")}
	assert.Equal(t, Window{TimeFrom: "0900", TimeTo: "1000"}, Resolve(lone, "loc1", at(sunday, 23, 0)))

	partial := []tags.Tag{timing("loc1", FieldTimeFrom, "0800")}
	assert.Equal(t, Window{TimeFrom: "0800"}, Resolve(partial, "loc1", at(monday, 9, 0)))

	res := New().Explain(ts, "loc1", at(monday, 3, 0))
	assert.Equal(t, RuleSingle, res.Rule)
}

func TestResolveAllTakesPrecedence(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "1", "7", "0900", "1700"),
		timing("loc1", FieldType, "ALL", FieldTimeFrom, "0000", FieldTimeTo, "2359"),
	}
	for _, now := range []time.Time{at(monday, 10, 0), at(saturday, 20, 0), at(sunday, 0, 0)} {
		res := New().Explain(ts, "loc1", now)
		assert.Equal(t, Window{TimeFrom: "0000", TimeTo: "2359"}, res.Window)
		assert.Equal(t, RuleAll, res.Rule)
		assert.Equal(t, CategoryAll, res.Category)
	}
}

func TestResolveCategoryMatchIsExact(t *testing.T) {
	ts := []tags.Tag{
		timing("loc1", FieldType, "All", FieldTimeFrom, "0000", FieldTimeTo, "2359"),
		slot("loc1", CategoryOrder, "1", "7", "0900", "1700"),
	}
	res := New().Explain(ts, "loc1", at(monday, 10, 0))
	assert.Equal(t, RuleCategory, res.Rule)
	assert.Equal(t, CategoryOrder, res.Category)
	assert.Equal(t, Window{TimeFrom: "0900", TimeTo: "1700"}, res.Window)

	// "order" is not Order either, so nothing in the chain applies
	lower := []tags.Tag{
		timing("loc1", FieldType, "All", FieldTimeFrom, "0000", FieldTimeTo, "2359"),
		slot("loc1", Category("order"), "1", "7", "0900", "1700"),
	}
	res = New().Explain(lower, "loc1", at(monday, 10, 0))
	assert.Equal(t, RuleNone, res.Rule)
	assert.True(t, res.Window.IsZero())
}

func TestResolveCategoryPrecedence(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryDelivery, "1", "7", "0800", "2000"),
		slot("loc1", CategoryOrder, "1", "7", "0900", "1700"),
	}
	res := New().Explain(ts, "loc1", at(monday, 10, 0))
	assert.Equal(t, Window{TimeFrom: "0900", TimeTo: "1700"}, res.Window)
	assert.Equal(t, CategoryOrder, res.Category)
	assert.Equal(t, MatchCurrent, res.Match)

	// Order has no slot on Sunday; Delivery does.
	ts = []tags.Tag{
		slot("loc1", CategoryOrder, "1", "5", "0900", "1700"),
		slot("loc1", CategoryDelivery, "6", "7", "1000", "1400"),
	}
	res = New().Explain(ts, "loc1", at(sunday, 11, 0))
	assert.Equal(t, Window{TimeFrom: "1000", TimeTo: "1400"}, res.Window)
	assert.Equal(t, CategoryDelivery, res.Category)
}

func TestResolveInclusiveBoundaries(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "1", "5", "0900", "1800"),
		slot("loc1", CategoryDelivery, "1", "5", "1000", "1100"),
	}
	r := New()
	for _, now := range []time.Time{at(monday, 9, 0), at(monday, 18, 0), at(5, 12, 0)} {
		res := r.Explain(ts, "loc1", now)
		assert.Equal(t, Window{TimeFrom: "0900", TimeTo: "1800"}, res.Window, now.String())
		assert.Equal(t, MatchCurrent, res.Match, now.String())
	}

	// One minute past closing: Tuesday's slot is found by the next-day search.
	res := r.Explain(ts, "loc1", at(monday, 18, 1))
	assert.Equal(t, MatchNextDay, res.Match)
}

func TestResolveUpcomingSameDay(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "1", "1", "0700", "0800"),
		slot("loc1", CategoryOrder, "1", "1", "1700", "1800"),
		slot("loc1", CategoryOrder, "1", "1", "1500", "1600"),
		slot("loc1", CategoryOrder, "2", "2", "0600", "0700"),
	}
	res := New().Explain(ts, "loc1", at(monday, 10, 0))
	// First upcoming slot in declaration order, not the earliest one.
	assert.Equal(t, Window{TimeFrom: "1700", TimeTo: "1800"}, res.Window)
	assert.Equal(t, MatchUpcoming, res.Match)
}

func TestResolveNextDayEarliest(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "1", "1", "0800", "1000"),
		slot("loc1", CategoryOrder, "2", "2", "1400", "2000"),
		slot("loc1", CategoryOrder, "2", "3", "0900", "1200"),
		slot("loc1", CategoryOrder, "4", "4", "0100", "0200"),
	}
	res := New().Explain(ts, "loc1", at(monday, 21, 0))
	assert.Equal(t, Window{TimeFrom: "0900", TimeTo: "1200"}, res.Window)
	assert.Equal(t, MatchNextDay, res.Match)
	assert.Equal(t, RuleCategory, res.Rule)
}

func TestResolveWeekdayOnlyOrderOnSaturday(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "1", "5", "0900", "1700"),
		slot("loc1", CategoryOrder, "1", "5", "1800", "2100"),
	}
	res := New().Explain(ts, "loc1", at(saturday, 10, 0))
	assert.Equal(t, Window{}, res.Window)
	assert.Equal(t, RuleNone, res.Rule)

	withPickup := append(ts, slot("loc1", CategorySelfPickup, "6", "7", "1000", "2000"))
	res = New().Explain(withPickup, "loc1", at(saturday, 10, 0))
	assert.Equal(t, Window{TimeFrom: "1000", TimeTo: "2000"}, res.Window)
	assert.Equal(t, CategorySelfPickup, res.Category)
}

func TestResolveRollover(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "1", "7", "0900", "1200"),
		slot("loc1", CategoryOrder, "1", "7", "1300", "2200"),
	}
	late := at(sunday, 23, 0)

	assert.Equal(t, Window{}, New().Resolve(ts, "loc1", late), "literal rollover stops at the last weekday")
	assert.Equal(t, Window{TimeFrom: "0900", TimeTo: "1200"}, New(WithRollover(RolloverWrap)).Resolve(ts, "loc1", late))

	// Monday night is unaffected by the mode.
	for _, m := range []Rollover{RolloverLiteral, RolloverWrap} {
		assert.Equal(t, Window{TimeFrom: "0900", TimeTo: "1200"}, New(WithRollover(m)).Resolve(ts, "loc1", at(monday, 23, 0)))
	}
}

func TestResolveSundayZeroWeekdays(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "6", "6", "0900", "1000"),
		slot("loc1", CategoryOrder, "0", "0", "0800", "0900"),
	}
	lateSaturday := at(saturday, 11, 0)

	literal := New(WithWeekdays(WeekdaysSundayZero))
	assert.Equal(t, Window{}, literal.Resolve(ts, "loc1", lateSaturday))

	wrap := New(WithWeekdays(WeekdaysSundayZero), WithRollover(RolloverWrap))
	assert.Equal(t, Window{TimeFrom: "0800", TimeTo: "0900"}, wrap.Resolve(ts, "loc1", lateSaturday))

	// Sunday is day 0 in this numbering.
	assert.Equal(t, Window{TimeFrom: "0800", TimeTo: "0900"}, literal.Resolve(ts, "loc1", at(sunday, 8, 30)))
}

func TestResolveMalformedFieldsAreExcluded(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "x", "7", "0000", "2359"),
		slot("loc1", CategoryOrder, "1", "1", "abc", "2359"),
		timing("loc1", FieldType, string(CategoryOrder), FieldTimeFrom, "0000", FieldTimeTo, "2359"),
		slot("loc1", CategoryDelivery, "1", "7", "0900", "1000"),
	}
	res := New().Explain(ts, "loc1", at(monday, 9, 30))
	assert.Equal(t, CategoryDelivery, res.Category)
	assert.Equal(t, Window{TimeFrom: "0900", TimeTo: "1000"}, res.Window)
}

func TestResolveCustomChain(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "1", "7", "0900", "1700"),
		slot("loc1", CategoryDelivery, "1", "7", "1000", "2000"),
	}
	r := New(WithChain(CategoryDelivery, CategoryOrder))
	assert.Equal(t, []Category{CategoryDelivery, CategoryOrder}, r.Chain())
	assert.Equal(t, Window{TimeFrom: "1000", TimeTo: "2000"}, r.Resolve(ts, "loc1", at(monday, 12, 0)))

	onlyPickup := New(WithChain(CategorySelfPickup))
	assert.Equal(t, Window{}, onlyPickup.Resolve(ts, "loc1", at(monday, 12, 0)))
}

func TestResolveCategoryIndependently(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "1", "7", "0900", "1700"),
		slot("loc1", CategoryDelivery, "1", "7", "1000", "2000"),
	}
	candidates := Candidates(ts, "loc1")
	require.Len(t, candidates, 2)

	r := New()
	d, ok := r.ResolveCategory(candidates, CategoryDelivery, at(monday, 19, 0))
	require.True(t, ok)
	assert.Equal(t, Window{TimeFrom: "1000", TimeTo: "2000"}, d.Window())

	_, ok = r.ResolveCategory(candidates, CategorySelfPickup, at(monday, 19, 0))
	assert.False(t, ok)
}

func TestResolveInStoreLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "1", "1", "0900", "1000"),
		slot("loc1", CategoryDelivery, "1", "1", "2000", "2100"),
	}
	// 04:00 UTC on Monday is 09:30 in IST.
	now := at(monday, 4, 0)

	assert.Equal(t, Window{TimeFrom: "0900", TimeTo: "1000"}, New(WithLocation(ist)).Resolve(ts, "loc1", now))
	res := New().Explain(ts, "loc1", now)
	assert.Equal(t, MatchUpcoming, res.Match)
}

func TestResolveNowUsesClock(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "1", "7", "0900", "1200"),
		slot("loc1", CategoryOrder, "1", "7", "1300", "2200"),
	}
	r := New(WithClock(func() time.Time { return at(monday, 14, 0) }))
	assert.Equal(t, at(monday, 14, 0), r.Now())
	assert.Equal(t, Window{TimeFrom: "1300", TimeTo: "2200"}, r.ResolveNow(ts, "loc1"))
}

func TestResolutionOpenAt(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "1", "1", "0700", "0800"),
		slot("loc1", CategoryOrder, "2", "2", "0900", "1200"),
	}
	r := New()

	now := at(monday, 10, 0)
	res := r.Explain(ts, "loc1", now)
	require.Equal(t, MatchNextDay, res.Match)
	assert.True(t, res.Window.OpenAt(now), "tomorrow's range covers the clock")
	assert.False(t, res.OpenAt(now), "but the store is closed today")

	now = at(monday, 7, 30)
	res = r.Explain(ts, "loc1", now)
	assert.True(t, res.OpenAt(now))

	single := []tags.Tag{timing("loc1", FieldTimeFrom, "0800", FieldTimeTo, "2200")}
	assert.True(t, r.Explain(single, "loc1", at(sunday, 12, 0)).OpenAt(at(sunday, 12, 0)))
	assert.False(t, r.Explain(single, "loc1", at(sunday, 23, 0)).OpenAt(at(sunday, 23, 0)))
}

func TestResolveIsDeterministicAndDoesNotMutate(t *testing.T) {
	ts := []tags.Tag{
		slot("loc1", CategoryOrder, "2", "2", "1400", "2000"),
		slot("loc1", CategoryOrder, "2", "2", "0900", "1200"),
	}
	before := make([]tags.Tag, len(ts))
	for i, tg := range ts {
		before[i] = tags.Tag{Code: tg.Code, List: append([]tags.Item(nil), tg.List...)}
	}

	now := at(monday, 21, 0)
	first := Resolve(ts, "loc1", now)
	second := Resolve(ts, "loc1", now)
	assert.Equal(t, first, second)
	assert.Equal(t, Window{TimeFrom: "0900", TimeTo: "1200"}, first)
	assert.Equal(t, before, ts)
}
