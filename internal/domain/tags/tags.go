// Package tags models the generic code/list declarations attached to seller,
// outlet and item records in the commerce catalog.
package tags

import "strings"

// Item is a single field of a tag.
type Item struct {
	Code  string `json:"code" validate:"required"`
	Value string `json:"value"`
}

// Tag is a category discriminator with an ordered list of fields.
type Tag struct {
	Code string `json:"code" validate:"required"`
	List []Item `json:"list" validate:"dive"`
}

// Has reports whether any item in the tag has the given code and value.
func (t Tag) Has(code, value string) bool {
	for _, it := range t.List {
		if it.Code == code && it.Value == value {
			return true
		}
	}
	return false
}

// Value returns the value of the last item with the given code.
func (t Tag) Value(code string) (string, bool) {
	var (
		v  string
		ok bool
	)
	for _, it := range t.List {
		if it.Code == code {
			v, ok = it.Value, true
		}
	}
	return v, ok
}

// Find returns the first tag with the given code.
func Find(ts []Tag, code string) (Tag, bool) {
	for _, t := range ts {
		if t.Code == code {
			return t, true
		}
	}
	return Tag{}, false
}

// Filter returns the tags with the given code, preserving order.
func Filter(ts []Tag, code string) []Tag {
	var out []Tag
	for _, t := range ts {
		if t.Code == code {
			out = append(out, t)
		}
	}
	return out
}

type Diet string

const (
	DietVeg    Diet = "veg"
	DietNonVeg Diet = "nonveg"
	DietEgg    Diet = "egg"
)

// DietOf classifies an item by its veg_nonveg tag. Items without a positive
// marker are treated as veg.
func DietOf(ts []Tag) Diet {
	t, ok := Find(ts, "veg_nonveg")
	if !ok {
		return DietVeg
	}
	switch {
	case yes(t, "veg"):
		return DietVeg
	case yes(t, "non_veg"):
		return DietNonVeg
	case yes(t, "egg"):
		return DietEgg
	}
	return DietVeg
}

func yes(t Tag, code string) bool {
	for _, it := range t.List {
		if it.Code == code && strings.EqualFold(it.Value, "yes") {
			return true
		}
	}
	return false
}

// IsCustomization reports whether an item is a customization rather than a
// standalone product.
func IsCustomization(ts []Tag) bool {
	for _, t := range ts {
		if t.Code == "type" && t.Has("type", "customization") {
			return true
		}
	}
	return false
}
