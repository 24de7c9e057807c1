// Package customization flattens the nested customization groups a shopper
// picks for a catalog item into the flat list sent with a cart line.
package customization

import "github.com/example/storehours/internal/domain/tags"

// MaxDepth bounds how many group levels SelectedIDs descends.
const MaxDepth = 32

// Item is a customization option as listed in the catalog.
type Item struct {
	ID       string   `json:"id" validate:"required"`
	Parent   string   `json:"parent"`
	Children []string `json:"childs,omitempty"`
}

// Mapping indexes catalog customizations by item and by group.
type Mapping struct {
	ItemChildren map[string][]string
	GroupItems   map[string][]string
}

// BuildMapping records each item's child groups and each group's items.
// Group item lists keep first-seen order and drop duplicates.
func BuildMapping(items []Item) Mapping {
	m := Mapping{
		ItemChildren: make(map[string][]string, len(items)),
		GroupItems:   make(map[string][]string),
	}
	seen := make(map[string]map[string]bool)
	for _, it := range items {
		children := it.Children
		if children == nil {
			children = []string{}
		}
		m.ItemChildren[it.ID] = children

		if seen[it.Parent] == nil {
			seen[it.Parent] = make(map[string]bool)
		}
		if seen[it.Parent][it.ID] {
			continue
		}
		seen[it.Parent][it.ID] = true
		m.GroupItems[it.Parent] = append(m.GroupItems[it.Parent], it.ID)
	}
	return m
}

// Group is the shopper's selection state for one customization group.
type Group struct {
	Selected []string `json:"selected"`
	Children []string `json:"children,omitempty"`
}

// State maps group IDs to their selection state.
type State map[string]Group

// SelectedIDs walks the groups reachable from first in pre-order and returns
// the selected customization IDs. Unknown groups are skipped and each group is
// visited at most once.
func SelectedIDs(state State, first string) []string {
	type frame struct {
		group string
		depth int
	}
	var (
		out     []string
		visited = map[string]bool{}
		stack   = []frame{{group: first}}
	)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		g, ok := state[f.group]
		if !ok || visited[f.group] {
			continue
		}
		visited[f.group] = true
		out = append(out, g.Selected...)

		if f.depth+1 >= MaxDepth {
			continue
		}
		for i := len(g.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{group: g.Children[i], depth: f.depth + 1})
		}
	}
	return out
}

// Option is a customization entry of a catalog product.
type Option struct {
	LocalID  string `json:"local_id"`
	Name     string `json:"name,omitempty"`
	Quantity int    `json:"quantity"`

	Diet tags.Diet `json:"diet,omitempty"`
}

// Select returns the catalog options matching the shopper's selection, in
// selection order, each with quantity 1. It returns nil when first is empty.
func Select(catalog []Option, state State, first string) []Option {
	if first == "" {
		return nil
	}
	byID := make(map[string]Option, len(catalog))
	for _, o := range catalog {
		if _, dup := byID[o.LocalID]; !dup {
			byID[o.LocalID] = o
		}
	}
	var out []Option
	for _, id := range SelectedIDs(state, first) {
		o, ok := byID[id]
		if !ok {
			continue
		}
		o.Quantity = 1
		out = append(out, o)
	}
	return out
}

// CatalogItem is a catalog record as the storefront receives it. Only records
// tagged as customizations take part in selection.
type CatalogItem struct {
	Item
	Name string     `json:"name,omitempty"`
	Tags []tags.Tag `json:"tags,omitempty" validate:"dive"`
}

// Cart is the customization part of a cart line.
type Cart struct {
	Groups  map[string][]string `json:"groups"`
	Options []Option            `json:"options"`
}

// BuildCart drops non-customization records from items, groups the rest and
// returns the options selected from first on, each labelled with its diet.
func BuildCart(items []CatalogItem, state State, first string) Cart {
	var (
		custom  []Item
		catalog []Option
	)
	for _, it := range items {
		if !tags.IsCustomization(it.Tags) {
			continue
		}
		custom = append(custom, it.Item)
		catalog = append(catalog, Option{LocalID: it.ID, Name: it.Name, Diet: tags.DietOf(it.Tags)})
	}

	options := Select(catalog, state, first)
	if options == nil {
		options = []Option{}
	}
	return Cart{Groups: BuildMapping(custom).GroupItems, Options: options}
}
