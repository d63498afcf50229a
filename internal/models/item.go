// Package models defines the domain types for studyvault.
package models

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the two Item variants.
type Kind int

const (
	KindGroup Kind = iota + 1
	KindNotebook
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "GROUP"
	case KindNotebook:
		return "NOTEBOOK"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a wire name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "GROUP":
		return KindGroup, nil
	case "NOTEBOOK":
		return KindNotebook, nil
	}
	return 0, fmt.Errorf("unknown item type %q", s)
}

// MarshalJSON encodes the kind as its wire name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a wire name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Item is one child of a group path: either a Group or a Notebook.
type Item struct {
	Name string `json:"name"`
	Kind Kind   `json:"type"`
}

// Group returns a group item.
func Group(name string) Item { return Item{Name: name, Kind: KindGroup} }

// Notebook returns a notebook item.
func Notebook(name string) Item { return Item{Name: name, Kind: KindNotebook} }

// IsGroup reports whether the item is a group.
func (i Item) IsGroup() bool { return i.Kind == KindGroup }

// NamesOfKind returns the names of items of kind k, in order.
func NamesOfKind(items []Item, k Kind) []string {
	out := []string{}
	for _, it := range items {
		if it.Kind == k {
			out = append(out, it.Name)
		}
	}
	return out
}
