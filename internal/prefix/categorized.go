package prefix

import "github.com/storage-analysis/internal/schema"

// UnknownName is the identity of the bucket for unrecognized keys and for
// keys of a known category whose item is not recognized.
const UnknownName = "Unknown"

// Kind is the variant of a CategorizedKey.
type Kind uint8

const (
	// KindUnknown matches no known prefix.
	KindUnknown Kind = iota
	// KindCategory matches a category prefix but no item.
	KindCategory
	// KindItem matches a category and one of its items.
	KindItem
)

func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindCategory:
		return "category"
	default:
		return "unknown"
	}
}

// CategorizedKey is the classification of one record key.
// The zero value is Unknown.
type CategorizedKey struct {
	kind     Kind
	category string
	item     schema.Item
}

// Item returns a key that belongs to item of category.
func Item(category string, item schema.Item) CategorizedKey {
	return CategorizedKey{kind: KindItem, category: category, item: item}
}

// Category returns a key that belongs to category but no known item.
func Category(category string) CategorizedKey {
	return CategorizedKey{kind: KindCategory, category: category}
}

// Unknown returns a key with no known category.
func Unknown() CategorizedKey {
	return CategorizedKey{}
}

// Kind returns the variant.
func (k CategorizedKey) Kind() Kind { return k.kind }

// Category returns the category name, or UnknownName for unknown keys.
func (k CategorizedKey) Category() string {
	if k.kind == KindUnknown {
		return UnknownName
	}
	return k.category
}

// Item returns the item descriptor; ok is false unless Kind is KindItem.
func (k CategorizedKey) Item() (schema.Item, bool) {
	return k.item, k.kind == KindItem
}

// ItemName returns the item name, or UnknownName when no item was recognized.
func (k CategorizedKey) ItemName() string {
	if k.kind != KindItem {
		return UnknownName
	}
	return k.item.Name
}

// Label returns "Category::Item", "Category" or "Unknown".
func (k CategorizedKey) Label() string {
	switch k.kind {
	case KindItem:
		return k.category + "::" + k.item.Name
	case KindCategory:
		return k.category
	default:
		return UnknownName
	}
}

func (k CategorizedKey) String() string {
	return k.Label()
}
