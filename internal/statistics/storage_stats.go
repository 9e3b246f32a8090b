// Package statistics accumulates per-category storage size statistics.
package statistics

import (
	"sort"

	"github.com/storage-analysis/internal/prefix"
)

// UnknownName is the bucket name for unrecognized categories and items.
const UnknownName = prefix.UnknownName

// Measurement is the size contribution of one record.
type Measurement struct {
	KeyLen             uint64
	CompressedKeyLen   uint64
	ValueLen           uint64
	CompressedValueLen uint64
}

// ItemStat holds the sums for one item of a category.
type ItemStat struct {
	Name               string `json:"name"`
	KeyLen             uint64 `json:"key_len"`
	CompressedKeyLen   uint64 `json:"compressed_key_len"`
	ValueLen           uint64 `json:"value_len"`
	CompressedValueLen uint64 `json:"compressed_value_len"`
	NumEntries         uint64 `json:"num_entries"`
}

// Size returns the raw key plus value size.
func (s *ItemStat) Size() uint64 {
	return s.KeyLen + s.ValueLen
}

// CompressedSize returns the compressed key plus value size.
func (s *ItemStat) CompressedSize() uint64 {
	return s.CompressedKeyLen + s.CompressedValueLen
}

func (s *ItemStat) observe(m Measurement) {
	s.KeyLen += m.KeyLen
	s.CompressedKeyLen += m.CompressedKeyLen
	s.ValueLen += m.ValueLen
	s.CompressedValueLen += m.CompressedValueLen
	s.NumEntries++
}

func (s *ItemStat) add(o *ItemStat) {
	s.KeyLen += o.KeyLen
	s.CompressedKeyLen += o.CompressedKeyLen
	s.ValueLen += o.ValueLen
	s.CompressedValueLen += o.CompressedValueLen
	s.NumEntries += o.NumEntries
}

// CategoryStat holds the sums for one category and its items.
type CategoryStat struct {
	Name           string               `json:"name"`
	RawSize        uint64               `json:"size"`
	CompressedSize uint64               `json:"compressed_size"`
	Items          map[string]*ItemStat `json:"-"`
}

// NewCategoryStat creates an empty category.
func NewCategoryStat(name string) *CategoryStat {
	return &CategoryStat{Name: name, Items: make(map[string]*ItemStat)}
}

// Item returns the named item, creating it on first use.
func (c *CategoryStat) Item(name string) *ItemStat {
	it, ok := c.Items[name]
	if !ok {
		it = &ItemStat{Name: name}
		c.Items[name] = it
	}
	return it
}

// Observe adds one record to the category and to item.
func (c *CategoryStat) Observe(item string, m Measurement) {
	c.RawSize += m.KeyLen + m.ValueLen
	c.CompressedSize += m.CompressedKeyLen + m.CompressedValueLen
	c.Item(item).observe(m)
}

// Merge adds every field of o into c.
func (c *CategoryStat) Merge(o *CategoryStat) {
	c.RawSize += o.RawSize
	c.CompressedSize += o.CompressedSize
	for name, it := range o.Items {
		c.Item(name).add(it)
	}
}

// Clone returns a deep copy.
func (c *CategoryStat) Clone() *CategoryStat {
	out := NewCategoryStat(c.Name)
	out.Merge(c)
	return out
}

// SortedItems returns the items by descending key plus value size, ties
// broken by name.
func (c *CategoryStat) SortedItems() []*ItemStat {
	items := make([]*ItemStat, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Size() != items[j].Size() {
			return items[i].Size() > items[j].Size()
		}
		return items[i].Name < items[j].Name
	})
	return items
}

// Totals sums the items of the category.
func (c *CategoryStat) Totals() Totals {
	t := Totals{Size: c.RawSize, CompressedSize: c.CompressedSize}
	for _, it := range c.Items {
		t.NumKeys += it.NumEntries
		t.KeySize += it.KeyLen
		t.CompressedKeySize += it.CompressedKeyLen
		t.ValueSize += it.ValueLen
		t.CompressedValueSize += it.CompressedValueLen
	}
	return t
}

// Totals summarizes a category or a whole result.
type Totals struct {
	Size                uint64 `json:"size"`
	CompressedSize      uint64 `json:"compressed_size"`
	NumKeys             uint64 `json:"num_keys"`
	KeySize             uint64 `json:"key_size"`
	CompressedKeySize   uint64 `json:"compressed_key_size"`
	ValueSize           uint64 `json:"value_size"`
	CompressedValueSize uint64 `json:"compressed_value_size"`
}

func (t *Totals) add(o Totals) {
	t.Size += o.Size
	t.CompressedSize += o.CompressedSize
	t.NumKeys += o.NumKeys
	t.KeySize += o.KeySize
	t.CompressedKeySize += o.CompressedKeySize
	t.ValueSize += o.ValueSize
	t.CompressedValueSize += o.CompressedValueSize
}

// Result maps category names to their statistics.
type Result map[string]*CategoryStat

// NewResult creates an empty result.
func NewResult() Result {
	return make(Result)
}

// Category returns the named category, creating it on first use.
func (r Result) Category(name string) *CategoryStat {
	c, ok := r[name]
	if !ok {
		c = NewCategoryStat(name)
		r[name] = c
	}
	return c
}

// Observe buckets one classified record.
func (r Result) Observe(key prefix.CategorizedKey, m Measurement) {
	r.Category(key.Category()).Observe(key.ItemName(), m)
}

// Merge adds every category of o into r. Categories only present in o are
// copied, so r never aliases o.
func (r Result) Merge(o Result) {
	for name, c := range o {
		if existing, ok := r[name]; ok {
			existing.Merge(c)
		} else {
			r[name] = c.Clone()
		}
	}
}

// MergeAll combines partial results into a new one. The outcome does not
// depend on the order or partitioning of parts.
func MergeAll(parts ...Result) Result {
	out := NewResult()
	for _, p := range parts {
		out.Merge(p)
	}
	return out
}

// Sorted returns the categories by descending raw size, ties broken by name.
func (r Result) Sorted() []*CategoryStat {
	cats := make([]*CategoryStat, 0, len(r))
	for _, c := range r {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].RawSize != cats[j].RawSize {
			return cats[i].RawSize > cats[j].RawSize
		}
		return cats[i].Name < cats[j].Name
	})
	return cats
}

// Totals sums every category.
func (r Result) Totals() Totals {
	var t Totals
	for _, c := range r {
		t.add(c.Totals())
	}
	return t
}

// NumEntries returns the number of records observed.
func (r Result) NumEntries() uint64 {
	return r.Totals().NumKeys
}
