// Package prefix classifies record keys by their hashed category and item
// prefixes.
package prefix

import (
	"encoding/hex"

	"github.com/storage-analysis/internal/schema"
	"github.com/storage-analysis/pkg/utils"
)

// Entry is the identity stored under one prefix.
type Entry struct {
	Prefix   []byte
	Category string
	Item     *schema.Item
}

// Label returns the entry identity in CategorizedKey label form.
func (e Entry) Label() string {
	return e.key().Label()
}

func (e Entry) key() CategorizedKey {
	if e.Item != nil {
		return Item(e.Category, *e.Item)
	}
	return Category(e.Category)
}

// Collision records a prefix whose earlier identity was overwritten.
type Collision struct {
	Prefix   []byte
	Previous string
	Current  string
}

// Index maps category and item prefixes to their identity.
// It is immutable after Build and safe for concurrent use.
type Index struct {
	categories map[[DigestSize]byte]Entry
	items      map[[2 * DigestSize]byte]Entry
	collisions []Collision
}

type buildOptions struct {
	logger utils.Logger
	hash   func([]byte) [DigestSize]byte
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithLogger sets the logger used to report prefix collisions.
func WithLogger(logger utils.Logger) BuildOption {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

// withHash replaces the digest function; tests use it to force collisions.
func withHash(fn func([]byte) [DigestSize]byte) BuildOption {
	return func(o *buildOptions) {
		o.hash = fn
	}
}

// Build creates an index over categories, processed in ascending name order.
// When two names produce the same prefix the later one wins and the
// overwrite is recorded in Collisions.
func Build(categories []schema.Category, opts ...BuildOption) *Index {
	o := &buildOptions{logger: &utils.NullLogger{}, hash: Hash128}
	for _, opt := range opts {
		opt(o)
	}

	idx := &Index{
		categories: make(map[[DigestSize]byte]Entry),
		items:      make(map[[2 * DigestSize]byte]Entry),
	}

	for _, c := range schema.Sorted(categories) {
		ch := o.hash([]byte(c.Name))
		idx.insertCategory(ch, Entry{Prefix: ch[:], Category: c.Name}, o.logger)

		for i := range c.Items {
			item := c.Items[i]
			ih := o.hash([]byte(item.Name))
			var full [2 * DigestSize]byte
			copy(full[:], ch[:])
			copy(full[DigestSize:], ih[:])
			idx.insertItem(full, Entry{Prefix: full[:], Category: c.Name, Item: &item}, o.logger)
		}
	}

	return idx
}

func (idx *Index) insertCategory(p [DigestSize]byte, e Entry, logger utils.Logger) {
	if prev, ok := idx.categories[p]; ok {
		idx.recordCollision(prev, e, logger)
	}
	idx.categories[p] = e
}

func (idx *Index) insertItem(p [2 * DigestSize]byte, e Entry, logger utils.Logger) {
	if prev, ok := idx.items[p]; ok {
		idx.recordCollision(prev, e, logger)
	}
	idx.items[p] = e
}

func (idx *Index) recordCollision(prev, cur Entry, logger utils.Logger) {
	if prev.Label() == cur.Label() {
		return
	}
	c := Collision{Prefix: cur.Prefix, Previous: prev.Label(), Current: cur.Label()}
	idx.collisions = append(idx.collisions, c)
	logger.Warn("prefix collision at 0x%s: %s replaced by %s", hex.EncodeToString(c.Prefix), c.Previous, c.Current)
}

// Len returns the number of stored prefixes.
func (idx *Index) Len() int {
	return len(idx.categories) + len(idx.items)
}

// Collisions returns the overwrites that happened during Build.
func (idx *Index) Collisions() []Collision {
	return idx.collisions
}

// Lookup returns the entry stored under a 16- or 32-byte prefix.
func (idx *Index) Lookup(prefix []byte) (Entry, bool) {
	switch len(prefix) {
	case DigestSize:
		e, ok := idx.categories[[DigestSize]byte(prefix)]
		return e, ok
	case 2 * DigestSize:
		e, ok := idx.items[[2 * DigestSize]byte(prefix)]
		return e, ok
	default:
		return Entry{}, false
	}
}

// Categorize classifies key by its longest known prefix: the 32-byte item
// prefix first, then the 16-byte category prefix. Keys matching neither are
// Unknown.
func (idx *Index) Categorize(key []byte) CategorizedKey {
	if len(key) >= 2*DigestSize {
		if e, ok := idx.items[[2 * DigestSize]byte(key[:2*DigestSize])]; ok {
			return e.key()
		}
	}
	if len(key) >= DigestSize {
		if e, ok := idx.categories[[DigestSize]byte(key[:DigestSize])]; ok {
			return e.key()
		}
	}
	return Unknown()
}
