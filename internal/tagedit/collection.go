package tagedit

import (
	"slices"
	"sync"

	"github.com/pbaille/kbtags/internal/domain"
)

// Collection is the tag list shared by every editor rendering from it.
//
// Every mutation publishes a freshly allocated slice and readers always get
// their own copy, so nobody observes a half-applied change.
type Collection struct {
	mu   sync.RWMutex
	tags []domain.Tag
	subs map[int]func([]domain.Tag)
	next int
}

// NewCollection creates a Collection seeded with a copy of tags.
func NewCollection(tags []domain.Tag) *Collection {
	return &Collection{
		tags: slices.Clone(tags),
		subs: make(map[int]func([]domain.Tag)),
	}
}

// Tags returns a copy of the current collection.
func (c *Collection) Tags() []domain.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tags)
}

// Len returns the number of tags.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tags)
}

// Find returns the tag with id.
func (c *Collection) Find(id string) (domain.Tag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return find(c.tags, id)
}

// Replace swaps the whole collection for tags.
func (c *Collection) Replace(tags []domain.Tag) {
	c.Update(func([]domain.Tag) []domain.Tag { return tags })
}

// Update replaces the collection with fn's result. fn runs under the writer
// lock and receives a private copy of the current tags, so the replacement is
// always derived from the latest state.
func (c *Collection) Update(fn func(current []domain.Tag) []domain.Tag) {
	c.mu.Lock()
	next := slices.Clone(fn(slices.Clone(c.tags)))
	c.tags = next
	subs := make([]func([]domain.Tag), 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		sub(slices.Clone(next))
	}
}

// Subscribe registers fn to receive every replacement. The returned func
// removes the subscription.
func (c *Collection) Subscribe(fn func(tags []domain.Tag)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// WithName returns a copy of tags in which the tag with id is named name.
func WithName(tags []domain.Tag, id, name string) []domain.Tag {
	out := make([]domain.Tag, len(tags))
	for i, t := range tags {
		if t.ID == id {
			t.Name = name
		}
		out[i] = t
	}
	return out
}

// Without returns a copy of tags excluding the tag with id.
func Without(tags []domain.Tag, id string) []domain.Tag {
	out := make([]domain.Tag, 0, len(tags))
	for _, t := range tags {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func find(tags []domain.Tag, id string) (domain.Tag, bool) {
	for _, t := range tags {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Tag{}, false
}
