package domain

import "time"

// Entry represents a captured piece of content
type Entry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Tags      []Tag     `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag represents a classification label with optional hierarchy.
// BindingCount is the number of entries currently linked to the tag.
type Tag struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ParentID     *string   `json:"parent_id,omitempty"`
	BindingCount int       `json:"binding_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Bound reports whether other entries reference the tag.
func (t Tag) Bound() bool {
	return t.BindingCount > 0
}
