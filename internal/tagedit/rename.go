package tagedit

import (
	"context"
	"sync"

	"github.com/pbaille/kbtags/internal/domain"
	"github.com/pbaille/kbtags/internal/logging"
)

// RenameState tracks one rename session:
// Idle -> Optimistic(snapshot) -> Committed | RolledBack.
type RenameState int

const (
	RenameIdle RenameState = iota
	RenameOptimistic
	RenameCommitted
	RenameRolledBack
)

func (s RenameState) String() string {
	switch s {
	case RenameIdle:
		return "idle"
	case RenameOptimistic:
		return "optimistic"
	case RenameCommitted:
		return "committed"
	case RenameRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// Renamer owns the edit session of one tag widget and applies renames
// optimistically, rolling back when the remote rejects them.
//
// Overlapping renames of the same tag are not serialized: a second Submit
// while the first is in flight snapshots the first's optimistic name.
type Renamer struct {
	tagID    string
	ctx      context.Context
	tags     *Collection
	remote   Remote
	notifier Notifier
	log      logging.Logger
	tasks    *tracker

	mu        sync.Mutex
	confirmed string
	editing   bool
	draft     string
	state     RenameState
}

// BeginEdit enters edit mode with the draft seeded from the confirmed name.
func (r *Renamer) BeginEdit() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.editing = true
	r.draft = r.confirmed
	if r.state != RenameOptimistic {
		r.state = RenameIdle
	}
}

// SetDraft records the text currently typed in the rename input.
func (r *Renamer) SetDraft(draft string) {
	r.mu.Lock()
	r.draft = draft
	r.mu.Unlock()
}

// Draft returns the current draft text.
func (r *Renamer) Draft() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

// Editing reports whether the rename input is open.
func (r *Renamer) Editing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.editing
}

// Confirmed returns the last name confirmed by the remote.
func (r *Renamer) Confirmed() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.confirmed
}

// State returns the state of the latest rename session.
func (r *Renamer) State() RenameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Submit concludes the edit session with proposed as the new name.
//
// An unchanged name just closes the editor. An empty name is rejected locally.
// Anything else is written to the collection before the remote call is issued
// and rolled back from the pre-write snapshot if the call fails.
func (r *Renamer) Submit(proposed string) *Pending {
	r.mu.Lock()
	original := r.confirmed

	if proposed == original {
		r.editing = false
		r.mu.Unlock()
		return settled(nil)
	}

	if proposed == "" {
		r.draft = original
		r.editing = false
		r.mu.Unlock()
		r.notifier.Notify(KindError, MsgEmptyName)
		return settled(ErrEmptyName)
	}

	if r.state == RenameOptimistic {
		r.log.Warn("tag %s: rename to %q submitted while %q is still unconfirmed", r.tagID, proposed, r.draft)
	}

	r.state = RenameOptimistic
	r.draft = proposed
	r.editing = false
	r.mu.Unlock()

	snapshot := domain.Tag{ID: r.tagID, Name: original}
	r.tags.Update(func(current []domain.Tag) []domain.Tag {
		if t, ok := find(current, r.tagID); ok {
			snapshot = t
		}
		return WithName(current, r.tagID, proposed)
	})

	r.log.Debug("tag %s: optimistic rename %q -> %q", r.tagID, snapshot.Name, proposed)

	return r.tasks.run("tagedit.rename",
		func() error {
			return r.remote.RenameTag(r.ctx, r.tagID, proposed)
		},
		func() {
			r.mu.Lock()
			r.confirmed = proposed
			r.draft = proposed
			r.state = RenameCommitted
			r.mu.Unlock()

			r.notifier.Notify(KindSuccess, MsgModified)
		},
		func(err error) {
			r.log.Warn("tag %s: rename to %q failed, rolling back to %q: %v", r.tagID, proposed, snapshot.Name, err)

			r.mu.Lock()
			r.draft = original
			r.editing = false
			r.state = RenameRolledBack
			r.mu.Unlock()

			r.notifier.Notify(KindError, MsgModifyFailed)
			r.tags.Update(func(current []domain.Tag) []domain.Tag {
				return WithName(current, r.tagID, snapshot.Name)
			})
		},
	)
}
