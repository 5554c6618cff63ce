package tagedit

import (
	"context"
	"sync"

	"github.com/pbaille/kbtags/internal/domain"
	"github.com/pbaille/kbtags/internal/logging"
)

// Deleter removes a tag through the remote, at most one call at a time per
// widget, behind a debounced trigger.
type Deleter struct {
	ctx      context.Context
	tags     *Collection
	remote   Remote
	notifier Notifier
	log      logging.Logger
	tasks    *tracker
	debounce *Debouncer[string]

	mu      sync.Mutex
	pending bool
}

// Trigger schedules Remove(tagID) once the debounce window is quiet.
func (d *Deleter) Trigger(tagID string) {
	d.debounce.Trigger(tagID)
}

// Pending reports whether a delete call is in flight.
func (d *Deleter) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Remove deletes tagID remotely and drops it from the collection on success.
// While a previous call is in flight it does nothing.
func (d *Deleter) Remove(tagID string) *Pending {
	d.mu.Lock()
	if d.pending {
		d.mu.Unlock()
		d.log.Debug("tag %s: delete already in flight, ignoring", tagID)
		return settled(nil)
	}
	d.pending = true
	d.mu.Unlock()

	return d.tasks.run("tagedit.delete",
		func() error {
			return d.remote.DeleteTag(d.ctx, tagID)
		},
		func() {
			d.notifier.Notify(KindSuccess, MsgModified)
			d.tags.Update(func(current []domain.Tag) []domain.Tag {
				return Without(current, tagID)
			})
			d.clearPending()
		},
		func(err error) {
			d.log.Warn("tag %s: delete failed: %v", tagID, err)
			d.notifier.Notify(KindError, MsgModifyFailed)
			d.clearPending()
		},
	)
}

func (d *Deleter) clearPending() {
	d.mu.Lock()
	d.pending = false
	d.mu.Unlock()
}
