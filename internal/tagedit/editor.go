package tagedit

import (
	"context"
	"time"

	"github.com/pbaille/kbtags/internal/domain"
	"github.com/pbaille/kbtags/internal/logging"
)

// Deps are the collaborators shared by every editor of one tag list.
type Deps struct {
	Tags     *Collection
	Remote   Remote
	Notifier Notifier
	Logger   logging.Logger
}

type options struct {
	ctx      context.Context
	debounce time.Duration
}

// Option configures an Editor.
type Option func(*options)

// WithDebounce sets the quiet window for delete triggers.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithContext sets the context passed to remote calls.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// Editor coordinates rename and delete for a single tag in a shared list.
type Editor struct {
	tagID string
	tags  *Collection
	tasks *tracker

	renamer *Renamer
	deleter *Deleter
	gate    *Gate
}

// NewEditor creates an editor bound to tag.
func NewEditor(tag domain.Tag, deps Deps, opts ...Option) *Editor {
	o := options{ctx: context.Background(), debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}

	log := logging.OrNop(deps.Logger)
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(Kind, string) {})
	}
	tasks := newTracker(log)

	e := &Editor{
		tagID: tag.ID,
		tags:  deps.Tags,
		tasks: tasks,
		gate:  &Gate{},
		renamer: &Renamer{
			tagID:     tag.ID,
			ctx:       o.ctx,
			tags:      deps.Tags,
			remote:    deps.Remote,
			notifier:  notifier,
			log:       log,
			tasks:     tasks,
			confirmed: tag.Name,
			draft:     tag.Name,
		},
	}

	e.deleter = &Deleter{
		ctx:      o.ctx,
		tags:     deps.Tags,
		remote:   deps.Remote,
		notifier: notifier,
		log:      log,
		tasks:    tasks,
	}
	e.deleter.debounce = NewDebouncer(o.debounce, func(id string) {
		e.deleter.Remove(id)
	})

	return e
}

// TagID returns the id of the tag this editor is bound to.
func (e *Editor) TagID() string { return e.tagID }

// Tag returns the tag as currently shown in the collection.
func (e *Editor) Tag() (domain.Tag, bool) { return e.tags.Find(e.tagID) }

func (e *Editor) Renamer() *Renamer { return e.renamer }
func (e *Editor) Deleter() *Deleter { return e.deleter }
func (e *Editor) Gate() *Gate       { return e.gate }

// BeginEdit opens the rename input.
func (e *Editor) BeginEdit() { e.renamer.BeginEdit() }

// SubmitRename concludes the edit session; see Renamer.Submit.
func (e *Editor) SubmitRename(proposed string) *Pending {
	return e.renamer.Submit(proposed)
}

// RequestDelete deletes tag, asking for confirmation first when other
// entries still reference it.
func (e *Editor) RequestDelete(tag domain.Tag) {
	if tag.Bound() {
		e.gate.Open()
		return
	}
	e.deleter.Trigger(tag.ID)
}

// ConfirmOpen reports whether a delete is waiting for confirmation.
func (e *Editor) ConfirmOpen() bool { return e.gate.IsOpen() }

// ConfirmDelete acknowledges the pending confirmation and schedules removal.
func (e *Editor) ConfirmDelete() bool {
	return e.gate.Confirm(func() { e.deleter.Trigger(e.tagID) })
}

// CancelDelete dismisses the confirmation without deleting.
func (e *Editor) CancelDelete() bool { return e.gate.Cancel() }

// Settle runs any debounced delete now and blocks until every remote call
// issued by this editor has settled.
func (e *Editor) Settle() {
	e.deleter.debounce.Flush()
	e.tasks.wait()
}

// Close drops a debounced delete that has not fired yet. In-flight calls
// still settle.
func (e *Editor) Close() {
	e.deleter.debounce.Stop()
}
