package tagedit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pbaille/kbtags/internal/domain"
)

var errRejected = errors.New("rejected")

type renameCall struct {
	ID   string
	Name string
}

// fakeRemote records calls. When gate is non-nil every call blocks until a
// value is received from it.
type fakeRemote struct {
	mu        sync.Mutex
	renames   []renameCall
	deletes   []string
	renameErr error
	deleteErr error
	panicOn   string
	gate      chan struct{}
}

func (f *fakeRemote) RenameTag(ctx context.Context, id, name string) error {
	f.mu.Lock()
	f.renames = append(f.renames, renameCall{ID: id, Name: name})
	err, gate, p := f.renameErr, f.gate, f.panicOn
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if p == "rename" {
		panic("remote exploded")
	}
	return err
}

func (f *fakeRemote) DeleteTag(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deletes = append(f.deletes, id)
	err, gate := f.deleteErr, f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeRemote) renameCalls() []renameCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]renameCall(nil), f.renames...)
}

func (f *fakeRemote) deleteCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

type note struct {
	Kind    Kind
	Message string
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *fakeNotifier) Notify(kind Kind, message string) {
	n.mu.Lock()
	n.notes = append(n.notes, note{Kind: kind, Message: message})
	n.mu.Unlock()
}

func (n *fakeNotifier) all() []note {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]note(nil), n.notes...)
}

func (n *fakeNotifier) count(kind Kind) int {
	c := 0
	for _, nt := range n.all() {
		if nt.Kind == kind {
			c++
		}
	}
	return c
}

const testWindow = 20 * time.Millisecond

func sampleTags() []domain.Tag {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []domain.Tag{
		{ID: "t1", Name: "golang", BindingCount: 0, CreatedAt: created},
		{ID: "t2", Name: "rust", BindingCount: 3, CreatedAt: created},
		{ID: "t3", Name: "zig", BindingCount: 1, CreatedAt: created},
	}
}

type fixture struct {
	tags     *Collection
	remote   *fakeRemote
	notifier *fakeNotifier
}

func newFixture() *fixture {
	return &fixture{
		tags:     NewCollection(sampleTags()),
		remote:   &fakeRemote{},
		notifier: &fakeNotifier{},
	}
}

func (f *fixture) editor(t *testing.T, id string) *Editor {
	t.Helper()
	tag, ok := f.tags.Find(id)
	if !ok {
		t.Fatalf("no tag %s in fixture", id)
	}
	e := NewEditor(tag, Deps{
		Tags:     f.tags,
		Remote:   f.remote,
		Notifier: f.notifier,
	}, WithDebounce(testWindow))
	t.Cleanup(e.Close)
	return e
}
