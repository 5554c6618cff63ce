package tagedit

import (
	"testing"
	"time"

	"github.com/pbaille/kbtags/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRename_UnchangedNameIsNoop(t *testing.T) {
	f := newFixture()
	e := f.editor(t, "t1")
	before := f.tags.Tags()

	e.BeginEdit()
	require.True(t, e.Renamer().Editing())

	require.NoError(t, e.SubmitRename("golang").Wait())

	assert.False(t, e.Renamer().Editing())
	assert.Equal(t, before, f.tags.Tags())
	assert.Empty(t, f.remote.renameCalls())
	assert.Empty(t, f.notifier.all())
}

func TestSubmitRename_EmptyNameRejectedLocally(t *testing.T) {
	f := newFixture()
	e := f.editor(t, "t1")
	before := f.tags.Tags()

	e.BeginEdit()
	e.Renamer().SetDraft("")
	err := e.SubmitRename("").Wait()

	assert.ErrorIs(t, err, ErrEmptyName)
	assert.False(t, e.Renamer().Editing())
	assert.Equal(t, "golang", e.Renamer().Draft())
	assert.Equal(t, before, f.tags.Tags())
	assert.Empty(t, f.remote.renameCalls())
	assert.Equal(t, []note{{Kind: KindError, Message: MsgEmptyName}}, f.notifier.all())
}

func TestSubmitRename_OptimisticThenCommitted(t *testing.T) {
	f := newFixture()
	f.remote.gate = make(chan struct{})
	e := f.editor(t, "t1")
	before := f.tags.Tags()

	e.BeginEdit()
	p := e.SubmitRename("go")

	// Visible before the remote confirms.
	got, ok := f.tags.Find("t1")
	require.True(t, ok)
	assert.Equal(t, "go", got.Name)
	assert.False(t, e.Renamer().Editing())
	assert.Equal(t, RenameOptimistic, e.Renamer().State())
	assert.Empty(t, f.notifier.all())

	close(f.remote.gate)
	require.NoError(t, p.Wait())

	want := before
	want[0].Name = "go"
	assert.Equal(t, want, f.tags.Tags())
	assert.Equal(t, []renameCall{{ID: "t1", Name: "go"}}, f.remote.renameCalls())
	assert.Equal(t, []note{{Kind: KindSuccess, Message: MsgModified}}, f.notifier.all())
	assert.Equal(t, RenameCommitted, e.Renamer().State())
	assert.Equal(t, "go", e.Renamer().Confirmed())
	assert.Equal(t, "go", e.Renamer().Draft())
}

func TestSubmitRename_RollbackOnFailure(t *testing.T) {
	f := newFixture()
	f.remote.renameErr = errRejected
	e := f.editor(t, "t2")
	before := f.tags.Tags()

	e.BeginEdit()
	err := e.SubmitRename("ferris").Wait()

	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, before, f.tags.Tags())
	assert.Equal(t, 1, f.notifier.count(KindError))
	assert.Equal(t, 0, f.notifier.count(KindSuccess))
	assert.False(t, e.Renamer().Editing())
	assert.Equal(t, "rust", e.Renamer().Draft())
	assert.Equal(t, "rust", e.Renamer().Confirmed())
	assert.Equal(t, RenameRolledBack, e.Renamer().State())
}

func TestSubmitRename_RollbackKeepsUnrelatedChanges(t *testing.T) {
	f := newFixture()
	f.remote.gate = make(chan struct{})
	f.remote.renameErr = errRejected
	e := f.editor(t, "t1")

	p := e.SubmitRename("go")
	f.tags.Update(func(current []domain.Tag) []domain.Tag {
		return Without(current, "t3")
	})
	close(f.remote.gate)
	require.Error(t, p.Wait())

	tags := f.tags.Tags()
	require.Len(t, tags, 2)
	assert.Equal(t, "golang", tags[0].Name)
	assert.Equal(t, "t2", tags[1].ID)
}

func TestSubmitRename_PanickingRemoteRollsBack(t *testing.T) {
	f := newFixture()
	f.remote.panicOn = "rename"
	e := f.editor(t, "t1")

	err := e.SubmitRename("go").Wait()

	assert.ErrorIs(t, err, ErrPanicked)
	got, _ := f.tags.Find("t1")
	assert.Equal(t, "golang", got.Name)
	assert.Equal(t, 1, f.notifier.count(KindError))
}

func TestSubmitRename_SecondSessionUsesNewBaseline(t *testing.T) {
	f := newFixture()
	e := f.editor(t, "t1")

	require.NoError(t, e.SubmitRename("go").Wait())

	e.BeginEdit()
	assert.Equal(t, "go", e.Renamer().Draft())
	assert.Equal(t, RenameIdle, e.Renamer().State())

	require.NoError(t, e.SubmitRename("go").Wait())
	assert.Len(t, f.remote.renameCalls(), 1)
}

func TestSubmitRename_OverlappingFailureRestoresFirstOptimisticName(t *testing.T) {
	f := newFixture()
	f.remote.gate = make(chan struct{})
	e := f.editor(t, "t1")

	first := e.SubmitRename("go")
	require.Eventually(t, func() bool { return len(f.remote.renameCalls()) == 1 }, time.Second, time.Millisecond)

	f.remote.mu.Lock()
	f.remote.renameErr = errRejected
	f.remote.mu.Unlock()

	second := e.SubmitRename("golang2")
	got, _ := f.tags.Find("t1")
	assert.Equal(t, "golang2", got.Name)
	assert.Equal(t, RenameOptimistic, e.Renamer().State())

	require.Eventually(t, func() bool { return len(f.remote.renameCalls()) == 2 }, time.Second, time.Millisecond)
	close(f.remote.gate)

	require.NoError(t, first.Wait())
	assert.ErrorIs(t, second.Wait(), errRejected)

	// The second call snapshotted the first call's optimistic name.
	got, _ = f.tags.Find("t1")
	assert.Equal(t, "go", got.Name)
	assert.Equal(t, "go", e.Renamer().Confirmed())
	assert.Equal(t, []renameCall{{ID: "t1", Name: "go"}, {ID: "t1", Name: "golang2"}}, f.remote.renameCalls())
	assert.Equal(t, 1, f.notifier.count(KindSuccess))
	assert.Equal(t, 1, f.notifier.count(KindError))
}
