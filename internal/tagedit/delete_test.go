package tagedit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestDelete_UnboundTagDebouncesToOneCall(t *testing.T) {
	f := newFixture()
	e := f.editor(t, "t1")
	tag, _ := f.tags.Find("t1")

	for i := 0; i < 5; i++ {
		e.RequestDelete(tag)
		assert.False(t, e.ConfirmOpen())
	}
	assert.Empty(t, f.remote.deleteCalls(), "nothing runs inside the window")

	require.Eventually(t, func() bool {
		return len(f.remote.deleteCalls()) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(5 * testWindow)
	assert.Equal(t, []string{"t1"}, f.remote.deleteCalls())
	assert.False(t, e.ConfirmOpen())
}

func TestRequestDelete_BoundTagCancel(t *testing.T) {
	f := newFixture()
	e := f.editor(t, "t2")
	tag, _ := f.tags.Find("t2")
	before := f.tags.Tags()

	e.RequestDelete(tag)
	require.True(t, e.ConfirmOpen())
	assert.Equal(t, GateOpen, e.Gate().State())

	assert.True(t, e.CancelDelete())
	assert.False(t, e.ConfirmOpen())

	time.Sleep(5 * testWindow)
	assert.Empty(t, f.remote.deleteCalls())
	assert.Equal(t, before, f.tags.Tags())
	assert.Empty(t, f.notifier.all())
}

func TestRequestDelete_BoundTagConfirm(t *testing.T) {
	f := newFixture()
	e := f.editor(t, "t2")
	tag, _ := f.tags.Find("t2")

	e.RequestDelete(tag)
	require.True(t, e.ConfirmDelete())
	assert.False(t, e.ConfirmOpen())
	assert.False(t, e.ConfirmDelete(), "closed gate ignores confirm")

	require.Eventually(t, func() bool {
		_, present := f.tags.Find("t2")
		return !present
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"t2"}, f.remote.deleteCalls())
	assert.Equal(t, 1, f.notifier.count(KindSuccess))
}

func TestRemove_GuardedWhilePending(t *testing.T) {
	f := newFixture()
	f.remote.gate = make(chan struct{})
	e := f.editor(t, "t1")

	first := e.Deleter().Remove("t1")
	require.True(t, e.Deleter().Pending())

	second := e.Deleter().Remove("t1")
	require.NoError(t, second.Wait(), "suppressed call settles immediately")

	close(f.remote.gate)
	require.NoError(t, first.Wait())

	assert.Equal(t, []string{"t1"}, f.remote.deleteCalls())
	assert.False(t, e.Deleter().Pending())
}

func TestRemove_SuccessDropsOnlyTarget(t *testing.T) {
	f := newFixture()
	e := f.editor(t, "t2")
	before := f.tags.Tags()

	require.NoError(t, e.Deleter().Remove("t2").Wait())

	after := f.tags.Tags()
	require.Len(t, after, len(before)-1)
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[1])
	assert.Equal(t, []note{{Kind: KindSuccess, Message: MsgModified}}, f.notifier.all())
}

func TestRemove_FailureKeepsTag(t *testing.T) {
	f := newFixture()
	f.remote.deleteErr = errRejected
	e := f.editor(t, "t1")
	before := f.tags.Tags()

	err := e.Deleter().Remove("t1").Wait()

	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, before, f.tags.Tags())
	assert.False(t, e.Deleter().Pending())
	assert.Equal(t, []note{{Kind: KindError, Message: MsgModifyFailed}}, f.notifier.all())

	// The user can try again.
	f.remote.mu.Lock()
	f.remote.deleteErr = nil
	f.remote.mu.Unlock()
	require.NoError(t, e.Deleter().Remove("t1").Wait())
	assert.Len(t, f.remote.deleteCalls(), 2)
}

func TestSettle_FlushesDebouncedDelete(t *testing.T) {
	f := newFixture()
	tag, _ := f.tags.Find("t1")
	e := NewEditor(tag, Deps{Tags: f.tags, Remote: f.remote, Notifier: f.notifier}, WithDebounce(time.Hour))
	defer e.Close()

	e.RequestDelete(tag)
	e.Settle()

	assert.Equal(t, []string{"t1"}, f.remote.deleteCalls())
	_, present := f.tags.Find("t1")
	assert.False(t, present)
}

func TestClose_DropsDebouncedDelete(t *testing.T) {
	f := newFixture()
	e := f.editor(t, "t1")
	tag, _ := f.tags.Find("t1")

	e.RequestDelete(tag)
	e.Close()

	time.Sleep(5 * testWindow)
	assert.Empty(t, f.remote.deleteCalls())
}
