package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================
// EditState Tests
// ============================================

func TestEditState_BeginEdit(t *testing.T) {
	var s EditState

	assert.True(t, s.BeginEdit(), "first begin opens the outermost session")
	assert.False(t, s.BeginEdit(), "nested begin is not outermost")
	assert.Equal(t, 2, s.EditLevel())
	assert.True(t, s.InEdit())
}

func TestEditState_EndEdit(t *testing.T) {
	var s EditState

	s.BeginEdit()
	s.BeginEdit()

	assert.False(t, s.EndEdit(), "inner end does not close the session")
	assert.True(t, s.EndEdit(), "outer end closes the session")
	assert.False(t, s.InEdit())
}

func TestEditState_EndEdit_Unbalanced(t *testing.T) {
	var s EditState

	assert.False(t, s.EndEdit(), "end without begin is clamped")
	assert.Equal(t, 0, s.EditLevel())
}

func TestEditState_Dirty(t *testing.T) {
	var s EditState

	assert.False(t, s.IsDirty())
	s.MarkDirty()
	assert.True(t, s.IsDirty())
	s.ClearDirty()
	assert.False(t, s.IsDirty())
}

func TestEditState_MarkForDeletion(t *testing.T) {
	var s EditState

	assert.False(t, s.IsMarkedForDeletion())
	s.MarkForDeletion()
	assert.True(t, s.IsMarkedForDeletion())
}

// ============================================
// EditScope Tests
// ============================================

func TestEditScope_CommitOnce(t *testing.T) {
	calls := 0
	scope := NewEditScope(func() error {
		calls++
		return nil
	})

	assert.NoError(t, scope.Commit())
	assert.NoError(t, scope.Commit())
	assert.Equal(t, 1, calls, "commit logic runs exactly once")
}

func TestEditScope_CommitError(t *testing.T) {
	wantErr := errors.New("backend down")
	scope := NewEditScope(func() error { return wantErr })

	assert.ErrorIs(t, scope.Commit(), wantErr)
	assert.NoError(t, scope.Commit(), "a failed commit is not retried")
}
