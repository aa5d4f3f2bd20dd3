package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/browserpike/backend/internal/domain/tree"
	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Text(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

func (m *mockSource) Resolve(path string) string {
	return "http://repo/content/" + path
}

type countingRecorder struct {
	outcomes []string
}

func (r *countingRecorder) RecordUnlock(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

const secretURL = "http://repo/content/Vault/_password.txt"

func TestUnlockIsIdempotent(t *testing.T) {
	src := &mockSource{}
	src.On("Text", mock.Anything, secretURL).Return("  hunter2\n", nil).Once()
	rec := &countingRecorder{}
	g := New(src, nil, rec)
	state := NewAccessState()

	ok, err := g.Unlock(context.Background(), state, "Vault", "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Unlock(context.Background(), state, "Vault/", "anything")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"Vault"}, state.Folders())
	assert.Equal(t, []string{"granted", "already_unlocked"}, rec.outcomes)
	src.AssertExpectations(t)
}

func TestUnlockMismatchLeavesStateAlone(t *testing.T) {
	src := &mockSource{}
	src.On("Text", mock.Anything, secretURL).Return("Hunter2", nil)
	g := New(src, nil, nil)
	state := NewAccessState()

	ok, err := g.Unlock(context.Background(), state, "Vault", "hunter2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, state.Len())
}

func TestUnlockFetchFailure(t *testing.T) {
	src := &mockSource{}
	src.On("Text", mock.Anything, secretURL).Return("", errors.New("HTTP 404"))
	g := New(src, nil, nil)
	state := NewAccessState()

	ok, err := g.Unlock(context.Background(), state, "Vault", "hunter2")
	assert.False(t, ok)
	assert.ErrorIs(t, err, faults.ErrPasswordFileUnavailable)
	assert.Zero(t, state.Len())
}

func TestLockedAncestor(t *testing.T) {
	root := tree.NewDir()
	vault := tree.NewDir()
	inner := tree.NewDir()
	root.Children["Vault"] = vault
	vault.Children[tree.PasswordFile] = tree.NewFile()
	vault.Children["inner"] = inner
	inner.Children[tree.PasswordFile] = tree.NewFile()
	inner.Children["a.zip"] = tree.NewFile()
	vault.Children["b.zip"] = tree.NewFile()
	root.Children["open.zip"] = tree.NewFile()

	state := NewAccessState()

	folder, locked := LockedAncestor(root, state, "Vault/inner/a.zip")
	assert.True(t, locked)
	assert.Equal(t, "Vault/inner", folder)

	state.add("Vault/inner")
	folder, locked = LockedAncestor(root, state, "Vault/inner/a.zip")
	assert.True(t, locked)
	assert.Equal(t, "Vault", folder)

	state.add("Vault")
	_, locked = LockedAncestor(root, state, "Vault/inner/a.zip")
	assert.False(t, locked)

	_, locked = LockedAncestor(root, NewAccessState(), "open.zip")
	assert.False(t, locked)
}
