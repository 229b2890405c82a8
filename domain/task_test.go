package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPriorityRankOrdering(t *testing.T) {
	require.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	require.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
	require.Greater(t, PriorityLow.Rank(), Priority("urgent").Rank())
	require.Zero(t, Priority("").Rank())
}

func TestPriorityAndCategoryValidation(t *testing.T) {
	require.True(t, PriorityHigh.Valid())
	require.False(t, Priority("urgent").Valid())
	require.True(t, CategoryWork.Valid())
	require.False(t, Category("hobby").Valid())
}

func TestTaskPatchIsZero(t *testing.T) {
	require.True(t, TaskPatch{}.IsZero())

	progress := 50
	require.False(t, TaskPatch{Progress: &progress}.IsZero())

	deadline := time.Now()
	require.False(t, TaskPatch{Deadline: &deadline}.IsZero())
}

func TestSessionExpiry(t *testing.T) {
	now := time.Now()
	live := &Session{ExpiresAt: now.Add(time.Minute)}
	dead := &Session{ExpiresAt: now.Add(-time.Minute)}

	require.False(t, live.IsExpired(now))
	require.True(t, dead.IsExpired(now))
	require.True(t, (*Session)(nil).IsExpired(now))
}

func TestDomainErrorClassification(t *testing.T) {
	require.True(t, IsDomainError(ErrTaskNotFound, ErrCodeNotFound))
	require.False(t, IsDomainError(ErrTaskNotFound, ErrCodeInvalid))

	wrapped := WrapError(ErrCodeStore, "write failed", ErrTaskNotFound)
	require.True(t, IsDomainError(wrapped, ErrCodeStore))
	require.ErrorIs(t, wrapped, ErrTaskNotFound)
}
