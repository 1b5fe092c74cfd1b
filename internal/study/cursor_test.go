package study_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/reviewsync/internal/study"
)

func TestCursor_AdvanceRequiresGrade(t *testing.T) {
	c := study.NewCursor(3)

	assert.ErrorIs(t, c.Advance(), study.ErrNotGraded)
	require.NoError(t, c.MarkGraded())
	require.NoError(t, c.Advance())

	assert.Equal(t, 1, c.Index())
	assert.Equal(t, 1, c.Highest())
	assert.False(t, c.FrontierGraded())
	assert.ErrorIs(t, c.Advance(), study.ErrNotGraded)
}

func TestCursor_RetreatIsReadOnly(t *testing.T) {
	c := study.NewCursor(5)
	for i := 0; i < 2; i++ {
		require.NoError(t, c.MarkGraded())
		require.NoError(t, c.Advance())
	}
	require.Equal(t, 2, c.Highest())

	require.NoError(t, c.Retreat())
	require.NoError(t, c.Retreat())
	assert.Equal(t, 0, c.Index())
	assert.Equal(t, 2, c.Highest())
	assert.ErrorIs(t, c.Retreat(), study.ErrAtStart)
	assert.ErrorIs(t, c.MarkGraded(), study.ErrRevisiting)

	// walking forward again over graded cards needs no grade
	require.NoError(t, c.Advance())
	require.NoError(t, c.Advance())
	assert.Equal(t, 2, c.Index())
	assert.Equal(t, 2, c.Highest(), "retreat then advance restores the same frontier")
	assert.ErrorIs(t, c.Advance(), study.ErrNotGraded)
}

func TestCursor_JumpTo(t *testing.T) {
	c := study.NewCursor(10)
	require.NoError(t, c.MarkGraded())
	require.NoError(t, c.Advance())
	require.NoError(t, c.MarkGraded())
	require.NoError(t, c.Advance())

	assert.ErrorIs(t, c.JumpTo(3), study.ErrGradeSkipping)
	assert.ErrorIs(t, c.JumpTo(9), study.ErrGradeSkipping)
	assert.ErrorIs(t, c.JumpTo(-1), study.ErrAtStart)
	assert.Equal(t, 2, c.Index())

	require.NoError(t, c.JumpTo(0))
	assert.Equal(t, 0, c.Index())
	require.NoError(t, c.JumpTo(2))
	assert.Equal(t, 2, c.Highest())
}

func TestCursor_EndOfDeckAndExtend(t *testing.T) {
	c := study.NewCursor(1)
	require.NoError(t, c.MarkGraded())
	assert.True(t, c.Done())
	assert.ErrorIs(t, c.Advance(), study.ErrEndOfDeck)

	c.Extend(2)
	assert.False(t, c.Done())
	require.NoError(t, c.Advance())
	assert.Equal(t, 1, c.Index())
	assert.Equal(t, 3, c.Len())
}

func TestCursor_Empty(t *testing.T) {
	c := study.NewCursor(0)

	assert.True(t, c.Done())
	assert.ErrorIs(t, c.MarkGraded(), study.ErrEndOfDeck)
	assert.ErrorIs(t, c.Retreat(), study.ErrAtStart)
}

func TestCursor_InvariantHolds(t *testing.T) {
	c := study.NewCursor(6)
	ops := []func() error{
		c.MarkGraded, c.Advance, c.Retreat, c.Advance, c.Advance,
		c.MarkGraded, c.Advance, c.Retreat, c.Retreat, c.Retreat,
		func() error { return c.JumpTo(4) }, c.Advance, c.MarkGraded, c.Advance,
	}
	for _, op := range ops {
		_ = op()
		require.LessOrEqual(t, c.Index(), c.Highest())
		require.GreaterOrEqual(t, c.Index(), 0)
	}
}
