package study

import "errors"

var (
	ErrNotGraded     = errors.New("current card has not been graded")
	ErrGradeSkipping = errors.New("cannot move past the furthest graded card")
	ErrAtStart       = errors.New("already at the first card")
	ErrEndOfDeck     = errors.New("no more cards")
	ErrRevisiting    = errors.New("card was already graded in this session")
)

// Cursor tracks the position in an ordered list of due cards. The card at
// the highest index reached is the frontier: it is the only card that can
// be graded, and moving beyond it requires grading it first.
type Cursor struct {
	current        int
	highest        int
	frontierGraded bool
	length         int
}

func NewCursor(length int) *Cursor {
	return &Cursor{length: max(length, 0)}
}

func (c *Cursor) Index() int   { return c.current }
func (c *Cursor) Highest() int { return c.highest }
func (c *Cursor) Len() int     { return c.length }

// AtFrontier reports whether the current card is the one awaiting a grade.
func (c *Cursor) AtFrontier() bool {
	return c.current == c.highest
}

func (c *Cursor) FrontierGraded() bool {
	return c.frontierGraded
}

// Done reports whether every card has been graded.
func (c *Cursor) Done() bool {
	return c.length == 0 || (c.highest == c.length-1 && c.frontierGraded)
}

// MarkGraded records a grade for the current card. Only the frontier card
// can be graded.
func (c *Cursor) MarkGraded() error {
	if c.length == 0 {
		return ErrEndOfDeck
	}
	if !c.AtFrontier() {
		return ErrRevisiting
	}
	c.frontierGraded = true
	return nil
}

// Advance moves to the next card.
func (c *Cursor) Advance() error {
	if c.AtFrontier() && !c.frontierGraded {
		return ErrNotGraded
	}
	if c.current+1 >= c.length {
		return ErrEndOfDeck
	}
	c.current++
	if c.current > c.highest {
		c.highest = c.current
		c.frontierGraded = false
	}
	return nil
}

// Retreat moves back one card without touching the frontier.
func (c *Cursor) Retreat() error {
	if c.current == 0 {
		return ErrAtStart
	}
	c.current--
	return nil
}

// JumpTo moves to any card up to the frontier.
func (c *Cursor) JumpTo(index int) error {
	if index < 0 {
		return ErrAtStart
	}
	if index > c.highest || index >= c.length {
		return ErrGradeSkipping
	}
	c.current = index
	return nil
}

// Extend appends n cards, e.g. after fetching another page.
func (c *Cursor) Extend(n int) {
	if n > 0 {
		c.length += n
	}
}
