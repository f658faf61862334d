package domain

// Author identifies who a rendered bubble belongs to.
type Author string

const (
	AuthorUser Author = "user"
	AuthorBot  Author = "bot"
)

// Bubble is the display unit handed to a chat surface. A bot bubble starts in
// the thinking state and is replaced, by ID, once its turn settles.
type Bubble struct {
	ID       string
	Author   Author
	Text     string
	Thinking bool
	Failed   bool
}

// Settled returns a copy of b carrying the terminal state of t.
func (b Bubble) Settled(t Turn) Bubble {
	b.Text = t.Response
	b.Thinking = false
	b.Failed = t.State == StateFailed
	return b
}
