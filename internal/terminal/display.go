// Package terminal renders chat bubbles on a text stream. Terminals cannot
// edit earlier lines, so a settled reply is printed again under its prompt.
package terminal

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"tourism-chat/internal/domain"
)

const thinkingText = "..."

// Styles holds the bubble styles.
type Styles struct {
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	Text      lipgloss.Style
	Thinking  lipgloss.Style
	Failed    lipgloss.Style
}

// DefaultStyles mirrors the widget palette; failures are pure red.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		UserLabel: r.NewStyle().Foreground(lipgloss.Color("#5350C4")).Bold(true),
		BotLabel:  r.NewStyle().Foreground(lipgloss.Color("#006C35")).Bold(true),
		Text:      r.NewStyle(),
		Thinking:  r.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true),
		Failed:    r.NewStyle().Foreground(lipgloss.Color("#ff0000")),
	}
}

// Display is an append-only chat surface. Output is buffered until
// ScrollToBottom and withheld entirely while the chat is hidden.
type Display struct {
	mu      sync.Mutex
	out     io.Writer
	styles  Styles
	visible bool
	bubbles []domain.Bubble
	index   map[string]int
	pending bytes.Buffer
}

func New(out io.Writer) *Display {
	return &Display{
		out:     out,
		styles:  DefaultStyles(lipgloss.NewRenderer(out)),
		visible: true,
		index:   make(map[string]int),
	}
}

func (d *Display) Append(b domain.Bubble) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.index[b.ID] = len(d.bubbles)
	d.bubbles = append(d.bubbles, b)
	d.render(b)
}

func (d *Display) Update(b domain.Bubble) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.index[b.ID]
	if !ok {
		return
	}
	d.bubbles[i] = b
	d.render(b)
}

// ScrollToBottom writes everything rendered since the last call.
func (d *Display) ScrollToBottom() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flush()
}

// Toggle opens or closes the chat and reports whether it is now visible.
// Opening it flushes what arrived while it was closed.
func (d *Display) Toggle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible = !d.visible
	d.flush()
	return d.visible
}

func (d *Display) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

// Bubbles returns the current state of every bubble in submission order.
func (d *Display) Bubbles() []domain.Bubble {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Bubble(nil), d.bubbles...)
}

func (d *Display) flush() {
	if !d.visible || d.pending.Len() == 0 {
		return
	}
	_, _ = d.out.Write(d.pending.Bytes())
	d.pending.Reset()
}

func (d *Display) render(b domain.Bubble) {
	label := d.styles.BotLabel.Render("bot ›")
	if b.Author == domain.AuthorUser {
		label = d.styles.UserLabel.Render("you ›")
	}

	var text string
	switch {
	case b.Thinking:
		text = d.styles.Thinking.Render(thinkingText)
	case b.Failed:
		text = d.styles.Failed.Render("! " + b.Text)
	default:
		text = d.styles.Text.Render(b.Text)
	}
	fmt.Fprintf(&d.pending, "%s %s\n", label, text)
}
