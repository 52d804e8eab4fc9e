// Package logpane is the panel's scrolling log: timestamped lines with a
// running count.
package logpane

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const DefaultMaxLines = 500

// Publisher receives every appended line, already timestamped.
type Publisher interface {
	LineAppended(line string, count int)
	Cleared()
}

// Pane keeps the newest MaxLines lines. Count keeps the total since the last
// Clear even after old lines are dropped.
type Pane struct {
	// pubMu serialises each mutation with its publication so publishers see
	// lines in the same order as the pane. It is taken before mu.
	pubMu    sync.Mutex
	mu       sync.Mutex
	lines    []string
	count    int
	maxLines int
	now      func() time.Time
	pub      Publisher
}

type Option func(*Pane)

func WithMaxLines(n int) Option {
	return func(p *Pane) {
		if n > 0 {
			p.maxLines = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pane) { p.now = now }
}

func WithPublisher(pub Publisher) Option {
	return func(p *Pane) { p.pub = pub }
}

func New(opts ...Option) *Pane {
	p := &Pane{
		maxLines: DefaultMaxLines,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format renders a log line as "[HH:MM:SS] text".
func Format(ts time.Time, text string) string {
	return fmt.Sprintf("[%s] %s", ts.Format("15:04:05"), text)
}

// Append adds a timestamped line.
func (p *Pane) Append(text string) {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	p.mu.Lock()
	line, count := p.appendLocked(text)
	pub := p.pub
	p.mu.Unlock()

	if pub != nil {
		pub.LineAppended(line, count)
	}
}

// Clear empties the pane, resets the count and records the reset itself as
// the first line. No other line can land between the reset and that line.
func (p *Pane) Clear() {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	p.mu.Lock()
	p.lines = nil
	p.count = 0
	line, count := p.appendLocked("LOG RESET")
	pub := p.pub
	p.mu.Unlock()

	if pub != nil {
		pub.Cleared()
		pub.LineAppended(line, count)
	}
}

func (p *Pane) appendLocked(text string) (string, int) {
	line := Format(p.now(), text)
	p.lines = append(p.lines, line)
	if over := len(p.lines) - p.maxLines; over > 0 {
		p.lines = append([]string(nil), p.lines[over:]...)
	}
	p.count++
	return line, p.count
}

// Lines returns the retained lines, oldest first.
func (p *Pane) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

// Count is the number of lines appended since the last Clear.
func (p *Pane) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Text joins the retained lines the way the page shows them.
func (p *Pane) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var b strings.Builder
	for _, l := range p.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
