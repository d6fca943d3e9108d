// Package browser defines the browser-session capability the portal automation runs on,
// together with its playwright and chromedp backends.
package browser

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrElementNotFound is returned when a locator the caller relies on matches nothing.
var ErrElementNotFound = errors.New("element not found")

// Session is one exclusive, live browser page. Implementations are not safe for
// concurrent use; a session belongs to a single operation until Release.
type Session interface {
	// Navigate loads url in the page and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// Markup returns the currently rendered document as HTML.
	Markup(ctx context.Context) (string, error)
	// Click clicks the element loc resolves to.
	Click(ctx context.Context, loc Locator) error
	// FindChild returns a locator for the first element matching selector inside parent.
	FindChild(ctx context.Context, parent Locator, selector string) (Locator, error)
	// FindChildren returns one locator per element matching selector inside parent, in DOM order.
	FindChildren(ctx context.Context, parent Locator, selector string) ([]Locator, error)
	// RunScript calls the JavaScript function expression script with arg and returns its result.
	RunScript(ctx context.Context, script string, arg any) (any, error)
	// FillLoginFields pre-fills the portal login form with the account credentials.
	FillLoginFields(ctx context.Context, id, password string) error
	// Pause blocks for d or until ctx is done.
	Pause(ctx context.Context, d time.Duration) error
	// Release closes the page and the browser behind it. It is safe to call more than once.
	Release() error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
	Close() error
}

// Locator addresses an element as a chain of CSS queries, each evaluated inside the
// element matched by the previous one. The zero Locator addresses the document.
type Locator struct {
	steps []step
}

type step struct {
	Query string `json:"q"`
	Nth   int    `json:"n"`
}

// Query returns a locator for the first element in the document matching selector.
func Query(selector string) Locator {
	return Locator{steps: []step{{Query: selector}}}
}

// Child returns a locator for the first element matching selector inside l.
func (l Locator) Child(selector string) Locator {
	steps := make([]step, len(l.steps), len(l.steps)+1)
	copy(steps, l.steps)
	return Locator{steps: append(steps, step{Query: selector})}
}

// Nth picks the i-th match (zero-based) of the last query in l.
func (l Locator) Nth(i int) Locator {
	if len(l.steps) == 0 {
		return l
	}
	steps := make([]step, len(l.steps))
	copy(steps, l.steps)
	steps[len(steps)-1].Nth = i
	return Locator{steps: steps}
}

// Selector returns the last query of l, or "" for the document.
func (l Locator) Selector() string {
	if l.IsZero() {
		return ""
	}
	return l.steps[len(l.steps)-1].Query
}

// IsZero reports whether l addresses the document itself.
func (l Locator) IsZero() bool { return len(l.steps) == 0 }

func (l Locator) String() string {
	if l.IsZero() {
		return "document"
	}
	parts := make([]string, 0, len(l.steps))
	for _, s := range l.steps {
		p := s.Query
		if s.Nth > 0 {
			p += "[" + strconv.Itoa(s.Nth) + "]"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " >> ")
}

// children expands a match count into one locator per matching child.
func children(parent Locator, selector string, n int) []Locator {
	out := make([]Locator, 0, n)
	base := parent.Child(selector)
	for i := 0; i < n; i++ {
		out = append(out, base.Nth(i))
	}
	return out
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
