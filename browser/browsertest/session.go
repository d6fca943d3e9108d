// Package browsertest provides a scripted in-memory browser.Session.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smartplace-sync/browser"
)

// Session replays a fixed list of pages. Markup returns the current page; clicking an
// element whose last query equals Advance moves to the next page (the last one repeats).
//
// Element lookups are answered from Counts, keyed by the selector being searched for.
// A selector missing from Counts matches nothing.
type Session struct {
	Pages   []string
	Advance string
	Counts  map[string]int

	// ScriptResult is returned by RunScript.
	ScriptResult any

	// Fail, when set, is consulted before every operation; a non-nil result is returned
	// as that operation's error. op is the method name, arg its url, locator or selector.
	Fail func(op, arg string) error

	mu          sync.Mutex
	page        int
	navigations []string
	clicks      []string
	pauses      []time.Duration
	login       [2]string
	released    int
}

var _ browser.Session = (*Session)(nil)

// New returns a session over pages that advances when advance is clicked.
func New(advance string, pages ...string) *Session {
	return &Session{Pages: pages, Advance: advance, Counts: map[string]int{}}
}

func (s *Session) fail(op, arg string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op, arg)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Navigate", url); err != nil {
		return err
	}
	s.navigations = append(s.navigations, url)
	return nil
}

func (s *Session) Markup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Markup", ""); err != nil {
		return "", err
	}
	if len(s.Pages) == 0 {
		return "<html><body></body></html>", nil
	}
	return s.Pages[s.page], nil
}

func (s *Session) Click(ctx context.Context, loc browser.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Click", loc.String()); err != nil {
		return err
	}
	s.clicks = append(s.clicks, loc.String())
	if s.Advance != "" && loc.Selector() == s.Advance && s.page < len(s.Pages)-1 {
		s.page++
	}
	return nil
}

func (s *Session) FindChild(ctx context.Context, parent browser.Locator, selector string) (browser.Locator, error) {
	if err := ctx.Err(); err != nil {
		return browser.Locator{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("FindChild", selector); err != nil {
		return browser.Locator{}, err
	}
	if s.Counts[selector] == 0 {
		return browser.Locator{}, fmt.Errorf("%s >> %s: %w", parent, selector, browser.ErrElementNotFound)
	}
	return parent.Child(selector), nil
}

func (s *Session) FindChildren(ctx context.Context, parent browser.Locator, selector string) ([]browser.Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("FindChildren", selector); err != nil {
		return nil, err
	}
	n := s.Counts[selector]
	out := make([]browser.Locator, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, parent.Child(selector).Nth(i))
	}
	return out, nil
}

func (s *Session) RunScript(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("RunScript", script); err != nil {
		return nil, err
	}
	return s.ScriptResult, nil
}

func (s *Session) FillLoginFields(ctx context.Context, id, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("FillLoginFields", id); err != nil {
		return err
	}
	s.login = [2]string{id, password}
	return nil
}

// Pause records d without sleeping.
func (s *Session) Pause(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses = append(s.pauses, d)
	return nil
}

func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return nil
}

// Navigations returns the URLs passed to Navigate, in order.
func (s *Session) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

// Clicks returns the clicked locators, rendered with Locator.String.
func (s *Session) Clicks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clicks...)
}

// Pauses returns the durations passed to Pause.
func (s *Session) Pauses() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.pauses...)
}

// Login returns the credentials passed to FillLoginFields.
func (s *Session) Login() (id, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login[0], s.login[1]
}

// Released reports how many times Release was called.
func (s *Session) Released() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Page returns the index of the page Markup currently serves.
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Launcher hands out sessions produced by New.
type Launcher struct {
	New func() *Session
	Err error

	mu       sync.Mutex
	launched []*Session
	closed   bool
}

var _ browser.Launcher = (*Launcher)(nil)

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.Err != nil {
		return nil, l.Err
	}
	s := l.New()
	l.mu.Lock()
	l.launched = append(l.launched, s)
	l.mu.Unlock()
	return s, nil
}

func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Launched returns every session handed out so far.
func (l *Launcher) Launched() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.launched...)
}

// Closed reports whether Close was called.
func (l *Launcher) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
