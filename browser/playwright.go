package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// playwrightLauncher owns the playwright driver process and starts one browser per session.
type playwrightLauncher struct {
	kind string
	opts Options

	mu sync.Mutex
	pw *playwright.Playwright
}

func newPlaywrightLauncher(kind string, opts Options) *playwrightLauncher {
	return &playwrightLauncher{kind: kind, opts: opts}
}

// driver installs (first run only) and starts the playwright driver.
func (l *playwrightLauncher) driver() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw != nil {
		return l.pw, nil
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{l.kind},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	l.pw = pw
	return pw, nil
}

func (l *playwrightLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := l.driver()
	if err != nil {
		return nil, err
	}

	browserType := pw.Chromium
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
	}
	if l.kind == KindFirefox {
		browserType = pw.Firefox
	} else {
		launchOpts.Args = []string{
			"--no-sandbox",
			"--disable-extensions",
			"--disable-blink-features=AutomationControlled",
		}
	}

	b, err := browserType.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", l.kind, err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(l.opts.UserAgent),
		Locale:    playwright.String(l.opts.Locale),
		Viewport: &playwright.Size{
			Width:  l.opts.ViewportWidth,
			Height: l.opts.ViewportHeight,
		},
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(l.opts.Timeout.Milliseconds()))

	return &playwrightSession{browser: b, context: bctx, page: page}, nil
}

// Close stops the playwright driver. Sessions must be released first.
func (l *playwrightLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

type playwrightSession struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	releaseOnce sync.Once
	releaseErr  error
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *playwrightSession) Markup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("page content failed: %w", err)
	}
	return html, nil
}

// resolve maps a Locator onto a chained playwright locator.
func (s *playwrightSession) resolve(loc Locator) playwright.Locator {
	var l playwright.Locator
	for i, st := range loc.steps {
		if i == 0 {
			l = s.page.Locator(st.Query)
		} else {
			l = l.Locator(st.Query)
		}
		l = l.Nth(st.Nth)
	}
	return l
}

func (s *playwrightSession) count(parent Locator, selector string) (int, error) {
	var l playwright.Locator
	if parent.IsZero() {
		l = s.page.Locator(selector)
	} else {
		l = s.resolve(parent).Locator(selector)
	}
	n, err := l.Count()
	if err != nil {
		return 0, fmt.Errorf("count %s >> %s failed: %w", parent, selector, err)
	}
	return n, nil
}

func (s *playwrightSession) Click(ctx context.Context, loc Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if loc.IsZero() {
		return fmt.Errorf("click: empty locator")
	}
	l := s.resolve(loc)
	n, err := l.Count()
	if err != nil {
		return fmt.Errorf("click %s failed: %w", loc, err)
	}
	if n == 0 {
		return fmt.Errorf("click %s: %w", loc, ErrElementNotFound)
	}
	if err := l.Click(); err != nil {
		return fmt.Errorf("click %s failed: %w", loc, err)
	}
	return nil
}

func (s *playwrightSession) FindChild(ctx context.Context, parent Locator, selector string) (Locator, error) {
	if err := ctx.Err(); err != nil {
		return Locator{}, err
	}
	n, err := s.count(parent, selector)
	if err != nil {
		return Locator{}, err
	}
	if n == 0 {
		return Locator{}, fmt.Errorf("%s >> %s: %w", parent, selector, ErrElementNotFound)
	}
	return parent.Child(selector), nil
}

func (s *playwrightSession) FindChildren(ctx context.Context, parent Locator, selector string) ([]Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := s.count(parent, selector)
	if err != nil {
		return nil, err
	}
	return children(parent, selector, n), nil
}

func (s *playwrightSession) RunScript(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := s.page.Evaluate(script, arg)
	if err != nil {
		return nil, fmt.Errorf("script failed: %w", err)
	}
	return res, nil
}

func (s *playwrightSession) FillLoginFields(ctx context.Context, id, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.page.Locator(loginIDSelector).WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateAttached,
	})
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	res, err := s.RunScript(ctx, loginFillScript, []string{id, password})
	if err != nil {
		return err
	}
	if ok, _ := res.(bool); !ok {
		return fmt.Errorf("login form: %w", ErrElementNotFound)
	}
	return nil
}

func (s *playwrightSession) Pause(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func (s *playwrightSession) Release() error {
	s.releaseOnce.Do(func() {
		s.releaseErr = errors.Join(
			s.page.Close(),
			s.context.Close(),
			s.browser.Close(),
		)
	})
	return s.releaseErr
}
