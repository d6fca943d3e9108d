package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// chromedpLauncher drives a locally installed Chrome over the DevTools protocol.
type chromedpLauncher struct {
	opts Options
}

func newChromedpLauncher(opts Options) *chromedpLauncher {
	return &chromedpLauncher{opts: opts}
}

func (l *chromedpLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", l.opts.Locale),
		chromedp.WindowSize(l.opts.ViewportWidth, l.opts.ViewportHeight),
		chromedp.UserAgent(l.opts.UserAgent),
	)

	// The browser outlives the launching call; Release tears it down.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		timeout:     l.opts.Timeout,
	}
	if err := s.run(ctx); err != nil {
		s.Release()
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}
	return s, nil
}

func (l *chromedpLauncher) Close() error { return nil }

type chromedpSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration

	releaseOnce sync.Once
}

// run executes actions on the tab, aborting when either ctx or the per-action
// timeout expires.
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *chromedpSession) Markup(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("page content failed: %w", err)
	}
	return html, nil
}

func (s *chromedpSession) Click(ctx context.Context, loc Locator) error {
	if loc.IsZero() {
		return fmt.Errorf("click: empty locator")
	}
	var clicked bool
	if err := s.run(ctx, chromedp.Evaluate(clickScript(loc), &clicked)); err != nil {
		return fmt.Errorf("click %s failed: %w", loc, err)
	}
	if !clicked {
		return fmt.Errorf("click %s: %w", loc, ErrElementNotFound)
	}
	return nil
}

func (s *chromedpSession) count(ctx context.Context, parent Locator, selector string) (int, error) {
	var n int
	if err := s.run(ctx, chromedp.Evaluate(countScript(parent, selector), &n)); err != nil {
		return 0, fmt.Errorf("count %s >> %s failed: %w", parent, selector, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: %w", parent, ErrElementNotFound)
	}
	return n, nil
}

func (s *chromedpSession) FindChild(ctx context.Context, parent Locator, selector string) (Locator, error) {
	n, err := s.count(ctx, parent, selector)
	if err != nil {
		return Locator{}, err
	}
	if n == 0 {
		return Locator{}, fmt.Errorf("%s >> %s: %w", parent, selector, ErrElementNotFound)
	}
	return parent.Child(selector), nil
}

func (s *chromedpSession) FindChildren(ctx context.Context, parent Locator, selector string) ([]Locator, error) {
	n, err := s.count(ctx, parent, selector)
	if err != nil {
		return nil, err
	}
	return children(parent, selector, n), nil
}

func (s *chromedpSession) RunScript(ctx context.Context, script string, arg any) (any, error) {
	expr, err := callScript(script, arg)
	if err != nil {
		return nil, err
	}
	var res any
	if err := s.run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
		return nil, fmt.Errorf("script failed: %w", err)
	}
	return res, nil
}

func (s *chromedpSession) FillLoginFields(ctx context.Context, id, password string) error {
	if err := s.run(ctx, chromedp.WaitReady(loginIDSelector, chromedp.ByQuery)); err != nil {
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

func (s *chromedpSession) Pause(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func (s *chromedpSession) Release() error {
	s.releaseOnce.Do(func() {
		s.cancelTab()
		s.cancelAlloc()
	})
	return nil
}
