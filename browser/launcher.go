package browser

import (
	"fmt"
	"strings"
	"time"
)

// Backend kinds accepted by NewLauncher.
const (
	KindChromium = "chromium" // playwright, Chromium
	KindFirefox  = "firefox"  // playwright, Firefox
	KindChrome   = "chrome"   // chromedp, locally installed Chrome
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures newly launched browsers.
type Options struct {
	Headless  bool
	UserAgent string
	Locale    string

	ViewportWidth  int
	ViewportHeight int

	// Timeout bounds each navigation and element wait.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Locale == "" {
		o.Locale = "ko-KR"
	}
	if o.ViewportWidth == 0 || o.ViewportHeight == 0 {
		o.ViewportWidth, o.ViewportHeight = 1920, 1080
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// NewLauncher returns the launcher for the given backend kind.
func NewLauncher(kind string, opts Options) (Launcher, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindChromium, "":
		return newPlaywrightLauncher(KindChromium, opts), nil
	case KindFirefox:
		return newPlaywrightLauncher(KindFirefox, opts), nil
	case KindChrome:
		return newChromedpLauncher(opts), nil
	default:
		return nil, fmt.Errorf("unknown browser kind %q (want %s, %s or %s)", kind, KindChromium, KindFirefox, KindChrome)
	}
}

// loginFillScript writes the credentials into the login inputs' value attributes.
// It returns false when the form is not on the page.
const loginFillScript = `([id, pw]) => {
	const idInput = document.querySelector('input[id="id"]');
	const pwInput = document.querySelector('input[id="pw"]');
	if (!idInput || !pwInput) return false;
	idInput.setAttribute('value', id);
	pwInput.setAttribute('value', pw);
	return true;
}`

// loginIDSelector is present once the login page has rendered.
const loginIDSelector = "#id"
