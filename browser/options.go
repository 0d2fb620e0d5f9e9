package browser

import (
	"github.com/chromedp/chromedp"
)

// Browser defaults.
const (
	DefaultWindowWidth  = 1920
	DefaultWindowHeight = 1080
	DefaultUserAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Options configures the Chrome process started by NewChromeSession.
type Options struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	// ExecPath overrides Chrome discovery when set.
	ExecPath string
}

// DefaultOptions returns headless options with a desktop-sized window.
func DefaultOptions() Options {
	return Options{
		Headless:     true,
		WindowWidth:  DefaultWindowWidth,
		WindowHeight: DefaultWindowHeight,
		UserAgent:    DefaultUserAgent,
	}
}

// allocatorOptions builds the exec allocator flags for opts.
func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	width, height := opts.WindowWidth, opts.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = DefaultWindowWidth, DefaultWindowHeight
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.WindowSize(width, height),
	)

	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	return allocOpts
}
