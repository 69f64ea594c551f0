package dynamic

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// LaunchOptions configures the Chrome process behind every session
type LaunchOptions struct {
	Headless  bool
	ExecPath  string
	Proxy     string
	ExtraArgs []chromedp.ExecAllocatorOption
}

// ChromeLauncher starts one Chrome process per pool slot through chromedp.
type ChromeLauncher struct {
	opts     LaunchOptions
	execPath string
}

// NewChromeLauncher resolves the browser executable once for all sessions.
func NewChromeLauncher(opts LaunchOptions) *ChromeLauncher {
	return &ChromeLauncher{
		opts:     opts,
		execPath: FindChrome(opts.ExecPath),
	}
}

func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("window-size", "1920,1080"),
	}
	if l.execPath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(l.execPath)}, allocOpts...)
	}
	if l.opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if l.opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(l.opts.Proxy))
	}
	return append(allocOpts, l.opts.ExtraArgs...)
}

// Launch starts a browser process and warms it with a blank page.
func (l *ChromeLauncher) Launch(ctx context.Context, id int) (Driver, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), l.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	stop := context.AfterFunc(ctx, browserCancel)
	err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank"))
	stop()
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Debug().Int("session_id", id).Str("path", l.execPath).Msg("Browser started")
	return &chromeDriver{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

type chromeDriver struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// NewPage opens a new tab in the browser.
func (d *chromeDriver) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(d.browserCtx)

	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		cancel()
		return nil, err
	}
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

func (d *chromeDriver) Close() error {
	d.browserCancel()
	d.allocCancel()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Run executes actions in the tab, bounded by the caller's ctx.
func (p *chromePage) Run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && runCtx.Err() == context.DeadlineExceeded {
		return context.DeadlineExceeded
	}
	return err
}

// Close closes the tab. Safe to call more than once.
func (p *chromePage) Close() error {
	p.once.Do(p.cancel)
	return nil
}
