package render

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"certapi/internal/config"
)

// ChromeEngine launches a headless Chrome process per Launch call via chromedp.
type ChromeEngine struct {
	execPath  string
	noSandbox bool
}

func NewChromeEngine(cfg config.RendererConfig) *ChromeEngine {
	return &ChromeEngine{execPath: cfg.ExecPath, noSandbox: cfg.NoSandbox}
}

func (e *ChromeEngine) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.DisableGPU)
	if e.execPath != "" {
		opts = append(opts, chromedp.ExecPath(e.execPath))
	}
	if e.noSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

// Launch starts the browser process. The instance lives until Close or until ctx is done.
func (e *ChromeEngine) Launch(ctx context.Context) (Browser, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, e.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// An empty Run starts the process and opens the first tab.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, err
	}
	return &chromeBrowser{ctx: browserCtx, cancelAlloc: cancelAlloc}, nil
}

type chromeBrowser struct {
	ctx         context.Context
	cancelAlloc context.CancelFunc
}

// PrintToPDF loads html into the tab and exports it. Actions run on the browser's own
// context, so ctx only short-circuits when already done.
func (b *chromeBrowser) PrintToPDF(ctx context.Context, html string, p Profile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf []byte
	err := chromedp.Run(b.ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPaperWidth(p.PaperWidth).
				WithPaperHeight(p.PaperHeight).
				WithLandscape(p.Landscape).
				WithPrintBackground(p.PrintBackground).
				WithPreferCSSPageSize(p.PreferCSSPageSize).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Close terminates the browser process and releases the allocator.
func (b *chromeBrowser) Close() error {
	defer b.cancelAlloc()
	return chromedp.Cancel(b.ctx)
}
