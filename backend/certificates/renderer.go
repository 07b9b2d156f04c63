package certificates

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"proficiency/backend/utils"
)

// Renderer converts an HTML document into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, html string) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, html string) ([]byte, error) {
	return f(ctx, html)
}

// A4 in inches.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// ChromeRenderer prints HTML to PDF with headless Chrome. With RemoteURL set
// it attaches to an existing DevTools endpoint, otherwise it launches
// ExecPath (or the first Chrome found on PATH) per render.
type ChromeRenderer struct {
	ExecPath  string
	RemoteURL string
	log       *utils.Logger
}

func NewChromeRenderer(execPath, remoteURL string, log *utils.Logger) *ChromeRenderer {
	return &ChromeRenderer{
		ExecPath:  execPath,
		RemoteURL: remoteURL,
		log:       log.With("service", "ChromeRenderer"),
	}
}

func (r *ChromeRenderer) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, r.RemoteURL)
	}
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.DisableGPU, chromedp.WindowSize(1200, 800))
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

func (r *ChromeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	allocCtx, cancelAlloc := r.allocator(ctx)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome print to pdf: %w", err)
	}

	r.log.Debug("certificate rendered", "bytes", len(pdf))
	return pdf, nil
}
