package printing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/erp/portal/internal/domain/portal"
)

// A4 paper in inches, the unit Chrome's print API uses.
const (
	a4WidthInches  = 210 / 25.4
	a4HeightInches = 297 / 25.4
	marginInches   = 15 / 25.4
)

// ChromedpConfig contains configuration for the chromedp exporter
type ChromedpConfig struct {
	// ExecPath is the Chrome binary. Empty lets chromedp locate one.
	ExecPath string
	// RemoteURL connects to an already running browser instead of launching one.
	RemoteURL string
	Timeout   time.Duration
	NoSandbox bool
	Logger    *zap.Logger
}

// ChromedpExporter prints the invoice HTML page to PDF with headless Chrome.
type ChromedpExporter struct {
	timeout     time.Duration
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

var _ portal.DocumentExporter = (*ChromedpExporter)(nil)

// NewChromedpExporter creates the browser allocator. The browser itself is
// started lazily on the first export.
func NewChromedpExporter(cfg ChromedpConfig) *ChromedpExporter {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	e := &ChromedpExporter{timeout: timeout, logger: logger.Named("chromedp")}
	if cfg.RemoteURL != "" {
		e.allocCtx, e.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return e
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return e
}

// ExportInvoicePDF implements portal.DocumentExporter
func (e *ChromedpExporter) ExportInvoicePDF(ctx context.Context, inv portal.Invoice) (portal.Document, error) {
	html, err := RenderInvoiceHTML(inv)
	if err != nil {
		return portal.Document{}, err
	}

	start := time.Now()
	browserCtx, cancelBrowser := chromedp.NewContext(e.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			e.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer cancelBrowser()
	runCtx, cancel := context.WithTimeout(browserCtx, e.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var pdf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4WidthInches).
				WithPaperHeight(a4HeightInches).
				WithMarginTop(marginInches).
				WithMarginBottom(marginInches).
				WithMarginLeft(marginInches).
				WithMarginRight(marginInches).
				Do(ctx)
			pdf = data
			return err
		}),
	)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.Canceled) {
			return portal.Document{}, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("PDF rendering of invoice %s did not finish", inv.ID), err)
		}
		return portal.Document{}, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", err)
	}
	if len(pdf) == 0 {
		return portal.Document{}, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	e.logger.Info("invoice rendered",
		zap.String("invoice_id", inv.ID),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)))

	return portal.Document{
		Filename:    portal.InvoiceFilename(inv),
		ContentType: portal.ContentTypePDF,
		Body:        pdf,
	}, nil
}

// Close shuts down the browser allocator.
func (e *ChromedpExporter) Close() error {
	if e.allocCancel != nil {
		e.allocCancel()
	}
	return nil
}
