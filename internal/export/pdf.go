package export

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// A4 portrait, in inches, as PrintToPDF expects.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69

	DefaultPrintTimeoutSec = 45
)

// PrintOptions defines parameters for a Chromium-based PDF print.
type PrintOptions struct {
	// URL of the export page to print, e.g.
	// "http://127.0.0.1:8080/export/calendar?t=<ticket>".
	URL string

	// Landscape rotates the paper. The calendar prints portrait.
	Landscape bool

	// Timeout bounds the entire print operation. If zero,
	// DefaultPrintTimeoutSec is used.
	Timeout time.Duration
}

// PrintPDF launches a headless Chromium via chromedp, navigates to opts.URL,
// waits for the page root to signal readiness through data-ready="true", and
// prints the page to an A4 PDF with backgrounds enabled so category colors
// survive printing.
func PrintPDF(parentCtx context.Context, opts PrintOptions) ([]byte, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("print: URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultPrintTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(opts.Landscape).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(0.2).
				WithMarginBottom(0.2).
				WithMarginLeft(0.2).
				WithMarginRight(0.2).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("print: chromedp run failed: %w", err)
	}
	return pdf, nil
}
