// Package portal drives the per-session portal workspace: lazily loaded
// tabs, their list controllers, exports and invoice downloads.
package portal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/portal/internal/domain/portal"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/infrastructure/telemetry"
)

// DefaultTabs are activated when a workspace opens or reloads.
var DefaultTabs = []portal.Tab{portal.TabInquiries, portal.TabInvoices}

// Workspace event types
const (
	EventTabLoaded = "tab.loaded"
	EventTabFailed = "tab.failed"
)

// TabEvent is published when a tab fetch completes.
type TabEvent struct {
	Type  string     `json:"type"`
	Tab   portal.Tab `json:"tab"`
	Count int        `json:"count,omitempty"`
	Error string     `json:"error,omitempty"`
	At    time.Time  `json:"at"`
}

// Notifier pushes workspace events to the clients of a session.
type Notifier interface {
	Publish(sessionID string, payload any)
}

// Dependencies are the collaborators shared by every workspace.
type Dependencies struct {
	Source    portal.DataSource
	Documents portal.DocumentExporter
	Sheets    portal.SheetExporter
	Notifier  Notifier           // optional
	Metrics   *telemetry.Metrics // optional
	Logger    *zap.Logger
}

// tabState tracks the lazy load of one tab. gen is bumped by Reload so
// that fetches started before it are discarded.
type tabState struct {
	loading bool
	loaded  bool
	lastErr error
	gen     int
	done    chan struct{}
}

// Workspace is the portal of one session. All methods are safe for
// concurrent use.
type Workspace struct {
	sessionID string
	deps      Dependencies
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	states    map[portal.Tab]*tabState
	lists     map[portal.Tab]listTab
	invoices  *list[portal.Invoice]
	analytics portal.SalesAnalytics
	wg        sync.WaitGroup
}

// NewWorkspace creates the workspace of sessionID. Tabs load only when
// activated.
func NewWorkspace(sessionID string, deps Dependencies) *Workspace {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	src := deps.Source
	ctx, cancel := context.WithCancel(context.Background())

	invoices := newList(portal.InvoiceSchema, src.FetchInvoices, presentInvoice, invoiceColumns, nil)
	w := &Workspace{
		sessionID: sessionID,
		deps:      deps,
		logger:    deps.Logger.With(zap.String("session_id", sessionID)),
		ctx:       ctx,
		cancel:    cancel,
		states:    make(map[portal.Tab]*tabState, len(portal.AllTabs)),
		invoices:  invoices,
		lists: map[portal.Tab]listTab{
			portal.TabInquiries:  newList(portal.InquirySchema, src.FetchInquiries, presentInquiry, inquiryColumns, nil),
			portal.TabOrders:     newList(portal.SaleOrderSchema, src.FetchSaleOrders, presentSaleOrder, saleOrderColumns, nil),
			portal.TabDeliveries: newList(portal.DeliverySchema, src.FetchDeliveries, presentDelivery, deliveryColumns, nil),
			portal.TabInvoices:   invoices,
			portal.TabPayments:   newList(portal.PaymentSchema, src.FetchPayments, presentPayment, paymentColumns, paymentFilters()),
			portal.TabMemos:      newList(portal.MemoSchema, src.FetchMemos, presentMemo, memoColumns, memoFilters()),
		},
	}
	for _, tab := range portal.AllTabs {
		w.states[tab] = &tabState{}
	}
	return w
}

// SessionID returns the session the workspace belongs to.
func (w *Workspace) SessionID() string {
	return w.sessionID
}

// Open activates the default tabs.
func (w *Workspace) Open() {
	for _, tab := range DefaultTabs {
		_ = w.Activate(tab)
	}
}

// Activate starts the first load of tab in the background. It does nothing
// while a load is in flight or once the tab has loaded. A tab whose last
// load failed is fetched again.
func (w *Workspace) Activate(tab portal.Tab) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	st, ok := w.states[tab]
	if !ok {
		return unknownTab(tab)
	}
	if st.loading || st.loaded {
		return nil
	}
	if w.ctx.Err() != nil {
		return shared.ErrInvalidState
	}
	st.loading = true
	st.done = make(chan struct{})

	w.wg.Add(1)
	go w.load(tab, st.gen)
	return nil
}

func (w *Workspace) load(tab portal.Tab, gen int) {
	defer w.wg.Done()

	ctx, span := telemetry.StartSpan(w.ctx, "portal.fetch",
		telemetry.Attr("tab", string(tab)),
		telemetry.Attr("session_id", w.sessionID),
	)
	start := time.Now()
	apply, count, err := w.fetch(ctx, tab)
	telemetry.EndSpan(span, err)
	w.deps.Metrics.ObserveFetch(string(tab), time.Since(start), err)

	w.mu.Lock()
	st := w.states[tab]
	if st.gen != gen {
		w.mu.Unlock()
		return
	}
	st.loading = false
	if err != nil {
		st.lastErr = err
	} else {
		apply()
		st.loaded = true
		st.lastErr = nil
	}
	close(st.done)
	st.done = nil
	w.mu.Unlock()

	evt := TabEvent{Type: EventTabLoaded, Tab: tab, Count: count, At: time.Now()}
	if err != nil {
		w.logger.Warn("Tab fetch failed", zap.String("tab", string(tab)), zap.Error(err))
		evt = TabEvent{Type: EventTabFailed, Tab: tab, Error: err.Error(), At: time.Now()}
	} else {
		w.logger.Debug("Tab loaded", zap.String("tab", string(tab)), zap.Int("count", count))
	}
	if w.deps.Notifier != nil {
		w.deps.Notifier.Publish(w.sessionID, evt)
	}
}

func (w *Workspace) fetch(ctx context.Context, tab portal.Tab) (func(), int, error) {
	if tab == portal.TabAnalytics {
		data, err := w.deps.Source.FetchSalesAnalytics(ctx)
		if err != nil {
			return nil, 0, err
		}
		return func() { w.analytics = data }, len(data.MonthlySales), nil
	}
	return w.lists[tab].fetch(ctx)
}

// Await blocks until tab has no load in flight or ctx is done.
func (w *Workspace) Await(ctx context.Context, tab portal.Tab) error {
	w.mu.Lock()
	st, ok := w.states[tab]
	if !ok {
		w.mu.Unlock()
		return unknownTab(tab)
	}
	done := st.done
	w.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the load state of tab.
func (w *Workspace) Status(tab portal.Tab) (TabStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.states[tab]
	if !ok {
		return TabStatus{}, unknownTab(tab)
	}
	return w.status(tab, st), nil
}

func (w *Workspace) status(tab portal.Tab, st *tabState) TabStatus {
	s := TabStatus{Tab: tab, Loading: st.loading, Loaded: st.loaded}
	if st.lastErr != nil {
		s.LastError = st.lastErr.Error()
	}
	return s
}

// Tab returns the load state and visible page of a list tab.
func (w *Workspace) Tab(tab portal.Tab) (TabView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, err := w.list(tab)
	if err != nil {
		return TabView{}, err
	}
	return TabView{TabStatus: w.status(tab, w.states[tab]), ListView: l.view()}, nil
}

// Search sets the search term of a list tab.
func (w *Workspace) Search(tab portal.Tab, term string) (TabView, error) {
	return w.mutate(tab, func(l listTab) error {
		l.setSearch(term)
		return nil
	})
}

// Sort sorts a list tab by field, flipping direction on repeat.
func (w *Workspace) Sort(tab portal.Tab, field string) (TabView, error) {
	return w.mutate(tab, func(l listTab) error { return l.setSort(field) })
}

// SetPageSize changes the page size of a list tab.
func (w *Workspace) SetPageSize(tab portal.Tab, size int) (TabView, error) {
	return w.mutate(tab, func(l listTab) error { return l.setPageSize(size) })
}

// NextPage advances a list tab by one page.
func (w *Workspace) NextPage(tab portal.Tab) (TabView, error) {
	return w.mutate(tab, func(l listTab) error {
		l.next()
		return nil
	})
}

// PreviousPage moves a list tab back by one page.
func (w *Workspace) PreviousPage(tab portal.Tab) (TabView, error) {
	return w.mutate(tab, func(l listTab) error {
		l.prev()
		return nil
	})
}

// GoToPage jumps a list tab to page, clamped into range.
func (w *Workspace) GoToPage(tab portal.Tab, page int) (TabView, error) {
	return w.mutate(tab, func(l listTab) error {
		l.goTo(page)
		return nil
	})
}

// SetFilter sets a named domain filter of a list tab. An empty value or
// "all" removes the filter.
func (w *Workspace) SetFilter(tab portal.Tab, name, value string) (TabView, error) {
	return w.mutate(tab, func(l listTab) error { return l.setFilter(name, value) })
}

// mutate applies fn to a loaded or idle list tab and returns the new view.
// Tabs with a load in flight reject mutations.
func (w *Workspace) mutate(tab portal.Tab, fn func(listTab) error) (TabView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, err := w.list(tab)
	if err != nil {
		return TabView{}, err
	}
	if w.states[tab].loading {
		return TabView{}, shared.ErrTabLoading
	}
	if err := fn(l); err != nil {
		return TabView{}, err
	}
	return TabView{TabStatus: w.status(tab, w.states[tab]), ListView: l.view()}, nil
}

func (w *Workspace) list(tab portal.Tab) (listTab, error) {
	if !tab.IsList() {
		if _, ok := w.states[tab]; ok {
			return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
				fmt.Sprintf("%s is not a list", tab))
		}
		return nil, unknownTab(tab)
	}
	l, ok := w.lists[tab]
	if !ok {
		return nil, unknownTab(tab)
	}
	return l, nil
}

// Analytics returns the analytics tab.
func (w *Workspace) Analytics() AnalyticsView {
	w.mu.Lock()
	defer w.mu.Unlock()
	a := w.analytics
	return AnalyticsView{
		TabStatus:       w.status(portal.TabAnalytics, w.states[portal.TabAnalytics]),
		Data:            a,
		MaxMonthlySales: a.MaxMonthlySales(),
		MaxRevenue:      a.MaxRevenue(),
		ProductShares:   a.ProductShares(),
	}
}

// Reload drops every tab's data and inputs and activates the default tabs
// again. Loads in flight are discarded when they complete.
func (w *Workspace) Reload() {
	w.mu.Lock()
	for tab, st := range w.states {
		st.gen++
		st.loading = false
		st.loaded = false
		st.lastErr = nil
		if st.done != nil {
			close(st.done)
			st.done = nil
		}
		if l, ok := w.lists[tab]; ok {
			l.clear()
		}
	}
	w.analytics = portal.SalesAnalytics{}
	w.mu.Unlock()

	w.logger.Info("Workspace reloaded")
	w.Open()
}

// Export encodes the filtered and sorted rows of a list tab.
func (w *Workspace) Export(ctx context.Context, tab portal.Tab, format portal.SheetFormat) (portal.Document, error) {
	w.mu.Lock()
	l, err := w.list(tab)
	if err != nil {
		w.mu.Unlock()
		return portal.Document{}, err
	}
	if w.states[tab].loading {
		w.mu.Unlock()
		return portal.Document{}, shared.ErrTabLoading
	}
	sheet := l.sheet()
	w.mu.Unlock()

	doc, err := w.deps.Sheets.ExportSheet(ctx, format, sheet)
	w.deps.Metrics.ObserveExport(string(format), err)
	if err != nil {
		w.logger.Error("Export failed", zap.String("tab", string(tab)), zap.Error(err))
		return portal.Document{}, shared.WrapDomainError(shared.ErrExportFailed.Code, shared.ErrExportFailed.Message, err)
	}
	return doc, nil
}

// DownloadInvoice renders the invoice with id as a PDF.
func (w *Workspace) DownloadInvoice(ctx context.Context, id string) (portal.Document, error) {
	w.mu.Lock()
	if w.states[portal.TabInvoices].loading {
		w.mu.Unlock()
		return portal.Document{}, shared.ErrTabLoading
	}
	inv, ok := w.invoices.find(func(r portal.Invoice) bool { return r.ID == id })
	w.mu.Unlock()
	if !ok {
		return portal.Document{}, shared.NewDomainError(shared.ErrNotFound.Code,
			fmt.Sprintf("invoice %s not found", id))
	}

	ctx, span := telemetry.StartSpan(ctx, "portal.invoice_pdf", telemetry.Attr("invoice", inv.Number))
	doc, err := w.deps.Documents.ExportInvoicePDF(ctx, inv)
	telemetry.EndSpan(span, err)
	w.deps.Metrics.ObserveExport("pdf", err)
	if err != nil {
		w.logger.Error("Invoice download failed", zap.String("invoice", inv.Number), zap.Error(err))
		return portal.Document{}, shared.WrapDomainError(shared.ErrExportFailed.Code, shared.ErrExportFailed.Message, err)
	}
	return doc, nil
}

// Close cancels loads in flight and waits for them to finish.
func (w *Workspace) Close() {
	w.cancel()
	w.wg.Wait()
}

func unknownTab(tab portal.Tab) error {
	return shared.NewDomainError(shared.ErrNotFound.Code, fmt.Sprintf("unknown tab %q", tab))
}
