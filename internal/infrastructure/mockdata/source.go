// Package mockdata provides a generated in-memory portal.DataSource with
// simulated network latency, for demos and tests.
package mockdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"github.com/erp/portal/internal/domain/portal"
)

// Record counts produced per fetch.
const (
	InquiryCount  = 50
	OrderCount    = 40
	DeliveryCount = 35
	InvoiceCount  = 30
	PaymentCount  = 25
	MemoCount     = 20
)

// ErrUnavailable is returned by a fetch chosen to fail by the failure rate.
var ErrUnavailable = errors.New("mock backend unavailable")

var (
	products         = []string{"Product A", "Product B", "Product C", "Product D"}
	months           = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	inquiryStatuses  = []string{"Pending", "Approved", "Rejected", "In Review"}
	orderStatuses    = []string{"Confirmed", "Processing", "Shipped", "Delivered"}
	deliveryStatuses = []string{"In Transit", "Delivered", "Pending", "Delayed"}
	invoiceStatuses  = []string{"Paid", "Pending", "Overdue", "Cancelled"}
	memoStatuses     = []string{"Approved", "Pending", "Rejected"}
	memoReasons      = []string{"Return", "Discount", "Adjustment", "Refund", "Penalty"}
	memoTypes        = []portal.MemoType{portal.MemoCredit, portal.MemoDebit}
)

// Options configures a Source.
type Options struct {
	// Seed makes generation reproducible. Zero picks a random seed.
	Seed uint64
	// Latency is waited before every fetch returns.
	Latency time.Duration
	// FailureRate is the probability in [0,1] that a fetch fails.
	FailureRate float64
	// Year dates every generated record. Zero means 2024.
	Year int
}

// Source generates a fresh random record set on every fetch.
type Source struct {
	mu          sync.Mutex
	faker       *gofakeit.Faker
	latency     time.Duration
	failureRate float64
	year        int
}

var _ portal.DataSource = (*Source)(nil)

// New creates a Source.
func New(opts Options) *Source {
	year := opts.Year
	if year == 0 {
		year = 2024
	}
	return &Source{
		faker:       gofakeit.New(opts.Seed),
		latency:     opts.Latency,
		failureRate: opts.FailureRate,
		year:        year,
	}
}

// FetchInquiries implements portal.DataSource
func (s *Source) FetchInquiries(ctx context.Context) ([]portal.Inquiry, error) {
	if err := s.await(ctx, "inquiries"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]portal.Inquiry, InquiryCount)
	for i := range out {
		out[i] = portal.Inquiry{
			ID:       fmt.Sprintf("INQ%03d", i+1),
			Date:     s.date(),
			Product:  s.faker.RandomString(products),
			Quantity: s.faker.IntRange(1, 100),
			Status:   s.faker.RandomString(inquiryStatuses),
			Value:    decimal.NewFromInt(int64(s.faker.IntRange(1000, 10999))),
		}
	}
	return out, nil
}

// FetchSaleOrders implements portal.DataSource
func (s *Source) FetchSaleOrders(ctx context.Context) ([]portal.SaleOrder, error) {
	if err := s.await(ctx, "orders"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]portal.SaleOrder, OrderCount)
	for i := range out {
		out[i] = portal.SaleOrder{
			ID:       fmt.Sprintf("SO%03d", i+1),
			Date:     s.date(),
			Product:  s.faker.RandomString(products),
			Quantity: s.faker.IntRange(1, 50),
			Amount:   decimal.NewFromInt(int64(s.faker.IntRange(2000, 16999))),
			Status:   s.faker.RandomString(orderStatuses),
		}
	}
	return out, nil
}

// FetchDeliveries implements portal.DataSource
func (s *Source) FetchDeliveries(ctx context.Context) ([]portal.Delivery, error) {
	if err := s.await(ctx, "deliveries"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]portal.Delivery, DeliveryCount)
	for i := range out {
		out[i] = portal.Delivery{
			ID:             fmt.Sprintf("DEL%03d", i+1),
			OrderNumber:    fmt.Sprintf("SO%03d", s.faker.IntRange(1, OrderCount)),
			Date:           s.date(),
			Product:        s.faker.RandomString(products),
			Quantity:       s.faker.IntRange(1, 50),
			Status:         s.faker.RandomString(deliveryStatuses),
			TrackingNumber: "TRK" + s.faker.Regex("[A-Z0-9]{9}"),
		}
	}
	return out, nil
}

// FetchInvoices implements portal.DataSource
func (s *Source) FetchInvoices(ctx context.Context) ([]portal.Invoice, error) {
	if err := s.await(ctx, "invoices"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]portal.Invoice, InvoiceCount)
	for i := range out {
		items := make([]portal.LineItem, s.faker.IntRange(1, 5))
		for j := range items {
			items[j] = portal.NewLineItem(
				fmt.Sprintf("Item %d", j+1),
				s.faker.IntRange(1, 10),
				decimal.NewFromInt(int64(s.faker.IntRange(50, 549))),
			)
		}
		inv := portal.Invoice{
			ID:      fmt.Sprintf("INV%03d", i+1),
			Number:  fmt.Sprintf("%d-%04d", s.year, i+1),
			Date:    s.date(),
			DueDate: s.date(),
			Status:  s.faker.RandomString(invoiceStatuses),
			Items:   items,
		}
		inv.Amount = inv.ItemsTotal()
		out[i] = inv
	}
	return out, nil
}

// FetchPayments implements portal.DataSource
func (s *Source) FetchPayments(ctx context.Context) ([]portal.Payment, error) {
	if err := s.await(ctx, "payments"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]portal.Payment, PaymentCount)
	for i := range out {
		out[i] = portal.Payment{
			ID:            fmt.Sprintf("PAY%03d", i+1),
			InvoiceNumber: fmt.Sprintf("%d-%04d", s.year, s.faker.IntRange(1, InvoiceCount)),
			Amount:        decimal.NewFromInt(int64(s.faker.IntRange(1000, 10999))),
			DueDate:       s.date(),
			DaysOverdue:   s.faker.IntRange(0, 59),
		}
	}
	return out, nil
}

// FetchMemos implements portal.DataSource
func (s *Source) FetchMemos(ctx context.Context) ([]portal.Memo, error) {
	if err := s.await(ctx, "memos"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]portal.Memo, MemoCount)
	for i := range out {
		out[i] = portal.Memo{
			ID:     fmt.Sprintf("CDM%03d", i+1),
			Type:   memoTypes[s.faker.IntRange(0, len(memoTypes)-1)],
			Number: fmt.Sprintf("CDM-%d-%03d", s.year, i+1),
			Date:   s.date(),
			Amount: decimal.NewFromInt(int64(s.faker.IntRange(100, 5099))),
			Reason: s.faker.RandomString(memoReasons),
			Status: s.faker.RandomString(memoStatuses),
		}
	}
	return out, nil
}

// FetchSalesAnalytics implements portal.DataSource
func (s *Source) FetchSalesAnalytics(ctx context.Context) (portal.SalesAnalytics, error) {
	if err := s.await(ctx, "analytics"); err != nil {
		return portal.SalesAnalytics{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a := portal.SalesAnalytics{TotalRevenue: decimal.Zero}
	for _, m := range months {
		sales := decimal.NewFromInt(int64(s.faker.IntRange(10000, 59999)))
		a.MonthlySales = append(a.MonthlySales, portal.MonthlySales{Month: m, Sales: sales})
		a.TotalRevenue = a.TotalRevenue.Add(sales)
	}
	for _, p := range products {
		a.ProductSales = append(a.ProductSales, portal.ProductSales{
			Product: p,
			Sales:   decimal.NewFromInt(int64(s.faker.IntRange(20000, 119999))),
		})
	}
	for i := range months {
		a.RevenueOverTime = append(a.RevenueOverTime, portal.RevenuePoint{
			Date:    fmt.Sprintf("%d-%02d", s.year, i+1),
			Revenue: decimal.NewFromInt(int64(s.faker.IntRange(20000, 99999))),
		})
	}
	return a, nil
}

// await simulates network latency and injected failures.
func (s *Source) await(ctx context.Context, what string) error {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if s.failureRate <= 0 {
		return nil
	}
	s.mu.Lock()
	fail := s.faker.Float64() < s.failureRate
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("fetch %s: %w", what, ErrUnavailable)
	}
	return nil
}

// date returns an ISO date in the configured year. Days stop at 28 so every
// month is valid.
func (s *Source) date() string {
	return fmt.Sprintf("%d-%02d-%02d", s.year, s.faker.IntRange(1, 12), s.faker.IntRange(1, 28))
}
