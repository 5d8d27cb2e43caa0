// Package odoo is the data-access port over the Odoo business records the
// agent's tools operate on: CRM leads, customers and sales orders. Tool
// handlers treat every call as a single atomic operation; a store method
// either fully succeeds or leaves no effect behind.
package odoo

import (
	"context"
	"errors"
)

// ErrStoreUnavailable marks failures reaching the backing record store.
var ErrStoreUnavailable = errors.New("record store unavailable")

// Lead is a CRM lead or opportunity.
type Lead struct {
	ID              int64
	Name            string
	Email           string
	Phone           string
	Description     string
	Stage           string
	ExpectedRevenue float64
}

// Customer is a partner with a positive customer rank.
type Customer struct {
	ID            int64
	Name          string
	Email         string
	Phone         string
	Rank          int
	TotalInvoiced float64
}

// Summary aggregates the current month's confirmed orders and the open
// opportunity pipeline.
type Summary struct {
	MonthlyOrders        int
	MonthlyRevenue       float64
	PendingOpportunities int
	ExpectedRevenue      float64
}

// LeadInput carries the fields for a new lead. Name is required.
type LeadInput struct {
	Name        string
	Email       string
	Phone       string
	Description string
}

// CustomerInput carries the fields for a new customer. Name is required.
type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

// Store is the narrow interface the tools consume. Implementations must be
// safe for concurrent use and must surface failures as errors rather than
// swallowing them.
type Store interface {
	SearchLeads(ctx context.Context, query string, limit int) ([]Lead, error)
	TopCustomers(ctx context.Context, limit int) ([]Customer, error)
	CreateLead(ctx context.Context, in LeadInput) (Lead, error)
	CreateCustomer(ctx context.Context, in CustomerInput) (Customer, error)
	SalesSummary(ctx context.Context) (Summary, error)
}
