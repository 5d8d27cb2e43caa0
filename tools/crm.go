package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmanhococ/V2-Odoo-Agent/odoo"
)

// RegisterCRM registers the Odoo sales/CRM tools and resources. Any error
// here is a start-up failure; the server must not run with a partial
// registry.
func RegisterCRM(r *Registry, store odoo.Store) error {
	for _, t := range []Tool{
		&SearchLeadsTool{store: store},
		&TopCustomersTool{store: store},
		&CreateLeadTool{store: store},
		&CreateCustomerTool{store: store},
		&SalesSummaryTool{store: store},
	} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	for _, res := range []Resource{
		&SchemaResource{},
		&SummaryResource{store: store},
	} {
		if err := r.RegisterResource(res); err != nil {
			return err
		}
	}
	return nil
}

// SearchLeadsTool searches CRM leads by name or email.
type SearchLeadsTool struct {
	store odoo.Store
}

func (t *SearchLeadsTool) Name() string { return "search_leads" }
func (t *SearchLeadsTool) Description() string {
	return "Search CRM leads by name or email. Returns matching leads with their details."
}
func (t *SearchLeadsTool) Mutating() bool { return false }
func (t *SearchLeadsTool) Params() []Param {
	return []Param{
		{Name: "query", Type: "string", Description: "Search term for lead name or email", Required: true},
		{Name: "limit", Type: "integer", Description: "Maximum number of results to return", Default: 5},
	}
}

func (t *SearchLeadsTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	leads, err := t.store.SearchLeads(ctx, stringArg(args, "query"), intArg(args, "limit"))
	if err != nil {
		return "", err
	}
	if len(leads) == 0 {
		return "No leads found matching your search criteria.", nil
	}

	var b strings.Builder
	b.WriteString("Found the following leads:\n")
	for _, lead := range leads {
		fmt.Fprintf(&b, "- %s (ID: %d)\n", lead.Name, lead.ID)
		fmt.Fprintf(&b, "  Email: %s\n", orNA(lead.Email))
		fmt.Fprintf(&b, "  Phone: %s\n", orNA(lead.Phone))
		fmt.Fprintf(&b, "  Stage: %s\n", lead.Stage)
		fmt.Fprintf(&b, "  Expected Revenue: %g\n\n", lead.ExpectedRevenue)
	}
	return b.String(), nil
}

// TopCustomersTool lists customers ranked by customer rank descending.
type TopCustomersTool struct {
	store odoo.Store
}

func (t *TopCustomersTool) Name() string { return "get_top_customers" }
func (t *TopCustomersTool) Description() string {
	return "Get top customers by sales ranking."
}
func (t *TopCustomersTool) Mutating() bool { return false }
func (t *TopCustomersTool) Params() []Param {
	return []Param{
		{Name: "limit", Type: "integer", Description: "Maximum number of customers to return", Default: 10},
	}
}

func (t *TopCustomersTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	customers, err := t.store.TopCustomers(ctx, intArg(args, "limit"))
	if err != nil {
		return "", err
	}
	if len(customers) == 0 {
		return "No customers found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d customers:\n", len(customers))
	for i, c := range customers {
		fmt.Fprintf(&b, "%d. %s (ID: %d)\n", i+1, c.Name, c.ID)
		fmt.Fprintf(&b, "   Email: %s\n", orNA(c.Email))
		fmt.Fprintf(&b, "   Phone: %s\n", orNA(c.Phone))
		fmt.Fprintf(&b, "   Customer Rank: %d\n", c.Rank)
		fmt.Fprintf(&b, "   Total Invoiced: %g\n\n", c.TotalInvoiced)
	}
	return b.String(), nil
}

// CreateLeadTool creates a new CRM lead. Mutating; runs only after the
// confirmation gate approves.
type CreateLeadTool struct {
	store odoo.Store
}

func (t *CreateLeadTool) Name() string { return "create_lead" }
func (t *CreateLeadTool) Description() string {
	return "Create a new CRM lead. Requires user confirmation before the lead is created."
}
func (t *CreateLeadTool) Mutating() bool { return true }
func (t *CreateLeadTool) Params() []Param {
	return []Param{
		{Name: "name", Type: "string", Description: "Lead name", Required: true},
		{Name: "email", Type: "string", Description: "Lead email address"},
		{Name: "phone", Type: "string", Description: "Lead phone number"},
		{Name: "description", Type: "string", Description: "Lead description"},
	}
}

func (t *CreateLeadTool) ConfirmationPrompt(args map[string]any) string {
	msg := fmt.Sprintf("Create a new lead with name '%s'", stringArg(args, "name"))
	if email := stringArg(args, "email"); email != "" {
		msg += fmt.Sprintf(", email '%s'", email)
	}
	if phone := stringArg(args, "phone"); phone != "" {
		msg += fmt.Sprintf(", phone '%s'", phone)
	}
	return msg + "?"
}

func (t *CreateLeadTool) CancelMessage() string { return "Lead creation cancelled by user." }

func (t *CreateLeadTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	lead, err := t.store.CreateLead(ctx, odoo.LeadInput{
		Name:        stringArg(args, "name"),
		Email:       stringArg(args, "email"),
		Phone:       stringArg(args, "phone"),
		Description: stringArg(args, "description"),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Lead created successfully!\nID: %d\nName: %s\nEmail: %s\nPhone: %s\nStage: %s",
		lead.ID, lead.Name, orNA(lead.Email), orNA(lead.Phone), lead.Stage), nil
}

// CreateCustomerTool creates a new customer. Mutating; gated.
type CreateCustomerTool struct {
	store odoo.Store
}

func (t *CreateCustomerTool) Name() string { return "create_customer" }
func (t *CreateCustomerTool) Description() string {
	return "Create a new customer. Requires user confirmation before the customer is created."
}
func (t *CreateCustomerTool) Mutating() bool { return true }
func (t *CreateCustomerTool) Params() []Param {
	return []Param{
		{Name: "name", Type: "string", Description: "Customer name", Required: true},
		{Name: "email", Type: "string", Description: "Customer email address"},
		{Name: "phone", Type: "string", Description: "Customer phone number"},
	}
}

func (t *CreateCustomerTool) ConfirmationPrompt(args map[string]any) string {
	msg := fmt.Sprintf("Create a new customer with name '%s'", stringArg(args, "name"))
	if email := stringArg(args, "email"); email != "" {
		msg += fmt.Sprintf(", email '%s'", email)
	}
	if phone := stringArg(args, "phone"); phone != "" {
		msg += fmt.Sprintf(", phone '%s'", phone)
	}
	return msg + "?"
}

func (t *CreateCustomerTool) CancelMessage() string { return "Customer creation cancelled by user." }

func (t *CreateCustomerTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	customer, err := t.store.CreateCustomer(ctx, odoo.CustomerInput{
		Name:  stringArg(args, "name"),
		Email: stringArg(args, "email"),
		Phone: stringArg(args, "phone"),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Customer created successfully!\nID: %d\nName: %s\nEmail: %s\nPhone: %s",
		customer.ID, customer.Name, orNA(customer.Email), orNA(customer.Phone)), nil
}

// SalesSummaryTool reports current-month sales statistics.
type SalesSummaryTool struct {
	store odoo.Store
}

func (t *SalesSummaryTool) Name() string { return "get_sales_summary" }
func (t *SalesSummaryTool) Description() string {
	return "Get sales summary statistics for the current month."
}
func (t *SalesSummaryTool) Mutating() bool  { return false }
func (t *SalesSummaryTool) Params() []Param { return nil }

func (t *SalesSummaryTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	summary, err := t.store.SalesSummary(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Sales Summary (Current Month):\n")
	fmt.Fprintf(&b, "- Total Orders: %d\n", summary.MonthlyOrders)
	fmt.Fprintf(&b, "- Total Revenue: %.2f\n", summary.MonthlyRevenue)
	fmt.Fprintf(&b, "- Pending Opportunities: %d\n", summary.PendingOpportunities)
	fmt.Fprintf(&b, "- Expected Revenue: %.2f\n", summary.ExpectedRevenue)
	return b.String(), nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
