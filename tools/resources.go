package tools

import (
	"context"
	"fmt"

	"github.com/tmanhococ/V2-Odoo-Agent/odoo"
)

// SystemPrompt is the instruction block handed to the model for every
// agent turn.
const SystemPrompt = `You are OdooBot, an AI assistant for an Odoo ERP system.
You help users work with CRM and sales data: searching leads, listing top
customers, creating leads and customers, and summarizing sales.

Rules:
- Use the provided tools to answer questions about CRM data. Never invent
  records.
- Actions that create or modify data require user confirmation. If the user
  declines, acknowledge the cancellation and do not retry.
- Keep answers short and factual. Include record IDs when you mention
  specific leads or customers.
- If a tool reports an error, tell the user what failed rather than
  guessing at the result.`

const schemaDoc = `Odoo CRM data model (read-facing subset)

crm_lead
  id                 integer, primary key
  name               text, lead/opportunity title
  email_from         text, contact email
  phone              text, contact phone
  description        text
  stage              text, pipeline stage name
  expected_revenue   numeric
  type               'lead' or 'opportunity'
  probability        numeric, 0..100

res_partner
  id                 integer, primary key
  name               text
  email              text
  phone              text
  customer_rank      integer, >0 marks the partner as a customer
  total_invoiced     numeric

sale_order
  id                 integer, primary key
  date_order         timestamp
  amount_total       numeric
  state              'draft', 'sent', 'sale', 'done', 'cancel'`

// SchemaResource serves the static CRM schema document.
type SchemaResource struct{}

func (r *SchemaResource) URI() string  { return "odoo://schema/sales" }
func (r *SchemaResource) Name() string { return "sales_schema" }
func (r *SchemaResource) Description() string {
	return "Schema of the CRM tables the agent can query."
}
func (r *SchemaResource) Read(ctx context.Context) (string, error) { return schemaDoc, nil }

// SummaryResource serves the live current-month sales summary.
type SummaryResource struct {
	store odoo.Store
}

func (r *SummaryResource) URI() string  { return "odoo://summary/sales" }
func (r *SummaryResource) Name() string { return "sales_summary" }
func (r *SummaryResource) Description() string {
	return "Current-month sales summary, computed on read."
}

func (r *SummaryResource) Read(ctx context.Context) (string, error) {
	summary, err := r.store.SalesSummary(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Sales Summary (Current Month):\n- Total Orders: %d\n- Total Revenue: %.2f\n- Pending Opportunities: %d\n- Expected Revenue: %.2f\n",
		summary.MonthlyOrders, summary.MonthlyRevenue, summary.PendingOpportunities, summary.ExpectedRevenue), nil
}
