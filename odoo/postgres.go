package odoo

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/tmanhococ/V2-Odoo-Agent/errors"
)

// PostgresStore reads and writes the Odoo database tables directly. Each
// method issues a single statement, so a cancelled call leaves no partial
// effect behind.
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore connects to the Odoo database at dsn.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &PostgresStore{db: db}, nil
}

// Ping verifies the connection.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return errors.Wrapf(p.db.PingContext(ctx), "could not reach the Odoo database")
}

// Close releases the underlying pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

type leadRow struct {
	bun.BaseModel `bun:"table:crm_lead,alias:l"`

	ID              int64           `bun:"id,pk,autoincrement"`
	Name            string          `bun:"name"`
	EmailFrom       sql.NullString  `bun:"email_from"`
	Phone           sql.NullString  `bun:"phone"`
	Description     sql.NullString  `bun:"description"`
	Type            string          `bun:"type"`
	ExpectedRevenue sql.NullFloat64 `bun:"expected_revenue"`
}

type partnerRow struct {
	bun.BaseModel `bun:"table:res_partner,alias:p"`

	ID            int64           `bun:"id,pk,autoincrement"`
	Name          string          `bun:"name"`
	Email         sql.NullString  `bun:"email"`
	Phone         sql.NullString  `bun:"phone"`
	CustomerRank  int             `bun:"customer_rank"`
	TotalInvoiced sql.NullFloat64 `bun:"total_invoiced,scanonly"`
}

func (p *PostgresStore) SearchLeads(ctx context.Context, query string, limit int) ([]Lead, error) {
	if limit <= 0 {
		return nil, nil
	}

	pattern := "%" + query + "%"
	var rows []leadRow
	err := p.db.NewSelect().
		Model(&rows).
		Where("l.name ILIKE ? OR l.email_from ILIKE ?", pattern, pattern).
		Order("l.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, errors.Mark(ErrStoreUnavailable, err)
	}

	leads := make([]Lead, 0, len(rows))
	for _, r := range rows {
		leads = append(leads, Lead{
			ID:              r.ID,
			Name:            r.Name,
			Email:           r.EmailFrom.String,
			Phone:           r.Phone.String,
			Description:     r.Description.String,
			Stage:           "New",
			ExpectedRevenue: r.ExpectedRevenue.Float64,
		})
	}
	return leads, nil
}

func (p *PostgresStore) TopCustomers(ctx context.Context, limit int) ([]Customer, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []partnerRow
	err := p.db.NewSelect().
		Model(&rows).
		Where("p.customer_rank > 0").
		Order("p.customer_rank DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, errors.Mark(ErrStoreUnavailable, err)
	}

	customers := make([]Customer, 0, len(rows))
	for _, r := range rows {
		customers = append(customers, Customer{
			ID:            r.ID,
			Name:          r.Name,
			Email:         r.Email.String,
			Phone:         r.Phone.String,
			Rank:          r.CustomerRank,
			TotalInvoiced: r.TotalInvoiced.Float64,
		})
	}
	return customers, nil
}

func (p *PostgresStore) CreateLead(ctx context.Context, in LeadInput) (Lead, error) {
	if in.Name == "" {
		return Lead{}, errors.New("lead name is required")
	}

	row := leadRow{
		Name:        in.Name,
		EmailFrom:   nullString(in.Email),
		Phone:       nullString(in.Phone),
		Description: nullString(in.Description),
		Type:        "lead",
	}
	if _, err := p.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return Lead{}, errors.Mark(ErrStoreUnavailable, err)
	}

	return Lead{
		ID:          row.ID,
		Name:        row.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Description: in.Description,
		Stage:       "New",
	}, nil
}

func (p *PostgresStore) CreateCustomer(ctx context.Context, in CustomerInput) (Customer, error) {
	if in.Name == "" {
		return Customer{}, errors.New("customer name is required")
	}

	row := partnerRow{
		Name:         in.Name,
		Email:        nullString(in.Email),
		Phone:        nullString(in.Phone),
		CustomerRank: 1,
	}
	if _, err := p.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return Customer{}, errors.Mark(ErrStoreUnavailable, err)
	}

	return Customer{
		ID:    row.ID,
		Name:  row.Name,
		Email: in.Email,
		Phone: in.Phone,
		Rank:  1,
	}, nil
}

func (p *PostgresStore) SalesSummary(ctx context.Context) (Summary, error) {
	now := time.Now()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var monthlyOrders int
	var monthlyRevenue float64
	err := p.db.NewSelect().
		TableExpr("sale_order").
		ColumnExpr("count(*), coalesce(sum(amount_total), 0)").
		Where("date_order >= ?", firstOfMonth).
		Where("state IN (?)", bun.In([]string{"sale", "done"})).
		Scan(ctx, &monthlyOrders, &monthlyRevenue)
	if err != nil {
		return Summary{}, errors.Mark(ErrStoreUnavailable, err)
	}

	var pendingOpps int
	var expectedRevenue float64
	err = p.db.NewSelect().
		TableExpr("crm_lead").
		ColumnExpr("count(*), coalesce(sum(expected_revenue), 0)").
		Where("type = ?", "opportunity").
		Where("probability < 100").
		Scan(ctx, &pendingOpps, &expectedRevenue)
	if err != nil {
		return Summary{}, errors.Mark(ErrStoreUnavailable, err)
	}

	return Summary{
		MonthlyOrders:        monthlyOrders,
		MonthlyRevenue:       monthlyRevenue,
		PendingOpportunities: pendingOpps,
		ExpectedRevenue:      expectedRevenue,
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
