package odoo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tmanhococ/V2-Odoo-Agent/errors"
)

// MemoryStore is an in-memory Store used by tests and demo runs. It counts
// mutating calls so tests can assert that a denied confirmation reached the
// store zero times.
type MemoryStore struct {
	mu        sync.Mutex
	leads     []Lead
	customers []Customer
	summary   Summary
	nextID    int64
	mutations int
	failWith  error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// SeedLeads preloads leads, assigning ids.
func (m *MemoryStore) SeedLeads(leads ...Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range leads {
		l.ID = m.nextID
		m.nextID++
		if l.Stage == "" {
			l.Stage = "New"
		}
		m.leads = append(m.leads, l)
	}
}

// SeedCustomers preloads customers, assigning ids.
func (m *MemoryStore) SeedCustomers(customers ...Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range customers {
		c.ID = m.nextID
		m.nextID++
		m.customers = append(m.customers, c)
	}
}

// SetSummary fixes the value returned by SalesSummary.
func (m *MemoryStore) SetSummary(s Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary = s
}

// FailWith makes every subsequent store call return err. Pass nil to heal.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// MutationCount reports how many mutating calls reached the store.
func (m *MemoryStore) MutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

func (m *MemoryStore) SearchLeads(ctx context.Context, query string, limit int) ([]Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	if limit <= 0 {
		return nil, nil
	}

	q := strings.ToLower(query)
	var out []Lead
	for _, l := range m.leads {
		if strings.Contains(strings.ToLower(l.Name), q) || strings.Contains(strings.ToLower(l.Email), q) {
			out = append(out, l)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) TopCustomers(ctx context.Context, limit int) ([]Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	if limit <= 0 {
		return nil, nil
	}

	ranked := make([]Customer, len(m.customers))
	copy(ranked, m.customers)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rank > ranked[j].Rank })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (m *MemoryStore) CreateLead(ctx context.Context, in LeadInput) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return Lead{}, m.failWith
	}
	if in.Name == "" {
		return Lead{}, errors.New("lead name is required")
	}

	lead := Lead{
		ID:          m.nextID,
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Description: in.Description,
		Stage:       "New",
	}
	m.nextID++
	m.leads = append(m.leads, lead)
	m.mutations++
	return lead, nil
}

func (m *MemoryStore) CreateCustomer(ctx context.Context, in CustomerInput) (Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return Customer{}, m.failWith
	}
	if in.Name == "" {
		return Customer{}, errors.New("customer name is required")
	}

	customer := Customer{
		ID:    m.nextID,
		Name:  in.Name,
		Email: in.Email,
		Phone: in.Phone,
		Rank:  1,
	}
	m.nextID++
	m.customers = append(m.customers, customer)
	m.mutations++
	return customer, nil
}

func (m *MemoryStore) SalesSummary(ctx context.Context) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return Summary{}, m.failWith
	}
	return m.summary, nil
}

var _ Store = (*MemoryStore)(nil)
