package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"splitbills-backend/database"
	"splitbills-backend/ledger"
	"splitbills-backend/models"
	"splitbills-backend/services"
)

// memStore keeps rows in memory and mirrors the semantics of database.Store.
type memStore struct {
	mu            sync.Mutex
	groups        map[uuid.UUID]models.Group
	members       map[uuid.UUID][]uuid.UUID
	users         map[uuid.UUID]models.User
	expenses      []models.Expense
	settlements   []models.Settlement
	contributions []models.WalletContribution
	spends        []models.WalletExpense
	activity      []models.Activity
}

func newMemStore() *memStore {
	return &memStore{
		groups:  make(map[uuid.UUID]models.Group),
		members: make(map[uuid.UUID][]uuid.UUID),
		users:   make(map[uuid.UUID]models.User),
	}
}

func (m *memStore) addGroup(g models.Group, users ...models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.ID] = g
	for _, u := range users {
		m.users[u.ID] = u
		m.members[g.ID] = append(m.members[g.ID], u.ID)
	}
}

func (m *memStore) log(groupID, userID uuid.UUID, typ string, ref uuid.UUID) {
	m.activity = append(m.activity, models.Activity{
		ID: uuid.New(), GroupID: groupID, UserID: userID, Type: typ, ReferenceID: ref, CreatedAt: time.Now(),
	})
}

func (m *memStore) LoadSnapshot(_ context.Context, groupID uuid.UUID) (ledger.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[groupID]; !ok {
		return ledger.Snapshot{}, database.ErrNotFound
	}
	snap := ledger.Snapshot{GroupID: groupID, Members: append([]uuid.UUID(nil), m.members[groupID]...)}
	var rows []ledger.SplitRecord
	for i := range m.expenses {
		if m.expenses[i].GroupID != groupID {
			continue
		}
		snap.Expenses = append(snap.Expenses, m.expenses[i].Record())
		for j := range m.expenses[i].Splits {
			rows = append(rows, m.expenses[i].Splits[j].Record())
		}
	}
	snap.Splits = ledger.IndexSplits(rows)
	for i := range m.settlements {
		if m.settlements[i].GroupID == groupID {
			snap.Settlements = append(snap.Settlements, m.settlements[i].Record())
		}
	}
	return snap, nil
}

func (m *memStore) IsMember(_ context.Context, groupID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.members[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListMembers(_ context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.members[groupID]...), nil
}

func (m *memStore) GetGroup(_ context.Context, groupID uuid.UUID) (models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return models.Group{}, database.ErrNotFound
	}
	return g, nil
}

func (m *memStore) UsersByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]models.User)
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *memStore) SavePlan(_ context.Context, groupID, createdBy uuid.UUID, transfers []ledger.Transfer) ([]models.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.settlements[:0]
	for _, st := range m.settlements {
		if st.GroupID != groupID || st.Status != string(ledger.StatusPending) {
			kept = append(kept, st)
		}
	}
	m.settlements = kept

	rows := make([]models.Settlement, len(transfers))
	for i, t := range transfers {
		rows[i] = models.Settlement{
			ID: uuid.New(), GroupID: groupID, FromUser: t.FromID, ToUser: t.ToID,
			Amount: t.Amount, Status: string(ledger.StatusPending), CreatedBy: createdBy,
		}
	}
	m.settlements = append(m.settlements, rows...)
	m.log(groupID, createdBy, models.ActivitySettleUpPlan, uuid.Nil)
	return rows, nil
}

func (m *memStore) MarkSettlementPaid(_ context.Context, groupID, settlementID, actor uuid.UUID) (models.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.settlements {
		st := &m.settlements[i]
		if st.ID != settlementID || st.GroupID != groupID {
			continue
		}
		if st.Status == string(ledger.StatusPaid) {
			return models.Settlement{}, database.ErrAlreadyPaid
		}
		now := time.Now()
		st.Status, st.PaidAt = string(ledger.StatusPaid), &now
		m.log(groupID, actor, models.ActivitySettlementPaid, st.ID)
		return *st, nil
	}
	return models.Settlement{}, database.ErrNotFound
}

func (m *memStore) RecordPayment(_ context.Context, st *models.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	st.ID, st.Status, st.PaidAt = uuid.New(), string(ledger.StatusPaid), &now
	m.settlements = append(m.settlements, *st)
	m.log(st.GroupID, st.FromUser, models.ActivityPaymentAdded, st.ID)
	return nil
}

func (m *memStore) ListSettlements(_ context.Context, groupID uuid.UUID, status string) ([]models.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Settlement
	for _, st := range m.settlements {
		if st.GroupID == groupID && (status == "" || st.Status == status) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *memStore) CreateExpense(_ context.Context, e *models.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	for i := range e.Splits {
		e.Splits[i].ID = uuid.New()
		e.Splits[i].ExpenseID = e.ID
	}
	m.expenses = append(m.expenses, *e)
	m.log(e.GroupID, e.PaidBy, models.ActivityExpenseAdded, e.ID)
	return nil
}

func (m *memStore) ListExpenses(_ context.Context, groupID uuid.UUID, limit, offset int) ([]models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Expense
	for _, e := range m.expenses {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) AddContribution(_ context.Context, c *models.WalletContribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	m.contributions = append(m.contributions, *c)
	m.log(c.GroupID, c.UserID, models.ActivityWalletAdded, c.ID)
	return nil
}

func (m *memStore) AddWalletExpense(_ context.Context, e *models.WalletExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	m.spends = append(m.spends, *e)
	m.log(e.GroupID, e.AddedBy, models.ActivityWalletSpent, e.ID)
	return nil
}

func (m *memStore) LoadWallet(_ context.Context, groupID uuid.UUID) ([]models.WalletContribution, []models.WalletExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var in []models.WalletContribution
	for _, c := range m.contributions {
		if c.GroupID == groupID {
			in = append(in, c)
		}
	}
	var out []models.WalletExpense
	for _, s := range m.spends {
		if s.GroupID == groupID {
			out = append(out, s)
		}
	}
	return in, out, nil
}

func (m *memStore) ListActivity(_ context.Context, groupID uuid.UUID, limit, offset int) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Activity
	for i := len(m.activity) - 1; i >= 0; i-- {
		if m.activity[i].GroupID == groupID {
			out = append(out, m.activity[i])
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	paid  []services.SettlementNotice
	plans []services.PlanNotice
}

func (r *recordingNotifier) SettlementPaid(_ context.Context, n services.SettlementNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paid = append(r.paid, n)
	return nil
}

func (r *recordingNotifier) PlanReady(_ context.Context, n services.PlanNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans = append(r.plans, n)
	return nil
}

func (r *recordingNotifier) counts() (paid, plans int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paid), len(r.plans)
}
