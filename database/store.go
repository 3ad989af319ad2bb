package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"splitbills-backend/ledger"
	"splitbills-backend/models"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrAlreadyPaid = errors.New("settlement already paid")
)

// Store is the gorm-backed persistence for groups, expenses, settlements,
// wallets and the activity feed.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// LoadSnapshot reads everything the aggregator needs for a group inside one
// read-only repeatable-read transaction, so the records are mutually
// consistent even while other requests are writing.
func (s *Store) LoadSnapshot(ctx context.Context, groupID uuid.UUID) (ledger.Snapshot, error) {
	snap := ledger.Snapshot{GroupID: groupID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.Select("id").First(&group, "id = ?", groupID).Error; err != nil {
			return notFound(err)
		}

		var members []models.GroupMember
		if err := tx.Where("group_id = ?", groupID).Find(&members).Error; err != nil {
			return fmt.Errorf("load members: %w", err)
		}

		var expenses []models.Expense
		if err := tx.Where("group_id = ?", groupID).Find(&expenses).Error; err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}

		// One query for every split of the group instead of one per expense.
		var splits []models.ExpenseSplit
		groupExpenses := tx.Model(&models.Expense{}).Select("id").Where("group_id = ?", groupID)
		if err := tx.Where("expense_id IN (?)", groupExpenses).Find(&splits).Error; err != nil {
			return fmt.Errorf("load splits: %w", err)
		}

		var settlements []models.Settlement
		if err := tx.Where("group_id = ?", groupID).Find(&settlements).Error; err != nil {
			return fmt.Errorf("load settlements: %w", err)
		}

		snap.Members = make([]uuid.UUID, len(members))
		for i, m := range members {
			snap.Members[i] = m.UserID
		}
		snap.Expenses = make([]ledger.ExpenseRecord, len(expenses))
		for i := range expenses {
			snap.Expenses[i] = expenses[i].Record()
		}
		rows := make([]ledger.SplitRecord, len(splits))
		for i := range splits {
			rows[i] = splits[i].Record()
		}
		snap.Splits = ledger.IndexSplits(rows)
		snap.Settlements = make([]ledger.SettlementRecord, len(settlements))
		for i := range settlements {
			snap.Settlements[i] = settlements[i].Record()
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return snap, nil
}

// SavePlan replaces the group's PENDING settlements with transfers.
func (s *Store) SavePlan(ctx context.Context, groupID, createdBy uuid.UUID, transfers []ledger.Transfer) ([]models.Settlement, error) {
	rows := make([]models.Settlement, len(transfers))
	for i, t := range transfers {
		rows[i] = models.Settlement{
			GroupID:   groupID,
			FromUser:  t.FromID,
			ToUser:    t.ToID,
			Amount:    t.Amount,
			Status:    string(ledger.StatusPending),
			CreatedBy: createdBy,
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ? AND status = ?", groupID, ledger.StatusPending).
			Delete(&models.Settlement{}).Error; err != nil {
			return fmt.Errorf("clear pending settlements: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("create settlements: %w", err)
			}
		}
		return tx.Create(&models.Activity{
			GroupID:     groupID,
			UserID:      createdBy,
			Type:        models.ActivitySettleUpPlan,
			Description: fmt.Sprintf("Settle-up planned with %d payment(s)", len(rows)),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSettlementPaid moves a PENDING settlement to PAID.
func (s *Store) MarkSettlementPaid(ctx context.Context, groupID, settlementID, actor uuid.UUID) (models.Settlement, error) {
	var st models.Settlement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&st, "id = ? AND group_id = ?", settlementID, groupID).Error
		if err != nil {
			return notFound(err)
		}
		if st.Status == string(ledger.StatusPaid) {
			return ErrAlreadyPaid
		}

		now := time.Now().UTC()
		if err := tx.Model(&st).Updates(map[string]any{
			"status":  string(ledger.StatusPaid),
			"paid_at": now,
		}).Error; err != nil {
			return fmt.Errorf("mark settlement paid: %w", err)
		}
		st.Status, st.PaidAt = string(ledger.StatusPaid), &now

		return tx.Create(&models.Activity{
			GroupID:     groupID,
			UserID:      actor,
			Type:        models.ActivitySettlementPaid,
			ReferenceID: st.ID,
			Description: fmt.Sprintf("Settlement of %s marked paid", st.Amount.StringFixed(ledger.CurrencyPlaces)),
		}).Error
	})
	if err != nil {
		return models.Settlement{}, err
	}
	return st, nil
}

// RecordPayment stores a payment that already happened outside any plan.
func (s *Store) RecordPayment(ctx context.Context, st *models.Settlement) error {
	now := time.Now().UTC()
	st.Status = string(ledger.StatusPaid)
	st.PaidAt = &now

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(st).Error; err != nil {
			return fmt.Errorf("create settlement: %w", err)
		}
		return tx.Create(&models.Activity{
			GroupID:     st.GroupID,
			UserID:      st.FromUser,
			Type:        models.ActivityPaymentAdded,
			ReferenceID: st.ID,
			Description: fmt.Sprintf("Payment of %s recorded", st.Amount.StringFixed(ledger.CurrencyPlaces)),
		}).Error
	})
}

// ListSettlements returns the group's settlements, newest first. An empty
// status lists every status.
func (s *Store) ListSettlements(ctx context.Context, groupID uuid.UUID, status string) ([]models.Settlement, error) {
	q := s.db.WithContext(ctx).Where("group_id = ?", groupID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var settlements []models.Settlement
	if err := q.Order("created_at DESC").Find(&settlements).Error; err != nil {
		return nil, err
	}
	return settlements, nil
}

func (s *Store) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListMembers returns the group's member ids in join order.
func (s *Store) ListMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("joined_at").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) GetGroup(ctx context.Context, groupID uuid.UUID) (models.Group, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		return models.Group{}, notFound(err)
	}
	return group, nil
}

// UsersByID loads users keyed by id. Unknown ids are left out.
func (s *Store) UsersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	out := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// CreateExpense inserts the expense together with its splits.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(expense).Error; err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		return tx.Create(&models.Activity{
			GroupID:     expense.GroupID,
			UserID:      expense.PaidBy,
			Type:        models.ActivityExpenseAdded,
			ReferenceID: expense.ID,
			Description: fmt.Sprintf("Added \"%s\" for %s", expense.Title, expense.Amount.StringFixed(ledger.CurrencyPlaces)),
		}).Error
	})
}

func (s *Store) ListExpenses(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]models.Expense, error) {
	var expenses []models.Expense
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Preload("Splits").
		Order("expense_date DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) AddContribution(ctx context.Context, c *models.WalletContribution) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("create contribution: %w", err)
		}
		return tx.Create(&models.Activity{
			GroupID:     c.GroupID,
			UserID:      c.UserID,
			Type:        models.ActivityWalletAdded,
			ReferenceID: c.ID,
			Description: fmt.Sprintf("Added %s to the wallet", c.Amount.StringFixed(ledger.CurrencyPlaces)),
		}).Error
	})
}

func (s *Store) AddWalletExpense(ctx context.Context, e *models.WalletExpense) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(e).Error; err != nil {
			return fmt.Errorf("create wallet expense: %w", err)
		}
		return tx.Create(&models.Activity{
			GroupID:     e.GroupID,
			UserID:      e.AddedBy,
			Type:        models.ActivityWalletSpent,
			ReferenceID: e.ID,
			Description: fmt.Sprintf("Spent %s from the wallet on \"%s\"", e.Amount.StringFixed(ledger.CurrencyPlaces), e.Title),
		}).Error
	})
}

// LoadWallet returns every contribution and spend of the group's wallet.
func (s *Store) LoadWallet(ctx context.Context, groupID uuid.UUID) ([]models.WalletContribution, []models.WalletExpense, error) {
	var (
		contributions []models.WalletContribution
		spends        []models.WalletExpense
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Find(&contributions).Error; err != nil {
			return err
		}
		return tx.Where("group_id = ?", groupID).Find(&spends).Error
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, nil, err
	}
	return contributions, spends, nil
}

func (s *Store) ListActivity(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]models.Activity, error) {
	var activities []models.Activity
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}
