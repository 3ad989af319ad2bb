package ledger

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	group = uuid.MustParse("99999999-0000-0000-0000-000000000000")
	alice = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	bob   = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	carol = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	dave  = uuid.MustParse("00000000-0000-0000-0000-00000000000d")
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func expense(payer uuid.UUID, amount string, shares map[uuid.UUID]string) (ExpenseRecord, []SplitRecord) {
	exp := ExpenseRecord{ID: uuid.New(), GroupID: group, PayerID: payer, Amount: d(amount)}
	var rows []SplitRecord
	for p, s := range shares {
		rows = append(rows, SplitRecord{ExpenseID: exp.ID, ParticipantID: p, ShareAmount: d(s)})
	}
	return exp, rows
}

func snapshot(parts ...any) Snapshot {
	s := Snapshot{GroupID: group, Splits: SplitIndex{}}
	for _, p := range parts {
		switch v := p.(type) {
		case ExpenseRecord:
			s.Expenses = append(s.Expenses, v)
		case []SplitRecord:
			for _, r := range v {
				s.Splits[r.ExpenseID] = append(s.Splits[r.ExpenseID], r)
			}
		case SettlementRecord:
			s.Settlements = append(s.Settlements, v)
		}
	}
	return s
}

func paid(from, to uuid.UUID, amount string) SettlementRecord {
	return SettlementRecord{ID: uuid.New(), GroupID: group, FromID: from, ToID: to, Amount: d(amount), Status: StatusPaid}
}

func assertBalance(t *testing.T, nb NetBalance, id uuid.UUID, want string) {
	t.Helper()
	got, ok := nb[id]
	require.True(t, ok, "missing balance for %s", id)
	assert.True(t, got.Equal(d(want)), "balance for %s = %s, want %s", id, got, want)
}

func assertTransfers(t *testing.T, got []Transfer, want ...Transfer) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].FromID, got[i].FromID, "transfer %d from", i)
		assert.Equal(t, want[i].ToID, got[i].ToID, "transfer %d to", i)
		assert.True(t, want[i].Amount.Equal(got[i].Amount), "transfer %d amount = %s, want %s", i, got[i].Amount, want[i].Amount)
	}
}

func tr(from, to uuid.UUID, amount string) Transfer {
	return Transfer{FromID: from, ToID: to, Amount: d(amount)}
}

func TestAggregate_EvenThreeWaySplit(t *testing.T) {
	exp, rows := expense(alice, "90", map[uuid.UUID]string{alice: "30", bob: "30", carol: "30"})

	nb, err := Aggregate(snapshot(exp, rows))
	require.NoError(t, err)

	assertBalance(t, nb, alice, "60")
	assertBalance(t, nb, bob, "-30")
	assertBalance(t, nb, carol, "-30")

	transfers, err := Plan(nb)
	require.NoError(t, err)
	assertTransfers(t, transfers, tr(bob, alice, "30"), tr(carol, alice, "30"))
}

func TestAggregate_PaidSettlementClearsDebt(t *testing.T) {
	exp, rows := expense(alice, "100", map[uuid.UUID]string{alice: "50", bob: "50"})

	nb, err := Aggregate(snapshot(exp, rows, paid(bob, alice, "50")))
	require.NoError(t, err)

	assertBalance(t, nb, alice, "0")
	assertBalance(t, nb, bob, "0")

	transfers, err := Plan(nb)
	require.NoError(t, err)
	assert.Empty(t, transfers)
	assert.NotNil(t, transfers)
}

func TestAggregate_PendingSettlementIgnored(t *testing.T) {
	exp, rows := expense(alice, "100", map[uuid.UUID]string{alice: "50", bob: "50"})
	pending := paid(bob, alice, "50")
	pending.Status = StatusPending

	nb, err := Aggregate(snapshot(exp, rows, pending))
	require.NoError(t, err)

	assertBalance(t, nb, alice, "50")
	assertBalance(t, nb, bob, "-50")
}

func TestAggregate_MembersStartAtZero(t *testing.T) {
	s := snapshot()
	s.Members = []uuid.UUID{alice, bob}

	nb, err := Aggregate(s)
	require.NoError(t, err)
	require.Len(t, nb, 2)
	assertBalance(t, nb, alice, "0")
	assertBalance(t, nb, bob, "0")
}

func TestAggregate_ExactDecimalAcrossManyRecords(t *testing.T) {
	// 0.1 + 0.2 style inputs folded a thousand times must stay exact.
	var parts []any
	for i := 0; i < 1000; i++ {
		exp, rows := expense(alice, "0.30", map[uuid.UUID]string{bob: "0.10", carol: "0.20"})
		parts = append(parts, exp, rows)
	}

	nb, err := Aggregate(snapshot(parts...))
	require.NoError(t, err)
	assertBalance(t, nb, alice, "300")
	assertBalance(t, nb, bob, "-100")
	assertBalance(t, nb, carol, "-200")
	assert.True(t, nb.Sum().IsZero())
}

func TestAggregate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		snap    func() Snapshot
		wantErr error
	}{
		{
			name: "negative expense amount",
			snap: func() Snapshot {
				exp, rows := expense(alice, "-10", map[uuid.UUID]string{alice: "0"})
				return snapshot(exp, rows)
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "negative share amount",
			snap: func() Snapshot {
				exp, rows := expense(alice, "0", map[uuid.UUID]string{alice: "10", bob: "-10"})
				return snapshot(exp, rows)
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "negative settlement amount",
			snap: func() Snapshot {
				return snapshot(paid(bob, alice, "-5"))
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "split for unknown expense",
			snap: func() Snapshot {
				_, rows := expense(alice, "10", map[uuid.UUID]string{bob: "10"})
				return snapshot(rows)
			},
			wantErr: ErrDataIntegrity,
		},
		{
			name: "expense from another group",
			snap: func() Snapshot {
				exp, rows := expense(alice, "10", map[uuid.UUID]string{bob: "10"})
				exp.GroupID = uuid.New()
				return snapshot(exp, rows)
			},
			wantErr: ErrDataIntegrity,
		},
		{
			name: "settlement from another group",
			snap: func() Snapshot {
				st := paid(bob, alice, "5")
				st.GroupID = uuid.New()
				return snapshot(st)
			},
			wantErr: ErrDataIntegrity,
		},
		{
			name: "unknown settlement status",
			snap: func() Snapshot {
				st := paid(bob, alice, "5")
				st.Status = "REFUNDED"
				return snapshot(st)
			},
			wantErr: ErrDataIntegrity,
		},
		{
			name: "shares short of the expense amount",
			snap: func() Snapshot {
				exp, rows := expense(alice, "100", map[uuid.UUID]string{alice: "33.33", bob: "33.33", carol: "33.33"})
				return snapshot(exp, rows)
			},
			wantErr: ErrDataIntegrity,
		},
		{
			name: "split indexed under the wrong expense",
			snap: func() Snapshot {
				exp, rows := expense(alice, "10", map[uuid.UUID]string{bob: "10"})
				other, _ := expense(alice, "0", nil)
				s := snapshot(exp, other)
				s.Splits[other.ID] = rows
				return s
			},
			wantErr: ErrDataIntegrity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nb, err := Aggregate(tt.snap())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, nb)
		})
	}
}

func TestAggregate_TypedErrors(t *testing.T) {
	exp, rows := expense(alice, "-1", nil)
	_, err := Aggregate(snapshot(exp, rows))

	var amountErr *InvalidAmountError
	require.True(t, errors.As(err, &amountErr))
	assert.Equal(t, "expense", amountErr.Kind)
	assert.Equal(t, exp.ID.String(), amountErr.Ref)

	_, rows = expense(alice, "10", map[uuid.UUID]string{bob: "10"})
	_, err = Aggregate(snapshot(rows))

	var integrity *DataIntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Contains(t, integrity.Error(), "unknown expense")
}

func TestNetBalance_MergeConcurrentPartials(t *testing.T) {
	var parts []any
	for i := 0; i < 40; i++ {
		exp, rows := expense([]uuid.UUID{alice, bob, carol, dave}[i%4], "12.34",
			map[uuid.UUID]string{alice: "3.08", bob: "3.09", carol: "3.08", dave: "3.09"})
		parts = append(parts, exp, rows)
	}
	whole, err := Aggregate(snapshot(parts...))
	require.NoError(t, err)

	// Four shards of ten expenses each, folded in parallel.
	partials := make([]NetBalance, 4)
	var wg sync.WaitGroup
	for k := 0; k < 4; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			nb, err := Aggregate(snapshot(parts[k*20 : (k+1)*20]...))
			if err == nil {
				partials[k] = nb
			}
		}(k)
	}
	wg.Wait()

	merged := NetBalance{}
	for k := 3; k >= 0; k-- {
		require.NotNil(t, partials[k], "shard %d failed", k)
		merged.Merge(partials[k])
	}

	require.Len(t, merged, len(whole))
	for id, v := range whole {
		assertBalance(t, merged, id, v.String())
	}
}

func TestPlan_TwoReceiversOnePayer(t *testing.T) {
	transfers, err := Plan(NetBalance{alice: d("50"), bob: d("30"), carol: d("-80")})
	require.NoError(t, err)
	assertTransfers(t, transfers, tr(carol, alice, "50"), tr(carol, bob, "30"))
}

func TestPlan_Boundaries(t *testing.T) {
	transfers, err := Plan(NetBalance{})
	require.NoError(t, err)
	assert.Empty(t, transfers)

	transfers, err = Plan(nil)
	require.NoError(t, err)
	assert.Empty(t, transfers)

	transfers, err = Plan(NetBalance{alice: d("0"), bob: d("0")})
	require.NoError(t, err)
	assert.Empty(t, transfers)

	transfers, err = Plan(NetBalance{alice: d("42.50"), bob: d("-42.50")})
	require.NoError(t, err)
	assertTransfers(t, transfers, tr(bob, alice, "42.50"))
}

func TestPlan_OrderIndependentOfInsertion(t *testing.T) {
	first := NetBalance{}
	first[dave] = d("-10")
	first[carol] = d("25")
	first[bob] = d("-40")
	first[alice] = d("25")

	second := NetBalance{alice: d("25"), bob: d("-40"), carol: d("25"), dave: d("-10")}

	a, err := Plan(first)
	require.NoError(t, err)
	b, err := Plan(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	again, err := Plan(first)
	require.NoError(t, err)
	assert.Equal(t, a, again)

	assertTransfers(t, a, tr(bob, alice, "25"), tr(bob, carol, "15"), tr(dave, carol, "10"))
}

func TestPlan_RealisesNetting(t *testing.T) {
	balances := NetBalance{
		alice: d("120.10"),
		bob:   d("-45.05"),
		carol: d("-80.00"),
		dave:  d("4.95"),
	}
	transfers, err := Plan(balances)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(transfers), len(balances)-1)

	// What each participant receives minus what they send equals their balance.
	flow := NetBalance{}
	for _, x := range transfers {
		assert.True(t, x.Amount.IsPositive())
		flow.add(x.FromID, x.Amount.Neg())
		flow.add(x.ToID, x.Amount)
	}
	for id, want := range balances {
		got := flow[id]
		assert.True(t, got.Equal(want), "%s: received-sent = %s, want %s", id, got, want)
	}
}

func TestPlan_RejectsNonZeroSum(t *testing.T) {
	transfers, err := Plan(NetBalance{alice: d("10"), bob: d("-9.99")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataIntegrity)
	assert.Nil(t, transfers)
}

func TestPlan_RoundsReportedAmounts(t *testing.T) {
	transfers, err := Plan(NetBalance{alice: d("10.005"), bob: d("-10.005")})
	require.NoError(t, err)
	assertTransfers(t, transfers, tr(bob, alice, "10.01"))
}

func TestPlan_SubCentBalancesRoundPerTransfer(t *testing.T) {
	nb := NetBalance{alice: d("-0.005"), bob: d("-0.005"), carol: d("0.01")}
	transfers, err := Plan(nb)
	require.NoError(t, err)
	assertTransfers(t, transfers, tr(alice, carol, "0.01"), tr(bob, carol, "0.01"))
	assert.Equal(t, "0.01", nb.Rounded()[carol].StringFixed(2))
}

func TestNetBalance_Rounded(t *testing.T) {
	nb := NetBalance{alice: d("1.005"), bob: d("-1.005")}
	r := nb.Rounded()
	assert.Equal(t, "1.01", r[alice].StringFixed(2))
	assert.Equal(t, "-1.01", r[bob].StringFixed(2))
	assert.Equal(t, "1.005", nb[alice].String(), "original must not change")
}

func TestTransfer_JSON(t *testing.T) {
	raw, err := json.Marshal([]Transfer{tr(bob, alice, "30")})
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"from_user":"00000000-0000-0000-0000-00000000000b","to_user":"00000000-0000-0000-0000-00000000000a","amount":30.00}]`,
		string(raw))

	var back []Transfer
	require.NoError(t, json.Unmarshal(raw, &back))
	assertTransfers(t, back, tr(bob, alice, "30"))
}

func TestIndexSplits(t *testing.T) {
	exp, rows := expense(alice, "20", map[uuid.UUID]string{alice: "10", bob: "10"})
	other, more := expense(bob, "5", map[uuid.UUID]string{carol: "5"})

	idx := IndexSplits(append(rows, more...))
	assert.Len(t, idx[exp.ID], 2)
	assert.Len(t, idx[other.ID], 1)
}
