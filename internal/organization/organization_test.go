package organization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/dtosim/internal/agents"
)

func TestNew(t *testing.T) {
	o, err := New(1000)
	require.NoError(t, err)
	assert.True(t, o.Viable)
	assert.Equal(t, 1000.0, o.Treasury)

	_, err = New(-1)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestCreditSpend(t *testing.T) {
	o, _ := New(100)
	require.NoError(t, o.Credit(50))
	assert.Equal(t, 150.0, o.Treasury)
	assert.Equal(t, 50.0, o.Finances.Revenues)

	require.NoError(t, o.Spend(120))
	assert.InDelta(t, 30.0, o.Treasury, 1e-12)
	assert.Equal(t, 120.0, o.Finances.AcquisitionCost)

	assert.ErrorIs(t, o.Spend(31), ErrInsufficientFunds)
	assert.ErrorIs(t, o.Spend(-1), ErrNegativeAmount)
	assert.ErrorIs(t, o.Credit(-1), ErrNegativeAmount)
	assert.InDelta(t, 30.0, o.Treasury, 1e-12)
	assert.InDelta(t, 20.0, o.Finances.Profit(), 1e-12)
}

func TestPayClampsToTreasury(t *testing.T) {
	o, _ := New(100)
	paid, err := o.Pay(60)
	require.NoError(t, err)
	assert.Equal(t, 60.0, paid)

	paid, err = o.Pay(60)
	require.NoError(t, err)
	assert.Equal(t, 40.0, paid)
	assert.Zero(t, o.Treasury)
	assert.Equal(t, 20.0, o.Finances.Arrears)
	assert.Equal(t, 100.0, o.Finances.Expenses)

	_, err = o.Pay(-5)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestLockdown(t *testing.T) {
	o, _ := New(0)
	assert.False(t, o.InLockdown(0))
	o.BeginLockdown(730, 60)
	assert.False(t, o.InLockdown(730), "the disruption tick itself is not frozen")
	assert.True(t, o.InLockdown(731))
	assert.True(t, o.InLockdown(790))
	assert.False(t, o.InLockdown(791))
}

func TestViabilityIsMonotonic(t *testing.T) {
	o, _ := New(10)
	o.MarkNonViable(50, "no retailers")
	o.MarkNonViable(60, "treasury")
	assert.False(t, o.Viable)
	assert.Equal(t, uint64(50), o.CollapsedAt)
	assert.Equal(t, "no retailers", o.CollapseReason)
}

func TestObserveTreasury(t *testing.T) {
	o, _ := New(0)
	assert.False(t, o.ObserveTreasury(3))
	assert.False(t, o.ObserveTreasury(3))
	assert.True(t, o.ObserveTreasury(3))

	require.NoError(t, o.Credit(1))
	assert.False(t, o.ObserveTreasury(3))
	assert.Zero(t, o.InsolventTicks)
}

func TestExtremes(t *testing.T) {
	var e Extremes
	e.ObservePrice(40)
	e.ObservePrice(38)
	e.ObservePrice(45)
	assert.Equal(t, 38.0, e.MinWholesale)
	assert.Equal(t, 45.0, e.MaxWholesale)

	e.ObserveIndex(0.3)
	e.ObserveIndex(0.1)
	assert.Equal(t, 0.1, e.MinAcqIndex)
	assert.Equal(t, 0.3, e.MaxAcqIndex)
}

func TestTransferStock(t *testing.T) {
	from := agents.New(agents.RoleTrafficker, 10, 0)
	to := agents.New(agents.RolePackager, 0, 0)

	require.NoError(t, TransferStock(from, to, 4))
	assert.Equal(t, 6.0, from.Drug)
	assert.Equal(t, 4.0, to.Drug)

	assert.ErrorIs(t, TransferStock(from, to, 7), ErrInsufficientStock)
	assert.ErrorIs(t, TransferStock(from, to, -1), ErrNegativeAmount)

	to.Active = false
	assert.Error(t, TransferStock(from, to, 1))
}

func TestRecount(t *testing.T) {
	o, _ := New(0)
	o.Recount([]*agents.Agent{
		agents.New(agents.RoleTrafficker, 100, 0),
		agents.New(agents.RoleRetailer, 3, 0),
		agents.New(agents.RoleRetailer, 2, 0),
	})
	assert.Equal(t, [agents.NumRoles]float64{100, 0, 5}, o.Stock)
	assert.Equal(t, 105.0, o.TotalStock())
}

func TestArrestsTotal(t *testing.T) {
	a := Arrests{Minor: [3]int{1, 0, 2}, Major: [3]int{0, 4, 0}}
	assert.Equal(t, 7, a.Total())
}
