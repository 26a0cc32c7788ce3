package accounts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/payoff/internal/model"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func sampleAccounts() []model.DebtAccount {
	mortgage := model.NewDebtAccount("Mortgage", model.LoanTerms{
		OriginalBalance:     dec("250000.00"),
		APRRate:             dec("0.035"),
		TermMonths:          300,
		PaymentType:         model.PaymentTypeFixed,
		FixedMonthlyPayment: decimal.NewNullDecimal(dec("1249.25")),
		OriginationDate:     model.Date(2025, 1, 15),
	}, true)
	last := model.Date(2025, 3, 1)
	mortgage.State.LastAutoUpdateDate = &last
	mortgage.State.CurrentBalance = dec("249479.92")
	mortgage.State.RemainingMonths = 299

	bridge := model.NewDebtAccount("Bridge", model.LoanTerms{
		OriginalBalance: dec("120000.00"),
		APRRate:         dec("0.06"),
		TermMonths:      12,
		PaymentType:     model.PaymentTypeInterestOnly,
		OriginationDate: model.Date(2025, 2, 1),
	}, false)

	checking := model.DebtAccount{ID: uuid.New(), Name: "Checking"}
	return []model.DebtAccount{mortgage, bridge, checking}
}

func TestRoundTrip(t *testing.T) {
	accts := sampleAccounts()

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accts))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 3)

	m := got[0]
	assert.Equal(t, accts[0].ID, m.ID)
	assert.Equal(t, "Mortgage", m.Name)
	require.NotNil(t, m.Terms)
	assert.True(t, m.Terms.OriginalBalance.Equal(dec("250000")))
	assert.True(t, m.Terms.APRRate.Equal(dec("0.035")))
	assert.Equal(t, 300, m.Terms.TermMonths)
	assert.Equal(t, model.PaymentTypeFixed, m.Terms.PaymentType)
	require.True(t, m.Terms.FixedMonthlyPayment.Valid)
	assert.Equal(t, "1249.25", m.Terms.FixedMonthlyPayment.Decimal.StringFixed(2))
	assert.Equal(t, model.Date(2025, 1, 15), m.Terms.OriginationDate)
	assert.Equal(t, "249479.92", m.State.CurrentBalance.StringFixed(2))
	assert.Equal(t, 299, m.State.RemainingMonths)
	require.NotNil(t, m.State.LastAutoUpdateDate)
	assert.Equal(t, model.Date(2025, 3, 1), *m.State.LastAutoUpdateDate)
	assert.True(t, m.AutoUpdate)

	b := got[1]
	require.NotNil(t, b.Terms)
	assert.False(t, b.Terms.FixedMonthlyPayment.Valid)
	assert.Nil(t, b.State.LastAutoUpdateDate)
	assert.False(t, b.AutoUpdate)

	assert.False(t, got[2].IsDebt())
}

func TestUnmarshalAccount_Errors(t *testing.T) {
	row := MarshalAccount(sampleAccounts()[0])

	_, err := UnmarshalAccount(row[:5])
	assert.ErrorContains(t, err, "expected 12 fields")

	bad := append([]string(nil), row...)
	bad[colID] = "not-a-uuid"
	_, err = UnmarshalAccount(bad)
	assert.ErrorContains(t, err, "account_id")

	bad = append([]string(nil), row...)
	bad[colAPR] = "3.5%"
	_, err = UnmarshalAccount(bad)
	assert.ErrorContains(t, err, "apr_rate")
}

func TestRegistry(t *testing.T) {
	accts := sampleAccounts()
	reg := NewRegistry(accts[:2])

	got, ok := reg.Get(accts[1].ID)
	require.True(t, ok)
	assert.Equal(t, "Bridge", got.Name)

	_, ok = reg.Get(accts[2].ID)
	assert.False(t, ok)

	require.NoError(t, reg.Add(accts[2]))
	assert.Error(t, reg.Add(accts[2]), "duplicate")
	assert.Len(t, reg.All(), 3)

	state := model.LoanState{CurrentBalance: dec("100.00"), RemainingMonths: 1}
	require.NoError(t, reg.SetState(accts[0].ID, state))
	got, _ = reg.Get(accts[0].ID)
	assert.Equal(t, state, got.State)

	assert.ErrorIs(t, reg.SetState(uuid.New(), state), model.ErrAccountNotFound)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()

	empty, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, empty.All())

	reg := NewRegistry(sampleAccounts())
	require.NoError(t, reg.Save(dir))

	_, err = os.Stat(filepath.Join(dir, "accounts", "debt-accounts.csv"))
	require.NoError(t, err)

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, loaded.All(), 3)
	assert.Equal(t, reg.All()[0].ID, loaded.All()[0].ID)

	entries, err := os.ReadDir(filepath.Join(dir, "accounts"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
