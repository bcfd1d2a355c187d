package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corebox-crm/corebox/internal/money"
)

func TestDetermineStatusTerminalSticky(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, -30)

	for _, status := range []InvoiceStatus{InvoiceVoid, InvoiceWrittenOff} {
		got := DetermineStatus(status, money.MustParse("100.00"), money.Zero(), &due, now)
		require.Equal(t, status, got, "terminal status must never change")
	}
}

func TestDetermineStatusPaidWinsOverOverdue(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, -10)

	got := DetermineStatus(InvoiceOverdue, money.MustParse("100.00"), money.Zero(), &due, now)
	require.Equal(t, InvoicePaid, got)
}

func TestDetermineStatusPartialWinsOverOverdue(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, -10)

	got := DetermineStatus(InvoiceUnpaid, money.MustParse("40.00"), money.MustParse("60.00"), &due, now)
	require.Equal(t, InvoicePartial, got)
}

func TestDetermineStatusOverdue(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, -1)

	got := DetermineStatus(InvoiceUnpaid, money.Zero(), money.MustParse("80.00"), &due, now)
	require.Equal(t, InvoiceOverdue, got)
}

func TestDetermineStatusDueNowIsNotOverdue(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	due := now

	got := DetermineStatus(InvoiceUnpaid, money.Zero(), money.MustParse("80.00"), &due, now)
	require.Equal(t, InvoiceUnpaid, got)
}

func TestDetermineStatusNoDueDate(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	got := DetermineStatus(InvoiceDraft, money.Zero(), money.MustParse("80.00"), nil, now)
	require.Equal(t, InvoiceUnpaid, got)
}

func TestDetermineStatusIdempotent(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, -20)

	cases := []struct {
		paid, balance money.Money
		dueDate       *time.Time
	}{
		{money.Zero(), money.MustParse("80.00"), &due},
		{money.MustParse("40.00"), money.MustParse("60.00"), &due},
		{money.MustParse("100.00"), money.Zero(), &due},
		{money.Zero(), money.MustParse("80.00"), nil},
	}
	for _, tc := range cases {
		first := DetermineStatus(InvoiceUnpaid, tc.paid, tc.balance, tc.dueDate, now)
		second := DetermineStatus(first, tc.paid, tc.balance, tc.dueDate, now)
		require.Equal(t, first, second, "re-running determination with unchanged inputs must be stable")
	}
}

func TestRecalculateTotals(t *testing.T) {
	total := money.MustParse("100.00")
	payments := []Payment{
		{Amount: money.MustParse("40.00")},
		{Amount: money.MustParse("25.50")},
	}

	paid, balance := RecalculateTotals(total, payments)
	require.Equal(t, "65.50", paid.String())
	require.Equal(t, "34.50", balance.String())
}

func TestRecalculateTotalsOverpaymentClampsBalance(t *testing.T) {
	total := money.MustParse("100.00")
	payments := []Payment{{Amount: money.MustParse("120.00")}}

	paid, balance := RecalculateTotals(total, payments)
	require.Equal(t, "120.00", paid.String())
	require.Equal(t, "0.00", balance.String())
}

func TestRecalculateTotalsNoPayments(t *testing.T) {
	paid, balance := RecalculateTotals(money.MustParse("80.00"), nil)
	require.Equal(t, "0.00", paid.String())
	require.Equal(t, "80.00", balance.String())
}
