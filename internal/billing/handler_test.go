package billing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corebox-crm/corebox/internal/money"
)

func TestInvoicePayloadShape(t *testing.T) {
	due := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	invoice := Invoice{
		ID:          7,
		OwnerID:     42,
		StudentID:   3,
		Status:      InvoicePartial,
		TotalAmount: money.MustParse("150.00"),
		AmountPaid:  money.MustParse("50.00"),
		BalanceDue:  money.MustParse("100.00"),
		DueDate:     &due,
		CreatedAt:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(invoiceToPayload(&invoice))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{
		"id", "owner_id", "student_id", "status", "total_amount",
		"amount_paid", "balance_due", "due_date", "created_at", "updated_at",
	} {
		require.Contains(t, decoded, key)
	}
	require.Equal(t, float64(42), decoded["owner_id"])
	require.Equal(t, "partial", decoded["status"])
	require.Equal(t, "150.00", decoded["total_amount"])
	require.Equal(t, "100.00", decoded["balance_due"])
}
