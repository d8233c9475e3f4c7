package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/domain/shared/money"
	"stayride/internal/infra/storage/memory"
)

func TestLedgerTracksBalance(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	eur := func(amount int64) money.Money { return money.Money{Amount: amount, Currency: "EUR"} }

	ref, err := ledger.Capture(ctx, "bk-1", eur(300))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "capture_"))

	_, err = ledger.ChargeSurplus(ctx, "bk-1", eur(50))
	require.NoError(t, err)
	_, err = ledger.Refund(ctx, "bk-1", eur(120))
	require.NoError(t, err)
	assert.Equal(t, int64(230), ledger.Balance("bk-1"))

	_, err = ledger.Refund(ctx, "bk-1", eur(231))
	assert.ErrorIs(t, err, memory.ErrRefundExceeds)
	_, err = ledger.Refund(ctx, "bk-2", eur(1))
	assert.ErrorIs(t, err, memory.ErrRefundExceeds)

	_, err = ledger.Capture(ctx, "bk-1", eur(0))
	assert.ErrorIs(t, err, memory.ErrNonPositiveAmount)

	entries := ledger.Entries("bk-1")
	require.Len(t, entries, 3)
	assert.Equal(t, memory.EntryCapture, entries[0].Kind)
	assert.Equal(t, memory.EntrySurplus, entries[1].Kind)
	assert.Equal(t, memory.EntryRefund, entries[2].Kind)
}
