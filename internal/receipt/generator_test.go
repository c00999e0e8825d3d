package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pullpaylabs/pullpay/internal/config"
	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	return NewGenerator(Params{
		Log: zap.NewNop(),
		Config: config.Config{
			Platform: config.PlatformConfig{Asset: "USDC"},
		},
	})
}

func TestRenderPaymentReceipt(t *testing.T) {
	gen := newTestGenerator(t)

	data, err := gen.Render(Data{
		Entry: &ledgerdomain.Entry{
			ID:            snowflake.ID(7205759403792793600),
			FromAccountID: snowflake.ID(101),
			ToAccountID:   snowflake.ID(102),
			Amount:        9_750_000,
			Kind:          ledgerdomain.EntryKindPayment,
			Spender:       "billing-engine:7205759403792793601",
			Memo:          "subscription 7205759403792793601",
			CreatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		FromOwner: "payer-wallet",
		ToOwner:   "acme-store",
	})
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "output should be a PDF document")
}

func TestRenderCreditWithoutSource(t *testing.T) {
	gen := newTestGenerator(t)

	data, err := gen.Render(Data{
		Entry: &ledgerdomain.Entry{
			ID:          snowflake.ID(42),
			ToAccountID: snowflake.ID(102),
			Amount:      100_000_000,
			Kind:        ledgerdomain.EntryKindCredit,
			CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		ToOwner: "payer-wallet",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRenderRequiresEntry(t *testing.T) {
	gen := newTestGenerator(t)

	_, err := gen.Render(Data{ToOwner: "payer-wallet"})
	assert.ErrorIs(t, err, ErrMissingEntry)
}
