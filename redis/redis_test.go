package redis

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"gorecovery/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	s := New(host, 6379)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		s.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLedgerClaim(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	source := "test-" + uuid.New().String()
	hash := "0xABCDEF"

	processed, err := s.IsProcessed(ctx, source, hash)
	require.NoError(t, err)
	assert.False(t, processed)

	claimed, err := s.Claim(ctx, source, hash)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.Claim(ctx, source, strings.ToLower(hash))
	require.NoError(t, err)
	assert.False(t, claimed, "second claim of the same hash loses")

	processed, err = s.IsProcessed(ctx, source, hash)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestCreditRecords(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	txHash := "0x" + strings.ReplaceAll(uuid.New().String(), "-", "")

	rec := &types.CreditRecord{Status: StatusCredited, ChainID: 137, TxHash: txHash, Source: "test", TsCreated: time.Now().Unix()}
	require.NoError(t, s.UpsertCredit(ctx, rec))
	require.NotEmpty(t, rec.ID)

	found, err := s.FindCreditByTxHash(ctx, strings.ToUpper(txHash[2:]))
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = s.FindCreditByTxHash(ctx, txHash)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, rec.ID, found.ID)

	rec.Status = StatusFailed
	rec.Message = "downstream credit failed"
	require.NoError(t, s.ChangeCreditStatus(ctx, rec, StatusCredited))

	failed, err := s.ListCredits(ctx, StatusFailed)
	require.NoError(t, err)
	var ids []string
	for _, r := range failed {
		ids = append(ids, r.ID)
	}
	assert.Contains(t, ids, rec.ID)

	assert.Error(t, s.UpsertCredit(ctx, &types.CreditRecord{Status: "bogus"}))
	_, err = s.ListCredits(ctx, "bogus")
	assert.Error(t, err)
}
