package wallets

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromarket/agromarket-backend/pkg/db/dbtest"
	"github.com/agromarket/agromarket-backend/pkg/enums"
)

func TestGetOrCreate(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	userID := uuid.New()

	first, err := repo.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, first.BalanceKobo)

	second, err := repo.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreditAndDebit(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	user := dbtest.Profile(t, client.DB(), enums.RoleCustomer)

	require.NoError(t, repo.Credit(ctx, user.ID, 10_000))

	ok, err := repo.Debit(ctx, user.ID, 4_000)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Debit(ctx, user.ID, 7_000)
	require.NoError(t, err)
	assert.False(t, ok)

	wallet, err := repo.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6_000), wallet.BalanceKobo)
	assert.Equal(t, int64(10_000), wallet.TotalTopupKobo)
	assert.Equal(t, int64(4_000), wallet.TotalSpentKobo)

	assert.Error(t, repo.Credit(ctx, uuid.New(), 100))
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	user := dbtest.Profile(t, client.DB(), enums.RoleCustomer)
	dbtest.Fund(t, client.DB(), user.ID, 5_000)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Debit(ctx, user.ID, 1_000)
			if err == nil && ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, successes)
	wallet, err := repo.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, wallet.BalanceKobo)
}

func TestServiceGetWallet(t *testing.T) {
	client := dbtest.New(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	user := dbtest.Profile(t, client.DB(), enums.RoleCustomer)
	dbtest.Fund(t, client.DB(), user.ID, 150_050)

	dto, err := svc.GetWallet(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "1500.5", dto.Balance.String())
	assert.Equal(t, "NGN", dto.Currency)
}
