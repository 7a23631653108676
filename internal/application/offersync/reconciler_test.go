package offersync_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/application/offersync"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/pkg/retry"
)

func fastRetry() retry.Policy {
	return retry.Fixed(3, time.Millisecond, domain.IsRetryable)
}

func TestReconcile_EmitsJobsOnlyForDifferences(t *testing.T) {
	market := &fakeMarketplace{offers: []dto.OfferDTO{
		{ID: "o1", SKU: "X", Stock: 5},
		{ID: "o2", SKU: "Y", Stock: 1},
		{ID: "o2", SKU: "Y", Stock: 1},
	}}
	r := offersync.NewOfferReconciler(market, fakeStock{"X": 5, "Y": 3}, fakeProducts{"X": true, "Y": true}, fastRetry(), zerolog.Nop())

	jobs, inSync, err := r.Reconcile(context.Background(), account, []string{"X", "Y"})
	require.NoError(t, err)
	require.Len(t, jobs, 1, "X ya coincide y o2 duplicada cuenta una vez")
	assert.Equal(t, 1, inSync)
	assert.Equal(t, dto.UpdateJob{AccountID: "acc", OfferID: "o2", SKU: "Y", TargetQty: 3, PublishedQty: 1}, jobs[0])
}

func TestReconcile_SkipsUnknownAndEmptySKU(t *testing.T) {
	market := &fakeMarketplace{offers: []dto.OfferDTO{
		{ID: "o1", SKU: "", Stock: 2},
		{ID: "o2", SKU: "GHOST", Stock: 2},
	}}
	r := offersync.NewOfferReconciler(market, fakeStock{}, fakeProducts{}, fastRetry(), zerolog.Nop())

	jobs, inSync, err := r.Reconcile(context.Background(), account, []string{"GHOST"})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Zero(t, inSync, "las ofertas omitidas no cuentan como revisadas")
}

func TestReconcile_SecondRunAfterUpdateIsEmpty(t *testing.T) {
	market := &fakeMarketplace{offers: []dto.OfferDTO{{ID: "o1", SKU: "X", Stock: 0}}}
	r := offersync.NewOfferReconciler(market, fakeStock{"X": 7}, fakeProducts{"X": true}, fastRetry(), zerolog.Nop())
	ctx := context.Background()

	jobs, _, err := r.Reconcile(ctx, account, []string{"X"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NoError(t, market.UpdateOfferStock(ctx, account, jobs[0].OfferID, jobs[0].TargetQty))

	jobs, inSync, err := r.Reconcile(ctx, account, []string{"X"})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 1, inSync)
}

func TestReconcile_RetriesTransientOfferRead(t *testing.T) {
	market := &fakeMarketplace{
		offers:     []dto.OfferDTO{{ID: "o1", SKU: "X", Stock: 0}},
		offersErrs: []error{domain.ErrTransient, domain.ErrRateLimited},
	}
	r := offersync.NewOfferReconciler(market, fakeStock{"X": 1}, fakeProducts{"X": true}, fastRetry(), zerolog.Nop())

	jobs, _, err := r.Reconcile(context.Background(), account, []string{"X"})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, 3, market.offersCalls)
}

func TestReconcile_EmptyBatch(t *testing.T) {
	market := &fakeMarketplace{}
	r := offersync.NewOfferReconciler(market, fakeStock{}, fakeProducts{}, fastRetry(), zerolog.Nop())
	jobs, _, err := r.Reconcile(context.Background(), account, nil)
	require.NoError(t, err)
	assert.Nil(t, jobs)
	assert.Zero(t, market.offersCalls)
}
