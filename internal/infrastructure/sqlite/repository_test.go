package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
	"github.com/jhoicas/stocksync/internal/infrastructure/sqlite"
)

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createProduct(t *testing.T, db *sql.DB, sku string) {
	t.Helper()
	err := sqlite.NewProductRepository(db).Create(context.Background(), &entity.Product{
		SKU: sku, Name: sku, EANs: []string{"7700000000001"}, CreatedAt: t0, UpdatedAt: t0,
	})
	require.NoError(t, err)
}

// ── Productos ────────────────────────────────────────────────────────────────

func TestProductRepo_CreateGetUpdate(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := sqlite.NewProductRepository(db)
	createProduct(t, db, "SKU-1")

	assert.ErrorIs(t, repo.Create(ctx, &entity.Product{SKU: "SKU-1", Name: "x"}), domain.ErrDuplicate)

	p, err := repo.GetBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []string{"7700000000001"}, p.EANs)

	p.Name = "Nuevo"
	p.EANs = append(p.EANs, "7700000000002")
	require.NoError(t, repo.Update(ctx, p))
	got, err := repo.GetBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, "Nuevo", got.Name)
	assert.Len(t, got.EANs, 2)

	missing, err := repo.GetBySKU(ctx, "NADA")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.ErrorIs(t, repo.Update(ctx, &entity.Product{SKU: "NADA"}), domain.ErrNotFound)
}

func TestProductRepo_ListSKUsPaged(t *testing.T) {
	db := openDB(t)
	for _, sku := range []string{"C", "A", "B"} {
		createProduct(t, db, sku)
	}
	repo := sqlite.NewProductRepository(db)

	first, err := repo.ListSKUs(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, first)
	rest, err := repo.ListSKUs(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, rest)
}

// ── Stock ────────────────────────────────────────────────────────────────────

func TestStockRepo_UpsertAndTotals(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	createProduct(t, db, "SKU-1")
	repo := sqlite.NewStockRepository(db)

	empty, err := repo.Get(ctx, "SKU-1", "A")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Quantity)

	require.NoError(t, repo.Upsert(ctx, &entity.Stock{SKU: "SKU-1", Warehouse: "A", Quantity: 3, UpdatedAt: t0}))
	require.NoError(t, repo.Upsert(ctx, &entity.Stock{SKU: "SKU-1", Warehouse: "B", Quantity: 4, UpdatedAt: t0}))
	assert.ErrorIs(t, repo.Upsert(ctx, &entity.Stock{SKU: "SKU-1", Warehouse: "A", Quantity: -1}), domain.ErrInsufficientStock)

	total, err := repo.TotalBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 7, total)

	rows, err := repo.ListBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Warehouse)
	assert.True(t, rows[0].UpdatedAt.Equal(t0))
}

// ── Ventas ───────────────────────────────────────────────────────────────────

func TestSaleRepo_ListFilters(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	createProduct(t, db, "SKU-1")
	createProduct(t, db, "SKU-2")
	repo := sqlite.NewSaleRepository(db)

	for i, sku := range []string{"SKU-1", "SKU-2", "SKU-1"} {
		require.NoError(t, repo.Create(ctx, &entity.Sale{
			ID: "s" + string(rune('0'+i)), SKU: sku, Warehouse: "A", Quantity: 1,
			UnitPrice: decimal.RequireFromString("12.50"), SoldAt: t0.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := repo.List(ctx, repository.SaleFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "s2", all[0].ID, "más reciente primero")
	assert.True(t, all[0].UnitPrice.Equal(decimal.RequireFromString("12.5")))

	bySKU, err := repo.List(ctx, repository.SaleFilter{SKU: "SKU-1", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, bySKU, 2)

	from := t0.Add(30 * time.Minute)
	ranged, err := repo.List(ctx, repository.SaleFilter{From: &from, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
}

// ── Watermarks ───────────────────────────────────────────────────────────────

func TestWatermarkRepo_NeverMovesBackwards(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := sqlite.NewWatermarkRepository(db)

	none, err := repo.Get(ctx, "acc")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, repo.Advance(ctx, &entity.Watermark{AccountID: "acc", LastSyncTime: t0, LastEventID: "e1", UpdatedAt: t0}))
	require.NoError(t, repo.Advance(ctx, &entity.Watermark{AccountID: "acc", LastSyncTime: t0.Add(-time.Hour), UpdatedAt: t0}))

	wm, err := repo.Get(ctx, "acc")
	require.NoError(t, err)
	assert.True(t, wm.LastSyncTime.Equal(t0))
	assert.Equal(t, "e1", wm.LastEventID, "un event id vacío conserva el anterior")

	require.NoError(t, repo.Advance(ctx, &entity.Watermark{AccountID: "acc", LastSyncTime: t0.Add(time.Hour), LastEventID: "e2", UpdatedAt: t0}))
	wm, err = repo.Get(ctx, "acc")
	require.NoError(t, err)
	assert.True(t, wm.LastSyncTime.Equal(t0.Add(time.Hour)))
	assert.Equal(t, "e2", wm.LastEventID)

	require.NoError(t, repo.Reset(ctx, "acc"))
	wm, err = repo.Get(ctx, "acc")
	require.NoError(t, err)
	assert.Nil(t, wm)
}

// ── Pedidos ──────────────────────────────────────────────────────────────────

func sampleOrder(updated time.Time, status string) *entity.Order {
	return &entity.Order{
		ExternalID: "ORD-1", AccountID: "acc", Status: status, BuyerLogin: "ana",
		Lines:     []entity.OrderLine{{OfferID: "o1", SKU: "SKU-1", Quantity: 2, UnitPrice: decimal.RequireFromString("9.99")}},
		UpdatedAt: updated, CreatedAt: t0, SyncedAt: t0,
	}
}

func TestOrderRepo_InsertDuplicateAndNotFound(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := sqlite.NewOrderRepository(db)

	_, err := repo.GetByExternalID(ctx, "acc", "ORD-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Insert(ctx, sampleOrder(t0, entity.OrderStatusBought)))
	assert.ErrorIs(t, repo.Insert(ctx, sampleOrder(t0, entity.OrderStatusBought)), domain.ErrDuplicate)

	o, err := repo.GetByExternalID(ctx, "acc", "ORD-1")
	require.NoError(t, err)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "SKU-1", o.Lines[0].SKU)
	assert.True(t, o.Lines[0].UnitPrice.Equal(decimal.RequireFromString("9.99")))
	assert.False(t, o.StockDeducted)
}

func TestOrderRepo_UpdateOnlyWithNewerSnapshot(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := sqlite.NewOrderRepository(db)
	require.NoError(t, repo.Insert(ctx, sampleOrder(t0, entity.OrderStatusBought)))

	applied, err := repo.Update(ctx, sampleOrder(t0.Add(-time.Minute), entity.OrderStatusCancelled))
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = repo.Update(ctx, sampleOrder(t0.Add(time.Minute), entity.OrderStatusReadyForProcessing))
	require.NoError(t, err)
	assert.True(t, applied)

	o, err := repo.GetByExternalID(ctx, "acc", "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusReadyForProcessing, o.Status)
}

func TestOrderRepo_MarkDeductedOnce(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := sqlite.NewOrderRepository(db)
	require.NoError(t, repo.Insert(ctx, sampleOrder(t0, entity.OrderStatusReadyForProcessing)))

	require.NoError(t, repo.MarkDeducted(ctx, "acc", "ORD-1", t0))
	assert.ErrorIs(t, repo.MarkDeducted(ctx, "acc", "ORD-1", t0), domain.ErrConflict)

	// Una actualización posterior no toca la bandera.
	_, err := repo.Update(ctx, sampleOrder(t0.Add(time.Hour), entity.OrderStatusReadyForProcessing))
	require.NoError(t, err)
	o, err := repo.GetByExternalID(ctx, "acc", "ORD-1")
	require.NoError(t, err)
	assert.True(t, o.StockDeducted)
	require.NotNil(t, o.DeductedAt)
	assert.True(t, o.DeductedAt.Equal(t0))
}

func TestOrderRepo_SameExternalIDInTwoAccounts(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := sqlite.NewOrderRepository(db)

	first := sampleOrder(t0, entity.OrderStatusReadyForProcessing)
	second := sampleOrder(t0, entity.OrderStatusBought)
	second.AccountID = "acc-2"
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second), "el id externo solo es único dentro de la cuenta")

	// Actualizar y marcar en una cuenta no toca la otra.
	newer := sampleOrder(t0.Add(time.Minute), entity.OrderStatusCancelled)
	newer.AccountID = "acc-2"
	applied, err := repo.Update(ctx, newer)
	require.NoError(t, err)
	assert.True(t, applied)
	require.NoError(t, repo.MarkDeducted(ctx, "acc", "ORD-1", t0))

	o, err := repo.GetByExternalID(ctx, "acc", "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusReadyForProcessing, o.Status)
	assert.True(t, o.StockDeducted)

	o, err = repo.GetByExternalID(ctx, "acc-2", "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, o.Status)
	assert.False(t, o.StockDeducted)
}

// ── Cuentas ──────────────────────────────────────────────────────────────────

func TestAccountRepo_UpsertAndListActive(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := sqlite.NewAccountRepository(db)

	require.NoError(t, repo.Upsert(ctx, &entity.MarketplaceAccount{ID: "b", Name: "B", AccessToken: "t", Active: true, CreatedAt: t0, UpdatedAt: t0}))
	require.NoError(t, repo.Upsert(ctx, &entity.MarketplaceAccount{ID: "a", Name: "A", AccessToken: "t", Active: false, CreatedAt: t0, UpdatedAt: t0}))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].ID)

	require.NoError(t, repo.Upsert(ctx, &entity.MarketplaceAccount{ID: "a", Name: "A2", AccessToken: "t2", Active: true, CreatedAt: t0, UpdatedAt: t0}))
	a, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A2", a.Name)
	assert.True(t, a.Active)

	_, err = repo.GetByID(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
