package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocksync/internal/application/dto"
)

func result(account, offer, sku string, qty int) dto.SyncResultDTO {
	return dto.SyncResultDTO{
		Job:     dto.UpdateJob{AccountID: account, OfferID: offer, SKU: sku, TargetQty: qty},
		Outcome: dto.OutcomeUpdated,
	}
}

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed", "stock.xml")
	w := NewWriter(path)
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return w, path
}

// ── Merge ───────────────────────────────────────────────────────────────────

func TestMerge_WritesSortedFeed(t *testing.T) {
	w, path := newTestWriter(t)
	written, err := w.Merge([]dto.SyncResultDTO{result("b", "o2", "Y", 1), result("a", "o1", "X", 5)})
	require.NoError(t, err)
	assert.True(t, written)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(path))
	offers := doc.Root().SelectElements("offer")
	require.Len(t, offers, 2)
	assert.Equal(t, "o1", offers[0].SelectAttrValue("id", ""))
	assert.Equal(t, "5", offers[0].SelectAttrValue("quantity", ""))
	assert.NotEmpty(t, doc.Root().SelectAttrValue("digest", ""))
}

func TestMerge_UnchangedSnapshotIsNotRewritten(t *testing.T) {
	w, path := newTestWriter(t)
	rs := []dto.SyncResultDTO{result("a", "o1", "X", 5)}
	_, err := w.Merge(rs)
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	written, err := w.Merge(rs)
	require.NoError(t, err)
	assert.False(t, written)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMerge_UpdatesExistingOffer(t *testing.T) {
	w, path := newTestWriter(t)
	_, err := w.Merge([]dto.SyncResultDTO{result("a", "o1", "X", 5), result("a", "o2", "Y", 2)})
	require.NoError(t, err)

	written, err := w.Merge([]dto.SyncResultDTO{result("a", "o1", "X", 4)})
	require.NoError(t, err)
	assert.True(t, written)

	entries, _, err := load(path)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 4, entries["a\x00o1"].Quantity)
	assert.Equal(t, 2, entries["a\x00o2"].Quantity)
}

func TestMerge_IgnoresResultsWithoutOffer(t *testing.T) {
	w, _ := newTestWriter(t)
	written, err := w.Merge([]dto.SyncResultDTO{{Job: dto.UpdateJob{AccountID: "a", SKU: "X"}, Outcome: dto.OutcomeFailed}})
	require.NoError(t, err)
	assert.True(t, written, "el primer feed vacío también se escribe")
}

// ── Digest ──────────────────────────────────────────────────────────────────

func TestDigest_IgnoresFormatting(t *testing.T) {
	a := etree.NewDocument()
	require.NoError(t, a.ReadFromString(`<stockFeed><offer id="1" sku="X"/></stockFeed>`))
	b := etree.NewDocument()
	require.NoError(t, b.ReadFromString(`<stockFeed><offer sku="X"   id="1"></offer></stockFeed>`))

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}
