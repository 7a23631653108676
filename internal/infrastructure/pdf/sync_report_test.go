package pdf_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/infrastructure/pdf"
)

func sampleReport() *dto.SyncReportDTO {
	fin := time.Date(2026, 5, 4, 12, 5, 0, 0, time.UTC)
	return &dto.SyncReportDTO{
		Status: dto.JobStatusDTO{
			ID: "job-1", Kind: "full", State: dto.JobFinished,
			Processed: 3, Updated: 1, Skipped: 1, Failed: 1,
			StartedAt: fin.Add(-5 * time.Minute), FinishedAt: &fin,
		},
		Results: []dto.SyncResultDTO{
			{Job: dto.UpdateJob{AccountID: "a", OfferID: "o1", SKU: "X", TargetQty: 5, PublishedQty: 3}, Outcome: dto.OutcomeUpdated, Attempts: 1},
			{Job: dto.UpdateJob{AccountID: "a", OfferID: "o2", SKU: "Y", TargetQty: 0, PublishedQty: 2}, Outcome: dto.OutcomeSkipped, Attempts: 1},
			{Job: dto.UpdateJob{AccountID: "a", OfferID: "o3", SKU: "Z", TargetQty: 1, PublishedQty: 9}, Outcome: dto.OutcomeFailed, Attempts: 3, Error: "reintentos agotados"},
		},
	}
}

func TestRender_ProducesPDF(t *testing.T) {
	b, err := pdf.Render(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
}

func TestReportWriter_WritesFilePerJob(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w := pdf.NewReportWriter(dir)
	require.NoError(t, w.WriteReport(context.Background(), sampleReport()))

	info, err := os.Stat(filepath.Join(dir, "sync-job-1.pdf"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
