// Package pdf genera el informe PDF de un job de sincronización de ofertas.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tipo de job + ID  │  Inicio / Fin                  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: Procesadas | Actualizadas | Omitidas | Fallidas   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cuenta | Oferta | SKU | Publicado | Objetivo | Res. │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/application/ports"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorDanger  = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// Tope de filas de detalle; el resto se resume en una línea.
const maxDetailRows = 2000

var _ ports.ReportWriter = (*ReportWriter)(nil)

// ReportWriter escribe sync-<job>.pdf en dir al finalizar cada job.
type ReportWriter struct {
	dir string
}

// NewReportWriter construye el writer. dir se crea si no existe.
func NewReportWriter(dir string) *ReportWriter { return &ReportWriter{dir: dir} }

// WriteReport genera el PDF y lo guarda en disco.
func (w *ReportWriter) WriteReport(ctx context.Context, report *dto.SyncReportDTO) error {
	b, err := Render(ctx, report)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("pdf: crear carpeta de informes: %w", err)
	}
	path := filepath.Join(w.dir, "sync-"+report.Status.ID+".pdf")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("pdf: escribir %s: %w", path, err)
	}
	return nil
}

// Render genera el documento y devuelve sus bytes.
func Render(_ context.Context, report *dto.SyncReportDTO) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Informe de sincronización de stock", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report.Status))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(report.Status))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(report.Results)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(st dto.JobStatusDTO) core.Row {
	finished := "en curso"
	if st.FinishedAt != nil {
		finished = st.FinishedAt.Format("02/01/2006 15:04:05")
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New("SINCRONIZACIÓN DE OFERTAS", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Job "+st.ID+" ("+st.Kind+")", props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("Inicio: "+st.StartedAt.Format("02/01/2006 15:04:05"), props.Text{
				Size: 8, Align: align.Right, Top: 3, Color: colorGray,
			}),
			text.New("Fin: "+finished, props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func summaryRow(st dto.JobStatusDTO) core.Row {
	cell := func(label string, n int, c *props.Color) core.Col {
		return col.New(3).Add(
			text.New(label, props.Text{Size: 8, Align: align.Center, Color: colorGray, Top: 1}),
			text.New(formatThousands(n), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Center, Color: c, Top: 6,
			}),
		)
	}
	failedColor := colorPrimary
	if st.Failed > 0 {
		failedColor = colorDanger
	}
	return row.New(16).Add(
		cell("Procesadas", st.Processed, colorPrimary),
		cell("Actualizadas", st.Updated, colorPrimary),
		cell("Omitidas", st.Skipped, colorPrimary),
		cell("Fallidas", st.Failed, failedColor),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cuenta", 2, align.Left),
		h("Oferta", 2, align.Left),
		h("SKU", 3, align.Left),
		h("Publicado", 1, align.Right),
		h("Objetivo", 1, align.Right),
		h("Resultado", 3, align.Left),
	)
}

// tableDetailRows una fila por resultado.
func tableDetailRows(results []dto.SyncResultDTO) []core.Row {
	n := len(results)
	if n > maxDetailRows {
		n = maxDetailRows
	}
	out := make([]core.Row, 0, n+1)
	for _, r := range results[:n] {
		outcome := r.Outcome
		c := colorGray
		if r.Outcome == dto.OutcomeFailed {
			c = colorDanger
			if r.Error != "" {
				outcome += ": " + truncate(r.Error, 60)
			}
		}
		out = append(out, row.New(6).Add(
			col.New(2).Add(text.New(r.Job.AccountID, props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(2).Add(text.New(r.Job.OfferID, props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(3).Add(text.New(r.Job.SKU, props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(1).Add(text.New(strconv.Itoa(r.Job.PublishedQty), props.Text{Size: 7, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(strconv.Itoa(r.Job.TargetQty), props.Text{Size: 7, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(outcome, props.Text{Size: 7, Top: 1, Left: 1, Color: c})),
		))
	}
	if rest := len(results) - n; rest > 0 {
		out = append(out, row.New(6).Add(col.New(12).Add(
			text.New(fmt.Sprintf("… y %s resultados más", formatThousands(rest)), props.Text{
				Size: 7, Top: 1, Color: colorGray, Align: align.Center,
			}),
		)))
	}
	return out
}

// ── helpers ───────────────────────────────────────────────────────────────────

// formatThousands inserta puntos de miles. Ej: 1000000 → "1.000.000"
func formatThousands(n int) string {
	s := strconv.Itoa(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	l := len(s)
	if l <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	buf := make([]byte, 0, l+l/3+1)
	if neg {
		buf = append(buf, '-')
	}
	for i, c := range []byte(s) {
		if i > 0 && (l-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
