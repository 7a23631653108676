// import_stock carga productos y stock inicial desde un CSV al libro de stock.
//
// Uso: go run ./cmd/import_stock [-latin1] archivo.csv
// Formato: sku;name;eans;warehouse;quantity (cabecera opcional, EANs separados por '|').
// La base de datos se toma de la misma configuración que la API (DB_DRIVER, DATABASE_URL, SQLITE_PATH...).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/stocksync/internal/application/ledger"
	"github.com/jhoicas/stocksync/internal/infrastructure/postgres"
	"github.com/jhoicas/stocksync/internal/infrastructure/sqlite"
	"github.com/jhoicas/stocksync/pkg/config"
	"github.com/jhoicas/stocksync/pkg/logger"
)

func main() {
	latin1 := flag.Bool("latin1", false, "El archivo está en ISO-8859-1 (exportado desde Excel)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Uso: import_stock [-latin1] archivo.csv")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := readRows(f, *latin1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	l, closeDB, err := openLedger(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Conexión a la base de datos: %v\n", err)
		os.Exit(1)
	}
	defer closeDB()

	created, merged, failed := 0, 0, 0
	for _, r := range rows {
		_, isNew, err := l.ImportProduct(ctx, r.in)
		if err != nil {
			failed++
			log.Error().Err(err).Int("line", r.line).Str("sku", r.in.SKU).Msg("fila rechazada")
			continue
		}
		if isNew {
			created++
		} else {
			merged++
		}
	}
	log.Info().Int("rows", len(rows)).Int("created", created).Int("merged", merged).Int("failed", failed).
		Msg("importación finalizada")
	if failed > 0 {
		os.Exit(1)
	}
}

func openLedger(ctx context.Context, cfg config.DBConfig) (*ledger.StockLedger, func(), error) {
	if cfg.Driver == "sqlite" {
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		l := ledger.NewStockLedger(sqlite.NewTxRunner(db), sqlite.NewStockRepository(db),
			sqlite.NewProductRepository(db), sqlite.NewSaleRepository(db))
		return l, func() { _ = db.Close() }, nil
	}
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	l := ledger.NewStockLedger(postgres.NewTxRunner(pool), postgres.NewStockRepository(pool),
		postgres.NewProductRepository(pool), postgres.NewSaleRepository(pool))
	return l, pool.Close, nil
}
