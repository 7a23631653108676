package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stocksync/internal/application/ledger"
)

const columns = 5 // sku;name;eans;warehouse;quantity

// row fila del CSV con su número de línea para los mensajes de error.
type row struct {
	line int
	in   ledger.ProductImport
}

// readRows lee el CSV separado por ';'. La cabecera es opcional (primera celda "sku").
// Los EANs de una celda se separan con '|' o ','.
func readRows(r io.Reader, latin1 bool) ([]row, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(out) == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "sku") {
			continue
		}
		if len(rec) != columns {
			return nil, fmt.Errorf("línea %d: se esperaban %d columnas, hay %d", line, columns, len(rec))
		}
		qty := 0
		if q := strings.TrimSpace(rec[4]); q != "" {
			qty, err = strconv.Atoi(q)
			if err != nil {
				return nil, fmt.Errorf("línea %d: cantidad inválida %q", line, q)
			}
		}
		out = append(out, row{
			line: line,
			in: ledger.ProductImport{
				SKU:       strings.TrimSpace(rec[0]),
				Name:      rec[1],
				EANs:      splitEANs(rec[2]),
				Warehouse: strings.TrimSpace(rec[3]),
				Quantity:  qty,
			},
		})
	}
}

func splitEANs(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
