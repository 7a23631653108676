package ledger

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

// ProductImport entrada de importación/merge de producto. Si Quantity > 0 el stock inicial se
// suma en Warehouse dentro de la misma transacción.
type ProductImport struct {
	SKU       string
	Name      string
	EANs      []string
	Image     []byte
	Warehouse string
	Quantity  int
}

// ImportProduct crea el producto si no existe o lo fusiona con el existente:
// el nombre se reemplaza si viene informado, los EANs se unen y la imagen solo se reemplaza
// si se envía una nueva. El SKU nunca cambia. Devuelve true si el producto fue creado.
func (l *StockLedger) ImportProduct(ctx context.Context, in ProductImport) (*entity.Product, bool, error) {
	sku := strings.TrimSpace(in.SKU)
	name := normalizeName(in.Name)
	if sku == "" || in.Quantity < 0 {
		return nil, false, domain.ErrInvalidInput
	}
	if in.Quantity > 0 && strings.TrimSpace(in.Warehouse) == "" {
		return nil, false, domain.ErrInvalidInput
	}

	now := l.now()
	var (
		result  *entity.Product
		created bool
	)
	err := l.txRunner.Run(ctx, func(
		stockRepo repository.StockRepository,
		_ repository.SaleRepository,
		productRepo repository.ProductRepository,
	) error {
		existing, err := productRepo.GetBySKU(ctx, sku)
		if err != nil {
			return err
		}
		if existing == nil {
			if name == "" {
				return domain.ErrInvalidInput
			}
			result = &entity.Product{
				SKU:       sku,
				Name:      name,
				EANs:      mergeEANs(nil, in.EANs),
				Image:     in.Image,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := productRepo.Create(ctx, result); err != nil {
				return err
			}
			created = true
		} else {
			if name != "" {
				existing.Name = name
			}
			existing.EANs = mergeEANs(existing.EANs, in.EANs)
			if len(in.Image) > 0 {
				existing.Image = in.Image
			}
			existing.UpdatedAt = now
			if err := productRepo.Update(ctx, existing); err != nil {
				return err
			}
			result = existing
		}
		if in.Quantity > 0 {
			return restockInTx(ctx, stockRepo, sku, strings.TrimSpace(in.Warehouse), in.Quantity, now)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// normalizeName unifica nombres que llegan con distintas formas Unicode (NFD desde hojas de cálculo).
func normalizeName(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

func mergeEANs(current, incoming []string) []string {
	out := make([]string, 0, len(current)+len(incoming))
	seen := make(map[string]struct{}, len(current)+len(incoming))
	for _, list := range [][]string{current, incoming} {
		for _, e := range list {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}
