package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo productos sobre SQLite; los EANs se guardan como arreglo JSON.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar db o tx.
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	eans, err := marshalEANs(p.EANs)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO products (sku, name, eans, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.SKU, p.Name, eans, p.Image, toNanos(p.CreatedAt), toNanos(p.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	var (
		p                entity.Product
		eans             string
		created, updated int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT sku, name, eans, image, created_at, updated_at
		FROM products WHERE sku = ?`, sku).
		Scan(&p.SKU, &p.Name, &eans, &p.Image, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if err := json.Unmarshal([]byte(eans), &p.EANs); err != nil {
		return nil, fmt.Errorf("unmarshal eans: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = fromNanos(created), fromNanos(updated)
	return &p, nil
}

func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	eans, err := marshalEANs(p.EANs)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE products SET name = ?, eans = ?, image = ?, updated_at = ?
		WHERE sku = ?`, p.Name, eans, p.Image, toNanos(p.UpdatedAt), p.SKU)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) ListSKUs(ctx context.Context, limit, offset int) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT sku FROM products ORDER BY sku LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list skus: %w", err)
	}
	defer rows.Close()
	var skus []string
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, fmt.Errorf("scan sku: %w", err)
		}
		skus = append(skus, sku)
	}
	return skus, rows.Err()
}

func marshalEANs(eans []string) (string, error) {
	if eans == nil {
		eans = []string{}
	}
	b, err := json.Marshal(eans)
	if err != nil {
		return "", fmt.Errorf("marshal eans: %w", err)
	}
	return string(b), nil
}
