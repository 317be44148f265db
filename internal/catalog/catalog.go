package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tlnguyen/price-radar/internal/database"
	"github.com/tlnguyen/price-radar/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

// Repository is the catalog collaborator: the orchestrator only needs the
// product's name and brand to feed the URL repository.
type Repository interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

type PostgresRepository struct {
	db *database.DB
}

func NewPostgresRepository(db *database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	query := `
		SELECT id, name, brand, price, type
		FROM product
		WHERE id = $1`

	var p models.Product
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Brand, &p.Price, &p.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}

	return &p, nil
}

// StaticRepository serves a fixed product set; used in tests.
type StaticRepository struct {
	products map[string]models.Product
}

func NewStaticRepository(products map[string]models.Product) *StaticRepository {
	if products == nil {
		products = make(map[string]models.Product)
	}
	return &StaticRepository{products: products}
}

func (r *StaticRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return &p, nil
}
