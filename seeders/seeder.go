package seeders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// true overwrites name and price of catalog rows that already exist.
const updateIfExists_Services = false

// serviceNamespace keeps seeded ids stable so reruns hit ON CONFLICT.
var serviceNamespace = uuid.MustParse("6f1c8f4e-3a55-4a8e-9d0b-2a7f3c1e5b90")

// ServiceID is the id the seeder assigns to a catalog entry of a company.
func ServiceID(companyID, name string) string {
	return uuid.NewSHA1(serviceNamespace, []byte(companyID+"/"+name)).String()
}

// SeedServiceCatalog fills the services table of one company with the
// default catalog and returns how many rows were written.
func SeedServiceCatalog(ctx context.Context, db *pgxpool.Pool, companyID string, logger *zap.Logger) (int, error) {
	if companyID == "" {
		return 0, fmt.Errorf("company id is required")
	}

	query := `INSERT INTO services (id, company_id, name, price) VALUES ($1, $2, $3, $4)
			  ON CONFLICT (id) DO NOTHING`
	if updateIfExists_Services {
		query = `INSERT INTO services (id, company_id, name, price) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, updated_at = NOW()`
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	written := 0
	for _, s := range serviceCatalogData {
		tag, err := tx.Exec(ctx, query, ServiceID(companyID, s.Name), companyID, s.Name, s.Price)
		if err != nil {
			return 0, fmt.Errorf("failed to seed service %q: %w", s.Name, err)
		}
		written += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	logger.Info("service catalog seeded",
		zap.String("companyID", companyID),
		zap.Int("written", written),
		zap.Int("catalogSize", len(serviceCatalogData)),
	)
	return written, nil
}
