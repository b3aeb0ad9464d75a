package catalog

import (
	"context"

	"github.com/promoimperio/broadcast_backend/models"
)

// Loader yields the day's products in slot order: the product at index i is
// dispatched at the i-th configured slot time.
type Loader interface {
	LoadProducts(ctx context.Context) ([]models.Product, error)
}

func rowsToProducts(rows [][]string) []models.Product {
	if len(rows) == 0 {
		return nil
	}
	headers := rows[0]
	products := make([]models.Product, 0, len(rows)-1)
	for _, row := range rows[1:] {
		products = append(products, models.ProductFromRow(headers, row))
	}
	return products
}
