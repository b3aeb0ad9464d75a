package catalog

import (
	"context"
	"fmt"

	"github.com/promoimperio/broadcast_backend/models"
	"github.com/xuri/excelize/v2"
)

// ExcelCatalog reads products from a local .xlsx workbook, for offline runs
// or when the spreadsheet API is unreachable.
type ExcelCatalog struct {
	Path  string
	Sheet string
}

func (c *ExcelCatalog) LoadProducts(ctx context.Context) ([]models.Product, error) {
	f, err := excelize.OpenFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", c.Path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(c.Sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", c.Sheet, err)
	}
	return rowsToProducts(rows), nil
}
