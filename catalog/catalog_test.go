package catalog

import (
	"testing"
)

func TestRowsToProducts(t *testing.T) {
	rows := [][]string{
		{"Título", "De", "Por", "Link Afiliado"},
		{"Tênis X", "R$ 500,00", "R$ 300,00", "http://x"},
		{"Fone Y", "", "R$ 99,90", "http://y"},
	}

	products := rowsToProducts(rows)
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Title != "Tênis X" || products[0].PriceTo != "R$ 300,00" {
		t.Fatalf("unexpected first product: %+v", products[0])
	}
	if products[1].Title != "Fone Y" || products[1].PriceFrom != "" {
		t.Fatalf("unexpected second product: %+v", products[1])
	}
}

func TestRowsToProducts_EmptyInput(t *testing.T) {
	if got := rowsToProducts(nil); got != nil {
		t.Fatalf("nil rows should yield nil, got %v", got)
	}
	if got := rowsToProducts([][]string{{"Título"}}); len(got) != 0 {
		t.Fatalf("header-only sheet should yield no products, got %v", got)
	}
}

func TestRowsToProducts_RaggedRows(t *testing.T) {
	rows := [][]string{
		{"Título", "Link Afiliado", "Cupom"},
		{"X", "http://x"},
	}
	products := rowsToProducts(rows)
	if len(products) != 1 || products[0].Coupon != "" {
		t.Fatalf("short rows should pad with empty cells, got %+v", products)
	}
}
