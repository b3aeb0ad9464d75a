package models

import (
	"errors"
	"strings"
)

var (
	ErrMissingTitle         = errors.New("product title is required")
	ErrMissingAffiliateLink = errors.New("product affiliate link is required")
)

// Product is one catalog row. The named fields cover the columns the agent
// understands; everything else lands in Extra so new catalog columns survive a
// round trip without a code change.
type Product struct {
	Title         string
	Description   string
	PriceFrom     string
	PriceTo       string
	Coupon        string
	AffiliateLink string
	ImageHint     string

	Extra map[string]string
}

// Column aliases, checked in order. The catalogs this agent reads are
// maintained in Portuguese; the English names are accepted for new sheets.
var (
	titleColumns       = []string{"Título", "Titulo", "Title"}
	descriptionColumns = []string{"Descrição", "Descricao", "Description"}
	priceFromColumns   = []string{"De", "Price From"}
	priceToColumns     = []string{"Por", "Price To"}
	couponColumns      = []string{"Cupom", "Coupon"}
	linkColumns        = []string{"Link Afiliado", "Affiliate Link"}

	// Image hint columns, first non-empty wins.
	imageHintColumns = []string{"Caminho imagem", "Imagem", "Foto", "Image Path", "Image"}
)

// ProductFromRow builds a Product from one tabular row. headers come from the
// first row of the sheet; missing cells yield empty strings.
func ProductFromRow(headers []string, row []string) Product {
	cells := make(map[string]string, len(headers))
	for i, h := range headers {
		val := ""
		if i < len(row) {
			val = row[i]
		}
		cells[strings.TrimSpace(h)] = val
	}

	p := Product{
		Title:         pickColumn(cells, titleColumns),
		Description:   pickColumn(cells, descriptionColumns),
		PriceFrom:     pickColumn(cells, priceFromColumns),
		PriceTo:       pickColumn(cells, priceToColumns),
		Coupon:        pickColumn(cells, couponColumns),
		AffiliateLink: pickColumn(cells, linkColumns),
		ImageHint:     pickColumn(cells, imageHintColumns),
		Extra:         map[string]string{},
	}

	known := map[string]bool{}
	for _, cols := range [][]string{titleColumns, descriptionColumns, priceFromColumns, priceToColumns, couponColumns, linkColumns, imageHintColumns} {
		for _, c := range cols {
			known[c] = true
		}
	}
	for k, v := range cells {
		if !known[k] && k != "" {
			p.Extra[k] = v
		}
	}
	return p
}

func pickColumn(cells map[string]string, names []string) string {
	for _, name := range names {
		if v := strings.TrimSpace(cells[name]); v != "" {
			return v
		}
	}
	return ""
}

// Validate enforces the two fields a dispatch cannot run without.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrMissingTitle
	}
	if strings.TrimSpace(p.AffiliateLink) == "" {
		return ErrMissingAffiliateLink
	}
	return nil
}
