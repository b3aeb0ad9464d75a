package models

import (
	"errors"
	"testing"
	"time"
)

func TestProductFromRow_PortugueseHeaders(t *testing.T) {
	headers := []string{"Título", "Descrição", "De", "Por", "Cupom", "Link Afiliado", "Caminho imagem"}
	row := []string{"Tênis X", "Muito bom", "R$ 500,00", "R$ 300,00", "SAVE10", "http://x", "imagens/tenis_x.jpg"}

	p := ProductFromRow(headers, row)
	if p.Title != "Tênis X" || p.Description != "Muito bom" {
		t.Fatalf("unexpected title/description: %+v", p)
	}
	if p.PriceFrom != "R$ 500,00" || p.PriceTo != "R$ 300,00" {
		t.Fatalf("unexpected prices: %+v", p)
	}
	if p.Coupon != "SAVE10" || p.AffiliateLink != "http://x" {
		t.Fatalf("unexpected coupon/link: %+v", p)
	}
	if p.ImageHint != "imagens/tenis_x.jpg" {
		t.Fatalf("unexpected image hint: %q", p.ImageHint)
	}
}

func TestProductFromRow_EnglishAliases(t *testing.T) {
	headers := []string{"Title", "Price From", "Price To", "Coupon", "Affiliate Link", "Image"}
	row := []string{"Widget", "10", "5", "", "http://w", "widget.png"}

	p := ProductFromRow(headers, row)
	if p.Title != "Widget" || p.AffiliateLink != "http://w" || p.ImageHint != "widget.png" {
		t.Fatalf("english aliases not mapped: %+v", p)
	}
}

func TestProductFromRow_ImageHintPriority(t *testing.T) {
	headers := []string{"Título", "Link Afiliado", "Imagem", "Caminho imagem"}

	// "Caminho imagem" outranks "Imagem" even when both are set.
	p := ProductFromRow(headers, []string{"X", "http://x", "b.jpg", "a.jpg"})
	if p.ImageHint != "a.jpg" {
		t.Fatalf("expected a.jpg, got %q", p.ImageHint)
	}

	// First non-empty wins: an empty preferred column falls through.
	p = ProductFromRow(headers, []string{"X", "http://x", "b.jpg", ""})
	if p.ImageHint != "b.jpg" {
		t.Fatalf("expected b.jpg, got %q", p.ImageHint)
	}
}

func TestProductFromRow_ShortRowAndExtras(t *testing.T) {
	headers := []string{"Título", "Link Afiliado", "Categoria", "Estoque"}
	row := []string{"X", "http://x", "Calçados"}

	p := ProductFromRow(headers, row)
	if p.Title != "X" {
		t.Fatalf("unexpected title %q", p.Title)
	}
	if p.Extra["Categoria"] != "Calçados" {
		t.Fatalf("unknown column should land in Extra, got %v", p.Extra)
	}
	if v, ok := p.Extra["Estoque"]; !ok || v != "" {
		t.Fatalf("missing cell should yield empty string, got %v", p.Extra)
	}
}

func TestProductValidate(t *testing.T) {
	ok := Product{Title: "X", AffiliateLink: "http://x"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noTitle := Product{AffiliateLink: "http://x"}
	if err := noTitle.Validate(); !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}

	noLink := Product{Title: "X", AffiliateLink: "   "}
	if err := noLink.Validate(); !errors.Is(err, ErrMissingAffiliateLink) {
		t.Fatalf("expected ErrMissingAffiliateLink, got %v", err)
	}
}

func TestSentKey(t *testing.T) {
	day := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if got := SentKey("Tênis X", "09:00", day); got != "Tênis X|09:00|2024-01-01" {
		t.Fatalf("unexpected key %q", got)
	}
}
