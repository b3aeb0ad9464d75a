package broadcast

import (
	"strings"
	"testing"

	"github.com/promoimperio/broadcast_backend/models"
	"github.com/shopspring/decimal"
)

func TestParsePrice_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"R$ 3.899,00", "3899"},
		{"1.234,56", "1234.56"},
		{"R$ 500,00", "500"},
		{"300", "300"},
		{"", "0"},
		{"abc", "0"},
		{"N/A", "0"},
	}
	for _, tc := range cases {
		d := ParsePrice(tc.in)
		if d.String() != tc.expected {
			t.Fatalf("ParsePrice(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestFormatPriceBRL(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"3899", "R$ 3.899,00"},
		{"1234.56", "R$ 1.234,56"},
		{"500", "R$ 500,00"},
		{"0", "R$ 0,00"},
		{"1000000.5", "R$ 1.000.000,50"},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		if err != nil {
			t.Fatalf("bad test input %q: %v", tc.in, err)
		}
		if got := FormatPriceBRL(d); got != tc.expected {
			t.Fatalf("FormatPriceBRL(%s) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestFormatMessage_CouponSuppression(t *testing.T) {
	suppressed := []string{"N/A", "na", "-", "0", "null", "none", "NONE", " N/A "}
	for _, coupon := range suppressed {
		p := models.Product{Title: "X", AffiliateLink: "http://x", Coupon: coupon}
		if strings.Contains(FormatMessage(p), "Cupom") {
			t.Fatalf("coupon %q should be suppressed", coupon)
		}
	}

	p := models.Product{Title: "X", AffiliateLink: "http://x", Coupon: "SAVE10"}
	if !strings.Contains(FormatMessage(p), "*Cupom:* SAVE10") {
		t.Fatalf("coupon SAVE10 should render, got:\n%s", FormatMessage(p))
	}
}

func TestFormatMessage_OriginalPriceLine(t *testing.T) {
	withFrom := models.Product{Title: "X", AffiliateLink: "http://x", PriceFrom: "R$ 500,00", PriceTo: "R$ 300,00"}
	msg := FormatMessage(withFrom)
	if !strings.Contains(msg, "~R$ 500,00~") {
		t.Fatalf("expected struck original price line, got:\n%s", msg)
	}
	if !strings.Contains(msg, "*POR:* R$ 300,00") {
		t.Fatalf("expected current price line, got:\n%s", msg)
	}

	noFrom := models.Product{Title: "X", AffiliateLink: "http://x", PriceFrom: "N/A", PriceTo: "R$ 300,00"}
	if strings.Contains(FormatMessage(noFrom), "DE:") {
		t.Fatalf("unparsable original price must not render a DE line")
	}
}

func TestFormatMessage_Deterministic(t *testing.T) {
	p := models.Product{
		Title:         "Tênis X",
		Description:   "desc",
		PriceFrom:     "R$ 500,00",
		PriceTo:       "R$ 300,00",
		Coupon:        "SAVE10",
		AffiliateLink: "http://x",
	}
	first := FormatMessage(p)
	for i := 0; i < 10; i++ {
		if got := FormatMessage(p); got != first {
			t.Fatalf("FormatMessage is not deterministic: %q vs %q", first, got)
		}
	}

	if !strings.HasPrefix(first, "🛍️") || strings.HasSuffix(first, "\n") {
		t.Fatalf("message should be trimmed, got %q", first)
	}
}

func TestFormatMessage_DescriptionOnlyWhenPresent(t *testing.T) {
	with := models.Product{Title: "X", AffiliateLink: "http://x", Description: "great"}
	if !strings.Contains(FormatMessage(with), "_great_") {
		t.Fatalf("expected description line")
	}
	without := models.Product{Title: "X", AffiliateLink: "http://x"}
	if strings.Contains(FormatMessage(without), "📄") {
		t.Fatalf("unexpected description line")
	}
}
