package broadcast

import (
	"regexp"
	"strings"

	"github.com/promoimperio/broadcast_backend/models"
	"github.com/shopspring/decimal"
)

var nonPriceChars = regexp.MustCompile(`[^\d,.-]`)

// couponNoValueTokens are the sentinel "no coupon" spellings seen in
// catalogs, compared after trimming and upper-casing.
var couponNoValueTokens = map[string]bool{
	"N/A":  true,
	"NA":   true,
	"-":    true,
	"0":    true,
	"NULL": true,
	"NONE": true,
}

// ParsePrice reads a locale-formatted currency string ("R$ 3.899,00") into a
// decimal. Thousands dots are dropped and the decimal comma swapped before
// parsing; anything unparsable is zero.
func ParsePrice(raw string) decimal.Decimal {
	s := nonPriceChars.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatPriceBRL renders a decimal as Brazilian currency: "R$ 1.234,56".
func FormatPriceBRL(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart := fixed[:len(fixed)-3]
	fracPart := fixed[len(fixed)-2:]

	var grouped strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(ch)
	}

	return sign + "R$ " + grouped.String() + "," + fracPart
}

// FormatMessage builds the promo caption for one product. Pure and
// deterministic: the ledger key does not include message content, so the same
// product must always render to the same bytes.
func FormatMessage(p models.Product) string {
	priceFrom := ParsePrice(p.PriceFrom)
	priceTo := ParsePrice(p.PriceTo)

	coupon := strings.TrimSpace(p.Coupon)
	hasCoupon := coupon != "" && !couponNoValueTokens[strings.ToUpper(coupon)]

	lines := []string{
		"🛍️ *" + p.Title + "*",
	}
	if strings.TrimSpace(p.Description) != "" {
		lines = append(lines, "📄 _"+p.Description+"_")
	}
	if priceFrom.GreaterThan(decimal.Zero) {
		lines = append(lines, "\n💸 *DE:* ~"+FormatPriceBRL(priceFrom)+"~")
	}
	lines = append(lines, "🔥 *POR:* "+FormatPriceBRL(priceTo))
	if hasCoupon {
		lines = append(lines, "\n🎟️ *Cupom:* "+coupon)
	}
	lines = append(lines, "🔗 *Compre aqui:* "+p.AffiliateLink)

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
