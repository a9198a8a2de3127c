package domain

import (
	"fmt"
	"strings"
)

// Ticket prices per age category, in cents.
var ticketPriceCents = map[string]int{
	"child":  800,
	"adult":  1500,
	"senior": 1000,
}

// TicketPriceCents returns the price for one age category. Categories are
// case-insensitive.
func TicketPriceCents(category string) (int, bool) {
	p, ok := ticketPriceCents[strings.ToLower(category)]
	return p, ok
}

// PriceForCategories sums the ticket price over the given age categories.
func PriceForCategories(categories []string) (int, error) {
	var total int
	for _, c := range categories {
		p, ok := ticketPriceCents[strings.ToLower(c)]
		if !ok {
			return 0, fmt.Errorf("unknown age category %q", c)
		}
		total += p
	}
	return total, nil
}

// ApplyDiscount applies a promotion to a total in cents. FIXED discounts are
// in cents; PERCENT discounts are whole percentage points. Never below zero.
func ApplyDiscount(totalCents int, p Promotion) int {
	switch p.DiscountType {
	case DiscountPercent:
		totalCents -= totalCents * p.DiscountValue / 100
	case DiscountFixed:
		totalCents -= p.DiscountValue
	}
	if totalCents < 0 {
		return 0
	}
	return totalCents
}
