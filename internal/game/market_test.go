package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestListingFillError(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		l    MarketListing
		qty  int32
		want error
	}{
		{name: "fillable", l: MarketListing{IsActive: true, Quantity: 10, ExpiresAt: &future}, qty: 10, want: nil},
		{name: "delisted", l: MarketListing{IsActive: false, Quantity: 10}, qty: 1, want: ErrNotFound},
		{name: "drained", l: MarketListing{IsActive: true, Quantity: 0}, qty: 1, want: ErrNotFound},
		{name: "expired", l: MarketListing{IsActive: true, Quantity: 10, ExpiresAt: &past}, qty: 1, want: ErrListingExpired},
		{name: "short", l: MarketListing{IsActive: true, Quantity: 10, ExpiresAt: &future}, qty: 11, want: ErrInsufficientQuantity},
	}
	for _, tc := range tests {
		if got := tc.l.FillError(tc.qty, now); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestRestockOnExpiry(t *testing.T) {
	seller := uuid.New()

	if !(MarketListing{SellerCharacterID: &seller, Quantity: 3}).RestockOnExpiry() {
		t.Fatalf("seller listing with stock must restock")
	}
	if (MarketListing{SellerCharacterID: &seller, Quantity: 3, IsGhostListing: true}).RestockOnExpiry() {
		t.Fatalf("estate listing must never restock a character")
	}
	if (MarketListing{Quantity: 3}).RestockOnExpiry() {
		t.Fatalf("no seller, nothing to restock")
	}
	if (MarketListing{SellerCharacterID: &seller, Quantity: 0}).RestockOnExpiry() {
		t.Fatalf("sold out listing has nothing to restock")
	}
}

func TestPurchaseConservation(t *testing.T) {
	itemCost, tax, total := PurchaseCost(decimal.NewFromInt(10), 20, decimal.NewFromInt(10))
	if !total.Equal(decimal.NewFromInt(220)) {
		t.Fatalf("total: got %s want 220", total)
	}
	// The buyer's debit is exactly the seller's credit plus the tax.
	if !itemCost.Add(tax).Equal(total) {
		t.Fatalf("funds leak: %s + %s != %s", itemCost, tax, total)
	}

	buyerBalance := decimal.NewFromInt(1000)
	if !buyerBalance.Sub(total).Equal(decimal.NewFromInt(780)) {
		t.Fatalf("buyer balance: got %s want 780", buyerBalance.Sub(total))
	}
	if !itemCost.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("seller credit: got %s want 200", itemCost)
	}
}
