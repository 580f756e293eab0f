package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry as the storefront sees it. Prices are
// whatever the catalog reported at browse time; the cart trusts them.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageRef  string          `json:"image_ref,omitempty"`
	SellerID  string          `json:"seller_id,omitempty"`
}

// CartLine is one product in the cart. There is never more than one
// line per product id, and Quantity is never persisted below 1.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref,omitempty"`
	SellerID  string          `json:"seller_id,omitempty"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func NewCartLine(p Product) CartLine {
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Quantity:  1,
		ImageRef:  p.ImageRef,
		SellerID:  p.SellerID,
	}
}
