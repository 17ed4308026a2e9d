// Package order holds the read-only view of the order catalog that payments
// are initiated against.
package order

import "github.com/shopspring/decimal"

type Order struct {
	ID         string
	UserID     string
	TotalPrice decimal.Decimal
	Items      []Item
	SellerIDs  []string
}

type Item struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

type User struct {
	ID    string
	Email string
	Phone string
}

type Product struct {
	ID       string
	Name     string
	SellerID string
}

type Seller struct {
	ID    string
	Name  string
	Email string
	Phone string
}
