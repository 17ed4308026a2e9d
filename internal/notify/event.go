// Package notify carries payment status changes to downstream services.
package notify

import "time"

// StatusChanged is the message published when a payment completes.
type StatusChanged struct {
	Type                 string    `json:"type"`
	PaymentID            string    `json:"payment_id"`
	OrderID              string    `json:"order_id"`
	UserID               string    `json:"user_id"`
	Amount               string    `json:"amount"`
	Currency             string    `json:"currency"`
	TransactionReference string    `json:"transaction_reference"`
	Status               string    `json:"status"`
	Method               string    `json:"method"`
	PaymentDate          time.Time `json:"payment_date"`
	Contact              *Contact  `json:"contact,omitempty"`
	Products             []Product `json:"products,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

// Contact is where the buyer can be reached.
type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Product struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     string  `json:"price"`
	Seller    *Seller `json:"seller,omitempty"`
}

type Seller struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// TypePaymentCompleted is the StatusChanged.Type for completed payments.
const TypePaymentCompleted = "payment_completed"
