package payment

import (
	"context"

	"payrelay/internal/domain/payment"
	"payrelay/internal/notify"
)

// buildNotification assembles the completion notice for p. Lookups run in a
// fixed order (order, products, sellers, user) and stop at the first miss.
func (s *Service) buildNotification(ctx context.Context, p *payment.Payment) (*notify.StatusChanged, error) {
	const op = "notify"

	evt := &notify.StatusChanged{
		Type:                 notify.TypePaymentCompleted,
		PaymentID:            p.ID,
		OrderID:              p.OrderID,
		UserID:               p.UserID,
		Amount:               p.Amount.String(),
		Currency:             p.Currency,
		TransactionReference: p.TransactionReference,
		Status:               string(p.Status),
		Method:               p.Method,
		PaymentDate:          p.UpdatedAt,
		Timestamp:            s.now(),
	}
	if p.PaidAt != nil {
		evt.PaymentDate = *p.PaidAt
	}

	if !s.cfg.IncludeContacts && !s.cfg.IncludeProducts {
		return evt, nil
	}

	ord, err := s.orders.GetOrder(ctx, p.OrderID)
	if err != nil {
		return nil, lookupError(op, "order not found", err)
	}

	if s.cfg.IncludeProducts {
		sellers := make(map[string]*notify.Seller)
		for _, item := range ord.Items {
			prod, err := s.orders.GetProduct(ctx, item.ProductID)
			if err != nil {
				return nil, lookupError(op, "product not found", err)
			}

			line := notify.Product{
				ProductID: prod.ID,
				Name:      prod.Name,
				Quantity:  item.Quantity,
				Price:     item.Price.String(),
			}
			if prod.SellerID != "" {
				seller, ok := sellers[prod.SellerID]
				if !ok {
					sel, err := s.orders.GetSeller(ctx, prod.SellerID)
					if err != nil {
						return nil, lookupError(op, "seller not found", err)
					}
					seller = &notify.Seller{ID: sel.ID, Name: sel.Name, Email: sel.Email, Phone: sel.Phone}
					sellers[prod.SellerID] = seller
				}
				line.Seller = seller
			}
			evt.Products = append(evt.Products, line)
		}
	}

	if s.cfg.IncludeContacts {
		userID := ord.UserID
		if userID == "" {
			userID = p.UserID
		}
		u, err := s.orders.GetUser(ctx, userID)
		if err != nil {
			return nil, lookupError(op, "user not found", err)
		}
		evt.Contact = &notify.Contact{Email: u.Email, Phone: u.Phone}
	}

	return evt, nil
}
