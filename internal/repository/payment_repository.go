package repository

import (
	"context"

	"github.com/iliyamo/gearshare/internal/model"
)

// PaymentMethodCard is the only method the mock payment form offers.
const PaymentMethodCard = "CREDIT_CARD"

// PaymentRepo wraps POST /payments/pay. No real gateway sits behind it.
type PaymentRepo struct{ api *Client }

func NewPaymentRepo(c *Client) *PaymentRepo { return &PaymentRepo{api: c} }

// Pay settles an APPROVED booking.
func (r *PaymentRepo) Pay(ctx context.Context, bookingID int64, amount float64, method string) (model.Receipt, error) {
	if method == "" {
		method = PaymentMethodCard
	}
	body := struct {
		BookingID     int64   `json:"bookingId"`
		Amount        float64 `json:"amount"`
		PaymentMethod string  `json:"paymentMethod"`
	}{bookingID, amount, method}
	var out model.Receipt
	if err := r.api.post(ctx, "/payments/pay", body, &out); err != nil {
		return model.Receipt{}, err
	}
	if out.BookingID == 0 {
		out.BookingID = bookingID
	}
	if out.Amount == 0 {
		out.Amount = amount
	}
	if out.PaymentMethod == "" {
		out.PaymentMethod = method
	}
	return out, nil
}
