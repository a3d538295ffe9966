package domain

import (
	"errors"
	"fmt"
	"strings"
)

// PaymentMethod is how the buyer pays; the values double as gateway method codes
type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodBoleto     PaymentMethod = "boleto"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
)

var allPaymentMethods = map[string]PaymentMethod{
	PaymentMethodPix.String():        PaymentMethodPix,
	PaymentMethodBoleto.String():     PaymentMethodBoleto,
	PaymentMethodCreditCard.String(): PaymentMethodCreditCard,
}

func NewPaymentMethod(value string) (*PaymentMethod, error) {
	if method, ok := allPaymentMethods[strings.ToLower(value)]; ok {
		return &method, nil
	}
	return nil, errors.New(fmt.Sprintf("Unknown payment method: %s", value))
}

func (m PaymentMethod) String() string {
	return string(m)
}
