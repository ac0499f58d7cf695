package models

import "errors"

// Common errors used throughout the application
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrViewNotFound       = errors.New("selection view not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCapacityExceeded   = errors.New("requested quantity exceeds capacity")
	ErrEmptySelection     = errors.New("selection is empty")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutFailed     = errors.New("checkout failed")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrInvalidQRCode      = errors.New("invalid QR code")
)
