package services

import (
	"encoding/base64"
	"fmt"
	"strings"

	"ticket-marketplace/internal/models"
	"ticket-marketplace/internal/utils"

	"github.com/skip2/go-qrcode"
)

// qrPrefix marks QR credentials signed by this service
const qrPrefix = "TKT1"

// QRPayload is the decoded content of a signed QR credential
type QRPayload struct {
	EventID      string
	TicketTypeID string
	Nonce        string
}

// QRCodec issues and verifies signed ticket QR credentials.
// Format: TKT1.<b64url event id>.<b64url ticket type id>.<hex nonce>.<signature>
type QRCodec struct {
	key  []byte
	size int
}

// NewQRCodec creates a codec whose signing key is derived from secret
func NewQRCodec(secret string, size int) (*QRCodec, error) {
	key, err := utils.DeriveKey([]byte(secret), "ticket-qr-v1", 32)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR codec: %w", err)
	}
	if size <= 0 {
		size = 256
	}
	return &QRCodec{key: key, size: size}, nil
}

// Generate issues a new credential for a ticket of the given event and type
func (c *QRCodec) Generate(eventID, ticketTypeID string) (string, error) {
	nonce, err := utils.GenerateNonce(16)
	if err != nil {
		return "", err
	}

	body := strings.Join([]string{
		qrPrefix,
		base64.RawURLEncoding.EncodeToString([]byte(eventID)),
		base64.RawURLEncoding.EncodeToString([]byte(ticketTypeID)),
		nonce,
	}, ".")

	return body + "." + utils.Sign(c.key, body), nil
}

// IsSigned reports whether code carries this service's credential prefix
func (c *QRCodec) IsSigned(code string) bool {
	return strings.HasPrefix(code, qrPrefix+".")
}

// Decode verifies the signature of code and returns its payload
func (c *QRCodec) Decode(code string) (*QRPayload, error) {
	parts := strings.Split(code, ".")
	if len(parts) != 5 || parts[0] != qrPrefix {
		return nil, fmt.Errorf("%w: malformed credential", models.ErrInvalidQRCode)
	}

	body := strings.Join(parts[:4], ".")
	if !utils.VerifySignature(c.key, body, parts[4]) {
		return nil, fmt.Errorf("%w: signature mismatch", models.ErrInvalidQRCode)
	}

	eventID, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad event id", models.ErrInvalidQRCode)
	}
	ticketTypeID, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad ticket type id", models.ErrInvalidQRCode)
	}

	return &QRPayload{
		EventID:      string(eventID),
		TicketTypeID: string(ticketTypeID),
		Nonce:        parts[3],
	}, nil
}

// RenderPNG encodes code as a QR image
func (c *QRCodec) RenderPNG(code string) ([]byte, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, c.size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}
