// Package qrpass encodes parking passes into signed QR payloads and renders them.
package qrpass

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidFormat    = errors.New("qrpass: malformed payload")
	ErrInvalidSignature = errors.New("qrpass: signature mismatch")
)

// Ticket is what gets signed into a pass.
type Ticket struct {
	BookingID  string
	UserID     string
	MallName   string
	SlotNumber int
	Date       string
	StartTime  string
	EndTime    string
}

// Payload is the JSON carried by the QR code.
type Payload struct {
	BookingID     string `json:"bookingId"`
	MallName      string `json:"mallName"`
	SlotNumber    int    `json:"slotNumber"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	ValidationKey string `json:"validationKey"`
}

// IssuedAt returns the signing time embedded in the validation key.
func (p *Payload) IssuedAt() (time.Time, error) {
	ms, _, _, err := splitKey(p.ValidationKey)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

type Codec struct {
	secret []byte
	now    func() time.Time
	nonce  func() string
}

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func WithNonce(nonce func() string) Option {
	return func(c *Codec) { c.nonce = nonce }
}

func NewCodec(secret string, opts ...Option) *Codec {
	c := &Codec{
		secret: []byte(secret),
		now:    time.Now,
		nonce:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode signs every field of t. With the default clock and nonce each call
// yields a different validation key.
func (c *Codec) Encode(t Ticket) (string, error) {
	if t.BookingID == "" {
		return "", fmt.Errorf("%w: empty booking id", ErrInvalidFormat)
	}

	issuedAt := c.now().UnixMilli()
	nonce := c.nonce()

	p := Payload{
		BookingID:  t.BookingID,
		MallName:   t.MallName,
		SlotNumber: t.SlotNumber,
		Date:       t.Date,
		StartTime:  t.StartTime,
		EndTime:    t.EndTime,
	}
	p.ValidationKey = fmt.Sprintf("%d.%s.%s", issuedAt, nonce, c.sign(&p, t.UserID, issuedAt, nonce))

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal qr payload: %w", err)
	}
	return string(data), nil
}

// Decode parses raw without checking the signature.
func (c *Codec) Decode(raw string) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if p.BookingID == "" || p.ValidationKey == "" {
		return nil, fmt.Errorf("%w: missing bookingId or validationKey", ErrInvalidFormat)
	}
	return &p, nil
}

// Verify checks that p's key was issued for userID and that none of the
// payload fields changed since signing.
func (c *Codec) Verify(p *Payload, userID string) error {
	issuedAt, nonce, sig, err := splitKey(p.ValidationKey)
	if err != nil {
		return err
	}

	want := c.sign(p, userID, issuedAt, nonce)
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return ErrInvalidSignature
	}
	return nil
}

func (c *Codec) sign(p *Payload, userID string, issuedAt int64, nonce string) string {
	h := hmac.New(sha256.New, c.secret)
	fmt.Fprintf(h, "%s|%s|%s|%d|%s|%s|%s|%d|%s",
		p.BookingID, userID, p.MallName, p.SlotNumber, p.Date, p.StartTime, p.EndTime, issuedAt, nonce)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func splitKey(key string) (int64, string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return 0, "", "", ErrInvalidSignature
	}
	issuedAt, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", "", ErrInvalidSignature
	}
	return issuedAt, parts[1], parts[2], nil
}
