package qrpass

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// PNG renders payload as a QR image of size×size pixels.
func PNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// Pass is the printable parking pass.
type Pass struct {
	Ticket
	Location string
	Amount   string
	Payload  string
}

// PDF renders a one-page A4 parking pass with the QR code embedded.
func PDF(p Pass) ([]byte, error) {
	qrPNG, err := PNG(p.Payload, DefaultSize)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Parking Pass")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	lines := []string{
		fmt.Sprintf("Booking: %s", p.BookingID),
		fmt.Sprintf("Venue: %s", p.MallName),
		fmt.Sprintf("Location: %s", p.Location),
		fmt.Sprintf("Date: %s", p.Date),
		fmt.Sprintf("Time: %s - %s", p.StartTime, p.EndTime),
	}
	if p.SlotNumber > 0 {
		lines = append(lines, fmt.Sprintf("Slot: %d", p.SlotNumber))
	} else {
		lines = append(lines, "Slot: assigned at check-in")
	}
	if p.Amount != "" {
		lines = append(lines, fmt.Sprintf("Amount: $%s", p.Amount))
	}
	for _, line := range lines {
		pdf.Cell(0, 10, line)
		pdf.Ln(8)
	}

	imageOpts := gofpdf.ImageOptions{
		ImageType: "PNG",
	}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 30, 45, 45, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
