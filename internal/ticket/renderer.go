// Package ticket формирует билет на шаттл: текст сообщения и PDF вложение
package ticket

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/phpdave11/gofpdf"
)

type Renderer struct {
	location *time.Location
	lead     time.Duration
}

func NewRenderer(location *time.Location, lead time.Duration) *Renderer {
	if location == nil {
		location = time.UTC
	}
	return &Renderer{location: location, lead: lead}
}

// Render возвращает текст уведомления и PDF билета
func (r *Renderer) Render(booking *model.Booking) (string, *model.Attachment, error) {
	if booking.Instance == nil {
		return "", nil, fmt.Errorf("booking %d has no schedule instance loaded", booking.ID)
	}

	message := r.Message(booking)

	data, err := r.PDF(booking)
	if err != nil {
		return "", nil, err
	}

	return message, &model.Attachment{
		Filename:    fmt.Sprintf("ticket-%s.pdf", booking.Code),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

// Message текст уведомления о бронировании
func (r *Renderer) Message(booking *model.Booking) string {
	instance := booking.Instance
	departs := instance.DepartsAt.In(r.location)

	var b strings.Builder
	fmt.Fprintf(&b, "🚐 Shuttle ticket %s\n\n", booking.Code)
	fmt.Fprintf(&b, "%s → %s\n", instance.Hotel, instance.Destination)
	fmt.Fprintf(&b, "Departure: %s\n", departs.Format("Mon 02 Jan 2006, 15:04"))
	fmt.Fprintf(&b, "Boarding closes: %s\n", departs.Add(-r.lead).Format("15:04"))
	fmt.Fprintf(&b, "Passengers: %d\n", booking.PassengerCount)
	if booking.RoomNumber != "" {
		fmt.Fprintf(&b, "Room: %s\n", booking.RoomNumber)
	}
	b.WriteString("\nShow this code to the driver when boarding.")

	return b.String()
}

// PDF одностраничный билет
func (r *Renderer) PDF(booking *model.Booking) ([]byte, error) {
	instance := booking.Instance
	departs := instance.DepartsAt.In(r.location)

	pdf := gofpdf.New("P", "mm", "A5", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Shuttle ticket "+booking.Code, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "SHUTTLE TICKET")
	pdf.Ln(12)

	pdf.SetFont("Courier", "B", 22)
	pdf.Cell(0, 12, booking.Code)
	pdf.Ln(16)

	rows := []struct{ label, value string }{
		{"Guest", booking.CustomerName},
		{"Room", safe(booking.RoomNumber, "-")},
		{"Passengers", fmt.Sprintf("%d", booking.PassengerCount)},
		{"Route", instance.Hotel + " - " + instance.Destination},
		{"Date", departs.Format("02 Jan 2006")},
		{"Departure", departs.Format("15:04")},
		{"Boarding closes", departs.Add(-r.lead).Format("15:04")},
	}

	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(40, 7, tr(row.label))
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 7, tr(row.value))
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "Please arrive at the pick-up point before boarding closes. The ticket is valid only for the departure shown above.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func safe(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
