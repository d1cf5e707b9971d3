package notification

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
	"github.com/nekogravitycat/futsal-booking-backend/internal/user"
)

// Directory resolves account contact details.
type Directory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type Submitter interface {
	Submit(t Task) bool
}

// RecipientFor returns the payer of b, or the court's vendor for walk-in bookings.
func RecipientFor(ctx context.Context, dir Directory, b *booking.Booking) (Recipient, error) {
	id := b.VendorID
	if b.UserID != nil {
		id = *b.UserID
	}
	u, err := dir.GetByID(ctx, id)
	if err != nil {
		return Recipient{}, err
	}

	r := Recipient{UserID: u.ID, Name: u.Name(), Email: u.Email}
	if u.PushToken != nil {
		r.PushToken = *u.PushToken
	}
	return r, nil
}

func courtName(b *booking.Booking) string {
	if b.CourtName == "" {
		return "your court"
	}
	return b.CourtName
}

func bookingData(kind string, b *booking.Booking) map[string]string {
	return map[string]string{
		"type":       kind,
		"booking_id": b.ID,
		"court_name": courtName(b),
		"date":       b.Date.Format("2006-01-02"),
		"time":       b.StartTime.Kitchen(),
		"status":     string(b.Status),
	}
}

func slotText(b *booking.Booking) string {
	return fmt.Sprintf("%s on %s at %s", courtName(b), b.Date.Format("Jan 2, 2006"), b.StartTime.Kitchen())
}

func ConfirmedMessage(b *booking.Booking) Message {
	body := fmt.Sprintf("Your booking at %s is confirmed.", slotText(b))
	if b.IsWalkIn() && b.CustomerName != nil {
		body = fmt.Sprintf("Walk-in booking for %s at %s is confirmed.", *b.CustomerName, slotText(b))
	}
	return Message{
		Event: EventBookingConfirmed,
		Title: "Booking Confirmed",
		Body:  body,
		Data:  bookingData("booking_confirmed", b),
	}
}

func RejectedMessage(b *booking.Booking) Message {
	return Message{
		Event: EventBookingRejected,
		Title: "Booking Rejected",
		Body:  fmt.Sprintf("Your booking at %s was rejected by the venue.", slotText(b)),
		Data:  bookingData("booking_rejected", b),
	}
}

func CancelledMessage(b *booking.Booking) Message {
	body := fmt.Sprintf("Your booking at %s has been cancelled.", slotText(b))
	if b.PaymentStatus == booking.PaymentFailed {
		body = fmt.Sprintf("Payment for your booking at %s did not go through, so the booking was cancelled.", slotText(b))
	}
	return Message{
		Event: EventBookingCancelled,
		Title: "Booking Cancelled",
		Body:  body,
		Data:  bookingData("booking_cancelled", b),
	}
}

// ReminderMessage is sent shortly before a match starts.
func ReminderMessage(b *booking.Booking, minutes int) Message {
	data := bookingData("booking_reminder", b)
	data["minutes"] = strconv.Itoa(minutes)
	delete(data, "status")
	return Message{
		Event: EventBookingReminder,
		Title: "Match Starting Soon!",
		Body:  fmt.Sprintf("Your match at %s starts in %d minutes. Get ready!", courtName(b), minutes),
		Data:  data,
	}
}

// BookingNotifier queues booking status messages on a dispatcher.
type BookingNotifier struct {
	queue  Submitter
	dir    Directory
	sender Sender
}

func NewBookingNotifier(queue Submitter, dir Directory, sender Sender) *BookingNotifier {
	return &BookingNotifier{queue: queue, dir: dir, sender: sender}
}

func (n *BookingNotifier) BookingConfirmed(_ context.Context, b *booking.Booking) {
	n.enqueue(b, ConfirmedMessage(b))
}

func (n *BookingNotifier) BookingRejected(_ context.Context, b *booking.Booking) {
	n.enqueue(b, RejectedMessage(b))
}

func (n *BookingNotifier) BookingCancelled(_ context.Context, b *booking.Booking) {
	n.enqueue(b, CancelledMessage(b))
}

func (n *BookingNotifier) enqueue(b *booking.Booking, msg Message) {
	snapshot := *b
	n.queue.Submit(Task{
		Name: msg.Event + ":" + b.ID,
		Run: func(ctx context.Context) error {
			to, err := RecipientFor(ctx, n.dir, &snapshot)
			if err != nil {
				return err
			}
			return n.sender.Send(ctx, to, msg)
		},
	})
}
