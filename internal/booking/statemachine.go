package booking

import "slices"

// Event is something that may move a booking between statuses.
type Event string

const (
	EventPaymentComplete Event = "payment_complete"
	EventPaymentFailed   Event = "payment_failed"
	EventApprove         Event = "approve"
	EventReject          Event = "reject"
	EventEdit            Event = "edit"
	EventCancel          Event = "cancel"
)

type rule struct {
	from []Status
	to   Status // empty keeps the current status
}

var transitions = map[Event]rule{
	EventPaymentComplete: {from: []Status{StatusPendingPayment}, to: StatusConfirmed},
	EventPaymentFailed:   {from: []Status{StatusPendingPayment}, to: StatusCancelled},
	EventApprove:         {from: []Status{StatusPending}, to: StatusConfirmed},
	EventReject:          {from: []Status{StatusPending}, to: StatusRejected},
	EventEdit:            {from: []Status{StatusPending, StatusPendingPayment}},
	EventCancel:          {from: []Status{StatusPending, StatusPendingPayment}, to: StatusCancelled},
}

// InitialStatus is the status a new booking starts in for the payment method.
func InitialStatus(method PaymentMethod) Status {
	if method == PaymentGateway {
		return StatusPendingPayment
	}
	return StatusPending
}

// Next returns the status reached by applying ev in from.
// Illegal moves return ErrIllegalTransition carrying the current status.
func Next(from Status, ev Event) (Status, error) {
	r, ok := transitions[ev]
	if !ok || !slices.Contains(r.from, from) {
		return from, ErrIllegalTransition.With("current_status", from).With("action", ev)
	}
	if r.to == "" {
		return from, nil
	}
	return r.to, nil
}

// sourceStatuses lists the statuses ev may be applied in. Conditional
// updates use it as their guard so the database enforces the same table.
func sourceStatuses(ev Event) []Status {
	return slices.Clone(transitions[ev].from)
}
