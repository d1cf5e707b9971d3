package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
	"github.com/nekogravitycat/futsal-booking-backend/internal/booking/bookingtest"
	"github.com/nekogravitycat/futsal-booking-backend/internal/court"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
)

const courtID = "0b7c0d2e-9a43-4c52-8f0e-3a1f2b6c7d01"

var (
	player   = auth.Identity{UserID: "u-1", Role: auth.RoleUser}
	stranger = auth.Identity{UserID: "u-2", Role: auth.RoleUser}
	owner    = auth.Identity{UserID: "v-1", Role: auth.RoleVendor}
	rival    = auth.Identity{UserID: "v-2", Role: auth.RoleVendor}
)

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	loc      *time.Location
	clock    *clock.MockClock
	repo     *bookingtest.MemoryRepository
	courts   bookingtest.Courts
	notifier *bookingtest.RecordingNotifier
	svc      booking.Service
	date     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	var err error
	s.ctx = context.Background()
	s.loc, err = time.LoadLocation("Asia/Kathmandu")
	s.Require().NoError(err)

	open, closeAt := daytime.MustParse("08:00"), daytime.MustParse("20:00")
	s.courts = bookingtest.Courts{courtID: {
		ID: courtID, VendorID: owner.UserID, Name: "Arena 1", Price: 100000,
		OpeningTime: &open, ClosingTime: &closeAt, Status: court.StatusActive,
	}}
	s.clock = clock.NewMockClock(time.Date(2026, 3, 13, 9, 0, 0, 0, s.loc))
	s.repo = bookingtest.NewMemoryRepository()
	s.notifier = &bookingtest.RecordingNotifier{}
	s.svc = booking.NewService(s.repo, s.courts, s.notifier, s.clock, booking.Policy{Location: s.loc, Cutoff: 2 * time.Hour})
	s.date, _ = daytime.ParseDate("2026-03-14")
}

func (s *ServiceSuite) request(start, end string, method booking.PaymentMethod) booking.CreateRequest {
	return booking.CreateRequest{
		CourtID:       courtID,
		Date:          s.date,
		StartTime:     daytime.MustParse(start),
		EndTime:       daytime.MustParse(end),
		PaymentMethod: method,
	}
}

func (s *ServiceSuite) book(start, end string, method booking.PaymentMethod) *booking.Booking {
	b, err := s.svc.Create(s.ctx, player, s.request(start, end, method))
	s.Require().NoError(err)
	return b
}

func kindOf(t *testing.T, err error) apperror.Kind {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Kind
}

func (s *ServiceSuite) TestCashApproveScenario() {
	a := s.book("10:00", "11:00", booking.PaymentCash)
	s.Equal(booking.StatusPending, a.Status)
	s.Equal(booking.PaymentPending, a.PaymentStatus)
	s.Equal("1000.00", a.Price.String())
	s.NotEmpty(a.TransactionUUID)

	approved, err := s.svc.Approve(s.ctx, owner, a.ID)
	s.Require().NoError(err)
	s.Equal(booking.StatusConfirmed, approved.Status)

	_, err = s.svc.Create(s.ctx, stranger, s.request("10:30", "11:30", booking.PaymentCash))
	s.ErrorIs(err, booking.ErrTimeConflict)
	s.Equal(apperror.KindConflict, kindOf(s.T(), err))

	c, err := s.svc.Create(s.ctx, stranger, s.request("11:00", "12:00", booking.PaymentCash))
	s.Require().NoError(err)
	s.Equal(booking.StatusPending, c.Status)

	confirmed, _, _ := s.notifier.Counts()
	s.Equal(1, confirmed)
}

func (s *ServiceSuite) TestApproveGuards() {
	a := s.book("10:00", "11:00", booking.PaymentCash)

	_, err := s.svc.Approve(s.ctx, rival, a.ID)
	s.ErrorIs(err, booking.ErrPermissionDenied)
	s.Equal(apperror.KindAuthorization, kindOf(s.T(), err))

	_, err = s.svc.Approve(s.ctx, player, a.ID)
	s.ErrorIs(err, booking.ErrPermissionDenied)

	_, err = s.svc.Approve(s.ctx, owner, a.ID)
	s.Require().NoError(err)

	_, err = s.svc.Approve(s.ctx, owner, a.ID)
	s.ErrorIs(err, booking.ErrIllegalTransition)
	var appErr *apperror.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal(booking.StatusConfirmed, appErr.Details["current_status"])

	_, err = s.svc.Reject(s.ctx, owner, a.ID)
	s.ErrorIs(err, booking.ErrIllegalTransition)
}

func (s *ServiceSuite) TestGatewayBookingCannotBeApprovedUnpaid() {
	b := s.book("10:00", "11:00", booking.PaymentGateway)
	s.Equal(booking.StatusPendingPayment, b.Status)

	_, err := s.svc.Approve(s.ctx, owner, b.ID)
	s.ErrorIs(err, booking.ErrIllegalTransition)

	// A gateway booking paid but left Pending may be approved.
	stuck := s.repo.Put(&booking.Booking{
		CourtID: courtID, VendorID: owner.UserID, UserID: &player.UserID, Date: s.date,
		StartTime: daytime.MustParse("14:00"), EndTime: daytime.MustParse("15:00"),
		PaymentMethod: booking.PaymentGateway, PaymentStatus: booking.PaymentPending, Status: booking.StatusPending,
	})
	_, err = s.svc.Approve(s.ctx, owner, stuck.ID)
	s.ErrorIs(err, booking.ErrPaymentNotSettled)

	stuck.PaymentStatus = booking.PaymentPaid
	s.repo.Put(stuck)
	approved, err := s.svc.Approve(s.ctx, owner, stuck.ID)
	s.Require().NoError(err)
	s.Equal(booking.StatusConfirmed, approved.Status)
}

func (s *ServiceSuite) TestReject() {
	a := s.book("10:00", "11:00", booking.PaymentCash)

	rejected, err := s.svc.Reject(s.ctx, owner, a.ID)
	s.Require().NoError(err)
	s.Equal(booking.StatusRejected, rejected.Status)

	_, rejectedCount, _ := s.notifier.Counts()
	s.Equal(1, rejectedCount)

	// The slot is free again.
	_, err = s.svc.Create(s.ctx, stranger, s.request("10:00", "11:00", booking.PaymentCash))
	s.NoError(err)
}

func (s *ServiceSuite) TestCreateGates() {
	_, err := s.svc.Create(s.ctx, player, s.request("07:00", "08:00", booking.PaymentCash))
	s.ErrorIs(err, booking.ErrOutsideOperatingHours)

	_, err = s.svc.Create(s.ctx, player, s.request("19:30", "20:30", booking.PaymentCash))
	s.ErrorIs(err, booking.ErrOutsideOperatingHours)

	_, err = s.svc.Create(s.ctx, player, s.request("11:00", "10:00", booking.PaymentCash))
	s.ErrorIs(err, booking.ErrInvalidTimeRange)

	_, err = s.svc.Create(s.ctx, player, s.request("10:00", "11:00", "Card"))
	s.ErrorIs(err, booking.ErrInvalidPaymentMethod)

	past := s.request("08:00", "09:00", booking.PaymentCash)
	past.Date, _ = daytime.ParseDate("2026-03-13")
	_, err = s.svc.Create(s.ctx, player, past)
	s.ErrorIs(err, booking.ErrStartTimePast)

	long := string(make([]rune, 256))
	req := s.request("10:00", "11:00", booking.PaymentCash)
	req.Notes = &long
	_, err = s.svc.Create(s.ctx, player, req)
	s.ErrorIs(err, booking.ErrNotesTooLong)

	missing := s.request("10:00", "11:00", booking.PaymentCash)
	missing.CourtID = "nope"
	_, err = s.svc.Create(s.ctx, player, missing)
	s.ErrorIs(err, court.ErrNotFound)

	s.courts[courtID].Status = court.StatusMaintenance
	_, err = s.svc.Create(s.ctx, player, s.request("10:00", "11:00", booking.PaymentCash))
	s.ErrorIs(err, booking.ErrCourtUnavailable)
}

func (s *ServiceSuite) TestCutoff() {
	today, _ := daytime.ParseDate("2026-03-13")

	req := s.request("11:00", "12:00", booking.PaymentCash)
	req.Date = today
	b, err := s.svc.Create(s.ctx, player, req)
	s.Require().NoError(err)

	// Exactly two hours before start is inside the cutoff.
	_, err = s.svc.Cancel(s.ctx, player, b.ID)
	s.ErrorIs(err, booking.ErrCutoffPassed)
	s.Equal(apperror.KindValidation, kindOf(s.T(), err))

	notes := "bring bibs"
	_, err = s.svc.Edit(s.ctx, player, b.ID, booking.UpdateRequest{Notes: &notes})
	s.ErrorIs(err, booking.ErrCutoffPassed)

	s.clock.Set(time.Date(2026, 3, 13, 8, 59, 0, 0, s.loc))
	cancelled, err := s.svc.Cancel(s.ctx, player, b.ID)
	s.Require().NoError(err)
	s.Equal(booking.StatusCancelled, cancelled.Status)

	// Time passing moves a booking into the cutoff.
	later := s.book("10:00", "11:00", booking.PaymentCash)
	s.clock.Set(time.Date(2026, 3, 14, 8, 30, 0, 0, s.loc))
	_, err = s.svc.Cancel(s.ctx, player, later.ID)
	s.ErrorIs(err, booking.ErrCutoffPassed)
}

func (s *ServiceSuite) TestEditCannotMoveIntoCutoff() {
	b := s.book("10:00", "11:00", booking.PaymentCash)
	today, _ := daytime.ParseDate("2026-03-13")

	// 10:30 today is in the future but only 90 minutes away.
	start, end := daytime.MustParse("10:30"), daytime.MustParse("11:30")
	_, err := s.svc.Edit(s.ctx, player, b.ID, booking.UpdateRequest{Date: &today, StartTime: &start, EndTime: &end})
	s.ErrorIs(err, booking.ErrCutoffPassed)

	got, err := s.repo.GetByID(s.ctx, b.ID)
	s.Require().NoError(err)
	s.True(got.Date.Equal(s.date))
	s.Equal("10:00", got.StartTime.Short())

	start, end = daytime.MustParse("11:30"), daytime.MustParse("12:30")
	moved, err := s.svc.Edit(s.ctx, player, b.ID, booking.UpdateRequest{Date: &today, StartTime: &start, EndTime: &end})
	s.Require().NoError(err)
	s.Equal("11:30", moved.StartTime.Short())
}

func (s *ServiceSuite) TestSlotEndingAtMidnightIsBookable() {
	const allDay = "1a2b3c4d-0000-4000-8000-0000000000ad"
	s.courts[allDay] = &court.Court{ID: allDay, VendorID: owner.UserID, Name: "Open Pitch", Price: 80000, Status: court.StatusActive}

	free, err := s.svc.FreeIntervals(s.ctx, allDay, s.date)
	s.Require().NoError(err)
	s.Require().Len(free, 1)
	s.Equal("24:00", free[0].End.Short())

	end, err := daytime.Parse(free[0].End.Short())
	s.Require().NoError(err)
	req := s.request("23:00", "23:00", booking.PaymentCash)
	req.CourtID, req.EndTime = allDay, end
	b, err := s.svc.Create(s.ctx, player, req)
	s.Require().NoError(err)
	s.Equal(booking.EndOfDay, b.EndTime)
}

func (s *ServiceSuite) TestCancelRules() {
	a := s.book("10:00", "11:00", booking.PaymentCash)

	_, err := s.svc.Cancel(s.ctx, stranger, a.ID)
	s.ErrorIs(err, booking.ErrPermissionDenied)

	_, err = s.svc.Approve(s.ctx, owner, a.ID)
	s.Require().NoError(err)

	_, err = s.svc.Cancel(s.ctx, player, a.ID)
	s.ErrorIs(err, booking.ErrIllegalTransition)

	g := s.book("12:00", "13:00", booking.PaymentGateway)
	cancelled, err := s.svc.Cancel(s.ctx, player, g.ID)
	s.Require().NoError(err)
	s.Equal(booking.StatusCancelled, cancelled.Status)

	_, err = s.svc.Cancel(s.ctx, player, g.ID)
	s.ErrorIs(err, booking.ErrIllegalTransition)

	_, _, cancelledCount := s.notifier.Counts()
	s.Equal(1, cancelledCount)
}

func (s *ServiceSuite) TestEdit() {
	a := s.book("10:00", "11:00", booking.PaymentCash)
	s.book("12:00", "13:00", booking.PaymentCash)

	start, end := daytime.MustParse("12:30"), daytime.MustParse("13:30")
	_, err := s.svc.Edit(s.ctx, player, a.ID, booking.UpdateRequest{StartTime: &start, EndTime: &end})
	s.ErrorIs(err, booking.ErrTimeConflict)

	// Moving within its own slot does not conflict with itself.
	start, end = daytime.MustParse("10:30"), daytime.MustParse("11:30")
	moved, err := s.svc.Edit(s.ctx, player, a.ID, booking.UpdateRequest{StartTime: &start, EndTime: &end})
	s.Require().NoError(err)
	s.Equal("10:30", moved.StartTime.Short())
	s.Equal(booking.StatusPending, moved.Status)

	nextDay, _ := daytime.ParseDate("2026-03-15")
	moved, err = s.svc.Edit(s.ctx, player, a.ID, booking.UpdateRequest{Date: &nextDay})
	s.Require().NoError(err)
	s.True(moved.Date.Equal(nextDay))

	late := daytime.MustParse("21:00")
	_, err = s.svc.Edit(s.ctx, player, a.ID, booking.UpdateRequest{EndTime: &late})
	s.ErrorIs(err, booking.ErrOutsideOperatingHours)

	_, err = s.svc.Edit(s.ctx, stranger, a.ID, booking.UpdateRequest{})
	s.ErrorIs(err, booking.ErrPermissionDenied)

	_, err = s.svc.Approve(s.ctx, owner, a.ID)
	s.Require().NoError(err)
	_, err = s.svc.Edit(s.ctx, player, a.ID, booking.UpdateRequest{})
	s.ErrorIs(err, booking.ErrIllegalTransition)
}

func (s *ServiceSuite) TestManualBooking() {
	req := booking.ManualRequest{
		CreateRequest: s.request("10:00", "11:00", booking.PaymentCash),
		CustomerName:  " Hari ",
		CustomerPhone: "9800000000",
	}

	_, err := s.svc.CreateManual(s.ctx, rival, req)
	s.ErrorIs(err, booking.ErrPermissionDenied)

	_, err = s.svc.CreateManual(s.ctx, player, req)
	s.ErrorIs(err, booking.ErrPermissionDenied)

	blank := req
	blank.CustomerName = " "
	_, err = s.svc.CreateManual(s.ctx, owner, blank)
	s.ErrorIs(err, booking.ErrCustomerRequired)

	b, err := s.svc.CreateManual(s.ctx, owner, req)
	s.Require().NoError(err)
	s.True(b.IsWalkIn())
	s.Equal("Hari", *b.CustomerName)
	s.Equal(booking.StatusPending, b.Status)
	s.Equal(owner.UserID, *b.CreatedBy)

	// Walk-ins are conflict checked like any other booking.
	_, err = s.svc.CreateManual(s.ctx, owner, req)
	s.ErrorIs(err, booking.ErrTimeConflict)
	_, err = s.svc.Create(s.ctx, player, s.request("10:30", "11:30", booking.PaymentCash))
	s.ErrorIs(err, booking.ErrTimeConflict)

	// The vendor manages walk-ins on the customer's behalf.
	_, err = s.svc.Cancel(s.ctx, owner, b.ID)
	s.NoError(err)
}

func (s *ServiceSuite) TestListAndGetScopes() {
	mine := s.book("10:00", "11:00", booking.PaymentCash)
	theirs, err := s.svc.Create(s.ctx, stranger, s.request("12:00", "13:00", booking.PaymentCash))
	s.Require().NoError(err)

	list, total, err := s.svc.List(s.ctx, player, booking.Filter{UserID: stranger.UserID})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(mine.ID, list[0].ID)

	list, total, err = s.svc.List(s.ctx, owner, booking.Filter{})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Equal(theirs.ID, list[0].ID, "latest start first")

	_, total, err = s.svc.List(s.ctx, rival, booking.Filter{})
	s.Require().NoError(err)
	s.Zero(total)

	_, _, err = s.svc.List(s.ctx, player, booking.Filter{Status: "Unknown"})
	s.ErrorIs(err, booking.ErrInvalidStatus)

	_, err = s.svc.GetByID(s.ctx, stranger, mine.ID)
	s.ErrorIs(err, booking.ErrPermissionDenied)
	got, err := s.svc.GetByID(s.ctx, owner, mine.ID)
	s.Require().NoError(err)
	s.Equal("Arena 1", got.CourtName)
}

func (s *ServiceSuite) TestAvailabilityQueries() {
	s.book("10:00", "11:00", booking.PaymentCash)
	cancelled := s.book("13:00", "14:00", booking.PaymentGateway)
	_, err := s.svc.Cancel(s.ctx, player, cancelled.ID)
	s.Require().NoError(err)

	ok, err := s.svc.IsAvailable(s.ctx, courtID, s.date, daytime.MustParse("10:30"), daytime.MustParse("11:30"))
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.svc.IsAvailable(s.ctx, courtID, s.date, daytime.MustParse("13:00"), daytime.MustParse("14:00"))
	s.Require().NoError(err)
	s.True(ok)

	slots, err := s.svc.BookedTimes(s.ctx, courtID, s.date)
	s.Require().NoError(err)
	s.Require().Len(slots, 1)
	s.Equal("10:00", slots[0].StartTime.Short())

	free, err := s.svc.FreeIntervals(s.ctx, courtID, s.date)
	s.Require().NoError(err)
	s.Equal([]booking.Interval{
		{Start: daytime.MustParse("08:00"), End: daytime.MustParse("10:00")},
		{Start: daytime.MustParse("11:00"), End: daytime.MustParse("20:00")},
	}, free)

	// Today hides the hours already gone.
	today, _ := daytime.ParseDate("2026-03-13")
	free, err = s.svc.FreeIntervals(s.ctx, courtID, today)
	s.Require().NoError(err)
	s.Equal(daytime.MustParse("09:01"), free[0].Start)
}

func (s *ServiceSuite) TestSettlePaymentIsIdempotent() {
	b := s.book("10:00", "11:00", booking.PaymentGateway)

	settled, applied, err := s.svc.SettlePayment(s.ctx, b.TransactionUUID)
	s.Require().NoError(err)
	s.True(applied)
	s.Equal(booking.StatusConfirmed, settled.Status)
	s.Equal(booking.PaymentPaid, settled.PaymentStatus)

	replay, applied, err := s.svc.SettlePayment(s.ctx, b.TransactionUUID)
	s.Require().NoError(err)
	s.False(applied)
	s.Equal(booking.StatusConfirmed, replay.Status)

	confirmed, _, _ := s.notifier.Counts()
	s.Equal(1, confirmed)

	// A paid booking is never cancelled by a late failure callback.
	_, _, err = s.svc.FailPayment(s.ctx, b.TransactionUUID)
	s.ErrorIs(err, booking.ErrNotAwaitingPayment)
	s.Equal(apperror.KindNotFound, kindOf(s.T(), err))
}

func (s *ServiceSuite) TestFailPayment() {
	b := s.book("10:00", "11:00", booking.PaymentGateway)

	failed, applied, err := s.svc.FailPayment(s.ctx, b.TransactionUUID)
	s.Require().NoError(err)
	s.True(applied)
	s.Equal(booking.StatusCancelled, failed.Status)
	s.Equal(booking.PaymentFailed, failed.PaymentStatus)

	_, applied, err = s.svc.FailPayment(s.ctx, b.TransactionUUID)
	s.Require().NoError(err)
	s.False(applied)

	// Success after the booking was cancelled matches nothing.
	_, _, err = s.svc.SettlePayment(s.ctx, b.TransactionUUID)
	s.ErrorIs(err, booking.ErrNotAwaitingPayment)

	_, _, err = s.svc.SettlePayment(s.ctx, "00000000-0000-0000-0000-000000000000")
	s.ErrorIs(err, booking.ErrNotFound)
}

func (s *ServiceSuite) TestUserCancelRacesCallback() {
	b := s.book("10:00", "11:00", booking.PaymentGateway)

	_, err := s.svc.Cancel(s.ctx, player, b.ID)
	s.Require().NoError(err)

	_, _, err = s.svc.SettlePayment(s.ctx, b.TransactionUUID)
	s.ErrorIs(err, booking.ErrNotAwaitingPayment)

	got, err := s.repo.GetByID(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(booking.StatusCancelled, got.Status)
	s.Equal(booking.PaymentPending, got.PaymentStatus)
}

func TestConcurrentCreateHasOneWinner(t *testing.T) {
	loc := time.UTC
	open, closeAt := daytime.MustParse("08:00"), daytime.MustParse("20:00")
	courts := bookingtest.Courts{courtID: {
		ID: courtID, VendorID: owner.UserID, Price: 100000,
		OpeningTime: &open, ClosingTime: &closeAt, Status: court.StatusActive,
	}}
	svc := booking.NewService(bookingtest.NewMemoryRepository(), courts, nil,
		clock.NewMockClock(time.Date(2026, 3, 13, 9, 0, 0, 0, loc)), booking.Policy{Location: loc, Cutoff: 2 * time.Hour})
	date, _ := daytime.ParseDate("2026-03-14")

	const n = 24
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Every request overlaps 10:30-11:00.
			start := daytime.MustParse("10:00") + daytime.Time((i%3)*15*60)
			_, err := svc.Create(context.Background(), auth.Identity{UserID: "u", Role: auth.RoleUser}, booking.CreateRequest{
				CourtID: courtID, Date: date, StartTime: start, EndTime: start + 3600, PaymentMethod: booking.PaymentCash,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, booking.ErrTimeConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
}
