package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/futsal-booking-backend/internal/api"
	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
	"github.com/nekogravitycat/futsal-booking-backend/internal/config"
	"github.com/nekogravitycat/futsal-booking-backend/internal/court"
	"github.com/nekogravitycat/futsal-booking-backend/internal/notification"
	"github.com/nekogravitycat/futsal-booking-backend/internal/payment"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/storage"
	"github.com/nekogravitycat/futsal-booking-backend/internal/reminder"
	"github.com/nekogravitycat/futsal-booking-backend/internal/user"
)

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
	Reminders  *reminder.Scheduler
	Clock      clock.Clock

	dispatcher *notification.Dispatcher
	closers    []io.Closer
}

// NewSender builds the notification channels enabled in cfg.
// The returned closers must be closed on shutdown.
func NewSender(cfg config.NotifyConfig) (notification.Sender, []io.Closer, error) {
	var senders notification.MultiSender
	var closers []io.Closer

	if cfg.ExpoEnabled {
		senders = append(senders, notification.NewExpoSender())
	}
	if cfg.SMTPHost != "" {
		senders = append(senders, notification.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom))
	}
	if cfg.AMQPURL != "" {
		pub, err := notification.NewEventPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, errors.Wrap(err, "event publisher")
		}
		senders = append(senders, pub)
		closers = append(closers, pub)
	}

	if len(senders) == 0 {
		slog.Warn("no notification channel configured; notifications are discarded")
	}
	return senders, closers, nil
}

// NewReminderScheduler wires the sweep against the database and sender.
func NewReminderScheduler(cfg *config.Config, pool *pgxpool.Pool, sender notification.Sender) *reminder.Scheduler {
	return reminder.NewScheduler(
		reminder.NewPgxRepository(pool),
		sender,
		reminder.NewPgLocker(pool, cfg.Reminder.LockKey),
		cfg.Location(),
		cfg.Reminder.SendTimeout,
	)
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg *config.Config, pool *pgxpool.Pool) (*Container, error) {
	clk := clock.NewRealClock()

	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.JWT.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	store, err := storage.NewDisk(cfg.Storage.Path)
	if err != nil {
		return nil, errors.Wrap(err, "file storage")
	}

	sender, closers, err := NewSender(cfg.Notify)
	if err != nil {
		return nil, err
	}
	dispatcher := notification.NewDispatcher(cfg.Notify.Workers, cfg.Notify.QueueSize, cfg.Reminder.SendTimeout)

	// User Module
	userRepo := user.NewPgxRepository(pool)
	userService := user.NewService(userRepo, passwordHasher)

	// Court Module
	courtRepo := court.NewPgxRepository(pool)
	courtService := court.NewService(courtRepo, store, storage.NewImageProcessor())

	// Booking Module
	bookingRepo := booking.NewPgxRepository(pool)
	bookingService := booking.NewService(
		bookingRepo,
		courtService,
		notification.NewBookingNotifier(dispatcher, userService, sender),
		clk,
		booking.Policy{Location: cfg.Location(), Cutoff: cfg.App.BookingCutoff},
	)

	// Payment Module
	signer := payment.NewSigner(payment.GatewayConfig{
		SecretKey:        cfg.Gateway.SecretKey,
		MerchantCode:     cfg.Gateway.MerchantCode,
		FormURL:          cfg.Gateway.FormURL,
		SuccessURL:       cfg.Gateway.SuccessURL,
		FailureURL:       cfg.Gateway.FailureURL,
		RequireSignature: cfg.Gateway.RequireSignature,
	})
	engine := payment.NewEngine(bookingService, signer)

	router := api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction(),
		ProdOrigins:    cfg.CORS.ProdOrigins,
		DevOrigins:     cfg.CORS.DevOrigins,
		UserService:    userService,
		CourtService:   courtService,
		BookingService: bookingService,
		PaymentEngine:  engine,
		Signer:         signer,
		JWTManager:     jwtManager,
	})

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
		Reminders:  NewReminderScheduler(cfg, pool, sender),
		Clock:      clk,
		dispatcher: dispatcher,
		closers:    closers,
	}, nil
}

// Close drains queued notifications and releases outbound connections.
func (c *Container) Close(ctx context.Context) error {
	err := c.dispatcher.Close(ctx)
	for _, cl := range c.closers {
		err = errors.CombineErrors(err, cl.Close())
	}
	return err
}
