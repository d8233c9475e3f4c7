package main

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"stayride/internal/app/commands"
	"stayride/internal/app/dto"
	availabilityapp "stayride/internal/app/handlers/availability"
	bookingapp "stayride/internal/app/handlers/booking"
	modificationapp "stayride/internal/app/handlers/modification"
	quotesapp "stayride/internal/app/handlers/quotes"
	"stayride/internal/app/handlers/support"
	"stayride/internal/app/middleware"
	"stayride/internal/app/outbox"
	"stayride/internal/app/policies"
	"stayride/internal/app/queries"
	"stayride/internal/app/schedule"
	"stayride/internal/app/uow"
	"stayride/internal/domain/cancellation"
	domainmodification "stayride/internal/domain/modification"
	domainpricing "stayride/internal/domain/pricing"
	"stayride/internal/infra/broker/kafka"
	rediscache "stayride/internal/infra/cache/redis"
	"stayride/internal/infra/config"
	mongostore "stayride/internal/infra/db/mongo"
	"stayride/internal/infra/db/postgres"
	ginserver "stayride/internal/infra/http/gin"
	infraoutbox "stayride/internal/infra/outbox"
	"stayride/internal/infra/storage/memory"
)

type application struct {
	handlers  ginserver.Handlers
	relay     *infraoutbox.Worker
	scheduler *schedule.Runner
	factory   uow.UoWFactory
	ready     func(ctx context.Context) error
	closers   []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// storage is what a driver contributes: units of work, the transactional
// outbox and the relay's view of it, and a readiness probe.
type storage struct {
	factory     uow.UoWFactory
	outbox      outbox.Outbox
	relay       infraoutbox.Store
	idempotency middleware.IdempotencyStore
	ready       func(ctx context.Context) error
	close       func()
}

func openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storage{}, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			_ = client.Close(context.Background())
			return storage{}, fmt.Errorf("mongo indexes: %w", err)
		}
		box := mongostore.NewOutboxStore(client.DB)
		return storage{
			factory:     mongostore.NewFactory(client.DB),
			outbox:      box,
			relay:       box,
			idempotency: mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL),
			ready:       client.Ping,
			close:       func() { _ = client.Close(context.Background()) },
		}, nil
	case config.StoragePostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return storage{}, fmt.Errorf("postgres connect: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return storage{}, fmt.Errorf("postgres migrate: %w", err)
		}
		box := postgres.OutboxStore{Pool: pool}
		return storage{
			factory:     postgres.Factory{Pool: pool},
			outbox:      box,
			relay:       box,
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			ready:       pool.Ping,
			close:       pool.Close,
		}, nil
	default:
		box := memory.NewOutbox()
		return storage{
			factory:     memory.Factory{Store: memory.NewStore(), Outbox: box},
			outbox:      box,
			relay:       box,
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			ready:       func(context.Context) error { return nil },
			close:       func() {},
		}, nil
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, store.close)
	app.factory = store.factory
	app.ready = store.ready

	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = rediscache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
		store.idempotency = rediscache.IdempotencyStore{Client: redisClient, TTL: cfg.IdempotencyTTL}
	}

	var producer infraoutbox.Producer = infraoutbox.LogProducer{Logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.closers = append(app.closers, func() { _ = kp.Close() })
		producer = kp
	}

	vouchers, err := loadVoucherFixtures(fixturePath(cfg.VouchersFixtures, "vouchers.json"), logger)
	if err != nil {
		logger.Warn("voucher fixtures load failed", "error", err)
		vouchers = memory.NewVoucherCatalogue()
	}
	payments := memory.NewLedger()

	commandBus, queryBus := registerHandlers(store, vouchers, payments, logger)
	logger.Debug("command handlers registered", "commands", commandBus.Keys())

	chained := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Authorization(middleware.ActorAuthorizer{}),
		middleware.Idempotency(store.idempotency, nil),
		middleware.OutboxFlush(store.outbox),
		middleware.Transaction(store.factory, nil),
	)
	asked := middleware.ChainQueries(
		queryBus,
		middleware.QueryValidation(middleware.SelfValidator{}),
		middleware.QueryAuthorization(middleware.ActorAuthorizer{}),
	)

	rateLimit, err := ginserver.NewRateLimiter(cfg.RateLimit, redisClient)
	if err != nil {
		app.close()
		return nil, err
	}

	app.handlers = ginserver.Handlers{
		Booking:      ginserver.BookingHandler{Commands: chained, Queries: asked},
		Modification: ginserver.ModificationHandler{Commands: chained},
		Availability: ginserver.AvailabilityHandler{Commands: chained, Queries: asked},
		Quote:        ginserver.QuoteHandler{Queries: asked},
		RateLimit:    rateLimit,
	}
	app.relay = &infraoutbox.Worker{
		Store:       store.relay,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger.With("component", "outbox"),
	}
	app.scheduler = &schedule.Runner{
		Bus:    chained,
		Logger: logger.With("component", "schedule"),
		Jobs: []schedule.Job{{
			Name:  "booking-sweep",
			Every: cfg.ExpiryInterval,
			Command: func() commands.Command {
				return bookingapp.SweepBookingsCommand{PendingTTL: cfg.PendingBookingTTL}
			},
		}},
	}
	return app, nil
}

func registerHandlers(store storage, vouchers policies.VoucherPort, payments policies.PaymentsPort, logger *slog.Logger) (*commands.InMemoryBus, *queries.InMemoryBus) {
	encoder := outbox.JSONEventEncoder{}
	clock := policies.SystemClock{}
	pricing := domainpricing.NewEngine(nil)
	pricer := support.Pricer{Engine: pricing, Vouchers: vouchers}
	workflow := domainmodification.NewWorkflow(pricing)
	cancellations := cancellation.NewEngine()

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.RequestBookingCommand, *dto.Booking](commandBus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		UoWFactory: store.factory, Pricer: pricer, Outbox: store.outbox, Encoder: encoder, Clock: clock, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.ConfirmBookingCommand, *dto.Booking](commandBus, bookingapp.ConfirmBookingCommand{}.Key(), &bookingapp.ConfirmBookingHandler{
		UoWFactory: store.factory, Payments: payments, Vouchers: vouchers, Outbox: store.outbox, Encoder: encoder, Clock: clock, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		UoWFactory: store.factory, Cancellation: cancellations, Payments: payments, Outbox: store.outbox, Encoder: encoder, Clock: clock, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.SweepBookingsCommand, *bookingapp.SweepBookingsResult](commandBus, bookingapp.SweepBookingsCommand{}.Key(), &bookingapp.SweepBookingsHandler{
		UoWFactory: store.factory, Outbox: store.outbox, Encoder: encoder, Clock: clock, Logger: logger,
	})
	commands.RegisterHandler[modificationapp.ProposeModificationCommand, *dto.ModificationOutcome](commandBus, modificationapp.ProposeModificationCommand{}.Key(), &modificationapp.ProposeModificationHandler{
		UoWFactory: store.factory, Workflow: workflow, Outbox: store.outbox, Encoder: encoder, Clock: clock, Logger: logger,
	})
	respond := &modificationapp.RespondHandler{
		UoWFactory: store.factory, Workflow: workflow, Payments: payments, Outbox: store.outbox, Encoder: encoder, Clock: clock, Logger: logger,
	}
	respond.Register(commandBus)
	calendar := &availabilityapp.CalendarHandler{
		UoWFactory: store.factory, Outbox: store.outbox, Encoder: encoder, Clock: clock, Logger: logger,
	}
	calendar.Register(commandBus)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[quotesapp.GetQuoteQuery, dto.Quote](queryBus, quotesapp.GetQuoteQuery{}.Key(), &quotesapp.GetQuoteHandler{
		UoWFactory: store.factory, Pricer: pricer, Clock: clock,
	})
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.Booking](queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: store.factory})
	queries.RegisterHandler[bookingapp.CancellationPreviewQuery, dto.CancellationPreview](queryBus, bookingapp.CancellationPreviewQuery{}.Key(), &bookingapp.CancellationPreviewHandler{
		UoWFactory: store.factory, Cancellation: cancellations, Clock: clock,
	})
	queries.RegisterHandler[availabilityapp.GetCalendarQuery, dto.Calendar](queryBus, availabilityapp.GetCalendarQuery{}.Key(), &availabilityapp.GetCalendarHandler{UoWFactory: store.factory})
	return commandBus, queryBus
}
