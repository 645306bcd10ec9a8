package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/niksmo/levelup-shop/config"
	"github.com/niksmo/levelup-shop/internal/adapter/httphandler"
	"github.com/niksmo/levelup-shop/internal/adapter/kafka"
	"github.com/niksmo/levelup-shop/internal/adapter/storage"
	"github.com/niksmo/levelup-shop/internal/core/port"
	"github.com/niksmo/levelup-shop/internal/core/service"
	"github.com/niksmo/levelup-shop/internal/core/session"
	"github.com/niksmo/levelup-shop/pkg/schema"
	"github.com/twmb/franz-go/pkg/sr"
)

type App struct {
	ctx        context.Context
	cfg        config.Config
	sqldb      storage.SQLDB
	events     port.CartEventsProducer
	cart       *service.CartService
	catalog    service.CatalogService
	session    *session.Session
	httpServer httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initStorage()
	app.initEventsProducer()
	app.initCoreServices()
	app.initHTTPServer()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initStorage() {
	const op = "App.initStorage"

	sqldb, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}
	app.sqldb = sqldb
}

func (app *App) initEventsProducer() {
	const op = "App.initEventsProducer"

	if len(app.cfg.Broker.SeedBrokers) == 0 {
		slog.Info("no seed brokers configured, cart events are disabled")
		return
	}

	srClient, err := sr.NewClient(
		sr.URLs(app.cfg.Broker.SchemaRegistryURLs...),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	subject := app.cfg.Broker.Topics.CartEvents + "-value"
	serde, err := schema.NewSerdeCartEventV1(
		app.ctx,
		schema.SubjectOpt(subject),
		schema.SchemaIdentifierOpt(schema.NewSchemaCreater(srClient)),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	producer, err := kafka.NewCartEventsProducer(
		kafka.ProducerClientOpt(
			app.ctx, app.cfg.Broker.SeedBrokers, app.cfg.Broker.Topics.CartEvents,
		),
		kafka.ProducerEncoderOpt(serde),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.events = producer
}

func (app *App) initCoreServices() {
	const op = "App.initCoreServices"

	cartRepo := storage.NewCartRepository(app.sqldb)
	productsRepo := storage.NewProductsRepository(app.sqldb)

	if app.cfg.SeedDemoData {
		seeder := storage.NewSeeder(app.sqldb, productsRepo)
		if err := seeder.EnsureSeedData(app.ctx); err != nil {
			app.fallDown(op, err)
		}
	}

	app.cart = service.NewCart(cartRepo, app.events)
	app.catalog = service.NewCatalog(productsRepo)
	app.session = session.New()
}

func (app *App) initHTTPServer() {
	mux := http.NewServeMux()
	httphandler.RegisterCart(mux, app.cart, app.catalog, app.session)
	httphandler.RegisterCatalog(mux, app.catalog)

	handler := httphandler.AllowJSON(mux)
	app.httpServer = httphandler.NewHTTPServer(app.cfg.HTTPServerAddr, handler)
}

func (app *App) Run(stopFn context.CancelFunc) {
	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	app.cart.Close()
	if app.events != nil {
		app.events.Close()
	}
	app.sqldb.Close()

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
