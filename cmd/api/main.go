package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/shopflow/storefront/internal/auth"
	"github.com/shopflow/storefront/internal/cart"
	"github.com/shopflow/storefront/internal/catalog"
	"github.com/shopflow/storefront/internal/checkout"
	"github.com/shopflow/storefront/internal/messaging"
	"github.com/shopflow/storefront/internal/orders"
	"github.com/shopflow/storefront/internal/postgres"
	"github.com/shopflow/storefront/internal/reviews"
	"github.com/shopflow/storefront/internal/telemetry"
)

const (
	serviceName    = "storefront-api"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var placedProducer, cancelledProducer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		placedProducer = messaging.NewProducer(brokers, messaging.TopicOrderPlaced)
		defer func() { _ = placedProducer.Close() }()
		cancelledProducer = messaging.NewProducer(brokers, messaging.TopicOrderCancelled)
		defer func() { _ = cancelledProducer.Close() }()
	}

	st := postgres.NewStore(db)

	issuer := auth.NewTokenIssuer([]byte(jwtSecret), 24*time.Hour)
	mw := auth.NewMiddleware(issuer)

	authHandler := auth.NewHandler(st, issuer, logger)
	catalogHandler := catalog.NewHandler(st, logger)
	cartHandler := cart.NewHandler(st, logger)
	reviewsHandler := reviews.NewHandler(st, logger)
	// Assign through locals so an unset producer stays a nil interface in
	// the handlers.
	var placedPublisher checkout.Publisher
	if placedProducer != nil {
		placedPublisher = placedProducer
	}
	var cancelledPublisher orders.Publisher
	if cancelledProducer != nil {
		cancelledPublisher = cancelledProducer
	}

	checkoutHandler := checkout.NewHandler(checkout.NewService(st, logger), placedPublisher, logger)
	ordersHandler := orders.NewHandler(orders.NewService(st, logger), cancelledPublisher, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", route(authHandler.HandleRegister))
	mux.HandleFunc("POST /auth/login", route(authHandler.HandleLogin))

	mux.HandleFunc("GET /products", route(catalogHandler.HandleList))
	mux.HandleFunc("GET /products/{productId}", route(catalogHandler.HandleGet))
	mux.HandleFunc("POST /products", route(mw.RequireAdmin(catalogHandler.HandleCreate)))
	mux.HandleFunc("PUT /products/{productId}", route(mw.RequireAdmin(catalogHandler.HandleUpdate)))
	mux.HandleFunc("DELETE /products/{productId}", route(mw.RequireAdmin(catalogHandler.HandleDelete)))

	mux.HandleFunc("GET /products/{productId}/reviews", route(reviewsHandler.HandleListByProduct))
	mux.HandleFunc("POST /products/{productId}/reviews", route(mw.RequireUser(reviewsHandler.HandleCreate)))

	mux.HandleFunc("GET /cart", route(mw.RequireUser(cartHandler.HandleGet)))
	mux.HandleFunc("POST /cart/items", route(mw.RequireUser(cartHandler.HandleSetItem)))
	mux.HandleFunc("DELETE /cart/items/{productId}", route(mw.RequireUser(cartHandler.HandleRemoveItem)))

	mux.HandleFunc("POST /orders/createOrder", route(mw.RequireUser(checkoutHandler.HandleCreateOrder)))
	mux.HandleFunc("GET /orders/myOrder", route(mw.RequireUser(ordersHandler.HandleListMine)))
	mux.HandleFunc("GET /orders/myOrder/{orderId}", route(mw.RequireUser(ordersHandler.HandleGetMine)))
	mux.HandleFunc("GET /orders/getOrders", route(mw.RequireAdmin(ordersHandler.HandleList)))
	mux.HandleFunc("GET /orders/{orderId}", route(mw.RequireAdmin(ordersHandler.HandleGet)))
	mux.HandleFunc("PATCH /orders/{orderId}/status", route(mw.RequireAdmin(ordersHandler.HandleUpdateStatus)))

	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting storefront api", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func route(h http.HandlerFunc) http.HandlerFunc {
	return telemetry.WithHTTPRoute(h)
}
