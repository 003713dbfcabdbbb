package main

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/christkv/copernicus/internal/app"
	"github.com/christkv/copernicus/internal/clock"
	storage "github.com/christkv/copernicus/internal/storage/mongo"
	transporthttp "github.com/christkv/copernicus/internal/transport/http"
)

const (
	defaultPort          = "8080"
	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDB       = "copernicus"
	defaultCORSOrigins   = "http://localhost:5173,http://127.0.0.1:5173"
	defaultCartTTL       = 15 * time.Minute
	defaultSweepInterval = time.Minute
	shutdownTimeout      = 10 * time.Second
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	loadEnvFile(logger)

	port := os.Getenv("PORT")
	if port == "" {
		logger.Warn("PORT not set, using default", zap.String("port", defaultPort))
		port = defaultPort
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		logger.Warn("MONGO_URI not set, using default local URI")
		mongoURI = defaultMongoURI
	}

	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = defaultMongoDB
	}

	corsEnv := os.Getenv("CORS_ORIGINS")
	if corsEnv == "" {
		logger.Warn("CORS_ORIGINS not set, using default local origins")
		corsEnv = defaultCORSOrigins
	}

	cartTTL := durationEnv(logger, "CART_TTL", defaultCartTTL)
	sweepInterval := durationEnv(logger, "SWEEP_INTERVAL", defaultSweepInterval)

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, disconnect, err := storage.Connect(startupCtx, mongoURI, mongoDB)
	if err != nil {
		logger.Fatal("connect to mongo", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = disconnect(ctx)
	}()

	if err := storage.EnsureIndexes(startupCtx, db); err != nil {
		logger.Fatal("ensure indexes", zap.Error(err))
	}

	clk := clock.NewSystem()

	ledgerRepo := storage.NewLedgerRepository(db)
	transferSvc := app.NewTransferService(ledgerRepo, clk)

	inventoryRepo := storage.NewInventoryRepository(db, clk)
	sessionRepo := storage.NewSessionRepository(db, clk)
	cartRepo := storage.NewCartRepository(db)
	orderRepo := storage.NewOrderRepository(db)

	shopCoord := app.NewReserveCoordinator(inventoryRepo, logger)
	shopCarts := app.NewCartService(cartRepo, orderRepo, inventoryRepo, shopCoord, clk)

	seatCoord := app.NewReserveCoordinator(sessionRepo, logger)
	seatCarts := app.NewCartService(cartRepo, orderRepo, sessionRepo, seatCoord, clk)

	catalogSvc := app.NewCatalogService(inventoryRepo)
	bookingSvc := app.NewBookingService(sessionRepo, seatCarts, clk)

	sweeper := app.NewSweeper(cartRepo, []app.ResourceStore{inventoryRepo, sessionRepo}, clk,
		app.WithCartTTL(cartTTL),
		app.WithLogger(logger),
	)

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Transfers:   transferSvc,
		Accounts:    transferSvc,
		Carts:       shopCarts,
		Bookings:    bookingSvc,
		Catalog:     catalogSvc,
		Theaters:    bookingSvc,
		Sweeper:     sweeper,
		CORSOrigins: parseCSV(corsEnv),
		Logger:      logger,
	})

	server := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	logger.Info("api listening", zap.String("port", port))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runSweeper(stopCtx, sweeper, sweepInterval, logger)

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func runSweeper(ctx context.Context, sweeper *app.Sweeper, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := sweeper.Sweep(ctx)
			if err != nil {
				logger.Error("sweep failed", zap.Error(err))
				continue
			}
			if released > 0 {
				logger.Info("sweep released holds", zap.Int("released", released))
			}
		}
	}
}

func durationEnv(logger *zap.Logger, key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Warn("invalid duration, using default",
			zap.String("key", key),
			zap.String("value", raw),
			zap.Duration("default", fallback),
		)
		return fallback
	}
	return d
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func loadEnvFile(logger *zap.Logger) {
	path, err := findEnvFile()
	if err != nil {
		logger.Warn("failed to locate .env", zap.Error(err))
		return
	}
	if path == "" {
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Warn("failed to open env file", zap.String("path", path), zap.Error(err))
		return
	}
	if err := parseEnvFile(file); err != nil {
		logger.Warn("failed to load env file", zap.String("path", path), zap.Error(err))
	} else {
		logger.Info("loaded env file", zap.String("path", path))
	}
	_ = file.Close()
}

func findEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

func parseEnvFile(file *os.File) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = trimQuotes(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') ||
		(value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
