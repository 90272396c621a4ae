// Command seed-db provisions a demo store, catalog, promotions and an admin
// API key for local development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/retailpos/promo-engine/internal/handler"
	"github.com/retailpos/promo-engine/internal/storage/postgres"
)

type productJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"categoryId"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PROMO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PROMO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PROMO_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PROMO_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PROMO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

const demoStoreID = "store-demo"

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedStore(ctx, pool); err != nil {
		return errors.Wrap(err, "seed store")
	}
	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedPromotions(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promotions")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedStore(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `INSERT INTO stores (id, name, timezone)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, timezone = EXCLUDED.timezone`,
		demoStoreID, "Demo Store", "America/New_York")
	if err != nil {
		return err
	}
	slog.Info("upserted store", slog.String("id", demoStoreID))
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		_, err := pool.Exec(ctx, `INSERT INTO products (id, store_id, name, price, category_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, price = EXCLUDED.price, category_id = EXCLUDED.category_id`,
			p.ID, demoStoreID, p.Name, p.Price, p.CategoryID)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

type seedPromotion struct {
	id   string
	code string
	sql  string
	args []any
}

func seedPromotions(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo promotions")

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -1)
	end := now.AddDate(0, 3, 0)

	promos := []seedPromotion{
		{
			id:   "promo-welcome",
			code: "WELCOME10",
			sql: `INSERT INTO promotions (id, store_id, name, description, type,
					discount_value, start_date, end_date, customer_usage_limit)
				VALUES ($1, $2, $3, $4, 'percentage', $5, $6, $7, 1)
				ON CONFLICT (id) DO NOTHING`,
			args: []any{
				"promo-welcome", demoStoreID, "Welcome 10%", "10% off your first order",
				decimal.NewFromInt(10), start, end,
			},
		},
		{
			id:   "promo-happyhour",
			code: "HAPPYHOUR",
			sql: `INSERT INTO promotions (id, store_id, name, description, type,
					discount_value, start_date, end_date, customer_usage_limit,
					schedule_kind, active_time_start, active_time_end)
				VALUES ($1, $2, $3, $4, 'time_based', $5, $6, $7, 0,
					'daily', '16:00:00', '18:00:00')
				ON CONFLICT (id) DO NOTHING`,
			args: []any{
				"promo-happyhour", demoStoreID, "Happy Hour", "15% off between 4pm and 6pm",
				decimal.NewFromInt(15), start, end,
			},
		},
		{
			id:   "promo-bogo",
			code: "BUYGETONE",
			sql: `INSERT INTO promotions (id, store_id, name, description, type,
					start_date, end_date, customer_usage_limit,
					buy_quantity, get_quantity, get_discount_type)
				VALUES ($1, $2, $3, $4, 'buy_x_get_y', $5, $6, 0, 1, 1, 'free')
				ON CONFLICT (id) DO NOTHING`,
			args: []any{
				"promo-bogo", demoStoreID, "Buy One Get One", "cheapest qualifying item free",
				start, end,
			},
		},
	}

	for _, p := range promos {
		if _, err := pool.Exec(ctx, p.sql, p.args...); err != nil {
			return errors.Wrapf(err, "upsert promotion %s", p.id)
		}
		_, err := pool.Exec(ctx, `INSERT INTO discount_codes (id, promotion_id, code)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING`,
			"code-"+p.id, p.id, p.code)
		if err != nil {
			return errors.Wrapf(err, "upsert code %s", p.code)
		}
		slog.Info("upserted promotion", slog.String("id", p.id), slog.String("code", p.code))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	keyHash := handler.HashAPIKey(apiKey, pepper)

	_, err := pool.Exec(ctx, `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash`,
		"default", keyHash, "Default admin key", []string{"admin"})
	if err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default admin key"))

	return nil
}
