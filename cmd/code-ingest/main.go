// Command code-ingest bulk-loads discount codes from gzip-compressed text
// files (one code per line) and attaches them to an existing promotion. Codes
// are de-duplicated with a bloom filter before hitting the database, so
// multi-gigabyte code dumps ingest without holding every code in memory.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/retailpos/promo-engine/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	minCodeLen    = 3
	maxCodeLen    = 64
	batchSize     = 1000
)

func main() {
	var (
		databaseURL string
		promotionID string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&promotionID, "promotion-id", "", "promotion to attach the codes to")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if promotionID == "" {
		slog.Error("promotion id is required: set --promotion-id")
		os.Exit(1)
	}
	files := flag.Args()
	if len(files) == 0 {
		slog.Error("at least one codes file (.gz) is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, promotionID, files); err != nil {
		slog.Error("code ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("code ingest completed successfully")
}

func run(ctx context.Context, databaseURL, promotionID string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := checkPromotion(ctx, pool, promotionID); err != nil {
		return err
	}

	// Readers stream files concurrently; one writer owns the bloom filter
	// and the database batches, so no locking is needed around either.
	codes := make(chan string, 4*batchSize)

	g, ctx := errgroup.WithContext(ctx)
	readers, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		readers.Go(readCodesFile(ctx, f, codes))
	}
	g.Go(func() error {
		defer close(codes)
		return readers.Wait()
	})
	g.Go(func() error {
		return writeCodes(ctx, pool, promotionID, codes)
	})

	return g.Wait()
}

func checkPromotion(ctx context.Context, pool *pgxpool.Pool, id string) error {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM promotions WHERE id = $1 AND deleted_at IS NULL)`, id,
	).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "check promotion")
	}
	if !exists {
		return errors.Errorf("promotion %q not found", id)
	}
	return nil
}

func readCodesFile(ctx context.Context, path string, out chan<- string) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			code := strings.ToUpper(strings.TrimSpace(scanner.Text()))
			if len(code) < minCodeLen || len(code) > maxCodeLen {
				continue
			}
			select {
			case out <- code:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}
		return nil
	}
}

func writeCodes(ctx context.Context, pool *pgxpool.Pool, promotionID string, codes <-chan string) error {
	const insertSQL = `INSERT INTO discount_codes (id, promotion_id, code)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`

	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	batch := &pgx.Batch{}
	var total uint64

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "insert code batch")
		}
		batch = &pgx.Batch{}
		return nil
	}

	for code := range codes {
		if filter.TestAndAddString(code) {
			continue
		}
		batch.Queue(insertSQL, uuid.New().String(), promotionID, code)
		total++
		if total%progressEvery == 0 {
			slog.Info("ingest progress", slog.Uint64("codes", total))
		}
		if batch.Len() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	slog.Info("codes written", slog.Uint64("unique", total))
	return nil
}
