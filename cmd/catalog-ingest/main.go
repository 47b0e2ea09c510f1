// Command catalog-ingest loads gzipped JSONL product feed shards into the
// catalog. Supplier exports overlap: the same product can appear in several
// shards, so slugs seen in more than one shard are detected up front with
// per-shard bloom filters and written only once.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"storefront/internal/domain/catalog"
	"storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
)

// feedProduct is one line of a supplier feed shard.
type feedProduct struct {
	Title         string          `json:"title"`
	Brand         string          `json:"brand"`
	Description   string          `json:"description"`
	Slug          string          `json:"slug"`
	RegularPrice  decimal.Decimal `json:"regular_price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	CountInStock  int             `json:"count_in_stock"`
	Category      string          `json:"category"`
	ProductType   string          `json:"product_type"`
	Image         string          `json:"image"`
}

func main() {
	var (
		dataDir     string
		numShards   int
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing feedN.jsonl.gz shards")
	flag.IntVar(&numShards, "shards", 3, "number of feed shards")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, numShards, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir string, numShards int, databaseURL string) error {
	files := make([]string, numShards)
	for i := range numShards {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("feed%d.jsonl.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: one bloom filter of slugs per shard, built concurrently.
	slog.Info("pass 1: building slug filters", slog.Int("shards", numShards))

	filters, err := buildSlugFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build slug filters")
	}

	// Pass 2: slugs that probably appear in more than one shard. Bloom hits
	// can be false positives; the write pass resolves them exactly.
	slog.Info("pass 2: finding cross-shard slugs")

	shared, err := findSharedSlugs(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find shared slugs")
	}

	slog.Info("cross-shard slugs found", slog.Int("count", len(shared)))

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return writeProducts(ctx, pool, files, shared)
}

// buildSlugFilters creates one bloom filter per shard, concurrently.
func buildSlugFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForShard(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForShard(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamShard(ctx, path, func(p feedProduct) error {
			if p.Slug == "" {
				return nil
			}
			filter.AddString(p.Slug)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("shard", idx+1),
					slog.Uint64("products", count),
				)
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "build filter for shard %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("shard", idx+1),
			slog.Uint64("total_products", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findSharedSlugs re-streams each shard and tests slugs against the OTHER
// shards' bloom filters. Any hit marks the slug as potentially shared.
func findSharedSlugs(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	results := make([]map[string]struct{}, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findSharedInShard(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]struct{})
	for _, r := range results {
		for slug := range r {
			merged[slug] = struct{}{}
		}
	}
	return merged, nil
}

func findSharedInShard(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []map[string]struct{},
) func() error {
	return func() error {
		shared := make(map[string]struct{})

		if err := streamShard(ctx, path, func(p feedProduct) error {
			if p.Slug == "" {
				return nil
			}
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(p.Slug) {
					shared[p.Slug] = struct{}{}
					break
				}
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "scan shard %d for shared slugs", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("shard", idx+1),
			slog.Int("shared", len(shared)),
		)

		results[idx] = shared
		return nil
	}
}

// streamShard opens a gzip-compressed JSONL shard and calls fn per line.
func streamShard(ctx context.Context, path string, fn func(feedProduct) error) error {
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
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var p feedProduct
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			return errors.Wrapf(err, "parse line in %s", path)
		}
		if err := fn(p); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeProducts streams the shards a final time and inserts products.
// Shared slugs are tracked exactly: the first occurrence wins, later ones
// are skipped. Slugs already present in the catalog are skipped too.
func writeProducts(ctx context.Context, pool *pgxpool.Pool, files []string, shared map[string]struct{}) error {
	categories := postgres.NewCategoryRepository(pool)
	types := postgres.NewTypeRepository(pool)
	products := postgres.NewProductRepository(pool)

	all, err := categories.All(ctx)
	if err != nil {
		return errors.Wrap(err, "load categories")
	}
	categoryBySlug := make(map[string]string, len(all))
	for _, c := range all {
		categoryBySlug[c.Slug] = c.ID
	}

	typeList, err := types.ListTypes(ctx)
	if err != nil {
		return errors.Wrap(err, "load product types")
	}
	typeByName := make(map[string]string, len(typeList))
	for _, t := range typeList {
		typeByName[t.Name] = t.ID
	}

	written := make(map[string]struct{}, len(shared))
	var inserted, skipped uint64

	for i, path := range files {
		err := streamShard(ctx, path, func(fp feedProduct) error {
			if fp.Slug == "" {
				return nil
			}
			if _, isShared := shared[fp.Slug]; isShared {
				if _, done := written[fp.Slug]; done {
					skipped++
					return nil
				}
				written[fp.Slug] = struct{}{}
			}

			categoryID, ok := categoryBySlug[fp.Category]
			if !ok {
				return errors.Errorf("unknown category %q for product %q", fp.Category, fp.Slug)
			}
			typeID, ok := typeByName[fp.ProductType]
			if !ok {
				return errors.Errorf("unknown product type %q for product %q", fp.ProductType, fp.Slug)
			}

			p := &catalog.Product{
				ID:            uuid.New().String(),
				ProductTypeID: typeID,
				CategoryID:    categoryID,
				CreatedBy:     "ingest",
				Title:         fp.Title,
				Brand:         fp.Brand,
				Description:   fp.Description,
				Slug:          fp.Slug,
				RegularPrice:  fp.RegularPrice,
				DiscountPrice: fp.DiscountPrice,
				CountInStock:  fp.CountInStock,
				InStock:       fp.CountInStock > 0,
				IsActive:      true,
			}
			if fp.Image != "" {
				p.Images = []catalog.Image{{
					Image:     fp.Image,
					AltText:   fp.Title,
					IsFeature: true,
				}}
			}

			err := products.Create(ctx, p)
			switch {
			case err == nil:
				inserted++
				if inserted%progressEvery == 0 {
					slog.Info("write progress", slog.Uint64("inserted", inserted))
				}
			case errors.Is(err, catalog.ErrSlugTaken):
				skipped++
			default:
				return errors.Wrapf(err, "insert product %q", fp.Slug)
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "write shard %d", i+1)
		}
	}

	slog.Info("write complete",
		slog.Uint64("inserted", inserted),
		slog.Uint64("skipped", skipped),
	)
	return nil
}
