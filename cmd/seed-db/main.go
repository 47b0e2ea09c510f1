// Command seed-db populates a fresh database with a demo catalog: a small
// category tree, product types with specifications, and a handful of
// products. Existing rows are left alone, so re-running is safe.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/category"
	"storefront/internal/storage/postgres"
)

func main() {
	var databaseURL string

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

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
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

	categories := postgres.NewCategoryRepository(pool)
	types := postgres.NewTypeRepository(pool)
	products := postgres.NewProductRepository(pool)

	categoryIDs, err := seedCategories(ctx, categories)
	if err != nil {
		return errors.Wrap(err, "seed categories")
	}
	typeID, err := seedTypes(ctx, types)
	if err != nil {
		return errors.Wrap(err, "seed product types")
	}
	if err := seedProducts(ctx, products, categoryIDs, typeID); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

type seedCategory struct {
	name     string
	slug     string
	children []seedCategory
}

var categoryTree = []seedCategory{
	{name: "Electronics", slug: "electronics", children: []seedCategory{
		{name: "Phones", slug: "phones"},
		{name: "Laptops", slug: "laptops"},
		{name: "Audio", slug: "audio", children: []seedCategory{
			{name: "Headphones", slug: "headphones"},
			{name: "Speakers", slug: "speakers"},
		}},
	}},
	{name: "Sports", slug: "sports", children: []seedCategory{
		{name: "Running", slug: "running"},
		{name: "E Bikes", slug: "e_bikes"},
		{name: "Exbike Gear", slug: "exbikes"},
	}},
}

func seedCategories(ctx context.Context, repo *postgres.CategoryRepository) (map[string]string, error) {
	ids := make(map[string]string)

	var insert func(nodes []seedCategory, parentID string) error
	insert = func(nodes []seedCategory, parentID string) error {
		for _, node := range nodes {
			c := &category.Category{
				ID:       uuid.New().String(),
				Name:     node.name,
				Slug:     node.slug,
				ParentID: parentID,
				IsActive: true,
			}
			err := repo.Create(ctx, c)
			switch {
			case err == nil:
				slog.Info("created category", slog.String("slug", c.Slug), slog.String("path", c.Path))
			case errors.Is(err, category.ErrExists):
				slog.Info("category exists, skipping", slog.String("slug", node.slug))
			default:
				return errors.Wrapf(err, "create category %s", node.slug)
			}
			ids[node.slug] = c.ID
			if err := insert(node.children, c.ID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(categoryTree, ""); err != nil {
		return nil, err
	}
	return ids, nil
}

func seedTypes(ctx context.Context, repo *postgres.TypeRepository) (string, error) {
	t := &catalog.ProductType{
		ID:       uuid.New().String(),
		Name:     "consumer-electronics",
		IsActive: true,
	}
	err := repo.CreateType(ctx, t)
	switch {
	case err == nil:
		slog.Info("created product type", slog.String("name", t.Name))
	case errors.Is(err, catalog.ErrNameTaken):
		slog.Info("product type exists, skipping", slog.String("name", t.Name))
		existing, err := repo.ListTypes(ctx)
		if err != nil {
			return "", errors.Wrap(err, "list product types")
		}
		for _, e := range existing {
			if e.Name == t.Name {
				return e.ID, nil
			}
		}
		return "", errors.Errorf("product type %s taken but not listed", t.Name)
	default:
		return "", errors.Wrap(err, "create product type")
	}

	for _, name := range []string{"color", "weight", "warranty"} {
		s := &catalog.Specification{
			ID:            uuid.New().String(),
			ProductTypeID: t.ID,
			Name:          name,
		}
		if err := repo.CreateSpecification(ctx, s); err != nil {
			return "", errors.Wrapf(err, "create specification %s", name)
		}
	}
	return t.ID, nil
}

type seedProduct struct {
	title        string
	brand        string
	slug         string
	categorySlug string
	regular      string
	discount     string
	stock        int
	image        string
	inactive     bool
}

var demoProducts = []seedProduct{
	{
		title: "Nimbus X1 Phone", brand: "Nimbus", slug: "nimbus-x1-phone",
		categorySlug: "phones", regular: "899.00", discount: "799.00",
		stock: 25, image: "images/nimbus-x1.png",
	},
	{
		title: "Stratus Pro Laptop", brand: "Stratus", slug: "stratus-pro-laptop",
		categorySlug: "laptops", regular: "1499.00", discount: "1349.00",
		stock: 10, image: "images/stratus-pro.png",
	},
	{
		title: "Echo Buds", brand: "Acme Audio", slug: "echo-buds",
		categorySlug: "headphones", regular: "199.00", discount: "149.00",
		stock: 60, image: "images/echo-buds.png",
	},
	{
		title: "Trail Runner Shoes", brand: "Fleet", slug: "trail-runner-shoes",
		categorySlug: "running", regular: "129.00", discount: "99.00",
		stock: 40, image: "images/trail-runner.png",
	},
	// Not yet published: kept out of the active listing but present in
	// category browsing.
	{
		title: "City Cruiser E-Bike", brand: "Volt", slug: "city-cruiser-ebike",
		categorySlug: "exbikes", regular: "1999.00", discount: "1799.00",
		stock: 5, image: "images/city-cruiser.png", inactive: true,
	},
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, categoryIDs map[string]string, typeID string) error {
	for _, sp := range demoProducts {
		categoryID, ok := categoryIDs[sp.categorySlug]
		if !ok {
			return errors.Errorf("unknown category slug %s", sp.categorySlug)
		}

		p := &catalog.Product{
			ID:            uuid.New().String(),
			ProductTypeID: typeID,
			CategoryID:    categoryID,
			CreatedBy:     "seed",
			Title:         sp.title,
			Brand:         sp.brand,
			Description:   sp.title + " by " + sp.brand,
			Slug:          sp.slug,
			RegularPrice:  decimal.RequireFromString(sp.regular),
			DiscountPrice: decimal.RequireFromString(sp.discount),
			CountInStock:  sp.stock,
			InStock:       sp.stock > 0,
			IsActive:      !sp.inactive,
			Images: []catalog.Image{{
				ID:        uuid.New().String(),
				Image:     sp.image,
				AltText:   sp.title,
				IsFeature: true,
			}},
		}
		err := repo.Create(ctx, p)
		switch {
		case err == nil:
			slog.Info("created product", slog.String("slug", p.Slug))
		case errors.Is(err, catalog.ErrSlugTaken):
			slog.Info("product exists, skipping", slog.String("slug", p.Slug))
		default:
			return errors.Wrapf(err, "create product %s", p.Slug)
		}
	}
	return nil
}
