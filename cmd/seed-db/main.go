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
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/seoulglow/kbeauty-store/db"
	"github.com/seoulglow/kbeauty-store/internal/domain/auth"
	"github.com/seoulglow/kbeauty-store/internal/domain/money"
	"github.com/seoulglow/kbeauty-store/internal/domain/order"
	"github.com/seoulglow/kbeauty-store/internal/domain/product"
	"github.com/seoulglow/kbeauty-store/internal/repository"
)

// seedNamespace derives stable ids so repeated runs update the same rows.
var seedNamespace = uuid.MustParse("6f1c2b7e-0d4a-4c59-9a57-3d2f1f0c9e11")

var (
	adminUser = auth.User{
		ID:    "admin",
		Name:  "Store Admin",
		Email: "admin@seoulglow.shop",
		Role:  auth.RoleAdmin,
	}
	customerUser = auth.User{
		ID:    "customer",
		Name:  "Jiwoo Park",
		Email: "jiwoo@example.com",
		Role:  auth.RoleUser,
	}
)

func main() {
	var (
		databaseURL  string
		productsFile string
		jwtSecret    string
		tokenTTL     time.Duration
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file (default: embedded catalog)")
	flag.StringVar(&jwtSecret, "jwt-secret", "", "secret used to sign printed tokens (or GLOW_JWT_SECRET env)")
	flag.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of printed tokens")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if jwtSecret == "" {
		jwtSecret = os.Getenv("GLOW_JWT_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if jwtSecret != "" {
		if err := printTokens(auth.NewTokens([]byte(jwtSecret), tokenTTL)); err != nil {
			slog.Error("issue tokens", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products, err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}

	users := repository.NewUserRepository(pool)
	for _, u := range []auth.User{adminUser, customerUser} {
		if err := users.Upsert(ctx, u); err != nil {
			return errors.Wrap(err, "seed users")
		}
		slog.Info("upserted user", slog.String("id", u.ID), slog.String("role", string(u.Role)))
	}

	if err := seedOrder(ctx, pool, products); err != nil {
		return errors.Wrap(err, "seed order")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) ([]product.Product, error) {
	data := db.SeedProducts
	if productsFile != "" {
		slog.Info("reading products file", slog.String("path", productsFile))

		var err error
		if data, err = os.ReadFile(productsFile); err != nil {
			return nil, errors.Wrap(err, "read products file")
		}
	}

	var records []product.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	products := make([]product.Product, 0, len(records))
	for _, r := range records {
		p := r.Product()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	if err := repo.Upsert(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// seedOrder creates one pending order for the sample customer unless it
// already exists, so that status changes can be tried right away.
func seedOrder(ctx context.Context, pool *pgxpool.Pool, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}

	orders := repository.NewOrderRepository(pool)
	id := uuid.NewSHA1(seedNamespace, []byte("order:"+customerUser.ID)).String()

	_, err := orders.Get(ctx, id)
	switch {
	case err == nil:
		slog.Info("sample order already present", slog.String("id", id))
		return nil
	case !errors.Is(err, order.ErrNotFound):
		return err
	}

	o := &order.Order{
		ID:     id,
		UserID: customerUser.ID,
		Status: order.StatusPending,
		ShippingAddress: order.ShippingAddress{
			Name:       customerUser.Name,
			Line1:      "12 Itaewon-ro",
			City:       "Seoul",
			PostalCode: "04348",
			Country:    "KR",
		},
		StripeSessionID: "cs_test_" + id[:8],
	}

	total := decimal.Zero
	for i, p := range products[:min(2, len(products))] {
		qty := i + 1
		o.Items = append(o.Items, order.Item{
			ID:        uuid.NewSHA1(seedNamespace, []byte(id+":"+p.ID)).String(),
			ProductID: p.ID,
			Quantity:  qty,
			Price:     p.Price,
		})
		total = total.Add(money.Mul(p.Price, qty))
	}
	o.TotalAmount = total

	if err := orders.Create(ctx, o); err != nil {
		return err
	}

	slog.Info("created sample order",
		slog.String("id", id),
		slog.String("total", total.StringFixed(2)),
		slog.Int("items", len(o.Items)),
	)
	return nil
}

func printTokens(tokens *auth.Tokens) error {
	for _, u := range []auth.User{adminUser, customerUser} {
		token, err := tokens.Issue(auth.Session{UserID: u.ID, Role: u.Role})
		if err != nil {
			return err
		}
		slog.Info("bearer token", slog.String("user", u.ID), slog.String("token", token))
	}
	return nil
}
