// Command catalog-ingest loads supplier product feeds into the catalog.
//
// Each feed is a gzip-compressed JSON Lines file of product records. Feeds
// are given in priority order: when the same product id appears in more
// than one feed, the record from the earliest feed wins.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/seoulglow/kbeauty-store/internal/domain/product"
	"github.com/seoulglow/kbeauty-store/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	batchSize     = 500
	maxLineBytes  = 1 << 20
)

// feed holds the parsed records of one file and the ids that may also be
// present in an earlier feed.
type feed struct {
	path       string
	records    []product.Product
	candidates map[string]struct{}
	invalid    int
}

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		dryRun      bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing product feeds")
	flag.StringVar(&pattern, "pattern", "*.jsonl.gz", "feed file glob, matched files are ingested in name order")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and deduplicate feeds without writing")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, filepath.Join(dataDir, pattern), databaseURL, dryRun); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, glob, databaseURL string, dryRun bool) error {
	files, err := filepath.Glob(glob)
	if err != nil {
		return errors.Wrap(err, "match feeds")
	}
	if len(files) == 0 {
		return errors.Errorf("no feeds match %s", glob)
	}
	sort.Strings(files)

	// Pass 1: one bloom filter of product ids per feed.
	slog.Info("pass 1: indexing product ids", slog.Int("feeds", len(files)))
	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: parse and validate, flagging ids an earlier feed may hold.
	slog.Info("pass 2: parsing feeds")
	feeds, err := parseFeeds(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	products, dropped := dedupe(feeds)
	slog.Info("feeds merged",
		slog.Int("products", len(products)),
		slog.Int("duplicates", dropped),
	)

	if dryRun || len(products) == 0 {
		return nil
	}

	slog.Info("connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeProducts(ctx, repository.NewProductRepository(pool), products)
}

func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count int
			if err := streamFeed(ctx, path, func(r product.Record) {
				if r.ID != "" {
					filter.AddString(r.ID)
					count++
				}
			}); err != nil {
				return err
			}
			slog.Info("pass 1 complete", slog.String("feed", path), slog.Int("ids", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func parseFeeds(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]feed, error) {
	feeds := make([]feed, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			f := feed{path: path, candidates: make(map[string]struct{})}
			if err := streamFeed(ctx, path, func(r product.Record) {
				p := r.Product()
				if err := p.Validate(); err != nil {
					f.invalid++
					slog.Warn("skipping invalid record", slog.String("feed", path), slog.String("error", err.Error()))
					return
				}
				for _, earlier := range filters[:i] {
					if earlier.TestString(p.ID) {
						f.candidates[p.ID] = struct{}{}
						break
					}
				}
				f.records = append(f.records, p)
			}); err != nil {
				return err
			}
			slog.Info("pass 2 complete",
				slog.String("feed", path),
				slog.Int("records", len(f.records)),
				slog.Int("candidates", len(f.candidates)),
				slog.Int("invalid", f.invalid),
			)
			feeds[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return feeds, nil
}

// dedupe merges feeds in order. Bloom candidates are confirmed exactly
// before a record is dropped, so false positives never lose a product.
// Within one feed the last record for an id wins.
func dedupe(feeds []feed) (products []product.Product, dropped int) {
	suspects := make(map[string]struct{})
	for _, f := range feeds {
		for id := range f.candidates {
			suspects[id] = struct{}{}
		}
	}
	firstFeed := make(map[string]int, len(suspects))
	for i, f := range feeds {
		for _, p := range f.records {
			if _, ok := suspects[p.ID]; !ok {
				continue
			}
			if _, seen := firstFeed[p.ID]; !seen {
				firstFeed[p.ID] = i
			}
		}
	}

	index := make(map[string]int)
	for i, f := range feeds {
		for _, p := range f.records {
			if _, ok := f.candidates[p.ID]; ok && firstFeed[p.ID] < i {
				dropped++
				continue
			}
			if at, ok := index[p.ID]; ok {
				products[at] = p
				continue
			}
			index[p.ID] = len(products)
			products = append(products, p)
		}
	}
	return products, dropped
}

// streamFeed decodes every JSON line of a gzip-compressed feed. Lines that
// are not valid JSON are logged and skipped.
func streamFeed(ctx context.Context, path string, fn func(product.Record)) error {
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
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var r product.Record
		if err := json.Unmarshal(raw, &r); err != nil {
			slog.Warn("skipping malformed line",
				slog.String("feed", path),
				slog.Int("line", line),
				slog.String("error", err.Error()),
			)
			continue
		}
		fn(r)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// productWriter is the subset of the product repository used here.
type productWriter interface {
	Upsert(ctx context.Context, products []product.Product) error
}

func writeProducts(ctx context.Context, repo productWriter, products []product.Product) error {
	slog.Info("writing products to database", slog.Int("count", len(products)))

	for start := 0; start < len(products); start += batchSize {
		end := min(start+batchSize, len(products))
		if err := repo.Upsert(ctx, products[start:end]); err != nil {
			return errors.Wrapf(err, "upsert products %d-%d", start, end)
		}
		slog.Info("write progress", slog.Int("written", end), slog.Int("total", len(products)))
	}
	return nil
}
