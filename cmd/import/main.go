package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/Clark-Hu/dishrank/internal/dataset"
	"github.com/Clark-Hu/dishrank/internal/domain"
	"github.com/Clark-Hu/dishrank/internal/logging"
	"github.com/Clark-Hu/dishrank/internal/ranking"
	"github.com/Clark-Hu/dishrank/internal/repository"
	"github.com/Clark-Hu/dishrank/internal/store"
)

func main() {
	var (
		data     = flag.String("data", "dataset.json", "path to the dataset file")
		dbURL    = flag.String("db", "", "Postgres URL to import into (defaults to DB_URL)")
		cohort   = flag.String("print", "", "print the trusted or emerging leaderboard instead of importing")
		limit    = flag.Int("limit", 20, "rows to print with -print")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	_ = godotenv.Load()

	logger, err := logging.New(os.Stderr, logging.Options{Level: *logLevel, Prefix: "import"})
	if err != nil {
		log.Fatal("logger error", "err", err)
	}

	ds, err := load(*data, logger)
	if err != nil {
		logger.Fatal("load dataset", "path", *data, "err", err)
	}

	if *cohort != "" {
		c, err := ranking.ParseCohort(*cohort)
		if err != nil {
			logger.Fatal("invalid -print", "err", err)
		}
		if err := printLeaderboard(os.Stdout, ds, c, *limit); err != nil {
			logger.Fatal("print leaderboard", "err", err)
		}
		return
	}

	target := *dbURL
	if target == "" {
		target = os.Getenv("DB_URL")
	}
	if target == "" {
		logger.Fatal("no database: pass -db or set DB_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, target, store.Options{ConnTimeout: 10 * time.Second, Logger: logger})
	if err != nil {
		logger.Fatal("connect database", "err", err)
	}
	defer st.Close()

	if err := importDataset(ctx, repository.New(st), ds, logger); err != nil {
		st.Close()
		logger.Fatal("import failed", "err", err)
	}
}

type importer interface {
	Import(ctx context.Context, ds domain.Dataset) (repository.ImportStats, error)
}

// importDataset writes ds through imp and logs the outcome.
func importDataset(ctx context.Context, imp importer, ds domain.Dataset, logger *log.Logger) error {
	stats, err := imp.Import(ctx, ds)
	if err != nil {
		return fmt.Errorf("import dataset: %w", err)
	}
	logger.Info("import complete",
		"groups", stats.Groups, "items", stats.Items, "ratings", stats.Ratings, "skipped", stats.Skipped)
	return nil
}

// load decodes and validates a dataset file, logging every dropped record.
func load(path string, logger *log.Logger) (domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Dataset{}, err
	}
	defer f.Close()

	raw, err := dataset.Decode(f)
	if err != nil {
		return domain.Dataset{}, err
	}
	clean, problems := dataset.Validate(raw)
	for _, p := range problems {
		logger.Warn("dropped record", "kind", p.Kind, "entity", p.Entity, "id", p.ID, "detail", p.Detail)
	}
	logger.Info("dataset loaded",
		"groups", len(clean.Groups), "items", len(clean.Items), "ratings", len(clean.Ratings), "dropped", len(problems))
	return clean, nil
}

func printLeaderboard(w io.Writer, ds domain.Dataset, cohort ranking.Cohort, limit int) error {
	snap := ranking.NewSnapshot(ds.Groups, ds.Items, ds.Ratings)
	groupNames := make(map[string]string, len(ds.Groups))
	for _, g := range ds.Groups {
		groupNames[g.ID] = g.Name
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tITEM\tVENUE\tWEIGHTED\tRAW\tVOTES\n")
	for i, e := range snap.Leaderboard(cohort) {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d%%\t%d%%\t%d\n",
			i+1, e.Item.Name, groupNames[e.Item.GroupID], e.WeightedScore, e.RawScore, e.Votes)
	}
	return tw.Flush()
}
