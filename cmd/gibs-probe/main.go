// Command gibs-probe requests the top-level tile of every catalog layer and
// reports which ones GIBS serves for the given date.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/mr1hm/orbitview/internal/catalog"
	"github.com/mr1hm/orbitview/internal/config"
	"github.com/mr1hm/orbitview/internal/logging"
	"github.com/mr1hm/orbitview/internal/models"
	"github.com/mr1hm/orbitview/internal/tiles"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	yesterday := models.FormatDate(models.Day(time.Now()).AddDate(0, 0, -1))
	date := flag.String("date", yesterday, "imagery date (YYYY-MM-DD)")
	flag.Parse()

	if _, err := models.ParseDate(*date); err != nil {
		logging.Fatalf("invalid -date %q: %v", *date, err)
	}

	cat := catalog.Default()
	if cfg.GIBS.CatalogPath != "" {
		cat, err = catalog.Load(cfg.GIBS.CatalogPath)
		if err != nil {
			logging.Fatalf("Failed to load catalog: %v", err)
		}
	}

	prober := tiles.NewProber(tiles.NewBuilder(cfg.GIBS.Endpoint), cfg.GIBS.ProbeTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	layers := cat.AllLayers()
	slog.Info("probing layers", "count", len(layers), "date", *date)
	results := prober.CheckAll(ctx, layers, *date, cfg.Worker.Count)

	failed := 0
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LAYER\tSTATUS\tTYPE\tLATENCY")
	for _, r := range results {
		status := fmt.Sprint(r.StatusCode)
		switch {
		case errors.Is(r.Err, tiles.ErrNotProbed):
			status = "skipped"
		case r.Err != nil:
			status = "error"
		}
		if !r.OK() {
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.LayerID, status, r.ContentType, r.Latency.Round(time.Millisecond))
	}
	tw.Flush()

	if failed > 0 {
		slog.Error("some layers failed", "failed", failed, "total", len(results))
		os.Exit(1)
	}
}
