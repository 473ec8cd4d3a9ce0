package tiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mr1hm/orbitview/internal/models"
	"github.com/mr1hm/orbitview/internal/worker"
)

// ErrNotProbed marks a layer whose check never ran, e.g. because ctx ended first.
var ErrNotProbed = errors.New("layer was not probed")

// ProbeResult is the outcome of fetching the top-level tile of a layer. The
// tile bytes are not interpreted.
type ProbeResult struct {
	LayerID     string
	URL         string
	StatusCode  int
	ContentType string
	Latency     time.Duration
	Err         error
}

func (r ProbeResult) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

type Prober struct {
	builder *Builder
	client  *resty.Client
}

func NewProber(builder *Builder, timeout time.Duration) *Prober {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "orbitview-probe/1.0")

	return &Prober{
		builder: builder,
		client:  client,
	}
}

// Check requests tile 0/0/0 of layer for isoDate.
func (p *Prober) Check(ctx context.Context, layer models.Layer, isoDate string) ProbeResult {
	url := p.builder.TileURL(layer, isoDate, 0, 0, 0)
	res := ProbeResult{LayerID: layer.ID, URL: url}

	start := time.Now()
	resp, err := p.client.R().SetContext(ctx).Get(url)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("error while doing request: %w", err)
		return res
	}

	res.StatusCode = resp.StatusCode()
	res.ContentType = resp.Header().Get("Content-Type")
	return res
}

// CheckAll checks every layer on a pool of workers and returns one result per
// layer, sorted by layer id. Layers that could not be checked carry ErrNotProbed.
func (p *Prober) CheckAll(ctx context.Context, layers []models.Layer, isoDate string, workers int) []ProbeResult {
	results := make([]ProbeResult, len(layers))
	for i, l := range layers {
		results[i] = ProbeResult{
			LayerID: l.ID,
			URL:     p.builder.TileURL(l, isoDate, 0, 0, 0),
			Err:     ErrNotProbed,
		}
	}

	// Each index is written by exactly one job; Stop orders the writes before the read below.
	pool := worker.NewWorkerPool(workers, len(layers), func(ctx context.Context, job worker.Job) error {
		i, ok := job.(int)
		if !ok {
			return fmt.Errorf("unexpected job type %T", job)
		}
		results[i] = p.Check(ctx, layers[i], isoDate)
		return results[i].Err
	})
	pool.Start(ctx)

	for i := range layers {
		if err := pool.Submit(ctx, i); err != nil {
			slog.Error("failed to queue layer", "layer", layers[i].ID, "error", err)
			break
		}
	}
	pool.Stop()

	sort.Slice(results, func(i, j int) bool { return results[i].LayerID < results[j].LayerID })
	return results
}
