package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stwalsh4118/streettrees/internal/catalog"
	"github.com/stwalsh4118/streettrees/internal/logger"
	"github.com/stwalsh4118/streettrees/internal/models"
	"github.com/stwalsh4118/streettrees/internal/observability"
	"golang.org/x/sync/errgroup"
)

const maxLineBytes = 1 << 20

// Rejection reasons, used as the metrics label.
const (
	ReasonInvalidField = "invalid_field"
	ReasonMalformed    = "malformed"
	ReasonIntegrity    = "integrity"
)

// Options controls a load.
type Options struct {
	// Workers is the number of goroutines tokenizing and validating lines.
	Workers int
	// SkipInvalid drops bad lines and keeps going instead of aborting the load.
	SkipInvalid bool
}

// Report summarizes a finished load.
type Report struct {
	Lines    int
	Loaded   int
	Rejected int
	Duration time.Duration
}

// FieldSource streams raw tree fields from storage other than a CSV file.
type FieldSource interface {
	StreamTrees(ctx context.Context, fn func(models.TreeFields) error) error
}

// RowCounter is implemented by sources that know their row count before
// streaming. LoadFields uses it to size the catalog.
type RowCounter interface {
	Count(ctx context.Context) (int, error)
}

// Loader builds a catalog from census input.
type Loader struct {
	log     *logger.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	opts    Options
}

// NewLoader creates a Loader. metrics may be nil.
func NewLoader(log *logger.Logger, metrics *observability.Metrics, clock clockwork.Clock, opts Options) *Loader {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loader{
		log:     log.WithComponent("ingest"),
		metrics: metrics,
		clock:   clock,
		opts:    opts,
	}
}

type job struct {
	text string
	seq  int
	line int
}

type result struct {
	tree *models.TreeRecord
	err  error
	seq  int
	line int
}

// LoadFile opens path and loads it with Load.
func (l *Loader) LoadFile(ctx context.Context, path string) (*catalog.Catalog, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("open census file: %w", err)
	}
	defer f.Close()

	l.log.Info("loading census file", map[string]interface{}{
		"file":    path,
		"workers": l.opts.Workers,
	})
	return l.Load(ctx, f)
}

// Load reads census lines from r, skipping the header, and returns the
// catalog of every valid record in input order.
//
// Lines are parsed on a pool of workers; results are re-sequenced before they
// reach the catalog, so the outcome matches a sequential read. Unless
// SkipInvalid is set, the first bad line aborts the load with a *LineError.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*catalog.Catalog, Report, error) {
	start := l.clock.Now()
	col := l.newCollector(0)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, l.opts.Workers*2)
	results := make(chan result, l.opts.Workers*2)

	g.Go(func() error {
		defer close(jobs)
		return readLines(gctx, r, jobs)
	})

	workers, wctx := errgroup.WithContext(gctx)
	for i := 0; i < l.opts.Workers; i++ {
		workers.Go(func() error {
			for j := range jobs {
				tree, err := ParseLine(j.text)
				select {
				case results <- result{seq: j.seq, line: j.line, tree: tree, err: err}:
				case <-wctx.Done():
					return wctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(results)
		return workers.Wait()
	})

	g.Go(func() error {
		pending := make(map[int]result)
		next := 0
		for res := range results {
			pending[res.seq] = res
			for {
				ready, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if err := col.accept(ready.line, ready.tree, ready.err); err != nil {
					return err
				}
			}
		}
		return nil
	})

	err := g.Wait()
	return l.finish(col, start, err)
}

// LoadFields builds a catalog from a FieldSource. Rows are numbered from 1 in
// the order the source yields them. A source that is also a RowCounter is
// counted first.
func (l *Loader) LoadFields(ctx context.Context, src FieldSource) (*catalog.Catalog, Report, error) {
	start := l.clock.Now()

	capacity := 0
	if counter, ok := src.(RowCounter); ok {
		n, err := counter.Count(ctx)
		if err != nil {
			return l.finish(l.newCollector(0), start, fmt.Errorf("count source rows: %w", err))
		}
		capacity = n
		l.log.Info("loading trees from source", map[string]interface{}{
			"rows": n,
		})
	}
	col := l.newCollector(capacity)

	row := 0
	err := src.StreamTrees(ctx, func(f models.TreeFields) error {
		row++
		tree, err := f.Build()
		return col.accept(row, tree, err)
	})
	return l.finish(col, start, err)
}

func (l *Loader) finish(col *collector, start time.Time, err error) (*catalog.Catalog, Report, error) {
	col.report.Duration = l.clock.Since(start)
	if err != nil {
		l.log.Error("catalog load failed", err, map[string]interface{}{
			"lines":    col.report.Lines,
			"rejected": col.report.Rejected,
		})
		return nil, col.report, err
	}

	if l.metrics != nil {
		l.metrics.CatalogSize.Set(float64(col.catalog.Size()))
		l.metrics.LoadDuration.Set(col.report.Duration.Seconds())
	}
	l.log.Info("catalog loaded", map[string]interface{}{
		"lines":       col.report.Lines,
		"loaded":      col.report.Loaded,
		"rejected":    col.report.Rejected,
		"duration_ms": col.report.Duration.Milliseconds(),
	})
	return col.catalog, col.report, nil
}

func readLines(ctx context.Context, r io.Reader, jobs chan<- job) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line, seq := 0, 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue // header
		}
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		select {
		case jobs <- job{seq: seq, line: line, text: text}:
			seq++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read census input: %w", err)
	}
	return nil
}

// collector owns the catalog while it is built. Only one goroutine touches it.
type collector struct {
	l       *Loader
	catalog *catalog.Catalog
	byID    map[int]*models.TreeRecord
	report  Report
}

func (l *Loader) newCollector(capacity int) *collector {
	return &collector{
		l:       l,
		catalog: catalog.NewWithCapacity(capacity),
		byID:    make(map[int]*models.TreeRecord),
	}
}

func (c *collector) accept(line int, tree *models.TreeRecord, err error) error {
	c.report.Lines++
	if err != nil {
		return c.reject(line, err)
	}

	if prev, seen := c.byID[tree.ID()]; seen {
		if _, err := prev.Equals(tree); err != nil {
			c.l.log.Warn("conflicting records share a tree id", map[string]interface{}{
				"line":      line,
				"first":     prev.Describe(),
				"duplicate": tree.Describe(),
			})
			return c.reject(line, err)
		}
	} else {
		c.byID[tree.ID()] = tree
	}

	c.catalog.Add(tree)
	c.report.Loaded++
	if c.l.metrics != nil {
		c.l.metrics.RecordsLoaded.Inc()
	}
	return nil
}

func (c *collector) reject(line int, err error) error {
	c.report.Rejected++
	reason := rejectReason(err)
	if c.l.metrics != nil {
		c.l.metrics.RecordsRejected.WithLabelValues(reason).Inc()
	}

	lineErr := &LineError{Line: line, Err: err}
	if !c.l.opts.SkipInvalid {
		return lineErr
	}
	c.l.log.Warn("skipping census line", map[string]interface{}{
		"line":   line,
		"reason": reason,
		"error":  err.Error(),
	})
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedLine):
		return ReasonMalformed
	case errors.Is(err, models.ErrIntegrityFault):
		return ReasonIntegrity
	default:
		return ReasonInvalidField
	}
}
