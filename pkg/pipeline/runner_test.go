package pipeline

import (
	"context"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/spikeraster/pkg/cache"
	"github.com/matzehuels/spikeraster/pkg/dataset"
	"github.com/matzehuels/spikeraster/pkg/errors"
	"github.com/matzehuels/spikeraster/pkg/observability"
	"github.com/matzehuels/spikeraster/pkg/raster"
)

// memCache is an in-memory cache.Cache for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

var _ cache.Cache = (*memCache)(nil)

type countingHooks struct {
	observability.NoopPipelineHooks
	mu          sync.Mutex
	loads       int
	diagnostics []string
}

func (h *countingHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loads++
}

func (h *countingHooks) OnDiagnostic(_ context.Context, code string, _ bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.diagnostics = append(h.diagnostics, code)
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func sampleDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Name:       "sample",
		Unit:       dataset.Seconds,
		Timestamps: []time.Duration{2 * time.Second, 5 * time.Second, 8 * time.Second},
		Trials:     raster.NewCategorical("A", "A", "B"),
		Groups:     raster.NewCategorical("x", "y", "x"),
	}
}

func TestRunnerRun(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Run(context.Background(), sampleDataset(), Options{Formats: []string{"json", "svg"}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.RunID == "" {
		t.Error("RunID should be set")
	}
	if res.Suppressed {
		t.Error("valid dataset should not be suppressed")
	}
	if res.Stats.Events != 3 || res.Stats.Rows != 2 || res.Stats.Groups != 2 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if len(res.Artifacts["json"]) == 0 || len(res.Artifacts["svg"]) == 0 {
		t.Errorf("missing artifacts: %v", keys(res.Artifacts))
	}
}

func TestRunnerExecuteFileSource(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	path := t.TempDir() + "/spikes.csv"
	if err := dataset.WriteFile(path, sampleDataset()); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Execute(context.Background(), FileSource(path), Options{Formats: []string{"json"}})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Dataset != "spikes" {
		t.Errorf("Dataset = %q, want spikes", res.Dataset)
	}
	if hooks.loads != 1 {
		t.Errorf("load hook called %d times, want 1", hooks.loads)
	}

	_, err = r.Execute(context.Background(), FileSource(t.TempDir()+"/missing.csv"), Options{})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestRunnerSuppressesMismatch(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	ds := sampleDataset()
	ds.Trials = raster.NewCategorical("A", "B")

	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Run(context.Background(), ds, Options{Formats: []string{"svg"}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.Suppressed {
		t.Fatal("mismatched dataset should be suppressed")
	}
	if len(res.Artifacts) != 0 {
		t.Errorf("suppressed run should not render, got %v", keys(res.Artifacts))
	}
	if len(hooks.diagnostics) != 1 || hooks.diagnostics[0] != string(errors.ErrCodeDataLengthMismatch) {
		t.Errorf("diagnostic hooks = %v", hooks.diagnostics)
	}
}

func TestRunnerStrict(t *testing.T) {
	ds := sampleDataset()
	ds.Groups = raster.NewCategorical("x")

	r := NewRunner(nil, nil, quietLogger())
	_, err := r.Run(context.Background(), ds, Options{Strict: true})
	if !errors.Is(err, errors.ErrCodeDataLengthMismatch) {
		t.Errorf("strict run error = %v, want DATA_LENGTH_MISMATCH", err)
	}
}

func TestRunnerReferenceOverride(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.ComputeLayout(context.Background(), sampleDataset(), Options{
		Reference: []time.Duration{time.Second},
	})
	if err != nil {
		t.Fatal(err)
	}
	first := res.Layout.Groups[0]
	if first.X[0] != time.Second {
		t.Errorf("aligned x = %v, want 1s", first.X[0])
	}
}

func TestRunnerAlignmentMismatchStillRenders(t *testing.T) {
	ds := sampleDataset()
	ds.Trials = raster.NewCategorical("A", "B", "C")
	ds.Reference = []time.Duration{time.Second, 2 * time.Second}

	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Run(context.Background(), ds, Options{Formats: []string{"json"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Suppressed {
		t.Error("alignment mismatch should not suppress")
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != raster.AlignmentTimesMismatch {
		t.Errorf("Diagnostics = %v", res.Diagnostics)
	}
	if len(res.Artifacts["json"]) == 0 {
		t.Error("json artifact missing")
	}
}

func TestRunnerCaching(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	r := NewRunner(c, nil, quietLogger())
	opts := Options{Formats: []string{"json"}}

	first, err := r.Run(ctx, sampleDataset(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Errorf("first run should miss: %+v", first.CacheInfo)
	}

	// Renaming does not change the content hash.
	renamed := sampleDataset()
	renamed.Name = "other"
	second, err := r.Run(ctx, renamed, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run should hit: %+v", second.CacheInfo)
	}
	if second.Layout.Ticks() != first.Layout.Ticks() {
		t.Errorf("cached layout differs: %d vs %d ticks", second.Layout.Ticks(), first.Layout.Ticks())
	}
	if string(second.Artifacts["json"]) != string(first.Artifacts["json"]) {
		t.Error("cached artifact differs")
	}

	refreshed, err := r.Run(ctx, sampleDataset(), Options{Formats: []string{"json"}, Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheInfo.LayoutHit || refreshed.CacheInfo.RenderHit {
		t.Errorf("refresh should bypass cache: %+v", refreshed.CacheInfo)
	}
}

func TestRunnerCacheHitKeepsNanoseconds(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(newMemCache(), nil, quietLogger())
	epoch := 1700000000 * time.Second
	ds := &dataset.Dataset{
		Timestamps: []time.Duration{epoch + 123, epoch + 456},
		Trials:     raster.NewCategorical("a", "b"),
	}

	first, err := r.ComputeLayout(ctx, ds, Options{})
	if err != nil {
		t.Fatal(err)
	}
	second, hit, err := r.ComputeLayoutWithCacheInfo(ctx, ds, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("second layout should come from cache")
	}
	if !reflect.DeepEqual(second.Layout.Groups[0].X, first.Layout.Groups[0].X) {
		t.Errorf("cached X = %v, want %v", second.Layout.Groups[0].X, first.Layout.Groups[0].X)
	}
}

func TestDatasetHash(t *testing.T) {
	a := sampleDataset()
	b := sampleDataset()
	b.Name = "renamed"
	b.Reference = []time.Duration{time.Second}
	b.Unit = dataset.Milliseconds

	ha, err := DatasetHash(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, _ := DatasetHash(b)
	if ha != hb {
		t.Error("name, unit and reference should not change the hash")
	}

	c := sampleDataset()
	c.Timestamps[0] = time.Second
	hc, _ := DatasetHash(c)
	if ha == hc {
		t.Error("timestamps should change the hash")
	}

	// Epoch-scale times one nanosecond apart are beyond float64 precision.
	epoch := 1700000000 * time.Second
	d := sampleDataset()
	d.Timestamps[0] = epoch
	e := sampleDataset()
	e.Timestamps[0] = epoch + 1
	hd, _ := DatasetHash(d)
	he, _ := DatasetHash(e)
	if hd == he {
		t.Error("a one nanosecond difference should change the hash")
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
