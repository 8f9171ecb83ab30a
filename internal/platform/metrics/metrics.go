package metrics

import (
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu          sync.Mutex
	evaluations map[string]uint64
	jobRuns     map[[2]string]uint64
}

func New() *Collector {
	return &Collector{
		evaluations: map[string]uint64{},
		jobRuns:     map[[2]string]uint64{},
	}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordEvaluation counts one stored evaluation under its rating bucket.
func (c *Collector) RecordEvaluation(rating string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.evaluations[rating]++
	c.mu.Unlock()
}

func (c *Collector) RecordJob(jobType, status string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.jobRuns[[2]string{jobType, status}]++
	c.mu.Unlock()
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	c.mu.Lock()
	evaluations := make(map[string]uint64, len(c.evaluations))
	for k, v := range c.evaluations {
		evaluations[k] = v
	}
	c.mu.Unlock()
	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal": atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"evaluations":      evaluations,
	}
}

// Families renders the collector as Prometheus metric families.
func (c *Collector) Families() []*dto.MetricFamily {
	families := []*dto.MetricFamily{
		counterFamily("perfeval_http_requests_total", "HTTP requests served.", counter(atomic.LoadUint64(&c.totalRequests))),
		counterFamily("perfeval_http_errors_total", "HTTP requests answered with a 5xx status.", counter(atomic.LoadUint64(&c.errorRequests))),
		counterFamily("perfeval_http_rate_limited_total", "HTTP requests rejected by the rate limiter.", counter(atomic.LoadUint64(&c.rateLimited))),
		counterFamily("perfeval_http_request_duration_ms_total", "Cumulative HTTP handling time in milliseconds.", counter(atomic.LoadUint64(&c.totalDurationMs))),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ratings := make([]string, 0, len(c.evaluations))
	for rating := range c.evaluations {
		ratings = append(ratings, rating)
	}
	sort.Strings(ratings)
	evals := make([]*dto.Metric, 0, len(ratings))
	for _, rating := range ratings {
		evals = append(evals, counter(c.evaluations[rating], label("rating", rating)))
	}
	families = append(families, counterFamily("perfeval_evaluations_generated_total", "Evaluations stored, by rating.", evals...))

	keys := make([][2]string, 0, len(c.jobRuns))
	for k := range c.jobRuns {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] == keys[j][0] {
			return keys[i][1] < keys[j][1]
		}
		return keys[i][0] < keys[j][0]
	})
	jobs := make([]*dto.Metric, 0, len(keys))
	for _, k := range keys {
		jobs = append(jobs, counter(c.jobRuns[k], label("job", k[0]), label("status", k[1])))
	}
	families = append(families, counterFamily("perfeval_job_runs_total", "Background job runs, by type and outcome.", jobs...))
	return families
}

// WriteText writes the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range c.Families() {
		if len(mf.Metric) == 0 {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func ContentType() string {
	return string(expfmt.NewFormat(expfmt.TypeTextPlain))
}

func counterFamily(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   &name,
		Help:   &help,
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: metrics,
	}
}

func counter(v uint64, labels ...*dto.LabelPair) *dto.Metric {
	value := float64(v)
	return &dto.Metric{
		Label:   labels,
		Counter: &dto.Counter{Value: &value},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: &name, Value: &value}
}
