package analytics

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/metrics"
	"Taglink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// TopGroups is how many groups each breakdown reports before folding the rest into Other.
	TopGroups  = 5
	OtherValue = "Other"

	dayLayout = "2006-01-02"
)

// Windows accepted by Aggregate, in days.
var allowedWindows = map[int]bool{7: true, 14: true}

// DayPoint is one entry of a zero-filled daily time series.
type DayPoint struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int64  `json:"count"`
}

// Report is the full analytics view for a link or an owner.
type Report struct {
	Window     int                 `json:"window"`
	Total      int64               `json:"total"`
	ByDevice   []domain.GroupCount `json:"by_device"`
	ByBrowser  []domain.GroupCount `json:"by_browser"`
	ByOS       []domain.GroupCount `json:"by_os"`
	ByCountry  []domain.GroupCount `json:"by_country"`
	ByCity     []domain.GroupCount `json:"by_city"`
	ByReferrer []domain.GroupCount `json:"by_referrer"`
	TimeSeries []DayPoint          `json:"time_series"`
}

// Aggregator computes reports directly from the click event log.
type Aggregator struct {
	repo           repository.ClickRepository
	defaultTimeout time.Duration
	maxTimeout     time.Duration
	now            func() time.Time
	log            *zap.Logger
}

func NewAggregator(repo repository.ClickRepository, defaultTimeout, maxTimeout time.Duration, log *zap.Logger) *Aggregator {
	if maxTimeout < defaultTimeout {
		maxTimeout = defaultTimeout
	}
	return &Aggregator{
		repo:           repo,
		defaultTimeout: defaultTimeout,
		maxTimeout:     maxTimeout,
		now:            time.Now,
		log:            log,
	}
}

// Aggregate builds the report for scope over the trailing window days, today included.
// The per-dimension queries run in parallel against one read snapshot under one deadline, so
// every breakdown sums to the same total. If the deadline expires the whole report fails with
// ErrTransientUnavailable and no partial result is returned.
func (a *Aggregator) Aggregate(ctx context.Context, scope domain.ClickScope, window int, timeout time.Duration) (*Report, error) {
	if !allowedWindows[window] {
		return nil, domain.NewValidationError("window", "must be 7 or 14")
	}

	now := a.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	scope.Since = today.AddDate(0, 0, -(window - 1))
	scope.Until = now

	label := "owner"
	if scope.LinkID != nil {
		label = "link"
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, a.timeout(timeout))
	defer cancel()

	report := &Report{Window: window}
	var days []domain.DayCount
	err := a.repo.ReadSnapshot(ctx, func(r repository.ClickReader) error {
		groups := []struct {
			query func(context.Context, domain.ClickScope) ([]domain.GroupCount, error)
			dest  *[]domain.GroupCount
		}{
			{r.ClicksByDevice, &report.ByDevice},
			{r.ClicksByBrowser, &report.ByBrowser},
			{r.ClicksByOS, &report.ByOS},
			{r.ClicksByCountry, &report.ByCountry},
			{r.ClicksByCity, &report.ByCity},
			{r.ClicksByReferrer, &report.ByReferrer},
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			total, err := r.CountClicks(gctx, scope)
			report.Total = total
			return err
		})
		g.Go(func() error {
			var err error
			days, err = r.ClicksByDay(gctx, scope)
			return err
		})
		for _, grp := range groups {
			grp := grp
			g.Go(func() error {
				rows, err := grp.query(gctx, scope)
				*grp.dest = rows
				return err
			})
		}
		return g.Wait()
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			metrics.AnalyticsQueryDuration.WithLabelValues(label, "timeout").Observe(time.Since(start).Seconds())
			a.log.Warn("analytics aggregation timed out", zap.String("scope", label), zap.Int("window", window))
			return nil, domain.ErrTransientUnavailable
		}
		metrics.AnalyticsQueryDuration.WithLabelValues(label, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to aggregate clicks: %w", err)
	}

	for _, dest := range []*[]domain.GroupCount{
		&report.ByDevice, &report.ByBrowser, &report.ByOS,
		&report.ByCountry, &report.ByCity, &report.ByReferrer,
	} {
		*dest = TopN(*dest, TopGroups)
	}
	report.TimeSeries = ZeroFill(days, scope.Since, window)

	metrics.AnalyticsQueryDuration.WithLabelValues(label, "ok").Observe(time.Since(start).Seconds())
	return report, nil
}

func (a *Aggregator) timeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		return a.defaultTimeout
	}
	if requested > a.maxTimeout {
		return a.maxTimeout
	}
	return requested
}

// TopN orders groups by count descending and value ascending, keeps the first n and folds
// the remainder into a trailing Other group so the counts still sum to the total.
func TopN(groups []domain.GroupCount, n int) []domain.GroupCount {
	sorted := make([]domain.GroupCount, len(groups))
	copy(sorted, groups)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Value < sorted[j].Value
	})

	if len(sorted) <= n {
		return sorted
	}

	var rest int64
	for _, g := range sorted[n:] {
		rest += g.Count
	}
	return append(sorted[:n:n], domain.GroupCount{Value: OtherValue, Count: rest})
}

// ZeroFill expands sparse day counts into exactly days consecutive UTC days starting at since.
func ZeroFill(counts []domain.DayCount, since time.Time, days int) []DayPoint {
	byDay := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDay[c.Day.UTC().Format(dayLayout)] += c.Count
	}

	series := make([]DayPoint, days)
	for i := range series {
		date := since.AddDate(0, 0, i).Format(dayLayout)
		series[i] = DayPoint{Date: date, Count: byDay[date]}
	}
	return series
}
