package analytics

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/repository/memory"
	"Taglink-Backend/pkg/geoip"
	"Taglink-Backend/pkg/useragent"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

type failingGeo struct{ calls atomic.Int32 }

func (g *failingGeo) Lookup(context.Context, string) (*geoip.Location, error) {
	g.calls.Add(1)
	return nil, errors.New("geo provider outage")
}

type fixedGeo struct{ country, city string }

func (g fixedGeo) Lookup(context.Context, string) (*geoip.Location, error) {
	return &geoip.Location{Country: &g.country, City: &g.city}, nil
}

type funcSink func(ctx context.Context, ev *domain.ClickEvent) error

func (f funcSink) Write(ctx context.Context, ev *domain.ClickEvent) error { return f(ctx, ev) }

func newTestEnricher(t *testing.T, geo GeoLocator) *Enricher {
	t.Helper()
	parser, err := useragent.NewParser("", zap.NewNop())
	require.NoError(t, err)
	return NewEnricher(parser, geo, 50*time.Millisecond, zap.NewNop())
}

func newStoredLink(t *testing.T, store *memory.MemStorage) *domain.Link {
	t.Helper()
	code := "abc12345"
	link := &domain.Link{OwnerID: "user-1", DestinationURL: "https://example.com", ShortCode: &code}
	require.NoError(t, store.CreateLink(context.Background(), link, nil))
	return link
}

func TestProcessor_GeoOutageStillRecordsClick(t *testing.T) {
	store := memory.New()
	link := newStoredLink(t, store)
	geo := &failingGeo{}

	p := NewProcessor(newTestEnricher(t, geo), NewStoreSink(store), zap.NewNop(), DefaultConfig())
	require.NoError(t, p.Start())

	assert.True(t, p.Submit(Job{
		LinkID:    link.ID,
		UserAgent: iphoneUA,
		Referrer:  "https://news.ycombinator.com/item?id=1",
		IP:        "8.8.8.8",
	}))
	require.NoError(t, p.Stop())

	clicks := store.Clicks()
	require.Len(t, clicks, 1)
	ev := clicks[0]
	assert.Equal(t, link.ID, ev.LinkID)
	assert.Equal(t, domain.DeviceMobile, ev.DeviceClass)
	assert.Equal(t, "Safari", ev.Browser)
	assert.Equal(t, "iOS", ev.OS)
	assert.Nil(t, ev.Country)
	assert.Nil(t, ev.City)
	require.NotNil(t, ev.ReferrerHost)
	assert.Equal(t, "news.ycombinator.com", *ev.ReferrerHost)
	assert.Equal(t, int32(1), geo.calls.Load())

	stored, err := store.GetLink(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Clicks)
}

func TestProcessor_DropsWhenQueueFull(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var writes atomic.Int32
	sink := funcSink(func(ctx context.Context, ev *domain.ClickEvent) error {
		writes.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	cfg := ProcessorConfig{WorkerCount: 1, BufferSize: 1, RecordTimeout: time.Second, ShutdownTimeout: time.Second}
	p := NewProcessor(newTestEnricher(t, nil), sink, zap.NewNop(), cfg)
	require.NoError(t, p.Start())

	require.True(t, p.Submit(Job{LinkID: 1}))
	<-started
	assert.True(t, p.Submit(Job{LinkID: 2}))
	assert.False(t, p.Submit(Job{LinkID: 3}))

	close(release)
	require.NoError(t, p.Stop())
	assert.Equal(t, int32(2), writes.Load())
}

func TestProcessor_DeadlineDropsWithoutRetry(t *testing.T) {
	var writes atomic.Int32
	var mu sync.Mutex
	var lastErr error
	sink := funcSink(func(ctx context.Context, ev *domain.ClickEvent) error {
		writes.Add(1)
		<-ctx.Done()
		mu.Lock()
		lastErr = ctx.Err()
		mu.Unlock()
		return ctx.Err()
	})

	cfg := ProcessorConfig{WorkerCount: 1, BufferSize: 4, RecordTimeout: 20 * time.Millisecond, ShutdownTimeout: time.Second}
	p := NewProcessor(newTestEnricher(t, nil), sink, zap.NewNop(), cfg)
	require.NoError(t, p.Start())

	require.True(t, p.Submit(Job{LinkID: 1}))
	require.NoError(t, p.Stop())

	assert.Equal(t, int32(1), writes.Load())
	mu.Lock()
	assert.ErrorIs(t, lastErr, context.DeadlineExceeded)
	mu.Unlock()
}

func TestProcessor_SubmitBeforeStartOrAfterStop(t *testing.T) {
	p := NewProcessor(newTestEnricher(t, nil), funcSink(func(context.Context, *domain.ClickEvent) error { return nil }), zap.NewNop(), DefaultConfig())

	assert.False(t, p.Submit(Job{LinkID: 1}))
	assert.ErrorIs(t, p.Stop(), ErrNotStarted)

	require.NoError(t, p.Start())
	assert.Error(t, p.Start())
	require.NoError(t, p.Stop())
	assert.False(t, p.Submit(Job{LinkID: 1}))
}

func TestStoreSink_UnknownLink(t *testing.T) {
	sink := NewStoreSink(memory.New())
	err := sink.Write(context.Background(), &domain.ClickEvent{LinkID: 404, OccurredAt: time.Now()})
	assert.Error(t, err)
}

func TestEnricher_Enrich(t *testing.T) {
	occurred := time.Date(2026, 3, 1, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	e := newTestEnricher(t, fixedGeo{country: "Canada", city: "Toronto"})

	ev := e.Enrich(context.Background(), Job{
		LinkID:     9,
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
		IP:         "24.114.0.1",
		OccurredAt: occurred,
	})

	assert.Equal(t, int64(9), ev.LinkID)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())
	assert.True(t, occurred.Equal(ev.OccurredAt))
	assert.Equal(t, domain.DeviceDesktop, ev.DeviceClass)
	assert.Equal(t, "Edge", ev.Browser)
	assert.Equal(t, "Windows", ev.OS)
	assert.Equal(t, "Canada", *ev.Country)
	assert.Equal(t, "Toronto", *ev.City)
	assert.Nil(t, ev.ReferrerHost)
}

func TestEnricher_NoIPSkipsGeo(t *testing.T) {
	geo := &failingGeo{}
	e := newTestEnricher(t, geo)

	ev := e.Enrich(context.Background(), Job{LinkID: 1})
	assert.Nil(t, ev.Country)
	assert.Zero(t, geo.calls.Load())
	assert.False(t, ev.OccurredAt.IsZero())
	assert.Equal(t, domain.DeviceDesktop, ev.DeviceClass)
	assert.Equal(t, domain.Unknown, ev.Browser)
}

func TestReferrerHost(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.Google.com/search?q=x", "www.google.com"},
		{"http://t.co:8443/abc", "t.co"},
		{"android-app://com.slack/", "com.slack"},
		{"", ""},
		{"   ", ""},
		{"not a url", ""},
		{"://missing-scheme", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ReferrerHost(tt.raw)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}
