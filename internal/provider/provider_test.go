package provider

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parlay-edge/internal/logger"
	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/odds"
	"github.com/yourusername/parlay-edge/internal/scoring"
)

func testHTTPConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:                2 * time.Second,
		MaxRetries:             1,
		RetryWaitMin:           time.Millisecond,
		RetryWaitMax:           5 * time.Millisecond,
		RateLimit:              1000,
		CircuitBreakerFailures: 2,
		CircuitBreakerTimeout:  time.Minute,
	}
}

func bufferLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log, buf
}

func newTestClient(baseURL string, cfg HTTPClientConfig, cache *ResponseCache) *Client {
	return NewClient(NewRateLimitedHTTPClient(cfg, nil), cache, baseURL, "test-key", "nfl", nil, nil)
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestFetchPropsNormalizesProviderPayload(t *testing.T) {
	payload := fixture(t, "sgo_odds.json")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/odds", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "nfl", r.URL.Query().Get("sport"))
		assert.Equal(t, "player_props", r.URL.Query().Get("market"))
		assert.Equal(t, "draftkings,fanduel", r.URL.Query().Get("books"))
		assert.Equal(t, "2025-10-19", r.URL.Query().Get("date"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client := newTestClient(server.URL, testHTTPConfig(), nil)
	props, err := client.FetchProps(context.Background(), "2025-10-19", []string{"FanDuel", "draftkings"})
	require.NoError(t, err)
	require.Len(t, props, 6)

	allenDK := props[0]
	assert.Equal(t, "Josh Allen", allenDK.Player)
	assert.Equal(t, "JOSH_ALLEN_1_NFL", allenDK.PlayerID)
	assert.Equal(t, models.PositionQB, allenDK.Position)
	assert.Equal(t, models.MarketPassYards, allenDK.Market)
	assert.Equal(t, models.DirectionOver, allenDK.Direction)
	assert.Equal(t, 254.5, allenDK.Line)
	assert.Equal(t, -115, allenDK.Odds)
	assert.Equal(t, "draftkings", allenDK.Book)
	assert.Equal(t, "KC@BUF", allenDK.Game)
	assert.Equal(t, "BUF", allenDK.Team)
	assert.Equal(t, "KC", allenDK.Opponent)

	assert.Equal(t, "fanduel", props[1].Book)
	assert.Equal(t, 255.5, props[1].Line)

	assert.Equal(t, models.DirectionUnder, props[2].Direction)
	assert.Equal(t, -105, props[2].Odds)

	// unparseable odds are kept for scoring to reject
	shakir := props[3]
	assert.Equal(t, "Khalil Shakir", shakir.Player)
	assert.Equal(t, models.MarketReceptions, shakir.Market)
	assert.Equal(t, 0, shakir.Odds)
	assert.ErrorIs(t, odds.Validate(shakir.Odds), odds.ErrInvalidOdds)

	assert.Equal(t, models.MarketRecYards, props[4].Market)
	assert.Equal(t, "fanduel", props[4].Book)

	cook := props[5]
	assert.Equal(t, models.MarketAnytimeTD, cook.Market)
	assert.Equal(t, models.DirectionNone, cook.Direction)
	assert.Equal(t, models.PositionRB, cook.Position)
	assert.Equal(t, 120, cook.Odds)
	assert.Equal(t, 0.5, cook.Line)
}

func TestFetchPropsKeepsInvalidOddsForScoring(t *testing.T) {
	payload := fixture(t, "sgo_odds.json")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	log, buf := bufferLogger()
	client := NewClient(NewRateLimitedHTTPClient(testHTTPConfig(), nil), nil, server.URL, "test-key", "nfl", nil,
		logger.NewProviderLogger(log, "SportsGameOdds"))
	props, err := client.FetchProps(context.Background(), "", nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Provider quote has invalid odds")
	assert.Contains(t, out, `"invalid_odds":1`)

	legs := scoring.NewScorer(scoring.DefaultConfig()).ScoreLegs(props, nil)
	var invalid int
	for _, leg := range legs {
		if leg.Reason == models.ReasonInvalidOdds {
			invalid++
			assert.Equal(t, "Khalil Shakir", leg.Player)
		}
	}
	assert.Equal(t, 1, invalid)
}

func TestFetchPropsDefaultsBooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "draftkings,fanduel", r.URL.Query().Get("books"))
		assert.Empty(t, r.URL.Query().Get("date"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	props, err := newTestClient(server.URL, testHTTPConfig(), nil).FetchProps(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestFetchPropsServesRepeatRequestsFromCache(t *testing.T) {
	var hits int32
	payload := fixture(t, "sgo_odds.json")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	cache := NewResponseCache(time.Minute)
	client := newTestClient(server.URL, testHTTPConfig(), cache)

	first, err := client.FetchProps(context.Background(), "2025-10-19", nil)
	require.NoError(t, err)
	second, err := client.FetchProps(context.Background(), "2025-10-19", nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err = client.FetchProps(context.Background(), "2025-10-20", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	cacheHits, misses, rate := cache.Stats()
	assert.Equal(t, uint64(1), cacheHits)
	assert.Equal(t, uint64(2), misses)
	assert.InDelta(t, 1.0/3.0, rate, 1e-9)
}

func TestFetchEventsSortsByKickoff(t *testing.T) {
	payload := fixture(t, "sgo_events.json")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	events, err := newTestClient(server.URL, testHTTPConfig(), nil).FetchEvents(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "evt_kc_buf_2025_w7", events[0].ID)
	assert.Equal(t, "KANSAS_CITY_CHIEFS_NFL@BUF", events[0].Game())
	assert.Equal(t, "DET@TB", events[1].Game())
	assert.True(t, events[0].StartsAt.Before(events[1].StartsAt))
}

func TestProviderErrorsMapStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: ErrAuthenticationFailed},
		{name: "forbidden", status: http.StatusForbidden, want: ErrAuthenticationFailed},
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, want: ErrRateLimitExceeded},
		{name: "bad request", status: http.StatusBadRequest, want: ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			cfg := testHTTPConfig()
			cfg.MaxRetries = 0
			_, err := newTestClient(server.URL, cfg, nil).FetchProps(context.Background(), "", nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var pe *ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "sgo", pe.Source)
		})
	}
}

func TestMalformedPayloadIsInvalidData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "error": "quota"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, testHTTPConfig(), nil).FetchProps(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient(NewRateLimitedHTTPClient(testHTTPConfig(), nil), nil, "http://127.0.0.1:1", "", "", nil, nil)
	_, err := client.FetchProps(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, testHTTPConfig(), nil).FetchEvents(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	httpClient := NewRateLimitedHTTPClient(testHTTPConfig(), nil)
	client := NewClient(httpClient, nil, server.URL, "test-key", "nfl", nil, nil)

	for i := 0; i < 2; i++ {
		_, err := client.FetchEvents(context.Background(), "")
		assert.ErrorIs(t, err, ErrServerError)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
	assert.Equal(t, "open", httpClient.State())

	_, err := client.FetchEvents(context.Background(), "")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
}

func TestCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL, testHTTPConfig(), nil).FetchEvents(ctx, "")
	assert.Error(t, err)
}

func TestParseAmericanOdds(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "+120", want: 120},
		{in: "-115", want: -115},
		{in: " 250 ", want: 250},
		{in: "EVEN", want: 100},
		{in: "-99", wantErr: true},
		{in: "0", wantErr: true},
		{in: "", wantErr: true},
		{in: "1.91", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseAmericanOdds(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalizeBooks(t *testing.T) {
	assert.Equal(t, []string{"draftkings", "fanduel"}, normalizeBooks([]string{" FanDuel", "draftkings", "fanduel", ""}))
}

func TestLoadProjections(t *testing.T) {
	projections, err := LoadProjections(filepath.Join("testdata", "projections.json"))
	require.NoError(t, err)
	require.Len(t, projections, 3)

	assert.Equal(t, models.MarketPassYards, projections[0].Market)
	assert.Equal(t, 42.0, projections[0].StdDev)
	assert.InDelta(t, 0.578, projections[1].TouchdownRate(), 1e-9)
	assert.True(t, projections[2].Injury.IsUncertain())
}

func TestParseProjectionsRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{`},
		{name: "missing player", data: `[{"market": "player_pass_yds", "mean": 200}]`},
		{name: "unknown market", data: `[{"player": "A", "market": "player_kicks", "mean": 2}]`},
		{name: "negative mean", data: `[{"player": "A", "market": "player_rush_yds", "mean": -5}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProjections([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidData)
		})
	}
}

func TestLoadProjectionsMissingFile(t *testing.T) {
	_, err := LoadProjections(filepath.Join("testdata", "nope.json"))
	assert.Error(t, err)
}

func TestLoadPropsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "props.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"player":"Josh Allen","market":"player_pass_yds","line":254.5,"direction":"over","odds":-115,"book":"draftkings","game":"KC@BUF","team":"BUF"}]`), 0o600))

	props, err := LoadProps(path)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, -115, props[0].Odds)
	assert.Equal(t, models.DirectionOver, props[0].Direction)
}

func TestProjectionSources(t *testing.T) {
	fromFile, err := FileProjections{Path: filepath.Join("testdata", "projections.json")}.Projections(context.Background())
	require.NoError(t, err)
	assert.Len(t, fromFile, 3)

	static := StaticProjections(fromFile)
	got, err := static.Projections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fromFile, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FileProjections{Path: "unused"}.Projections(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
