package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-edge/internal/config"
	"github.com/yourusername/parlay-edge/internal/logger"
	"github.com/yourusername/parlay-edge/internal/metrics"
	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/odds"
)

const (
	// DefaultBaseURL is the SportsGameOdds API root.
	DefaultBaseURL = "https://api.sportsgameodds.com"
	// ProviderName is the display name reported by /health.
	ProviderName = "SportsGameOdds"

	sourceName       = "sgo"
	endpointOdds     = "odds"
	endpointEvents   = "events"
	playerPropMarket = "player_props"
)

// DefaultBooks are queried when the caller names none.
var DefaultBooks = []string{"draftkings", "fanduel"}

// Source supplies NFL events and player props.
type Source interface {
	// FetchEvents lists the games on a date (YYYY-MM-DD, empty for the provider default)
	FetchEvents(ctx context.Context, date string) ([]Event, error)

	// FetchProps returns normalized player props from the given books
	FetchProps(ctx context.Context, date string, books []string) ([]models.Prop, error)

	// Name returns the name of the provider
	Name() string
}

// Event is one NFL game.
type Event struct {
	ID       string    `json:"id"`
	Home     string    `json:"home"`
	Away     string    `json:"away"`
	StartsAt time.Time `json:"starts_at"`
}

// Game returns the "AWAY@HOME" label props carry.
func (e Event) Game() string {
	return e.Away + "@" + e.Home
}

// sgoEvent mirrors the provider's event payload.
type sgoEvent struct {
	EventID string `json:"eventID"`
	Teams   struct {
		Home sgoTeam `json:"home"`
		Away sgoTeam `json:"away"`
	} `json:"teams"`
	Status struct {
		StartsAt string `json:"startsAt"`
	} `json:"status"`
	Players map[string]sgoPlayer `json:"players"`
	Odds    map[string]sgoOdd    `json:"odds"`
}

type sgoTeam struct {
	TeamID string `json:"teamID"`
	Names  struct {
		Short string `json:"short"`
	} `json:"names"`
}

func (t sgoTeam) abbreviation() string {
	if t.Names.Short != "" {
		return strings.ToUpper(t.Names.Short)
	}
	return strings.ToUpper(t.TeamID)
}

type sgoPlayer struct {
	PlayerID string `json:"playerID"`
	Name     string `json:"name"`
	TeamID   string `json:"teamID"`
	Position string `json:"position"`
}

type sgoOdd struct {
	OddID        string                    `json:"oddID"`
	StatID       string                    `json:"statID"`
	StatEntityID string                    `json:"statEntityID"`
	PeriodID     string                    `json:"periodID"`
	BetTypeID    string                    `json:"betTypeID"`
	SideID       string                    `json:"sideID"`
	ByBookmaker  map[string]sgoBookmakerOd `json:"byBookmaker"`
}

type sgoBookmakerOd struct {
	Odds      string `json:"odds"`
	OverUnder string `json:"overUnder"`
	Available *bool  `json:"available"`
}

// statMarkets maps provider stat IDs to supported markets.
var statMarkets = map[string]models.Market{
	"passing_yards":        models.MarketPassYards,
	"passing_touchdowns":   models.MarketPassTDs,
	"receiving_yards":      models.MarketRecYards,
	"receiving_receptions": models.MarketReceptions,
	"rushing_yards":        models.MarketRushYards,
	"touchdowns":           models.MarketAnytimeTD,
}

// Client is a SportsGameOdds API client
type Client struct {
	httpClient *RateLimitedHTTPClient
	cache      *ResponseCache
	baseURL    string
	apiKey     string
	sport      string
	books      []string
	log        *logger.ProviderLogger
}

// NewClient creates a new SportsGameOdds client. A nil cache disables caching.
func NewClient(httpClient *RateLimitedHTTPClient, cache *ResponseCache, baseURL, apiKey, sport string, books []string, log *logger.ProviderLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if sport == "" {
		sport = "nfl"
	}
	if len(books) == 0 {
		books = DefaultBooks
	}
	if log == nil {
		log = discardLogger()
	}
	return &Client{
		httpClient: httpClient,
		cache:      cache,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		sport:      sport,
		books:      books,
		log:        log,
	}
}

// NewClientFromConfig wires the HTTP client, cache and logger from provider configuration.
func NewClientFromConfig(cfg config.ProviderConfig, base *logrus.Logger) *Client {
	log := logger.NewProviderLogger(base, cfg.Name)
	httpClient := NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:                time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries:             cfg.RetryAttempts,
		RetryWaitMin:           200 * time.Millisecond,
		RetryWaitMax:           5 * time.Second,
		RateLimit:              cfg.RateLimitPerSecond,
		CircuitBreakerFailures: uint32(cfg.CircuitBreakerFailures),
		CircuitBreakerTimeout:  time.Duration(cfg.CircuitBreakerTimeoutSeconds) * time.Second,
	}, log)
	cache := NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	return NewClient(httpClient, cache, cfg.BaseURL, cfg.APIKey, cfg.Sport, cfg.Books, log)
}

// Name returns the provider name
func (c *Client) Name() string {
	return ProviderName
}

// Books returns the default bookmakers queried.
func (c *Client) Books() []string {
	return append([]string(nil), c.books...)
}

// FetchEvents retrieves the games scheduled on a date
func (c *Client) FetchEvents(ctx context.Context, date string) ([]Event, error) {
	params := url.Values{}
	params.Set("sport", c.sport)
	if date != "" {
		params.Set("date", date)
	}

	raw, err := c.get(ctx, endpointEvents, CacheKey{Endpoint: endpointEvents, Date: date}, params)
	if err != nil {
		return nil, err
	}

	events, err := decodeEvents(raw)
	if err != nil {
		return nil, err
	}

	result := make([]Event, 0, len(events))
	for _, ev := range events {
		result = append(result, convertEvent(ev))
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].StartsAt.Equal(result[j].StartsAt) {
			return result[i].StartsAt.Before(result[j].StartsAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// FetchProps retrieves player props and normalizes them into models.Prop
func (c *Client) FetchProps(ctx context.Context, date string, books []string) ([]models.Prop, error) {
	if len(books) == 0 {
		books = c.books
	}
	books = normalizeBooks(books)

	params := url.Values{}
	params.Set("sport", c.sport)
	params.Set("market", playerPropMarket)
	params.Set("books", strings.Join(books, ","))
	if date != "" {
		params.Set("date", date)
	}

	raw, err := c.get(ctx, endpointOdds, CacheKey{Endpoint: endpointOdds, Date: date, Books: books}, params)
	if err != nil {
		return nil, err
	}

	events, err := decodeEvents(raw)
	if err != nil {
		return nil, err
	}

	props, stats := normalizeProps(events, books)
	for _, q := range stats.invalid {
		c.log.LogInvalidOdds(q.prop.Player, string(q.prop.Market), q.prop.Book, q.raw)
	}
	c.log.LogPropsNormalized(len(events), stats.rawOdds, len(props), stats.dropped, len(stats.invalid))
	return props, nil
}

// get performs an authenticated GET, serving from the cache when possible.
func (c *Client) get(ctx context.Context, endpoint string, key CacheKey, params url.Values) ([]byte, error) {
	if c.cache != nil {
		if payload, ok := c.cache.Get(key); ok {
			c.log.LogRequest(endpoint, http.StatusOK, true, 0)
			return payload, nil
		}
	}

	if c.apiKey == "" {
		return nil, NewProviderError(sourceName, ErrCodeMissingAPIKey, "SGO_API_KEY is not configured", nil)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, NewProviderError(sourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrCircuitOpen) {
			outcome = "circuit_open"
		}
		metrics.RecordProviderRequest(endpoint, outcome, elapsed.Seconds())
		var pe *ProviderError
		if errors.As(err, &pe) {
			pe.Source = sourceName
			return nil, pe
		}
		return nil, NewProviderError(sourceName, ErrCodeNetworkError, "failed to fetch "+endpoint, err)
	}
	defer resp.Body.Close()

	c.log.LogRequest(endpoint, resp.StatusCode, false, float64(elapsed.Microseconds())/1000.0)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		metrics.RecordProviderRequest(endpoint, "auth_error", elapsed.Seconds())
		return nil, NewProviderError(sourceName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case http.StatusNotFound:
		metrics.RecordProviderRequest(endpoint, "not_found", elapsed.Seconds())
		return nil, NewProviderError(sourceName, ErrCodeNotFound, endpoint+" not found", nil)
	case http.StatusTooManyRequests:
		metrics.RecordProviderRequest(endpoint, "rate_limited", elapsed.Seconds())
		return nil, NewProviderError(sourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.RecordProviderRequest(endpoint, "error", elapsed.Seconds())
		return nil, NewProviderError(sourceName, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordProviderRequest(endpoint, "error", elapsed.Seconds())
		return nil, NewProviderError(sourceName, ErrCodeNetworkError, "failed to read response", err)
	}
	metrics.RecordProviderRequest(endpoint, "success", elapsed.Seconds())

	if c.cache != nil {
		c.cache.Set(key, payload)
	}
	return payload, nil
}

// decodeEvents accepts either a bare array of events or a {"data": [...]} envelope.
func decodeEvents(raw []byte) ([]sgoEvent, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, NewProviderError(sourceName, ErrCodeInvalidData, "empty response", nil)
	}

	var events []sgoEvent
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, NewProviderError(sourceName, ErrCodeInvalidData, "failed to parse response", err)
		}
		return events, nil
	}

	var envelope struct {
		Success *bool      `json:"success"`
		Error   string     `json:"error"`
		Data    []sgoEvent `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, NewProviderError(sourceName, ErrCodeInvalidData, "failed to parse response", err)
	}
	if envelope.Success != nil && !*envelope.Success {
		return nil, NewProviderError(sourceName, ErrCodeInvalidData, "provider reported failure: "+envelope.Error, nil)
	}
	return envelope.Data, nil
}

func convertEvent(ev sgoEvent) Event {
	startsAt, err := time.Parse(time.RFC3339, ev.Status.StartsAt)
	if err != nil {
		startsAt = time.Time{}
	}
	return Event{
		ID:       ev.EventID,
		Home:     ev.Teams.Home.abbreviation(),
		Away:     ev.Teams.Away.abbreviation(),
		StartsAt: startsAt.UTC(),
	}
}

type invalidQuote struct {
	prop models.Prop
	raw  string
}

type normalizeStats struct {
	rawOdds int
	dropped int
	invalid []invalidQuote
}

// normalizeProps flattens events into one prop per (odd, bookmaker). Entries for
// unsupported markets, other periods or missing players are dropped. Quotes with
// unusable odds are kept so scoring rejects them as invalid_odds.
func normalizeProps(events []sgoEvent, books []string) (props []models.Prop, stats normalizeStats) {
	wanted := make(map[string]bool, len(books))
	for _, b := range books {
		wanted[b] = true
	}

	for _, ev := range events {
		event := convertEvent(ev)
		teams := map[string]string{
			strings.ToUpper(ev.Teams.Home.TeamID): event.Home,
			strings.ToUpper(ev.Teams.Away.TeamID): event.Away,
		}

		oddIDs := make([]string, 0, len(ev.Odds))
		for id := range ev.Odds {
			oddIDs = append(oddIDs, id)
		}
		sort.Strings(oddIDs)

		for _, id := range oddIDs {
			odd := ev.Odds[id]
			bookIDs := make([]string, 0, len(odd.ByBookmaker))
			for b := range odd.ByBookmaker {
				bookIDs = append(bookIDs, b)
			}
			sort.Strings(bookIDs)

			for _, book := range bookIDs {
				stats.rawOdds++
				if len(wanted) > 0 && !wanted[strings.ToLower(book)] {
					stats.dropped++
					continue
				}
				quote := odd.ByBookmaker[book]
				prop, ok := buildProp(ev, event, teams, odd, strings.ToLower(book), quote)
				if !ok {
					stats.dropped++
					continue
				}
				if odds.Validate(prop.Odds) != nil {
					stats.invalid = append(stats.invalid, invalidQuote{prop: prop, raw: quote.Odds})
				}
				props = append(props, prop)
			}
		}
	}
	return props, stats
}

func buildProp(ev sgoEvent, event Event, teams map[string]string, odd sgoOdd, book string, quote sgoBookmakerOd) (models.Prop, bool) {
	market, ok := statMarkets[odd.StatID]
	if !ok {
		return models.Prop{}, false
	}
	if odd.PeriodID != "" && odd.PeriodID != "game" {
		return models.Prop{}, false
	}
	if quote.Available != nil && !*quote.Available {
		return models.Prop{}, false
	}

	player, ok := ev.Players[odd.StatEntityID]
	if !ok || player.Name == "" {
		return models.Prop{}, false
	}

	// unusable odds pass through as-is, zero when unparseable
	american, _ := parseAmericanOdds(quote.Odds)

	direction, err := models.ParseDirection(odd.SideID)
	if err != nil {
		return models.Prop{}, false
	}

	var line float64
	if market == models.MarketAnytimeTD {
		// only the "yes" side of the yes/no market is an anytime TD bet
		if odd.BetTypeID != "yn" || direction != models.DirectionOver {
			return models.Prop{}, false
		}
		direction = models.DirectionNone
		line = 0.5
	} else {
		if odd.BetTypeID != "ou" || direction == models.DirectionNone {
			return models.Prop{}, false
		}
		line, err = strconv.ParseFloat(strings.TrimSpace(quote.OverUnder), 64)
		if err != nil || math.IsNaN(line) || line < 0 {
			return models.Prop{}, false
		}
	}

	team := teams[strings.ToUpper(player.TeamID)]
	opponent := ""
	switch team {
	case event.Home:
		opponent = event.Away
	case event.Away:
		opponent = event.Home
	}

	playerID := player.PlayerID
	if playerID == "" {
		playerID = odd.StatEntityID
	}

	return models.Prop{
		Player:    player.Name,
		PlayerID:  playerID,
		Position:  models.Position(strings.ToUpper(player.Position)),
		Market:    market,
		Line:      line,
		Direction: direction,
		Odds:      american,
		Book:      book,
		Game:      event.Game(),
		Team:      team,
		Opponent:  opponent,
	}, true
}

// parseAmericanOdds parses provider odds strings such as "+120", "-115" or "EVEN".
// A number outside the American range is returned along with the error.
func parseAmericanOdds(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "even") || strings.EqualFold(s, "ev") {
		return 100, nil
	}
	value, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", odds.ErrInvalidOdds, s)
	}
	if err := odds.Validate(value); err != nil {
		return value, err
	}
	return value, nil
}

func normalizeBooks(books []string) []string {
	out := make([]string, 0, len(books))
	seen := make(map[string]bool, len(books))
	for _, b := range books {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}
