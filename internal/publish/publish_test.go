package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parlay-edge/internal/logger"
	"github.com/yourusername/parlay-edge/internal/report"
)

type mockPublisher struct {
	mock.Mock
	name string
}

func (m *mockPublisher) Publish(ctx context.Context, summary report.Summary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *mockPublisher) Name() string {
	return m.name
}

type mockStream struct {
	mock.Mock
}

func (m *mockStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	args := m.Called(ctx, a)
	return redis.NewStringResult(args.String(0), args.Error(1))
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sampleSummary() report.Summary {
	return report.Summary{
		RunID:       uuid.MustParse("3b8f5a2e-1c4d-4e6f-8a9b-0c1d2e3f4a5b"),
		GeneratedAt: time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC),
		Status:      "ok",
		Parlays:     []report.ParlaySummary{{Rank: 1, EV: 12.5, CorrelationRisk: "Low"}},
	}
}

func TestMultiPublishesToEverySink(t *testing.T) {
	summary := sampleSummary()
	first := &mockPublisher{name: "first"}
	second := &mockPublisher{name: "second"}
	first.On("Publish", mock.Anything, summary).Return(nil)
	second.On("Publish", mock.Anything, summary).Return(nil)

	multi := NewMulti(nil, first, nil, second)
	assert.Equal(t, 2, multi.Len())
	require.NoError(t, multi.Publish(context.Background(), summary))

	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestMultiContinuesPastFailingSink(t *testing.T) {
	summary := sampleSummary()
	boom := errors.New("connection refused")
	failing := &mockPublisher{name: "redis"}
	healthy := &mockPublisher{name: "websocket"}
	failing.On("Publish", mock.Anything, summary).Return(boom)
	healthy.On("Publish", mock.Anything, summary).Return(nil)

	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	err := NewMulti(logger.NewAuditLogger(base), failing, healthy).Publish(context.Background(), summary)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "redis")
	assert.Contains(t, buf.String(), summary.RunID.String())

	healthy.AssertExpectations(t)
}

func TestStreamPublisherAddsEntry(t *testing.T) {
	summary := sampleSummary()
	stream := &mockStream{}
	stream.On("XAdd", mock.Anything, mock.MatchedBy(func(a *redis.XAddArgs) bool {
		values, ok := a.Values.(map[string]interface{})
		if !ok || a.Stream != "parlays.test" || a.MaxLen != 500 || !a.Approx {
			return false
		}
		var decoded report.Summary
		if err := json.Unmarshal([]byte(values["summary"].(string)), &decoded); err != nil {
			return false
		}
		return values["run_id"] == summary.RunID.String() && values["parlays"] == 1 && decoded.RunID == summary.RunID
	})).Return("1700000000000-0", nil)

	p := newStreamPublisher(stream, "parlays.test", 500)
	require.NoError(t, p.Publish(context.Background(), summary))
	assert.Equal(t, "redis", p.Name())
	stream.AssertExpectations(t)
}

func TestStreamPublisherDefaultsAndErrors(t *testing.T) {
	stream := &mockStream{}
	stream.On("XAdd", mock.Anything, mock.MatchedBy(func(a *redis.XAddArgs) bool {
		return a.Stream == DefaultStream && a.MaxLen == 0
	})).Return("", errors.New("READONLY"))

	err := newStreamPublisher(stream, "", 0).Publish(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), DefaultStream)
}

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(quietLogger(), nil)
	go hub.Run(ctx)

	conn, closeAll := dialHub(t, hub)
	defer closeAll()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	summary := sampleSummary()
	require.NoError(t, hub.Publish(ctx, summary))

	msg := readMessage(t, conn)
	assert.Equal(t, "parlays", msg.Type)
	assert.Equal(t, summary.RunID, msg.Data.RunID)
	require.Len(t, msg.Data.Parlays, 1)
	assert.Equal(t, 12.5, msg.Data.Parlays[0].EV)
}

func TestHubReplaysLatestToNewSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(quietLogger(), nil)
	go hub.Run(ctx)

	summary := sampleSummary()
	require.NoError(t, hub.Publish(ctx, summary))

	conn, closeAll := dialHub(t, hub)
	defer closeAll()

	msg := readMessage(t, conn)
	assert.Equal(t, summary.RunID, msg.Data.RunID)
}

func TestHubUnregistersClosedClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(quietLogger(), nil)
	go hub.Run(ctx)

	conn, closeAll := dialHub(t, hub)
	defer closeAll()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubPublishAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(quietLogger(), nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	err := hub.Publish(context.Background(), sampleSummary())
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})

	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}
