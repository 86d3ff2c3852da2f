package terminalstream

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"research_platform_backend/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamServer(hub *Hub, threadKey string) (*httptest.Server, string) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Subscribe(w, r, threadKey)
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForClientCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		got := len(hub.clients)
		hub.mu.RUnlock()
		if got == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d subscribers", want)
}

func TestPublishReachesSubscriber(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	srv, url := newStreamServer(hub, "thread-abc")
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForClientCount(t, hub, 1)

	hub.PublishMessage("thread-abc", &models.ChatMessage{Role: "assistant", Content: "NIFTY update"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "NIFTY update")
	assert.Contains(t, string(data), "thread-abc")
}

func TestShutdownReleasesClientGoroutines(t *testing.T) {
	hub := NewHub()
	srv, url := newStreamServer(hub, "thread-xyz")
	defer srv.Close()

	baseline := runtime.NumGoroutine()

	conns := make([]*websocket.Conn, 0, 5)
	for i := 0; i < 5; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		conns = append(conns, conn)
	}
	waitForClientCount(t, hub, 5)

	hub.Shutdown()
	for _, conn := range conns {
		conn.Close()
	}

	// Every read and write pump must exit once the hub is down; a pump stuck
	// on the unregister channel keeps the goroutine count elevated.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= baseline {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("goroutines still alive after shutdown: baseline %d, now %d", baseline, runtime.NumGoroutine())
}

func TestSubscribeAfterShutdownCloses(t *testing.T) {
	hub := NewHub()
	srv, url := newStreamServer(hub, "thread-late")
	defer srv.Close()

	hub.Shutdown()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "a hub that is shutting down must close new subscribers")
}
