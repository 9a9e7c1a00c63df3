package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
)

type HandlerSuite struct {
	suite.Suite
	hub    *Hub
	server *httptest.Server
}

func (s *HandlerSuite) SetupTest() {
	s.hub = NewHub()
	e := echo.New()
	h := NewHandler(s.hub, func(c echo.Context) string { return c.QueryParam("user") }, []string{"app.awlam.test"})
	h.RegisterRealtimeRoutes(e.Group(""))
	s.server = httptest.NewServer(e)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

func (s *HandlerSuite) dial(path string) *websocket.Conn {
	conn, err := s.dialFrom(path, "")
	s.Require().NoError(err)
	return conn
}

// dialFrom connects with an Origin header, as a browser page would.
func (s *HandlerSuite) dialFrom(path, origin string) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + path
	opts := &websocket.DialOptions{}
	if origin != "" {
		opts.HTTPHeader = http.Header{"Origin": {origin}}
	}
	conn, _, err := websocket.Dial(ctx, url, opts)
	return conn, err
}

// waitForSubscribers polls until the upgrade handlers registered n subscribers.
func (s *HandlerSuite) waitForSubscribers(namespace string, n int) []Subscriber {
	var subs []Subscriber
	s.Require().Eventually(func() bool {
		subs = s.hub.Subscribers(namespace)
		return len(subs) == n
	}, 2*time.Second, 10*time.Millisecond)
	return subs
}

func (s *HandlerSuite) read(conn *websocket.Conn) Message {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	s.Require().NoError(err)
	var m Message
	s.Require().NoError(json.Unmarshal(data, &m))
	return m
}

func (s *HandlerSuite) TestNotificationSubscriberIsTagged() {
	conn := s.dial("/ws/notifications?user=alice")
	defer conn.Close(websocket.StatusNormalClosure, "")

	subs := s.waitForSubscribers(NamespaceNotifications, 1)
	s.Equal("alice", subs[0].UserID)

	s.True(s.hub.DeliverTo(subs[0], EventNotificationCreated, map[string]string{"type": "LIKE-POST"}))
	m := s.read(conn)
	s.Equal(EventNotificationCreated, m.Event)
}

func (s *HandlerSuite) TestCounterBroadcastReachesEveryConnection() {
	first := s.dial("/ws/counters?user=a")
	defer first.Close(websocket.StatusNormalClosure, "")
	second := s.dial("/ws/counters")
	defer second.Close(websocket.StatusNormalClosure, "")
	s.waitForSubscribers(NamespaceCounters, 2)

	s.Equal(2, s.hub.Broadcast(NamespaceCounters, "post::reacted", map[string]int{"likesCount": 1}))
	s.Equal("post::reacted", s.read(first).Event)
	s.Equal("post::reacted", s.read(second).Event)
}

func (s *HandlerSuite) TestDisconnectUnsubscribes() {
	conn := s.dial("/ws/counters")
	s.waitForSubscribers(NamespaceCounters, 1)

	conn.Close(websocket.StatusNormalClosure, "bye")

	s.waitForSubscribers(NamespaceCounters, 0)
	s.Equal(int64(0), s.hub.GetMetrics().ActiveSubscribers)
}

func (s *HandlerSuite) TestForeignOriginIsRejected() {
	_, err := s.dialFrom("/ws/notifications?user=alice", "https://evil.example")
	s.Error(err)
	s.Empty(s.hub.Subscribers(NamespaceNotifications))
}

func (s *HandlerSuite) TestAllowedOriginIsAccepted() {
	conn, err := s.dialFrom("/ws/notifications?user=alice", "https://app.awlam.test")
	s.Require().NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	s.waitForSubscribers(NamespaceNotifications, 1)
}

func (s *HandlerSuite) TestSameHostOriginIsAccepted() {
	conn, err := s.dialFrom("/ws/counters", s.server.URL)
	s.Require().NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	s.waitForSubscribers(NamespaceCounters, 1)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}
