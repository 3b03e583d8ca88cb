package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KirkDiggler/threadly/internal/events"
	"github.com/KirkDiggler/threadly/internal/models"
	"github.com/KirkDiggler/threadly/internal/services/game"
	"github.com/KirkDiggler/threadly/internal/services/game/mocks"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type WebSocketTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	bus     *events.Bus
	server  *httptest.Server
}

func (s *WebSocketTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.bus = events.New(nil)

	handler, err := New(&Config{
		GameService: s.service,
		Events:      s.bus,
		JWTSecret:   testSecret,
	})
	s.Require().NoError(err)
	s.server = httptest.NewServer(handler.Router())
}

func (s *WebSocketTestSuite) TearDownTest() {
	s.server.Close()
	s.ctrl.Finish()
}

func TestWebSocketTestSuite(t *testing.T) {
	suite.Run(t, new(WebSocketTestSuite))
}

func (s *WebSocketTestSuite) dial(path, user string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + path + "?token=" + signToken(testSecret, user)
	return websocket.DefaultDialer.Dial(url, nil)
}

func (s *WebSocketTestSuite) readJSON(conn *websocket.Conn) map[string]any {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, data, err := conn.ReadMessage()
	s.Require().NoError(err)

	var got map[string]any
	s.Require().NoError(json.Unmarshal(data, &got))
	return got
}

func (s *WebSocketTestSuite) TestGameStream_RelaysEvents() {
	s.service.EXPECT().
		GetSession(gomock.Any(), &game.GetSessionInput{SessionID: "session-1"}).
		Return(&game.GetSessionOutput{Session: &models.SessionWithUsers{
			Session: &models.Session{ID: "session-1"},
		}}, nil)

	conn, _, err := s.dial("/ws/sessions/session-1", "alice")
	s.Require().NoError(err)
	defer conn.Close()

	s.bus.Publish("session-1", events.Everyone, events.NewTurn{UserID: "bob"})
	s.bus.Publish("session-1", "bob", events.LastPlayerMessage{Content: "not for alice"})
	s.bus.Publish("session-1", "alice", events.StoryChunk{Seq: 1, Chunk: "Once"})

	first := s.readJSON(conn)
	s.Equal("new_turn", first["type"])
	s.Equal("bob", first["user_id"])

	second := s.readJSON(conn)
	s.Equal("story_chunk", second["type"])
	s.Equal("Once", second["chunk"])
}

func (s *WebSocketTestSuite) TestGameStream_UnknownSession() {
	s.service.EXPECT().
		GetSession(gomock.Any(), &game.GetSessionInput{SessionID: "missing"}).
		Return(nil, game.ErrSessionNotFound)

	_, resp, err := s.dial("/ws/sessions/missing", "alice")
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *WebSocketTestSuite) TestGameStream_RequiresToken() {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws/sessions/session-1"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *WebSocketTestSuite) TestSessionStream_RelaysEvents() {
	conn, _, err := s.dial("/ws/sessions", "alice")
	s.Require().NoError(err)
	defer conn.Close()

	s.bus.PublishSession(events.SessionStarted{SessionID: "session-1"})

	got := s.readJSON(conn)
	s.Equal("started", got["type"])
	s.Equal("session-1", got["session_id"])
}
