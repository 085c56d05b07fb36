package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/SYNOVA-LABS/ADA/internal/models"
	"github.com/SYNOVA-LABS/ADA/pkg/dto"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", hub.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) dto.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg dto.WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcastsFrames(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	conn := dialHub(t, hub)

	id := uuid.New()
	hub.OnFrame(models.FrameResult{
		Frame:   models.Frame{Index: 7, Timestamp: time.Now().UTC(), Width: 640, Height: 480},
		Sampled: true,
		Observations: []models.Observation{{
			TrackID:    "t1",
			BBox:       [4]float32{10, 20, 110, 140},
			Confidence: 0.93,
			Known:      true,
			IdentityID: &id,
			Label:      models.NamedLabel("alice"),
			Access:     models.AccessUser,
			Distance:   0.41,
		}},
	})

	msg := readMessage(t, conn)
	require.Equal(t, "frame", msg.Type)
	require.NotNil(t, msg.Frame)
	require.Equal(t, uint64(7), msg.Frame.Index)
	require.True(t, msg.Frame.Sampled)
	require.Len(t, msg.Frame.Faces, 1)

	face := msg.Frame.Faces[0]
	require.Equal(t, "t1", face.TrackID)
	require.True(t, face.Known)
	require.Equal(t, "alice", face.Name)
	require.Equal(t, "user", face.Access)
	require.NotNil(t, face.IdentityID)
	require.Equal(t, id, *face.IdentityID)
}

func TestHubForwardsUnsampledFrames(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	conn := dialHub(t, hub)

	hub.OnFrame(models.FrameResult{
		Frame: models.Frame{Index: 8, Timestamp: time.Now().UTC(), Width: 640, Height: 480},
	})

	msg := readMessage(t, conn)
	require.Equal(t, "frame", msg.Type)
	require.False(t, msg.Frame.Sampled)
	require.Empty(t, msg.Frame.Faces)
}

func TestHubBroadcastsEnrollments(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	conn := dialHub(t, hub)

	ident := models.Identity{
		ID:        uuid.New(),
		Label:     models.PlaceholderLabel(time.Now().UTC()),
		Access:    models.AccessGuest,
		ImageKey:  "identities/ref.jpg",
		CreatedAt: time.Now().UTC(),
	}
	hub.OnEnrollment(models.Enrollment{Identity: ident, TrackID: "t3", Timestamp: time.Now().UTC()})

	msg := readMessage(t, conn)
	require.Equal(t, "enrollment", msg.Type)
	require.NotNil(t, msg.Enrollment)
	require.Equal(t, ident.ID, msg.Enrollment.Identity.ID)
	require.True(t, msg.Enrollment.Identity.Placeholder)
	require.Equal(t, "guest", msg.Enrollment.Identity.Access)
	require.Equal(t, "/v1/identities/"+ident.ID.String()+"/image", msg.Enrollment.Identity.ImageURL)
	require.Equal(t, "t3", msg.Enrollment.TrackID)
}

func TestEnrollmentEventWithoutImage(t *testing.T) {
	enr := models.Enrollment{
		Identity: models.Identity{ID: uuid.New(), Label: models.NamedLabel("bob")},
	}
	evt := enrollmentEvent(enr)
	require.Empty(t, evt.Identity.ImageURL)
}
