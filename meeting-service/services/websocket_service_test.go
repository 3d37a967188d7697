package services

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func TestHubDeliversEventsAndAnswersPing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub("http://localhost:3000")
	go hub.Run(ctx)

	userID := uuid.New()
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c, userID)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var event Event
	if err := conn.ReadJSON(&event); err != nil || event.Type != "connection" {
		t.Fatalf("expected connection event, got %+v (err %v)", event, err)
	}

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := conn.ReadJSON(&event); err != nil || event.Type != "pong" {
		t.Fatalf("expected pong, got %+v (err %v)", event, err)
	}

	hub.Publish(userID, Event{Type: "meeting.created", Level: EventLevelSuccess, Message: "Meeting scheduled", EntityID: "m1"})
	if err := conn.ReadJSON(&event); err != nil || event.Type != "meeting.created" || event.EntityID != "m1" {
		t.Fatalf("expected meeting event, got %+v (err %v)", event, err)
	}
	if hub.ConnectionCount() != 1 {
		t.Fatalf("expected 1 connection, got %d", hub.ConnectionCount())
	}
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub("http://localhost:3000")
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c, uuid.New())
	})
	server := httptest.NewServer(router)
	defer server.Close()

	header := map[string][]string{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", header)
	if err == nil {
		t.Fatalf("expected foreign origin to be rejected")
	}
	if resp == nil || resp.StatusCode != 403 {
		t.Fatalf("expected 403 response, got %v", resp)
	}
}
