package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler is the payout notification channel. Clients connect per
// user id; resolved prizes are pushed as PAYOUT messages. Delivery is best
// effort, disconnected users simply miss the push.
type WebSocketHandler struct {
	hub *WebSocketHub
}

type WebSocketHub struct {
	clients    map[string]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	UserID string
	Conn   *websocket.Conn
}

type Message struct {
	Type   string      `json:"type"`
	UserID string      `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler() *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if msg.Type == "PING" {
			client.Conn.WriteJSON(Message{
				Type: "PONG",
				Data: gin.H{"timestamp": time.Now().Unix()},
			})
		}
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.UserID] = client.Conn
			log.Printf("Client registered: %s", client.UserID)

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.UserID]; ok {
				delete(hub.clients, client.UserID)
				log.Printf("Client unregistered: %s", client.UserID)
			}

		case message := <-hub.broadcast:
			hub.deliver(message)
		}
	}
}

func (hub *WebSocketHub) deliver(message *Message) {
	if message.UserID != "" {
		if conn, ok := hub.clients[message.UserID]; ok {
			conn.WriteJSON(message)
		}
		return
	}
	for _, conn := range hub.clients {
		conn.WriteJSON(message)
	}
}

// NotifyPayout implements the resolver's PayoutNotifier contract.
func (h *WebSocketHandler) NotifyPayout(userID, message string) error {
	h.hub.broadcast <- &Message{
		Type:   "PAYOUT",
		UserID: userID,
		Data: gin.H{
			"message":   message,
			"timestamp": time.Now().Unix(),
		},
	}
	return nil
}
