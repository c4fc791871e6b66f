package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-core/auth"
	"chat-core/contract"
	"chat-core/domain"
	"chat-core/errors"
	"chat-core/services"
	"chat-core/sink"
)

type eventHandler func(ctx context.Context, c *Client, data json.RawMessage) error

// Config carries the transport knobs the gateway needs at construction.
type Config struct {
	Addr           string
	AllowedOrigins []string
	MaxMessageSize int64
	SinkBuffer     int
}

// Gateway owns the HTTP server: the websocket endpoint plus the REST glue
// around accounts, friends and groups. Inbound socket events go through an
// explicit dispatch table; adding an event means adding a row.
type Gateway struct {
	log      *slog.Logger
	chats    services.IChatService
	auth     services.IAuthService
	social   services.ISocialService
	users    contract.UserDirectory
	registry contract.IRegistry
	tokens   *auth.TokenIssuer

	origins        *originPolicy
	upgrader       websocket.Upgrader
	dispatch       map[string]eventHandler
	maxMessageSize int64
	sinkBuffer     int
	server         *http.Server
}

func NewGateway(
	log *slog.Logger,
	cfg Config,
	chats services.IChatService,
	authSvc services.IAuthService,
	social services.ISocialService,
	users contract.UserDirectory,
	registry contract.IRegistry,
	tokens *auth.TokenIssuer,
) *Gateway {
	gw := &Gateway{
		log:            log,
		chats:          chats,
		auth:           authSvc,
		social:         social,
		users:          users,
		registry:       registry,
		tokens:         tokens,
		origins:        newOriginPolicy(cfg.AllowedOrigins),
		maxMessageSize: cfg.MaxMessageSize,
		sinkBuffer:     cfg.SinkBuffer,
	}
	gw.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     gw.origins.check,
	}
	gw.dispatch = map[string]eventHandler{
		"login":         gw.onLogin,
		"join_room":     gw.onJoinRoom,
		"join_private":  gw.onJoinPrivate,
		"send_message":  gw.onSendMessage,
		"typing":        gw.onTyping,
		"read_messages": gw.onReadMessages,
		"friend_request": gw.onFriendRequest,
		"friend_accept":  gw.onFriendAccept,
		"group_created":  gw.onGroupCreated,
	}
	gw.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           gw.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return gw
}

func (gw *Gateway) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", gw.handleWebsocket)
	mux.HandleFunc("POST /register", gw.handleRegister)
	mux.HandleFunc("POST /login", gw.handleLogin)
	mux.Handle("GET /users/search", gw.requireToken(gw.handleSearch))
	mux.Handle("POST /users/push-token", gw.requireToken(gw.handlePushToken))
	mux.Handle("POST /friends/request", gw.requireToken(gw.handleFriendRequest))
	mux.Handle("POST /friends/accept", gw.requireToken(gw.handleFriendAccept))
	mux.Handle("GET /friends/{username}", gw.requireToken(gw.handleFriends))
	mux.Handle("GET /friends/requests/{username}", gw.requireToken(gw.handlePendingRequests))
	mux.Handle("POST /groups", gw.requireToken(gw.handleCreateGroup))
	mux.Handle("GET /groups/{username}", gw.requireToken(gw.handleGroups))
	return mux
}

// ListenAndServe blocks until the server stops.
func (gw *Gateway) ListenAndServe() error {
	gw.log.Info("Gateway listening", "addr", gw.server.Addr)
	if err := gw.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests; active sockets close when their read
// pumps fail.
func (gw *Gateway) Shutdown(ctx context.Context) error {
	return gw.server.Shutdown(ctx)
}

func (gw *Gateway) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := gw.upgrader.Upgrade(w, r, nil)
	if err != nil {
		gw.log.Debug("Upgrade rejected", "error", err)
		return
	}

	id := domain.ConnID(uuid.NewString())
	connSink := sink.NewConnSink(gw.sinkBuffer)
	client := newClient(id, conn, connSink, gw)

	gw.chats.Connect(id, connSink)

	// A valid bearer token on the upgrade pre-binds the identity; the
	// login event stays available for token-less clients.
	if claims, ok := gw.claimsFromRequest(r); ok {
		if err := gw.chats.Login(id, domain.Identity(claims.Username)); err != nil {
			gw.log.Debug("Token login failed", "conn", id, "error", err)
		}
	}

	// The request context dies as soon as this handler returns; the pumps
	// need a context spanning the connection's whole lifetime.
	ctx, cancel := context.WithCancel(context.Background())

	go client.writePump()
	go client.readPump(ctx, cancel)
}

func (gw *Gateway) claimsFromRequest(r *http.Request) (*auth.CustomClaims, bool) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return nil, false
	}
	claims, err := gw.tokens.Validate(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// Socket event handlers. Each parses its payload, delegates, and lets the
// read pump turn a returned error into an error_ack.

func (gw *Gateway) onLogin(_ context.Context, c *Client, data json.RawMessage) error {
	var p loginPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("bad login payload: %w", err)
	}
	return gw.chats.Login(c.id, p.Username)
}

func (gw *Gateway) onJoinRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var p joinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("bad join_room payload: %w", err)
	}
	return gw.chats.JoinRoom(ctx, c.id, p.Room)
}

func (gw *Gateway) onJoinPrivate(ctx context.Context, c *Client, data json.RawMessage) error {
	var p joinPrivatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("bad join_private payload: %w", err)
	}
	_, err := gw.chats.JoinDirect(ctx, c.id, p.Username)
	return err
}

func (gw *Gateway) onSendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("bad send_message payload: %w", err)
	}
	return gw.chats.Send(ctx, c.id, p.toMessage())
}

func (gw *Gateway) onTyping(ctx context.Context, c *Client, data json.RawMessage) error {
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("bad typing payload: %w", err)
	}
	return gw.chats.Typing(ctx, c.id, p.Room)
}

func (gw *Gateway) onReadMessages(ctx context.Context, c *Client, data json.RawMessage) error {
	var p readMessagesPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("bad read_messages payload: %w", err)
	}
	return gw.chats.ReadMessages(ctx, c.id, p.Room)
}

func (gw *Gateway) onFriendRequest(ctx context.Context, c *Client, data json.RawMessage) error {
	self, ok := gw.registry.IdentityOf(c.id)
	if !ok {
		return errors.ErrNotLoggedIn
	}
	var p friendRequestPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("bad friend_request payload: %w", err)
	}
	return gw.social.SendFriendRequest(ctx, self, p.Username)
}

func (gw *Gateway) onFriendAccept(ctx context.Context, c *Client, data json.RawMessage) error {
	self, ok := gw.registry.IdentityOf(c.id)
	if !ok {
		return errors.ErrNotLoggedIn
	}
	var p friendAcceptPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("bad friend_accept payload: %w", err)
	}
	return gw.social.AcceptFriendRequest(ctx, self, p.Username)
}

func (gw *Gateway) onGroupCreated(ctx context.Context, c *Client, data json.RawMessage) error {
	self, ok := gw.registry.IdentityOf(c.id)
	if !ok {
		return errors.ErrNotLoggedIn
	}
	var p groupCreatedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("bad group_created payload: %w", err)
	}
	return gw.social.AnnounceGroup(ctx, p.Room, self)
}
