package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"livepulse-service/config"
	"livepulse-service/logger"
	"livepulse-service/simulation"
)

// maxLogLimit /agent-logs 单次最多返回的条数
const maxLogLimit = 1000

type Server struct {
	config     *config.Config
	sim        *simulation.Simulator
	wsHub      *Hub
	httpServer *http.Server
	upgrader   websocket.Upgrader
	handler    http.Handler
}

func NewServer(cfg *config.Config, sim *simulation.Simulator, hub *Hub) *Server {
	s := &Server{
		config: cfg,
		sim:    sim,
		wsHub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
	s.handler = s.routes()
	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", s.handleRoot).Methods("GET")

	// API路由
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	router.HandleFunc("/live-rooms", s.handleLiveRooms).Methods("GET")
	router.HandleFunc("/live-rooms/{room_id}", s.handleLiveRoom).Methods("GET")
	router.HandleFunc("/agent-logs", s.handleAgentLogs).Methods("GET")
	router.HandleFunc("/global-stats", s.handleGlobalStats).Methods("GET")
	router.HandleFunc("/events", s.handleEvents).Methods("GET")
	router.HandleFunc("/trigger-event/{event_id}", s.handleTriggerEvent).Methods("POST")

	// WebSocket路由
	router.HandleFunc("/ws", s.handleWebSocket)

	// CORS配置
	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(router)
}

// Handler 带 CORS 的路由
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start 监听端口，Stop 之后返回 nil
func (s *Server) Start() error {
	logger.Printf("[Server] Listening on :%s", s.config.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to LivePulse API"})
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	engine := s.sim.Engine()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"time":    time.Now().Unix(),
		"engine":  engine.State().String(),
		"ticks":   engine.Ticks(),
		"clients": s.wsHub.ClientCount(),
	})
}

func (s *Server) handleLiveRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Rooms())
}

func (s *Server) handleLiveRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.sim.Room(mux.Vars(r)["room_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// handleAgentLogs 最近的 AI 助手日志，按时间正序
func (s *Server) handleAgentLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = simulation.DefaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	writeJSON(w, http.StatusOK, s.sim.Logs(limit))
}

func (s *Server) handleGlobalStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Stats())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Events())
}

// handleTriggerEvent 手动触发事件，room_id 为空时随机选择直播间
func (s *Server) handleTriggerEvent(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["event_id"]
	roomID := r.URL.Query().Get("room_id")

	result, err := s.sim.TriggerEvent(r.Context(), eventID, roomID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Event '%s' triggered in room '%s'", result.Event.Name, result.Room.Name),
		"room_id": result.Room.ID,
		"logs":    result.Logs,
	})
}

// handleWebSocket WebSocket连接处理
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("[Server] WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}

	if !s.wsHub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("[Server] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, simulation.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
