package service

import (
	"cbt_portal_backend/internal/model"
	"cbt_portal_backend/pkg/logger"
	"cbt_portal_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	shardCount     = 32
	presenceTTL    = 2 * time.Minute // 监考在线状态过期时间
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage 考试通道消息封包
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// 上行消息类型
const (
	msgNavigate          = "NAVIGATE"
	msgAnswer            = "ANSWER"
	msgViolation         = "LOCKDOWN_VIOLATION"
	msgViolationResolved = "LOCKDOWN_RESOLVED"
	msgSubmit            = "SUBMIT"
	msgHeartbeat         = "HEARTBEAT"
)

// 下行消息类型
const (
	msgState = "SESSION_STATE"
	msgError = "SESSION_ERROR"
)

// ExamClient 一条学生监考连接，与一个答题会话绑定
type ExamClient struct {
	Hub       *ExamSessionHub
	Conn      *websocket.Conn
	Send      chan []byte
	AttemptID string
	Limiter   *rate.Limiter
}

type sessionShard struct {
	mu       sync.RWMutex
	sessions map[string]*ExamSession
	clients  map[string]*ExamClient
}

// ExamSessionHub 管理所有进行中的考试会话：秒级计时、超时强制交卷、
// 监考连接收发、闲置会话回收。
type ExamSessionHub struct {
	shards     [shardCount]*sessionShard
	register   chan *ExamClient
	unregister chan *ExamClient
	Redis      *redis.Client

	// 会话时间耗尽或学生主动交卷时的回调，由考试服务注入
	OnSubmit func(session *ExamSession, trigger string)

	sessionGrace time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewExamSessionHub(rdb *redis.Client, sessionGrace time.Duration) *ExamSessionHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &ExamSessionHub{
		register:     make(chan *ExamClient),
		unregister:   make(chan *ExamClient),
		Redis:        rdb,
		sessionGrace: sessionGrace,
		ctx:          ctx,
		cancel:       cancel,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &sessionShard{
			sessions: make(map[string]*ExamSession),
			clients:  make(map[string]*ExamClient),
		}
	}
	return h
}

func (h *ExamSessionHub) getShard(attemptID string) *sessionShard {
	f := fnv.New32a()
	f.Write([]byte(attemptID))
	return h.shards[f.Sum32()%shardCount]
}

// AddSession 注册一个新会话。同一答题记录已有会话时返回已存在的实例。
func (h *ExamSessionHub) AddSession(session *ExamSession) (*ExamSession, bool) {
	s := h.getShard(session.AttemptID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[session.AttemptID]; ok {
		return existing, false
	}
	s.sessions[session.AttemptID] = session
	monitoring.ActiveExamSessions.Inc()
	return session, true
}

func (h *ExamSessionHub) GetSession(attemptID string) (*ExamSession, bool) {
	s := h.getShard(attemptID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[attemptID]
	return session, ok
}

func (h *ExamSessionHub) RemoveSession(attemptID string) {
	s := h.getShard(attemptID)
	s.mu.Lock()
	if _, ok := s.sessions[attemptID]; ok {
		delete(s.sessions, attemptID)
		monitoring.ActiveExamSessions.Dec()
	}
	s.mu.Unlock()
	h.Redis.Del(h.ctx, presenceKey(attemptID))
}

func presenceKey(attemptID string) string {
	return fmt.Sprintf("exam:session:%s", attemptID)
}

// Run 主循环：每秒推进所有会话计时；定期续期在线状态并回收闲置会话
func (h *ExamSessionHub) Run() {
	tickTicker := time.NewTicker(1 * time.Second)
	presenceTicker := time.NewTicker(1 * time.Minute)
	defer func() {
		tickTicker.Stop()
		presenceTicker.Stop()
	}()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			s := h.getShard(client.AttemptID)
			s.mu.Lock()
			if old, ok := s.clients[client.AttemptID]; ok {
				// 同一会话重复连接：踢掉旧连接（例如刷新页面后重连）
				close(old.Send)
			}
			s.clients[client.AttemptID] = client
			s.mu.Unlock()
			h.Redis.Set(h.ctx, presenceKey(client.AttemptID), "online", presenceTTL)

		case client := <-h.unregister:
			s := h.getShard(client.AttemptID)
			s.mu.Lock()
			if current, ok := s.clients[client.AttemptID]; ok && current == client {
				delete(s.clients, client.AttemptID)
				close(client.Send)
			}
			s.mu.Unlock()

		case <-tickTicker.C:
			h.tickAll()

		case <-presenceTicker.C:
			h.refreshPresence()
			h.reapIdleSessions()
		}
	}
}

func (h *ExamSessionHub) tickAll() {
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		sessions := make([]*ExamSession, 0, len(s.sessions))
		for _, session := range s.sessions {
			sessions = append(sessions, session)
		}
		s.mu.RUnlock()

		for _, session := range sessions {
			if session.Tick() {
				logger.Log.Info("Exam time expired, forcing submission",
					zap.String("attempt_id", session.AttemptID),
					zap.String("student_id", session.StudentID))
				if h.OnSubmit != nil {
					go h.OnSubmit(session, "timeout")
				}
			}
			h.BroadcastState(session)
		}
	}
}

func (h *ExamSessionHub) refreshPresence() {
	pipe := h.Redis.Pipeline()
	count := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for attemptID := range s.clients {
			pipe.Expire(h.ctx, presenceKey(attemptID), presenceTTL)
			count++
		}
		s.mu.RUnlock()
	}
	if count > 0 {
		pipe.Exec(h.ctx)
	}
}

// reapIdleSessions 回收已交卷或长时间无事件的会话
func (h *ExamSessionHub) reapIdleSessions() {
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		var stale []string
		for id, session := range s.sessions {
			if session.IsSubmitted() || session.IdleFor() > h.sessionGrace {
				stale = append(stale, id)
			}
		}
		s.mu.RUnlock()
		for _, id := range stale {
			logger.Log.Info("Reaping exam session", zap.String("attempt_id", id))
			h.RemoveSession(id)
		}
	}
}

// BroadcastState 向会话对应的连接推送最新状态
func (h *ExamSessionHub) BroadcastState(session *ExamSession) {
	payload, err := json.Marshal(WSMessage{Type: msgState, Data: mustMarshal(session.Snapshot())})
	if err != nil {
		return
	}
	h.pushToClient(session.AttemptID, payload)
}

func (h *ExamSessionHub) pushToClient(attemptID string, payload []byte) {
	s := h.getShard(attemptID)
	s.mu.RLock()
	client, ok := s.clients[attemptID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case client.Send <- payload:
	default:
	}
}

func (h *ExamSessionHub) sendError(attemptID string, message string) {
	payload, _ := json.Marshal(WSMessage{Type: msgError, Data: mustMarshal(map[string]string{"message": message})})
	h.pushToClient(attemptID, payload)
}

func mustMarshal(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// Stop 停机：关闭所有连接并清理在线状态
func (h *ExamSessionHub) Stop() {
	logger.Log.Info("ExamSessionHub stopping: closing connections and clearing presence...")
	h.cancel()

	var attemptIDs []string
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for id, client := range s.clients {
			close(client.Send)
			delete(s.clients, id)
		}
		for id := range s.sessions {
			attemptIDs = append(attemptIDs, id)
			delete(s.sessions, id)
		}
		s.mu.Unlock()
	}

	if len(attemptIDs) > 0 {
		pipe := h.Redis.Pipeline()
		for _, id := range attemptIDs {
			pipe.Del(context.Background(), presenceKey(id))
		}
		pipe.Exec(context.Background())
	}

	monitoring.ActiveExamSessions.Set(0)
	logger.Log.Info("ExamSessionHub stopped", zap.Int("closedSessions", len(attemptIDs)))
}

func (c *ExamClient) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("Exam WebSocket unexpected close",
					zap.Error(err), zap.String("attemptId", c.AttemptID))
			}
			break
		}

		if !c.Limiter.Allow() {
			continue
		}

		var wsMsg WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			continue
		}

		c.Hub.handleMessage(c.AttemptID, wsMsg)
	}
}

func (c *ExamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理上行消息并回推最新状态
func (h *ExamSessionHub) handleMessage(attemptID string, msg WSMessage) {
	session, ok := h.GetSession(attemptID)
	if !ok {
		h.sendError(attemptID, "session not found")
		return
	}

	switch msg.Type {
	case msgNavigate:
		var data struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		if err := session.Navigate(data.Index); err != nil {
			h.sendError(attemptID, err.Error())
			return
		}

	case msgAnswer:
		var data struct {
			QuestionID string       `json:"questionId"`
			Value      model.Answer `json:"value"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			h.sendError(attemptID, "invalid answer payload")
			return
		}
		if err := session.SetAnswer(data.QuestionID, data.Value); err != nil {
			h.sendError(attemptID, err.Error())
			return
		}

	case msgViolation:
		if session.ReportViolation() {
			monitoring.LockdownViolationCounter.Inc()
			logger.Log.Warn("Lockdown violation reported",
				zap.String("attempt_id", attemptID),
				zap.String("student_id", session.StudentID))
		}

	case msgViolationResolved:
		session.ResolveViolation()

	case msgSubmit:
		if h.OnSubmit != nil {
			go h.OnSubmit(session, "student")
		}
		return // 提交回调完成后自行广播状态

	case msgHeartbeat:
		h.Redis.Set(h.ctx, presenceKey(attemptID), "online", presenceTTL)
	}

	h.BroadcastState(session)
}

// ServeExamWs 升级监考 WebSocket 连接并挂到会话上
func ServeExamWs(hub *ExamSessionHub, w http.ResponseWriter, r *http.Request, attemptID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("Exam WebSocket upgrade failed", zap.Error(err), zap.String("attemptId", attemptID))
		return
	}
	client := &ExamClient{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		AttemptID: attemptID,
		Limiter:   rate.NewLimiter(rate.Limit(30), 50),
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
