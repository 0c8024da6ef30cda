package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"gaia.world/internal/observerproto"
)

type Config struct {
	MaxHz       float64
	MaxSessions int
	// AllowRemote disables the loopback-only guard.
	AllowRemote bool
}

type Server struct {
	hub *Hub
	cfg Config
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	sessions atomic.Int64
}

func NewServer(hub *Hub, cfg Config, logger *log.Logger) *Server {
	if cfg.MaxHz <= 0 {
		cfg.MaxHz = 10
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 64
	}
	return &Server{
		hub: hub,
		cfg: cfg,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Sessions() int { return int(s.sessions.Load()) }

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp, ok := s.hub.Bootstrap()
		if !ok {
			http.Error(rw, "world not started", http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}

		if n := s.sessions.Add(1); n > int64(s.cfg.MaxSessions) {
			s.sessions.Add(-1)
			closeWith(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
		defer s.sessions.Add(-1)

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		lim := rate.NewLimiter(rate.Limit(s.clampHz(sub.MaxHz)), 1)
		if s.log != nil {
			s.log.Printf("observer %s subscribed max_hz=%v", sid, float64(lim.Limit()))
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine: send the newest frame, never a backlog.
		writeErr := make(chan error, 1)
		go func() {
			var sent uint64
			for {
				frame, seq, changed := s.hub.Latest()
				if seq == sent || frame == nil {
					select {
					case <-ctx.Done():
						writeErr <- ctx.Err()
						return
					case <-changed:
						continue
					}
				}
				if err := lim.Wait(ctx); err != nil {
					writeErr <- err
					return
				}
				// Pick up anything published while throttled.
				frame, seq, _ = s.hub.Latest()
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					writeErr <- err
					cancel()
					return
				}
				sent = seq
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := parseSubscribe(msg); ok {
				lim.SetLimit(rate.Limit(s.clampHz(sub.MaxHz)))
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		if s.log != nil {
			s.log.Printf("observer %s closed", sid)
		}
	}
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	return sub, true
}

func (s *Server) clampHz(hz float64) float64 {
	if hz <= 0 || hz > s.cfg.MaxHz {
		return s.cfg.MaxHz
	}
	return hz
}

func (s *Server) allowed(r *http.Request) bool {
	return s.cfg.AllowRemote || IsLoopbackRemote(r.RemoteAddr)
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

// IsLoopbackRemote reports whether an http.Request.RemoteAddr is a loopback address.
func IsLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
