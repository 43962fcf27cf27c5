// ABOUTME: Streaming session state machine
// ABOUTME: Buffers PCM chunks into windows, dispatches analysis, emits results
package server

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/keyscope/keyscope-go/internal/protocol"
	"github.com/keyscope/keyscope-go/pkg/analysis"
	"github.com/keyscope/keyscope-go/pkg/audio"
)

// stopCommand is the trimmed, case-folded text message that ends a session.
const stopCommand = "stop"

// Session owns one streaming connection: its window accumulator, its
// pending analysis results, and the connection lifecycle. Sessions share
// nothing with each other beyond the worker pool.
type Session struct {
	id          string
	conn        *websocket.Conn
	acc         *analysis.Accumulator
	pool        *Pool
	idleTimeout time.Duration
	debug       bool

	// pending is a FIFO of per-window result channels. The writer drains
	// it in submission order, so results reach the peer in the order
	// their windows completed even if analyses overlap.
	pending chan (<-chan protocol.StreamResult)
	done    chan struct{}
}

func newSession(conn *websocket.Conn, pool *Pool, idleTimeout time.Duration, debug bool) *Session {
	return &Session{
		id:          uuid.New().String(),
		conn:        conn,
		acc:         analysis.NewAccumulator(audio.StreamWindowBytes),
		pool:        pool,
		idleTimeout: idleTimeout,
		debug:       debug,
		pending:     make(chan (<-chan protocol.StreamResult), 16),
		done:        make(chan struct{}),
	}
}

// run drives the session until a stop command, transport error, or idle
// timeout, then closes the connection with a normal closure code.
func (s *Session) run() {
	log.Printf("Session %s: started", s.id)

	go s.writeResults()
	s.readLoop()

	close(s.pending)
	<-s.done

	s.closeConn()
	log.Printf("Session %s: ended", s.id)
}

func (s *Session) readLoop() {
	for {
		if s.idleTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}

		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Session %s: read error: %v", s.id, err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			window, ok := s.acc.Ingest(data)
			if !ok {
				continue
			}
			if s.debug {
				log.Printf("[DEBUG] Session %s: window complete, %d bytes", s.id, len(window))
			}
			s.pending <- s.pool.Submit(window)

		case websocket.TextMessage:
			if strings.EqualFold(strings.TrimSpace(string(data)), stopCommand) {
				log.Printf("Session %s: stop command received", s.id)
				// The stop acknowledgment rides the same FIFO so it
				// lands after any in-flight window results. The partial
				// buffer is dropped, never analyzed.
				stopped := make(chan protocol.StreamResult, 1)
				stopped <- protocol.StoppedResult()
				s.pending <- stopped
				return
			}
			log.Printf("Session %s: ignoring text message %q", s.id, truncate(string(data), 64))
		}
	}
}

// writeResults is the only goroutine that writes to the connection.
func (s *Session) writeResults() {
	defer close(s.done)

	for rc := range s.pending {
		res := <-rc
		if err := s.conn.WriteJSON(res); err != nil {
			// Keep draining so the read loop never blocks on pending.
			log.Printf("Session %s: write error: %v", s.id, err)
		}
	}
}

// closeConn performs the closing handshake. Errors here are logged and
// swallowed, never propagated.
func (s *Session) closeConn() {
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		log.Printf("Session %s: error sending close frame: %v", s.id, err)
	}

	// Give the peer a moment to complete the handshake before tearing
	// down the TCP connection.
	s.conn.SetReadDeadline(deadline)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			break
		}
	}

	if err := s.conn.Close(); err != nil {
		log.Printf("Session %s: error closing connection: %v", s.id, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
