// ABOUTME: End-to-end tests for the streaming session state machine
// ABOUTME: Covers stop handling, windowing, silence, error recovery, and closure
package server

import (
	"encoding/binary"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/keyscope/keyscope-go/internal/config"
	"github.com/keyscope/keyscope-go/internal/protocol"
	"github.com/keyscope/keyscope-go/pkg/audio"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	cfg.APIKey = "test-key"
	cfg.IdleTimeout = config.Duration(10 * time.Second)

	srv := New(cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts
}

func dialStream(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/audio"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readResult(t *testing.T, conn *websocket.Conn) protocol.StreamResult {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(15 * time.Second))
	var res protocol.StreamResult
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("reading result: %v", err)
	}
	return res
}

// expectNormalClosure reads until the connection closes and asserts the
// peer sent a normal closure code.
func expectNormalClosure(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Fatalf("expected normal closure, got %v", err)
		}
		return
	}
}

// clickTrackPCM synthesizes one full analysis window of 16-bit PCM clicks
// at roughly 120 BPM.
func clickTrackPCM() []byte {
	numSamples := audio.StreamWindowBytes / audio.StreamBytesPerSample
	beatPeriod := audio.StreamSampleRate / 2 // 0.5 s => 120 BPM
	clickLen := audio.StreamSampleRate / 100

	buf := make([]byte, audio.StreamWindowBytes)
	for start := 0; start < numSamples; start += beatPeriod {
		for i := 0; i < clickLen && start+i < numSamples; i++ {
			v := 0.9 * math.Exp(-float64(i)/float64(clickLen))
			binary.LittleEndian.PutUint16(buf[(start+i)*2:], uint16(audio.SampleToInt16(v)))
		}
	}
	return buf
}

func TestStopBeforeAnyChunk(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStream(t, ts)

	// Any casing must be accepted.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("STOP")); err != nil {
		t.Fatalf("sending stop: %v", err)
	}

	res := readResult(t, conn)
	if res.Status != protocol.StatusStopped {
		t.Errorf("status = %q, want Stopped", res.Status)
	}
	if res.BPM != "" || res.Key != "" {
		t.Errorf("stopped result must carry only the status, got %+v", res)
	}

	expectNormalClosure(t, conn)
}

func TestStopDropsPartialWindow(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStream(t, ts)

	// Well below the window target; must never be analyzed.
	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 4410)); err != nil {
		t.Fatalf("sending chunk: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(" stop \n")); err != nil {
		t.Fatalf("sending stop: %v", err)
	}

	res := readResult(t, conn)
	if res.Status != protocol.StatusStopped {
		t.Errorf("expected Stopped as the only message, got %+v", res)
	}

	expectNormalClosure(t, conn)
}

func TestSilentWindowYieldsErrorResult(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStream(t, ts)

	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, audio.StreamWindowBytes)); err != nil {
		t.Fatalf("sending window: %v", err)
	}

	res := readResult(t, conn)
	if res.Status != protocol.StatusError {
		t.Errorf("status = %q, want Error for pure silence", res.Status)
	}
	if res.BPM != protocol.Unknown || res.Key != protocol.Unknown {
		t.Errorf("expected Unknown bpm and key, got %+v", res)
	}

	// The session must survive the error and accept a stop afterwards.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("stop")); err != nil {
		t.Fatalf("sending stop: %v", err)
	}
	if res := readResult(t, conn); res.Status != protocol.StatusStopped {
		t.Errorf("expected Stopped after error recovery, got %+v", res)
	}
}

func TestChunkedWindowSingleResult(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStream(t, ts)

	window := clickTrackPCM()
	chunkSize := len(window) / 10
	for i := 0; i < 10; i++ {
		chunk := window[i*chunkSize : (i+1)*chunkSize]
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			t.Fatalf("sending chunk %d: %v", i, err)
		}
	}

	// Stop right after; the FIFO guarantees the window result arrives
	// first, proving exactly one result was emitted for the 10 chunks.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("stop")); err != nil {
		t.Fatalf("sending stop: %v", err)
	}

	res := readResult(t, conn)
	if res.Status != protocol.StatusDetected {
		t.Fatalf("first message = %+v, want Detected", res)
	}
	if res.BPM == "" || res.BPM == protocol.Unknown {
		t.Errorf("expected a concrete bpm, got %q", res.BPM)
	}
	if !strings.HasSuffix(res.Strength, "%") {
		t.Errorf("strength %q is not a percentage", res.Strength)
	}

	if res := readResult(t, conn); res.Status != protocol.StatusStopped {
		t.Errorf("second message = %+v, want Stopped", res)
	}

	expectNormalClosure(t, conn)
}

func TestResultsArriveInWindowOrder(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStream(t, ts)

	// A silent window then a click window: an Error result followed by a
	// Detected one, in that order.
	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, audio.StreamWindowBytes)); err != nil {
		t.Fatalf("sending silent window: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, clickTrackPCM()); err != nil {
		t.Fatalf("sending click window: %v", err)
	}

	first := readResult(t, conn)
	if first.Status != protocol.StatusError {
		t.Errorf("first result = %+v, want Error", first)
	}
	second := readResult(t, conn)
	if second.Status != protocol.StatusDetected {
		t.Errorf("second result = %+v, want Detected", second)
	}
}

func TestUnknownTextMessageIgnored(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStream(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello there")); err != nil {
		t.Fatalf("sending text: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("stop")); err != nil {
		t.Fatalf("sending stop: %v", err)
	}

	if res := readResult(t, conn); res.Status != protocol.StatusStopped {
		t.Errorf("expected Stopped as the only message, got %+v", res)
	}
}
