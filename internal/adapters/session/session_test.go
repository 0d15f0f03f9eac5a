package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/OmarNassar1127/ai-transcriber/internal/app"
	"github.com/OmarNassar1127/ai-transcriber/internal/app/orch"
	"github.com/OmarNassar1127/ai-transcriber/internal/core"
	"github.com/OmarNassar1127/ai-transcriber/internal/core/mocks"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/mock/gomock"
)

var errFakeClosed = errors.New("fake ws closed")

type fakeWS struct {
	in      chan []byte
	written chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeWS() *fakeWS {
	return &fakeWS{
		in:      make(chan []byte, 16),
		written: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (f *fakeWS) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.in:
		return websocket.TextMessage, data, nil
	case <-f.closed:
		return 0, nil, errFakeClosed
	}
}

func (f *fakeWS) WriteMessage(_ int, data []byte) error {
	select {
	case <-f.closed:
		return errFakeClosed
	default:
	}
	f.written <- append([]byte(nil), data...)
	return nil
}

func (f *fakeWS) WriteControl(int, []byte, time.Time) error { return nil }
func (f *fakeWS) SetReadDeadline(time.Time) error           { return nil }
func (f *fakeWS) SetWriteDeadline(time.Time) error          { return nil }
func (f *fakeWS) SetReadLimit(int64)                        {}
func (f *fakeWS) SetPongHandler(func(string) error)         {}

func (f *fakeWS) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeWS) send(s string) { f.in <- []byte(s) }

func (f *fakeWS) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case data := <-f.written:
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unexpected frame %q: %v", data, err)
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a frame")
		return nil
	}
}

func (f *fakeWS) expectSilence(t *testing.T) {
	t.Helper()
	select {
	case data := <-f.written:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func newTestController(t *testing.T, gw core.Transcriber, opts Options) *Controller {
	t.Helper()
	o := &orch.Orchestrator{
		Speakers: app.NewSpeakerRegistry(),
		Hub:      app.NewHub(),
		Gateway:  gw,
		History:  app.NewTranscriptLog(100),
	}
	if opts.PingPeriod == 0 {
		opts.PingPeriod = time.Hour
	}
	ctl := NewController(o, opts)
	t.Cleanup(func() {
		o.Hub.CloseAll()
		ctl.Wait()
	})
	return ctl
}

// connect performs the handshake and drains registration + connection_status.
func connect(t *testing.T, ctl *Controller, name string) *fakeWS {
	t.Helper()
	ws := newFakeWS()
	if err := ctl.HandleConnection(context.Background(), ws, name); err != nil {
		t.Fatalf("unexpected handshake error: %v", err)
	}
	ws.next(t)
	ws.next(t)
	return ws
}

func TestHandshakeSendsRegistrationThenStatus(t *testing.T) {
	t.Parallel()

	ctl := newTestController(t, nil, Options{})
	ws := newFakeWS()
	if err := ctl.HandleConnection(context.Background(), ws, "Alice"); err != nil {
		t.Fatalf("unexpected handshake error: %v", err)
	}

	reg := ws.next(t)
	if reg["type"] != "registration" || reg["status"] != "success" || reg["name"] != "Alice" {
		t.Fatalf("unexpected registration frame: %v", reg)
	}
	if id, _ := reg["speaker_id"].(string); id == "" {
		t.Fatalf("expected speaker_id in %v", reg)
	}

	status := ws.next(t)
	if status["type"] != "connection_status" || status["status"] != "connected" {
		t.Fatalf("unexpected status frame: %v", status)
	}
	if status["message"] != "Speaker Alice connected successfully" {
		t.Fatalf("unexpected status message: %q", status["message"])
	}
	if got := ctl.Orch.Hub.Len(); got != 1 {
		t.Fatalf("unexpected live count: %d", got)
	}
}

func TestTestPhraseBroadcastsToEveryone(t *testing.T) {
	t.Parallel()

	ctl := newTestController(t, nil, Options{})
	alice := connect(t, ctl, "Alice")
	bob := connect(t, ctl, "Bob")

	alice.send(`{"type":"audio","testPhrase":"hello","timestamp":1700000000}`)

	for _, ws := range []*fakeWS{alice, bob} {
		ev := ws.next(t)
		if ev["type"] != "transcription" || ev["speaker"] != "Alice" || ev["text"] != "hello" {
			t.Fatalf("unexpected transcription: %v", ev)
		}
		if ev["timestamp"] != float64(1700000000) {
			t.Fatalf("timestamp not echoed: %v", ev["timestamp"])
		}
	}
	if got := ctl.Orch.History.Len(); got != 1 {
		t.Fatalf("unexpected history length: %d", got)
	}
}

func TestHeartbeatIsUnicast(t *testing.T) {
	t.Parallel()

	ctl := newTestController(t, nil, Options{})
	alice := connect(t, ctl, "Alice")
	bob := connect(t, ctl, "Bob")

	alice.send(`{"type":"heartbeat"}`)

	ev := alice.next(t)
	if ev["type"] != "heartbeat" || ev["status"] != "alive" {
		t.Fatalf("unexpected heartbeat reply: %v", ev)
	}
	bob.expectSilence(t)
}

func TestProtocolErrorsStayOnSender(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		frame string
		want  string
	}{
		{name: "not json", frame: `hello there`, want: "Invalid JSON message"},
		{name: "not an object", frame: `[1,2]`, want: "Invalid JSON message"},
		{name: "missing type", frame: `{"testPhrase":"x"}`, want: "Missing message type"},
		{name: "unknown type", frame: `{"type":"dance"}`, want: "Unsupported message type: dance"},
		{name: "no payload", frame: `{"type":"audio"}`, want: "Message must contain either 'testPhrase' or 'audio' data"},
		{name: "blank phrase null audio", frame: `{"type":"audio","testPhrase":"  ","audio":null}`, want: "Message must contain either 'testPhrase' or 'audio' data"},
		{name: "bad base64", frame: `{"type":"audio","audio":"***"}`, want: ""},
		{name: "bad encoding", frame: `{"type":"audio","audio":"AAAAAA==","encoding":"mp3"}`, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctl := newTestController(t, nil, Options{})
			alice := connect(t, ctl, "Alice")
			bob := connect(t, ctl, "Bob")

			alice.send(tc.frame)
			ev := alice.next(t)
			if ev["type"] != "error" {
				t.Fatalf("unexpected frame: %v", ev)
			}
			msg, _ := ev["message"].(string)
			if tc.want != "" && msg != tc.want {
				t.Fatalf("unexpected message: %q", msg)
			}
			if tc.want == "" && len(msg) < len("Audio processing error: ") {
				t.Fatalf("unexpected message: %q", msg)
			}
			bob.expectSilence(t)
		})
	}
}

func TestInvalidJSONKeepsSessionActive(t *testing.T) {
	t.Parallel()

	ctl := newTestController(t, nil, Options{})
	alice := connect(t, ctl, "Alice")

	alice.send(`{"type":`)
	if ev := alice.next(t); ev["message"] != "Invalid JSON message" {
		t.Fatalf("unexpected frame: %v", ev)
	}

	alice.send(`{"type":"audio","testPhrase":"still here"}`)
	if ev := alice.next(t); ev["type"] != "transcription" || ev["text"] != "still here" {
		t.Fatalf("unexpected frame: %v", ev)
	}
}

func TestAudioIsTranscribedAndBroadcast(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gw := mocks.NewMockTranscriber(ctrl)
	pcm := []byte{0x00, 0x10, 0x00, 0xf0}
	gw.EXPECT().
		Transcribe(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p core.AudioPayload) (core.Transcription, error) {
			if p.Encoding != core.EncodingPCM16LE || string(p.Data) != string(pcm) {
				return core.Transcription{}, fmt.Errorf("%w: unexpected payload", core.ErrInvalidPayload)
			}
			return core.Transcription{Text: " good morning ", Language: "en"}, nil
		}).
		Times(1)

	ctl := newTestController(t, gw, Options{})
	alice := connect(t, ctl, "Alice")
	bob := connect(t, ctl, "Bob")

	alice.send(fmt.Sprintf(`{"type":"audio","audio":%q,"encoding":"pcm16"}`, base64.StdEncoding.EncodeToString(pcm)))

	for _, ws := range []*fakeWS{alice, bob} {
		ev := ws.next(t)
		if ev["type"] != "transcription" || ev["text"] != "good morning" || ev["speaker"] != "Alice" {
			t.Fatalf("unexpected frame: %v", ev)
		}
		if ev["timestamp"] != nil {
			t.Fatalf("expected null timestamp, got %v", ev["timestamp"])
		}
	}
}

func TestPhraseTakesPrecedenceOverAudio(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gw := mocks.NewMockTranscriber(ctrl)
	gw.EXPECT().Transcribe(gomock.Any(), gomock.Any()).Times(0)

	ctl := newTestController(t, gw, Options{})
	alice := connect(t, ctl, "Alice")

	alice.send(`{"type":"audio","testPhrase":"literal","audio":"AAAAAA=="}`)
	if ev := alice.next(t); ev["text"] != "literal" {
		t.Fatalf("unexpected frame: %v", ev)
	}
}

func TestGatewayFailureIsNotBroadcast(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gw := mocks.NewMockTranscriber(ctrl)
	gw.EXPECT().
		Transcribe(gomock.Any(), gomock.Any()).
		Return(core.Transcription{}, fmt.Errorf("%w: boom", core.ErrModelFailure)).
		Times(1)

	ctl := newTestController(t, gw, Options{})
	alice := connect(t, ctl, "Alice")
	bob := connect(t, ctl, "Bob")

	alice.send(`{"type":"audio","audio":[0,0,128,63]}`)

	ev := alice.next(t)
	if ev["type"] != "error" || ev["message"] != "Audio processing error: model failure: boom" {
		t.Fatalf("unexpected frame: %v", ev)
	}
	bob.expectSilence(t)
}

func TestBlankTranscriptionIsDropped(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gw := mocks.NewMockTranscriber(ctrl)
	gw.EXPECT().Transcribe(gomock.Any(), gomock.Any()).Return(core.Transcription{Text: "   "}, nil).Times(1)

	ctl := newTestController(t, gw, Options{})
	alice := connect(t, ctl, "Alice")

	alice.send(`{"type":"audio","audio":"AAAAAA=="}`)
	alice.expectSilence(t)
}

func TestRateLimitedFramesGetAnError(t *testing.T) {
	t.Parallel()

	ctl := newTestController(t, nil, Options{RateLimit: 1, RateInterval: time.Minute})
	alice := connect(t, ctl, "Alice")

	alice.send(`{"type":"audio","testPhrase":"one"}`)
	if ev := alice.next(t); ev["text"] != "one" {
		t.Fatalf("unexpected frame: %v", ev)
	}
	alice.send(`{"type":"audio","testPhrase":"two"}`)
	if ev := alice.next(t); ev["message"] != "Rate limit exceeded" {
		t.Fatalf("unexpected frame: %v", ev)
	}
	alice.send(`{"type":"heartbeat"}`)
	if ev := alice.next(t); ev["type"] != "heartbeat" {
		t.Fatalf("heartbeat should not be rate limited: %v", ev)
	}
}

func TestPeerCloseDeregisters(t *testing.T) {
	t.Parallel()

	ctl := newTestController(t, nil, Options{})
	alice := connect(t, ctl, "Alice")
	bob := connect(t, ctl, "Bob")

	_ = alice.Close()
	waitFor(t, func() bool { return ctl.Orch.Hub.Len() == 1 })

	bob.send(`{"type":"audio","testPhrase":"anyone?"}`)
	if ev := bob.next(t); ev["speaker"] != "Bob" {
		t.Fatalf("unexpected frame: %v", ev)
	}
	if got := len(ctl.Orch.Speakers.Speakers()); got != 2 {
		t.Fatalf("speaker identities must outlive connections, got %d", got)
	}
	if got := len(ctl.Orch.Speakers.ActiveSpeakers()); got != 1 {
		t.Fatalf("unexpected active speakers: %d", got)
	}
}

func TestSequentialProcessingPerConnection(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gw := mocks.NewMockTranscriber(ctrl)
	release := make(chan struct{})
	gw.EXPECT().
		Transcribe(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ core.AudioPayload) (core.Transcription, error) {
			select {
			case <-release:
				return core.Transcription{Text: "first"}, nil
			case <-ctx.Done():
				return core.Transcription{}, ctx.Err()
			}
		}).
		Times(1)

	ctl := newTestController(t, gw, Options{})
	alice := connect(t, ctl, "Alice")

	alice.send(`{"type":"audio","audio":"AAAAAA=="}`)
	alice.send(`{"type":"audio","testPhrase":"second"}`)
	alice.expectSilence(t)

	close(release)
	if ev := alice.next(t); ev["text"] != "first" {
		t.Fatalf("unexpected order: %v", ev)
	}
	if ev := alice.next(t); ev["text"] != "second" {
		t.Fatalf("unexpected order: %v", ev)
	}
}

func TestDecodeAudio(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		want    []byte
		wantErr bool
	}{
		{name: "base64", raw: `"AQID"`, want: []byte{1, 2, 3}},
		{name: "array", raw: `[1, 2, 255]`, want: []byte{1, 2, 255}},
		{name: "empty array", raw: `[]`, want: []byte{}},
		{name: "out of range", raw: `[256]`, wantErr: true},
		{name: "negative", raw: `[-1]`, wantErr: true},
		{name: "number", raw: `42`, wantErr: true},
		{name: "object", raw: `{"a":1}`, wantErr: true},
		{name: "bad base64", raw: `"!!"`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := decodeAudio(json.RawMessage(tc.raw))
			if tc.wantErr {
				if !errors.Is(err, core.ErrInvalidPayload) {
					t.Fatalf("expected ErrInvalidPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != string(tc.want) {
				t.Fatalf("unexpected bytes: %v", got)
			}
		})
	}
}

func TestParseEncoding(t *testing.T) {
	t.Parallel()

	if enc, err := parseEncoding(""); err != nil || enc != core.EncodingFloat32 {
		t.Fatalf("unexpected default: %q %v", enc, err)
	}
	if enc, err := parseEncoding("PCM16LE"); err != nil || enc != core.EncodingPCM16LE {
		t.Fatalf("unexpected pcm16: %q %v", enc, err)
	}
	if _, err := parseEncoding("opus"); !errors.Is(err, core.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestTransportAfterClose(t *testing.T) {
	t.Parallel()

	tr := newWSTransport(newFakeWS(), 1)
	if err := tr.TrySend(core.Frame("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.TrySend(core.Frame("b")); !errors.Is(err, core.ErrBackpressure) {
		t.Fatalf("expected backpressure, got %v", err)
	}
	tr.Close()
	tr.Close()
	if err := tr.TrySend(core.Frame("c")); !errors.Is(err, core.ErrConnectionClosed) {
		t.Fatalf("expected closed, got %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
