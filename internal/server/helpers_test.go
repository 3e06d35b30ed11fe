package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/obstacle-mcp/internal/clock"
	"github.com/ironsheep/obstacle-mcp/internal/controller"
	"github.com/ironsheep/obstacle-mcp/internal/feedback"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type testServer struct {
	*Server
	sched *clock.ManualScheduler
	sink  *feedback.Recorder
	out   *bytes.Buffer
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newTestServer returns a server on a virtual clock whose notifications are
// captured in out.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		sched: clock.NewManualScheduler(epoch),
		sink:  feedback.NewRecorder(),
		out:   &bytes.Buffer{},
	}
	ts.Server = New(Config{
		Logger:      quietLogger(),
		Sink:        ts.sink,
		Scheduler:   ts.sched,
		Defaults:    controller.Options{Sensitivity: 50},
		Preferences: feedback.DefaultPreferences(),
		Version:     "test",
	})
	ts.Server.out = ts.out
	t.Cleanup(ts.ctrl.Stop)
	return ts
}

// createTestImageFile writes img as a PNG in a temporary directory.
func createTestImageFile(t *testing.T, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func solidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// obstacleImage is a 100x100 light image with a striped square spanning
// x,y in [10,40], which the detector reports as an obstacle on the left.
func obstacleImage() *image.RGBA {
	img := solidImage(100, 100, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	for y := 10; y <= 40; y++ {
		for x := 10; x <= 40; x += 2 {
			img.Set(x, y, color.RGBA{R: 20, G: 20, B: 20, A: 255})
		}
	}
	return img
}

// callTool invokes a tool and decodes its text content. A JSON-RPC error is
// returned rather than failing the test.
func callTool(t *testing.T, s *Server, name string, args interface{}) (map[string]interface{}, *MCPError) {
	t.Helper()

	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Result is %T", resp.Result)
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %#v", result["content"])
	}
	text, _ := content[0]["text"].(string)

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("tool result is not JSON: %v\n%s", err, text)
	}
	return out, nil
}

// mustCallTool is callTool for calls expected to succeed.
func mustCallTool(t *testing.T, s *Server, name string, args interface{}) map[string]interface{} {
	t.Helper()
	out, rpcErr := callTool(t, s, name, args)
	if rpcErr != nil {
		t.Fatalf("%s failed: %s: %v", name, rpcErr.Message, rpcErr.Data)
	}
	return out
}

// outputLines decodes every JSON line written so far.
func outputLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("invalid output line %q: %v", raw, err)
		}
		lines = append(lines, m)
	}
	return lines
}
