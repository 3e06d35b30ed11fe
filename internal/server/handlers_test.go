package server

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/obstacle-mcp/internal/frame"
)

func TestToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	tools := resp.Result.(map[string]interface{})["tools"].([]Tool)

	var names []string
	for _, tool := range tools {
		names = append(names, tool.Name)
		if tool.Description == "" {
			t.Errorf("%s has no description", tool.Name)
		}
		if tool.InputSchema["type"] != "object" {
			t.Errorf("%s schema type: got %v", tool.Name, tool.InputSchema["type"])
		}
	}
	sort.Strings(names)

	want := []string{
		"detection_frame", "detection_set_sensitivity", "detection_start", "detection_status",
		"detection_stop", "feedback_test", "obstacle_detect", "obstacle_edge_map",
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("tools: got %v, want %v", names, want)
	}

	for _, tool := range tools {
		if _, err := s.executeTool(tool.Name, nil); err != nil && strings.Contains(err.Error(), "unknown tool") {
			t.Errorf("%s is listed but not dispatched", tool.Name)
		}
	}
}

func TestHandleObstacleDetect(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, obstacleImage())

	out := mustCallTool(t, s.Server, "obstacle_detect", map[string]interface{}{"path": path})

	if out["width"] != float64(100) || out["height"] != float64(100) {
		t.Errorf("dimensions: got %vx%v", out["width"], out["height"])
	}
	if out["threshold"] != float64(50) {
		t.Errorf("threshold: got %v", out["threshold"])
	}
	if out["edge_pixels"] != float64(992) {
		t.Errorf("edge_pixels: got %v, want 992", out["edge_pixels"])
	}

	regions := out["regions"].([]interface{})
	if len(regions) != 1 {
		t.Fatalf("regions: got %d, want 1", len(regions))
	}
	r := regions[0].(map[string]interface{})
	if r["min_x"] != float64(9) || r["max_x"] != float64(40) || r["center_x"] != 24.5 {
		t.Errorf("region: got %v", r)
	}

	verdict := out["verdict"].(map[string]interface{})
	if verdict["kind"] != "left" || verdict["message"] != "Don't go left" {
		t.Errorf("verdict: got %v", verdict)
	}
	if _, ok := out["cue"]; !ok {
		t.Error("cue missing for an obstacle")
	}
	if _, ok := out["overlay"]; ok {
		t.Error("overlay returned without being requested")
	}

	// Analysis must not feed the live session.
	if len(s.sink.Verdicts()) != 0 {
		t.Error("obstacle_detect forwarded a verdict to the sink")
	}
}

func TestHandleObstacleDetect_Overlay(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, obstacleImage())

	out := mustCallTool(t, s.Server, "obstacle_detect", map[string]interface{}{"path": path, "overlay": true})

	overlay, ok := out["overlay"].(map[string]interface{})
	if !ok {
		t.Fatal("overlay missing")
	}
	data, err := base64.StdEncoding.DecodeString(overlay["image_base64"].(string))
	if err != nil {
		t.Fatalf("overlay is not base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("overlay is not a PNG: %v", err)
	}

	// Region {9,10}-{40,40} padded by 10: the top stroke runs along y=0.
	r, g, b, _ := img.At(20, 0).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("stroke pixel: got (%d,%d,%d), want red", r>>8, g>>8, b>>8)
	}
}

func TestHandleObstacleDetect_Clear(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, solidImage(60, 40, color.White))

	out := mustCallTool(t, s.Server, "obstacle_detect", map[string]interface{}{"path": path, "sensitivity": 100})

	if regions := out["regions"].([]interface{}); len(regions) != 0 {
		t.Errorf("regions: got %v, want none", regions)
	}
	if kind := out["verdict"].(map[string]interface{})["kind"]; kind != "none" {
		t.Errorf("verdict: got %v, want none", kind)
	}
	if _, ok := out["cue"]; ok {
		t.Error("cue returned without an obstacle")
	}
}

func TestHandleObstacleDetect_Errors(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, obstacleImage())

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing path", map[string]interface{}{}, "path is required"},
		{"missing file", map[string]interface{}{"path": "/nonexistent/frame.png"}, "failed to open image"},
		{"sensitivity too high", map[string]interface{}{"path": path, "sensitivity": 150}, "sensitivity"},
		{"negative sensitivity", map[string]interface{}{"path": path, "sensitivity": -1}, "sensitivity"},
		{"wrong argument type", map[string]interface{}{"path": 12}, "invalid arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rpcErr := callTool(t, s.Server, "obstacle_detect", tt.args)
			if rpcErr == nil {
				t.Fatal("expected an error")
			}
			if rpcErr.Code != -32000 {
				t.Errorf("code: got %d, want -32000", rpcErr.Code)
			}
			if data, _ := rpcErr.Data.(string); !strings.Contains(data, tt.want) {
				t.Errorf("error data %q does not mention %q", data, tt.want)
			}
		})
	}
}

func TestHandleObstacleEdgeMap(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, obstacleImage())

	out := mustCallTool(t, s.Server, "obstacle_edge_map", map[string]interface{}{"path": path, "sensitivity": 50})

	if out["edge_pixels"] != float64(992) || out["mime_type"] != "image/png" {
		t.Errorf("result: edge_pixels=%v mime_type=%v", out["edge_pixels"], out["mime_type"])
	}
	data, err := base64.StdEncoding.DecodeString(out["image_base64"].(string))
	if err != nil {
		t.Fatalf("not base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a PNG: %v", err)
	}
	if r, _, _, _ := img.At(9, 10).RGBA(); r>>8 != 255 {
		t.Error("edge pixel (9,10) is not white")
	}
	if r, _, _, _ := img.At(50, 50).RGBA(); r>>8 != 0 {
		t.Error("background pixel (50,50) is not black")
	}
}

func TestDetectionSessionTools(t *testing.T) {
	s := newTestServer(t)

	status := mustCallTool(t, s.Server, "detection_start", map[string]interface{}{"interval_ms": 500, "sensitivity": 60})
	if status["active"] != true || status["interval_ms"] != float64(500) || status["sensitivity"] != float64(60) {
		t.Errorf("start status: got %v", status)
	}

	_, rpcErr := callTool(t, s.Server, "detection_start", nil)
	if rpcErr == nil || !strings.Contains(rpcErr.Data.(string), "already active") {
		t.Errorf("second start: got %+v", rpcErr)
	}

	status = mustCallTool(t, s.Server, "detection_set_sensitivity", map[string]interface{}{"sensitivity": 70})
	if status["sensitivity"] != float64(70) || status["threshold"] != float64(30) {
		t.Errorf("set sensitivity: got %v", status)
	}

	if _, rpcErr := callTool(t, s.Server, "detection_set_sensitivity", map[string]interface{}{}); rpcErr == nil {
		t.Error("missing sensitivity accepted")
	}
	if _, rpcErr := callTool(t, s.Server, "detection_set_sensitivity", map[string]interface{}{"sensitivity": 101}); rpcErr == nil {
		t.Error("out of range sensitivity accepted")
	}

	status = mustCallTool(t, s.Server, "detection_stop", nil)
	if status["active"] != false {
		t.Errorf("stop status: got %v", status)
	}
	mustCallTool(t, s.Server, "detection_stop", nil)

	_, rpcErr = callTool(t, s.Server, "detection_set_sensitivity", map[string]interface{}{"sensitivity": 10})
	if rpcErr == nil || !strings.Contains(rpcErr.Data.(string), "not active") {
		t.Errorf("set sensitivity while idle: got %+v", rpcErr)
	}

	status = mustCallTool(t, s.Server, "detection_start", map[string]interface{}{"sensitivity": 20})
	if status["sensitivity"] != float64(20) || status["interval_ms"] != float64(1000) {
		t.Errorf("restart status: got %v", status)
	}
}

func TestDetectionStart_InvalidInterval(t *testing.T) {
	s := newTestServer(t)
	_, rpcErr := callTool(t, s.Server, "detection_start", map[string]interface{}{"interval_ms": 5})
	if rpcErr == nil || !strings.Contains(rpcErr.Data.(string), "invalid detection options") {
		t.Errorf("got %+v", rpcErr)
	}
	if s.Controller().IsActive() {
		t.Error("session started with invalid options")
	}
}

func TestDetectionLoop(t *testing.T) {
	s := newTestServer(t)

	mustCallTool(t, s.Server, "detection_start", nil)
	s.sched.Advance(2 * time.Second)
	status := mustCallTool(t, s.Server, "detection_status", nil)
	stats := status["stats"].(map[string]interface{})
	if stats["skipped_no_frame"] != float64(2) {
		t.Errorf("skipped_no_frame: got %v, want 2", stats["skipped_no_frame"])
	}

	out := mustCallTool(t, s.Server, "detection_frame", map[string]interface{}{"path": createTestImageFile(t, obstacleImage())})
	if out["sequence"] != float64(1) || out["detection_active"] != true {
		t.Errorf("detection_frame: got %v", out)
	}

	s.sched.Advance(time.Second)
	verdicts := s.sink.Verdicts()
	if len(verdicts) != 1 || verdicts[0].Message != "Don't go left" {
		t.Fatalf("verdicts: got %+v", verdicts)
	}

	status = mustCallTool(t, s.Server, "detection_status", nil)
	last := status["last_verdict"].(map[string]interface{})
	if last["kind"] != "left" {
		t.Errorf("last_verdict: got %v", last)
	}
}

func TestDetectionFrame_DirectorySource(t *testing.T) {
	src, err := frame.NewDirSource(t.TempDir(), 0, quietLogger())
	if err != nil {
		t.Fatalf("NewDirSource failed: %v", err)
	}
	s := New(Config{Logger: quietLogger(), Source: src})

	_, rpcErr := callTool(t, s, "detection_frame", map[string]interface{}{"path": createTestImageFile(t, obstacleImage())})
	if rpcErr == nil || !strings.Contains(rpcErr.Data.(string), "frame directory") {
		t.Errorf("got %+v", rpcErr)
	}
}

func TestFeedbackTest(t *testing.T) {
	s := newTestServer(t)

	cue := mustCallTool(t, s.Server, "feedback_test", map[string]interface{}{"direction": "right"})
	if cue["direction"] != "right" || cue["message"] != "Don't go right" {
		t.Errorf("cue: got %v", cue)
	}
	speech := cue["speech"].(map[string]interface{})
	if speech["rate"] != 0.9 || speech["volume"] != float64(1) {
		t.Errorf("speech: got %v", speech)
	}

	verdicts := s.sink.Verdicts()
	if len(verdicts) != 1 || verdicts[0].Message != "Don't go right" {
		t.Errorf("sink verdicts: got %+v", verdicts)
	}
	lines := outputLines(t, s.out)
	if len(lines) != 1 || lines[0]["method"] != "notifications/message" {
		t.Errorf("notifications: got %v", lines)
	}

	for _, bad := range []string{"up", "none", ""} {
		if _, rpcErr := callTool(t, s.Server, "feedback_test", map[string]interface{}{"direction": bad}); rpcErr == nil {
			t.Errorf("direction %q accepted", bad)
		}
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: []byte(`"not an object"`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("invalid params: got %+v", resp.Error)
	}

	_, rpcErr := callTool(t, s.Server, "image_crop", nil)
	if rpcErr == nil || !strings.Contains(rpcErr.Data.(string), "unknown tool") {
		t.Errorf("unknown tool: got %+v", rpcErr)
	}
}
