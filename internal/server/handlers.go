package server

import (
	"errors"
	"fmt"
	"image"

	jsoniter "github.com/json-iterator/go"

	"github.com/ironsheep/obstacle-mcp/internal/detection"
	"github.com/ironsheep/obstacle-mcp/internal/feedback"
	"github.com/ironsheep/obstacle-mcp/internal/frame"
	"github.com/ironsheep/obstacle-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "obstacle_detect", "detection_start").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments jsoniter.RawMessage `json:"arguments"`
}

// errNoStillSource is returned by detection_frame when frames are read
// from a directory instead.
var errNoStillSource = errors.New("frames are read from the configured frame directory; detection_frame is unavailable")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Debug("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args jsoniter.RawMessage) (interface{}, error) {
	switch name {
	// Single-image Analysis
	case "obstacle_detect":
		return s.handleObstacleDetect(args)
	case "obstacle_edge_map":
		return s.handleObstacleEdgeMap(args)

	// Detection Session
	case "detection_start":
		return s.handleDetectionStart(args)
	case "detection_stop":
		return s.handleDetectionStop()
	case "detection_status":
		return s.ctrl.Status(), nil
	case "detection_set_sensitivity":
		return s.handleDetectionSetSensitivity(args)
	case "detection_frame":
		return s.handleDetectionFrame(args)

	// Feedback
	case "feedback_test":
		return s.handleFeedbackTest(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments; absent arguments decode as {}.
func unmarshalArgs(args jsoniter.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// sensitivityOr validates an optional sensitivity argument.
func sensitivityOr(v *int, def int) (int, error) {
	if v == nil {
		return def, nil
	}
	if *v < detection.MinSensitivity || *v > detection.MaxSensitivity {
		return 0, fmt.Errorf("sensitivity must be between %d and %d, got %d",
			detection.MinSensitivity, detection.MaxSensitivity, *v)
	}
	return *v, nil
}

// loadImage reads path through the cache and bounds its width.
func (s *Server) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	return imaging.FitWidth(img, s.maxWidth), nil
}

// === Single-image Analysis Handlers ===

type obstacleDetectArgs struct {
	Path        string `json:"path"`
	Sensitivity *int   `json:"sensitivity"`
	Overlay     bool   `json:"overlay"`
}

type obstacleDetectResult struct {
	Width       int                  `json:"width"`
	Height      int                  `json:"height"`
	Sensitivity int                  `json:"sensitivity"`
	Threshold   int                  `json:"threshold"`
	EdgePixels  int                  `json:"edge_pixels"`
	Regions     []detection.Region   `json:"regions"`
	Verdict     detection.Verdict    `json:"verdict"`
	Cue         *feedback.Cue        `json:"cue,omitempty"`
	Overlay     *imaging.ImageResult `json:"overlay,omitempty"`
}

func (s *Server) handleObstacleDetect(args jsoniter.RawMessage) (interface{}, error) {
	var a obstacleDetectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	sensitivity, err := sensitivityOr(a.Sensitivity, s.defaults.Sensitivity)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	f := frame.FromImage(img)
	edges := detection.BuildEdgeMap(f, sensitivity)
	regions := detection.ExtractRegions(edges)
	verdict := detection.Classify(regions, f.Width)

	result := &obstacleDetectResult{
		Width:       f.Width,
		Height:      f.Height,
		Sensitivity: sensitivity,
		Threshold:   detection.Threshold(sensitivity),
		EdgePixels:  edges.Count(),
		Regions:     regions,
		Verdict:     verdict,
	}
	if result.Regions == nil {
		result.Regions = []detection.Region{}
	}
	if verdict.Obstacle() {
		cue := feedback.BuildCue(feedback.EventVerdict, verdict, s.prefs)
		result.Cue = &cue
	}

	if a.Overlay {
		boxes := make([]image.Rectangle, len(regions))
		for i, r := range regions {
			boxes[i] = r.Box()
		}
		annotated, err := imaging.DrawRegions(img, boxes, s.overlay)
		if err != nil {
			return nil, err
		}
		encoded, err := imaging.EncodePNGBase64(annotated)
		if err != nil {
			return nil, err
		}
		result.Overlay = encoded
	}

	return result, nil
}

type obstacleEdgeMapArgs struct {
	Path        string `json:"path"`
	Sensitivity *int   `json:"sensitivity"`
}

type obstacleEdgeMapResult struct {
	*imaging.ImageResult
	Sensitivity int `json:"sensitivity"`
	Threshold   int `json:"threshold"`
	EdgePixels  int `json:"edge_pixels"`
}

func (s *Server) handleObstacleEdgeMap(args jsoniter.RawMessage) (interface{}, error) {
	var a obstacleEdgeMapArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	sensitivity, err := sensitivityOr(a.Sensitivity, s.defaults.Sensitivity)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	edges := detection.BuildEdgeMap(frame.FromImage(img), sensitivity)
	encoded, err := imaging.EncodePNGBase64(edges.Image())
	if err != nil {
		return nil, err
	}
	return &obstacleEdgeMapResult{
		ImageResult: encoded,
		Sensitivity: sensitivity,
		Threshold:   detection.Threshold(sensitivity),
		EdgePixels:  edges.Count(),
	}, nil
}

// === Detection Session Handlers ===

type detectionStartArgs struct {
	IntervalMs  *int `json:"interval_ms"`
	Sensitivity *int `json:"sensitivity"`
}

func (s *Server) handleDetectionStart(args jsoniter.RawMessage) (interface{}, error) {
	var a detectionStartArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	opts := s.defaults
	if a.IntervalMs != nil {
		opts.IntervalMs = *a.IntervalMs
	}
	if a.Sensitivity != nil {
		opts.Sensitivity = *a.Sensitivity
	}

	if err := s.ctrl.Start(opts); err != nil {
		return nil, err
	}
	return s.ctrl.Status(), nil
}

func (s *Server) handleDetectionStop() (interface{}, error) {
	s.ctrl.Stop()
	return s.ctrl.Status(), nil
}

type detectionSetSensitivityArgs struct {
	Sensitivity *int `json:"sensitivity"`
}

func (s *Server) handleDetectionSetSensitivity(args jsoniter.RawMessage) (interface{}, error) {
	var a detectionSetSensitivityArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Sensitivity == nil {
		return nil, errors.New("sensitivity is required")
	}
	if err := s.ctrl.SetSensitivity(*a.Sensitivity); err != nil {
		return nil, err
	}
	return s.ctrl.Status(), nil
}

type detectionFrameArgs struct {
	Path string `json:"path"`
}

type detectionFrameResult struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Sequence uint64 `json:"sequence"`
	Active   bool   `json:"detection_active"`
}

func (s *Server) handleDetectionFrame(args jsoniter.RawMessage) (interface{}, error) {
	if s.still == nil {
		return nil, errNoStillSource
	}
	var a detectionFrameArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	f := frame.FromImage(img)
	s.still.Set(f)
	return &detectionFrameResult{
		Width:    f.Width,
		Height:   f.Height,
		Sequence: f.Sequence,
		Active:   s.ctrl.IsActive(),
	}, nil
}

// === Feedback Handlers ===

type feedbackTestArgs struct {
	Direction string `json:"direction"`
}

func (s *Server) handleFeedbackTest(args jsoniter.RawMessage) (interface{}, error) {
	var a feedbackTestArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	kind, err := detection.ParseKind(a.Direction)
	if err != nil {
		return nil, err
	}
	if kind == detection.NoObstacle {
		return nil, fmt.Errorf("direction must be left, right or center")
	}

	verdict := detection.VerdictFor(kind)
	s.sink.OnVerdict(verdict)
	return feedback.BuildCue(feedback.EventVerdict, verdict, s.prefs), nil
}
