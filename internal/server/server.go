package server

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/obstacle-mcp/internal/clock"
	"github.com/ironsheep/obstacle-mcp/internal/controller"
	"github.com/ironsheep/obstacle-mcp/internal/feedback"
	"github.com/ironsheep/obstacle-mcp/internal/frame"
	"github.com/ironsheep/obstacle-mcp/internal/imaging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Name is reported to clients during initialize.
const Name = "obstacle-mcp"

// Config wires a Server to its collaborators. Zero values select defaults.
type Config struct {
	Logger logrus.FieldLogger

	// Source supplies frames to the detection loop. When nil the server owns
	// a StillSource fed by the detection_frame tool.
	Source frame.Source

	// Sink receives detection output in addition to the MCP notifications
	// the server sends itself.
	Sink feedback.Sink

	// Scheduler drives the detection loop.
	Scheduler clock.Scheduler

	Cache *imaging.ImageCache

	// Defaults are used for detection_start arguments that are omitted.
	Defaults controller.Options

	Preferences  feedback.Preferences
	OverlayColor string

	// MaxWidth bounds the width of images loaded by tools (0 disables).
	MaxWidth int

	Version string
}

// Server handles MCP protocol communication
type Server struct {
	cache    *imaging.ImageCache
	ctrl     *controller.Controller
	still    *frame.StillSource
	sink     feedback.Sink
	log      logrus.FieldLogger
	defaults controller.Options
	prefs    feedback.Preferences
	overlay  string
	maxWidth int
	version  string

	outMu sync.Mutex
	out   io.Writer
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      interface{}         `json:"id"`
	Method  string              `json:"method"`
	Params  jsoniter.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a new MCP server instance
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	defaults := cfg.Defaults
	if defaults.IntervalMs == 0 {
		defaults.IntervalMs = controller.DefaultIntervalMs
	}

	s := &Server{
		cache:    cache,
		log:      log.WithField("component", "server"),
		defaults: defaults,
		prefs:    cfg.Preferences,
		overlay:  cfg.OverlayColor,
		maxWidth: cfg.MaxWidth,
		version:  version,
	}

	source := cfg.Source
	if source == nil {
		s.still = frame.NewStillSource()
		source = s.still
	}

	s.sink = feedback.Multi(&notifySink{server: s}, cfg.Sink)
	s.ctrl = controller.New(source, s.sink, cfg.Scheduler, log)
	return s
}

// Controller returns the detection controller driven by the server's tools.
func (s *Server) Controller() *controller.Controller {
	return s.ctrl
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.RunIO(os.Stdin, os.Stdout)
}

// RunIO serves requests read line by line from r and writes responses and
// notifications to w. It returns when r is exhausted, stopping any running
// detection session first.
func (s *Server) RunIO(r io.Reader, w io.Writer) error {
	s.outMu.Lock()
	s.out = w
	s.outMu.Unlock()

	defer s.ctrl.Stop()

	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("failed to parse request")
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := s.write(resp); err != nil {
				s.log.WithError(err).Error("failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	s.log.Info("input closed, shutting down")
	return nil
}

// write encodes v as one line. Responses and notifications come from
// different goroutines, so writes are serialised.
func (s *Server) write(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.out == nil {
		return nil
	}
	_, err = s.out.Write(data)
	return err
}

// notify sends a notification. Failures are logged, never returned.
func (s *Server) notify(method string, params interface{}) {
	err := s.write(&MCPNotification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		s.log.WithError(err).WithField("method", method).Warn("failed to send notification")
	}
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized", "notifications/cancelled":
		// Client notifications, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools":   map[string]interface{}{},
				"logging": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": s.version,
			},
		},
	}
}
