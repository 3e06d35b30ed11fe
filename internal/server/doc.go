// Package server implements the MCP (Model Context Protocol) server for the
// obstacle detector.
//
// The server exposes the detector to MCP clients as tools, and runs the
// periodic detection loop whose verdicts it streams back as notifications.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Single-image Analysis:
//   - obstacle_detect: Edge map, regions and verdict for one image
//   - obstacle_edge_map: The edge map rendered as a PNG
//
// Detection Session:
//   - detection_start: Start the periodic loop
//   - detection_stop: Stop it
//   - detection_status: Settings, last verdict and counters
//   - detection_set_sensitivity: Adjust sensitivity while running
//   - detection_frame: Publish the current camera frame
//
// Feedback:
//   - feedback_test: Send a test alert for a direction
//
// # Notifications
//
// While a session runs, the start event and every verdict are sent as
// notifications/message with the rendered cue (message, speech parameters
// and vibration pattern) as data. Verdicts use level "warning".
//
// # Frames
//
// By default the loop analyses the last image published with
// detection_frame. When the server is configured with another frame source,
// such as a watched directory, detection_frame is rejected.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// When stdin closes, any running session is stopped before Run returns.
package server
