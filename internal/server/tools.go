package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func sensitivityProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Edge sensitivity 0-100. Higher values detect fainter edges (threshold = 100 - sensitivity). Defaults to the configured sensitivity.",
		"minimum":     0,
		"maximum":     100,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Single-image Analysis
		{
			Name:        "obstacle_detect",
			Description: "Run the obstacle detector on one image: horizontal edge map, connected regions and a left/right/ahead verdict with its spoken message and vibration pattern. Optionally returns the image with detected regions highlighted.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty(),
					"sensitivity": sensitivityProperty(),
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Include a base64 PNG with each region outlined. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "obstacle_edge_map",
			Description: "Render the edge map the detector sees for an image as a base64 PNG (white = edge).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty(),
					"sensitivity": sensitivityProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Detection Session
		{
			Name:        "detection_start",
			Description: "Start periodic obstacle detection on the live frame source. Verdicts are sent as notifications/message. Fails if detection is already running.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"interval_ms": map[string]interface{}{
						"type":        "integer",
						"description": "Milliseconds between detection cycles (50-60000). Default 1000",
						"minimum":     50,
						"maximum":     60000,
					},
					"sensitivity": sensitivityProperty(),
				},
			},
		},
		{
			Name:        "detection_stop",
			Description: "Stop periodic obstacle detection. Does nothing if detection is not running.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "detection_status",
			Description: "Report whether detection is running, its settings, the last verdict and cycle counters.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "detection_set_sensitivity",
			Description: "Change the sensitivity of the running detection session. Applies from the next cycle.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sensitivity": sensitivityProperty(),
				},
				"required": []string{"sensitivity"},
			},
		},
		{
			Name:        "detection_frame",
			Description: "Publish an image file as the current camera frame for the detection loop. Unavailable when frames come from a watched directory.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Feedback
		{
			Name:        "feedback_test",
			Description: "Send a test alert for a direction through every feedback output, exactly as a real detection would.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"direction": map[string]interface{}{
						"type":        "string",
						"description": "Which alert to send",
						"enum":        []string{"left", "right", "center"},
					},
				},
				"required": []string{"direction"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
