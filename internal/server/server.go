package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/scanlab/mathfind/internal/config"
	"github.com/scanlab/mathfind/internal/detection"
	"github.com/scanlab/mathfind/internal/imaging"
	"github.com/scanlab/mathfind/internal/training"
)

// Server handles MCP protocol communication for the math detector.
type Server struct {
	cfg     *config.Config
	cache   *imaging.PageCache
	factory detection.Factory

	// mu serializes pipeline use: training replaces the pipeline's
	// classifier and tool calls may arrive while a run is in flight.
	mu       sync.Mutex
	pipeline *training.Pipeline
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
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

// New creates a server bound to the given configuration.
func New(cfg *config.Config) (*Server, error) {
	factory, err := newExtractorFactory(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		cache:    imaging.NewPageCache(),
		factory:  factory,
		pipeline: training.NewPipeline(training.NewCentroidTrainer()),
	}, nil
}

// newExtractorFactory builds the configured extractor variant with the
// configured bad-region policy.
func newExtractorFactory(cfg *config.Config) (detection.Factory, error) {
	policy := cfg.BadRegionPolicy()
	switch cfg.Extractor {
	case "nested":
		return detection.NewNestedCountFactory(), nil
	case "confidence":
		return detection.NewConfidenceFactory(policy), nil
	case "combined", "":
		return detection.NewCompositeFactory(
			detection.NewNestedCountFactory(),
			detection.NewConfidenceFactory(policy),
		), nil
	default:
		return nil, fmt.Errorf("unknown extractor variant: %s", cfg.Extractor)
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	scanner := bufio.NewScanner(os.Stdin)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("Failed to parse request: %v", err)
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				log.Printf("Failed to encode response: %v", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
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
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "mathfind",
				"version": "0.1.0",
			},
		},
	}
}
