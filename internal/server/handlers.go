package server

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/scanlab/mathfind/internal/detection"
	"github.com/scanlab/mathfind/internal/geometry"
	"github.com/scanlab/mathfind/internal/grid"
	"github.com/scanlab/mathfind/internal/imaging"
	"github.com/scanlab/mathfind/internal/ocr"
	"github.com/scanlab/mathfind/internal/training"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "segment_page", "detect_math").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Page Information
	case "page_info":
		return s.handlePageInfo(args)

	// Segmentation
	case "segment_page":
		return s.handleSegmentPage(args)
	case "extract_region":
		return s.handleExtractRegion(args)

	// Classification
	case "classify_blob":
		return s.handleClassifyBlob(args)
	case "detect_math":
		return s.handleDetectMath(args)
	case "render_overlay":
		return s.handleRenderOverlay(args)

	// Training
	case "train":
		return s.handleTrain(args)

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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// preparePage loads, segments, and (when the engine is available)
// recognizes one page, producing a grid ready for classification.
func (s *Server) preparePage(path string) (*grid.Grid, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	g := imaging.SegmentPage(img)

	if ocr.Available() && !s.cfg.OCR.Disabled {
		page, err := ocr.RecognizePage(path, s.cfg.OCR.Language)
		if err != nil {
			return nil, fmt.Errorf("recognition failed for %s: %w", path, err)
		}
		g.AttachRecognition(page)
	}
	return g, nil
}

// pageImageIndex derives the ground-truth image index from the page's file
// name (e.g. "7.png" -> 7), falling back to the page's list position for
// non-numeric names.
func pageImageIndex(path string, fallback int) int {
	name := filepath.Base(path)
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		name = name[:dot]
	}
	if index, err := strconv.Atoi(name); err == nil {
		return index
	}
	return fallback
}

// ensureDetectionReady makes sure the pipeline has an extractor and a
// trained classifier, loading the saved model when no training has run in
// this session. Callers must hold s.mu.
func (s *Server) ensureDetectionReady() error {
	p := s.pipeline
	if p.Context() == nil {
		p.Configure(s.cfg.Training.GroundTruth, s.cfg.Training.TrainingSet, s.cfg.Training.Extension)
		if err := p.InitFeatureExtraction(s.factory); err != nil {
			return err
		}
	}
	if p.IsTrained() {
		return nil
	}
	model, err := training.LoadCentroidClassifier(s.cfg.Training.Predictor)
	if err != nil {
		return fmt.Errorf("no trained model available (run the train tool first): %w", err)
	}
	p.LoadClassifier(model)
	return nil
}

// === Page Information Handlers ===

type pagePathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handlePageInfo(args json.RawMessage) (interface{}, error) {
	var a pagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadPageInfo(s.cache, a.Path)
}

// === Segmentation Handlers ===

// BlobBox is one blob's bounding box in page coordinates.
type BlobBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func blobBox(r geometry.Rect) BlobBox {
	return BlobBox{X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: r.Y2}
}

// SegmentResult reports the blobs found on one page.
type SegmentResult struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	BlobCount int       `json:"blob_count"`
	Blobs     []BlobBox `json:"blobs"`
}

func (s *Server) handleSegmentPage(args json.RawMessage) (interface{}, error) {
	var a pagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	g := imaging.SegmentPage(img)

	result := &SegmentResult{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
	cursor := g.NewFullSearch()
	for b := cursor.Next(); b != nil; b = cursor.Next() {
		result.Blobs = append(result.Blobs, blobBox(b.BoundingBox()))
	}
	result.BlobCount = len(result.Blobs)
	return result, nil
}

type extractRegionArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleExtractRegion(args json.RawMessage) (interface{}, error) {
	var a extractRegionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.ExtractRegion(img, geometry.Rect{X1: a.X1, Y1: a.Y1, X2: a.X2, Y2: a.Y2}, a.Scale)
}

// === Classification Handlers ===

type classifyBlobArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// ClassifyBlobResult reports the bad-region evaluation for the blob at a
// page position.
type ClassifyBlobResult struct {
	Found      bool                          `json:"found"`
	Box        BlobBox                       `json:"box,omitempty"`
	Evaluation detection.BadRegionEvaluation `json:"evaluation"`
}

func (s *Server) handleClassifyBlob(args json.RawMessage) (interface{}, error) {
	var a classifyBlobArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	g, err := s.preparePage(a.Path)
	if err != nil {
		return nil, err
	}

	var target *grid.Blob
	probe := geometry.Rect{X1: a.X, Y1: a.Y, X2: a.X + 1, Y2: a.Y + 1}
	g.EachIn(probe, func(b *grid.Blob) bool {
		target = b
		return false
	})
	if target == nil {
		return &ClassifyBlobResult{Found: false}, nil
	}

	classifier := detection.NewBadRegionClassifier(s.cfg.BadRegionPolicy())
	return &ClassifyBlobResult{
		Found:      true,
		Box:        blobBox(target.BoundingBox()),
		Evaluation: classifier.Evaluate(target),
	}, nil
}

// DetectResult reports the math regions found on one page.
type DetectResult struct {
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	TotalBlobs int       `json:"total_blobs"`
	MathBlobs  int       `json:"math_blobs"`
	MathBoxes  []BlobBox `json:"math_boxes"`
}

func (s *Server) handleDetectMath(args json.RawMessage) (interface{}, error) {
	var a pagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureDetectionReady(); err != nil {
		return nil, err
	}

	g, err := s.preparePage(a.Path)
	if err != nil {
		return nil, err
	}
	detected, err := s.pipeline.DetectPage(g)
	if err != nil {
		return nil, err
	}

	result := &DetectResult{
		Width:      g.Bounds().Width(),
		Height:     g.Bounds().Height(),
		TotalBlobs: g.Len(),
		MathBlobs:  detected,
	}
	cursor := g.NewFullSearch()
	for b := cursor.Next(); b != nil; b = cursor.Next() {
		if b.MathDetected() {
			result.MathBoxes = append(result.MathBoxes, blobBox(b.BoundingBox()))
		}
	}
	return result, nil
}

func (s *Server) handleRenderOverlay(args json.RawMessage) (interface{}, error) {
	var a pagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.preparePage(a.Path)
	if err != nil {
		return nil, err
	}

	// Detection verdicts are best-effort: without a trained model the
	// overlay still shows segmentation and bad regions.
	if err := s.ensureDetectionReady(); err == nil {
		if _, err := s.pipeline.DetectPage(g); err != nil {
			return nil, err
		}
	}
	classifier := detection.NewBadRegionClassifier(s.cfg.BadRegionPolicy())
	cursor := g.NewFullSearch()
	for b := cursor.Next(); b != nil; b = cursor.Next() {
		classifier.Classify(b)
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.RenderVerdictOverlay(img, g)
}

// === Training Handlers ===

// TrainResult summarizes a completed training run.
type TrainResult struct {
	ModelID       string `json:"model_id"`
	PredictorPath string `json:"predictor_path"`
	PageCount     int    `json:"page_count"`
	SampleCount   int    `json:"sample_count"`
	MathSamples   int    `json:"math_samples"`
}

func (s *Server) handleTrain(args json.RawMessage) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := training.NewPipeline(training.NewCentroidTrainer())
	p.Configure(s.cfg.Training.GroundTruth, s.cfg.Training.TrainingSet, s.cfg.Training.Extension)
	if err := p.InitFeatureExtraction(s.factory); err != nil {
		return nil, err
	}

	pages, err := p.Context().CorpusPages()
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no training pages found under %s", s.cfg.Training.TrainingSet)
	}

	// Segmentation and recognition parallelize cleanly per page; feature
	// extraction and labeling stay serial because the extractor carries
	// per-page state.
	grids := make([]*grid.Grid, len(pages))
	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for i, path := range pages {
		i, path := i, path
		eg.Go(func() error {
			g, err := s.preparePage(path)
			if err != nil {
				return err
			}
			grids[i] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := &TrainResult{
		PredictorPath: s.cfg.Training.Predictor,
		PageCount:     len(pages),
	}
	samplesByImage := make([][]*training.Sample, len(grids))
	for i, g := range grids {
		samples := p.CollectSamples(g, pageImageIndex(pages[i], i))
		samplesByImage[i] = samples
		for _, sample := range samples {
			result.SampleCount++
			if sample.Label {
				result.MathSamples++
			}
		}
	}

	p.InitTraining(samplesByImage, s.cfg.Training.Predictor)
	if err := p.Train(); err != nil {
		return nil, err
	}
	s.pipeline = p

	model, err := training.LoadCentroidClassifier(s.cfg.Training.Predictor)
	if err != nil {
		return nil, fmt.Errorf("trained model did not round-trip: %w", err)
	}
	result.ModelID = model.ModelID
	return result, nil
}
