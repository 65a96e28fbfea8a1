package server

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/scanlab/mathfind/internal/config"
	"github.com/scanlab/mathfind/internal/geometry"
)

func writePage(t *testing.T, path string, width, height int, ink ...geometry.Rect) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for _, r := range ink {
		for y := r.Y1; y < r.Y2; y++ {
			for x := r.X1; x < r.X2; x++ {
				img.Set(x, y, color.Black)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode page: %v", err)
	}
}

// writeRingPage draws a hollow square with a smaller square nested inside it
// plus one plain blob. The ring's nested count separates it from everything
// else in feature space.
func writeRingPage(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.White)
		}
	}
	fill := func(r geometry.Rect, c color.Color) {
		for y := r.Y1; y < r.Y2; y++ {
			for x := r.X1; x < r.X2; x++ {
				img.Set(x, y, c)
			}
		}
	}
	fill(geometry.Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}, color.Black)   // ring outer
	fill(geometry.Rect{X1: 6, Y1: 6, X2: 14, Y2: 14}, color.White)   // ring hole
	fill(geometry.Rect{X1: 8, Y1: 8, X2: 12, Y2: 12}, color.Black)   // nested square
	fill(geometry.Rect{X1: 25, Y1: 10, X2: 30, Y2: 15}, color.Black) // plain blob

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode page: %v", err)
	}
}

// newCorpusServer builds a server whose corpus holds the single ring page
// with ground truth covering the ring and its nested square.
func newCorpusServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	pagePath := filepath.Join(dir, "0.png")
	writeRingPage(t, pagePath)

	// Ring box {5,5,15,15} flipped into the bottom-left origin of a
	// 30-pixel-tall page.
	truthPath := filepath.Join(dir, "truth.dat")
	if err := os.WriteFile(truthPath, []byte("0.png displayed 5 15 15 25\n"), 0644); err != nil {
		t.Fatalf("failed to write ground truth: %v", err)
	}

	cfg := config.Default()
	cfg.OCR.Disabled = true
	cfg.Training.GroundTruth = truthPath
	cfg.Training.TrainingSet = dir
	cfg.Training.Predictor = filepath.Join(dir, "model.json")

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return s, pagePath
}

func callTool(t *testing.T, s *Server, name string, args interface{}) (interface{}, error) {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("failed to marshal arguments: %v", err)
	}
	return s.executeTool(name, raw)
}

func TestExecuteTool_Unknown(t *testing.T) {
	s := newTestServer(t)
	if _, err := callTool(t, s, "bogus_tool", map[string]string{}); err == nil {
		t.Error("expected an error for an unknown tool")
	}
}

func TestPageInfoTool(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "page.png")
	writePage(t, path, 64, 48)

	result, err := callTool(t, s, "page_info", map[string]string{"path": path})
	if err != nil {
		t.Fatalf("page_info failed: %v", err)
	}
	if result == nil {
		t.Fatal("empty page_info result")
	}
}

func TestSegmentPageTool(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "page.png")
	writePage(t, path, 40, 20,
		geometry.Rect{X1: 5, Y1: 5, X2: 10, Y2: 10},
		geometry.Rect{X1: 20, Y1: 8, X2: 26, Y2: 14},
	)

	result, err := callTool(t, s, "segment_page", map[string]string{"path": path})
	if err != nil {
		t.Fatalf("segment_page failed: %v", err)
	}
	seg, ok := result.(*SegmentResult)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if seg.BlobCount != 2 {
		t.Errorf("expected 2 blobs, got %d", seg.BlobCount)
	}
	want := BlobBox{X1: 5, Y1: 5, X2: 10, Y2: 10}
	if seg.Blobs[0] != want {
		t.Errorf("expected first blob %+v, got %+v", want, seg.Blobs[0])
	}
}

func TestExtractRegionTool(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "page.png")
	writePage(t, path, 40, 20)

	result, err := callTool(t, s, "extract_region", map[string]interface{}{
		"path": path, "x1": 0, "y1": 0, "x2": 10, "y2": 10, "scale": 2.0,
	})
	if err != nil {
		t.Fatalf("extract_region failed: %v", err)
	}
	if result == nil {
		t.Fatal("empty extract_region result")
	}
}

func TestClassifyBlobTool(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "page.png")
	writePage(t, path, 30, 20, geometry.Rect{X1: 5, Y1: 5, X2: 10, Y2: 10})

	result, err := callTool(t, s, "classify_blob", map[string]interface{}{
		"path": path, "x": 7, "y": 7,
	})
	if err != nil {
		t.Fatalf("classify_blob failed: %v", err)
	}
	cls, ok := result.(*ClassifyBlobResult)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if !cls.Found {
		t.Fatal("expected a blob at the probed position")
	}
	// No recognition attached and no neighbors: the ratio computes good,
	// the forced override still stamps bad.
	if cls.Evaluation.Computed {
		t.Error("expected the computed verdict for an isolated blob to be good")
	}
	if !cls.Evaluation.Final {
		t.Error("expected the final verdict to be forced bad")
	}
}

func TestClassifyBlobTool_Miss(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "page.png")
	writePage(t, path, 30, 20, geometry.Rect{X1: 5, Y1: 5, X2: 10, Y2: 10})

	result, err := callTool(t, s, "classify_blob", map[string]interface{}{
		"path": path, "x": 25, "y": 15,
	})
	if err != nil {
		t.Fatalf("classify_blob failed: %v", err)
	}
	if result.(*ClassifyBlobResult).Found {
		t.Error("expected no blob on blank paper")
	}
}

func TestDetectMathTool_RequiresModel(t *testing.T) {
	s, pagePath := newCorpusServer(t)
	if _, err := callTool(t, s, "detect_math", map[string]string{"path": pagePath}); err == nil {
		t.Error("expected detect_math without a trained model to fail")
	}
}

func TestTrainAndDetect(t *testing.T) {
	s, pagePath := newCorpusServer(t)

	result, err := callTool(t, s, "train", map[string]string{})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	tr, ok := result.(*TrainResult)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if tr.ModelID == "" {
		t.Error("expected the training run to report a model ID")
	}
	if tr.PageCount != 1 {
		t.Errorf("expected 1 training page, got %d", tr.PageCount)
	}
	if tr.SampleCount != 3 {
		t.Errorf("expected 3 samples, got %d", tr.SampleCount)
	}
	if tr.MathSamples != 2 {
		t.Errorf("expected 2 math samples, got %d", tr.MathSamples)
	}
	if _, err := os.Stat(tr.PredictorPath); err != nil {
		t.Errorf("expected the model to be saved: %v", err)
	}

	detectResult, err := callTool(t, s, "detect_math", map[string]string{"path": pagePath})
	if err != nil {
		t.Fatalf("detect_math failed: %v", err)
	}
	det, ok := detectResult.(*DetectResult)
	if !ok {
		t.Fatalf("unexpected result type %T", detectResult)
	}
	if det.TotalBlobs != 3 {
		t.Errorf("expected 3 blobs, got %d", det.TotalBlobs)
	}
	if det.MathBlobs != 1 {
		t.Errorf("expected 1 math blob, got %d", det.MathBlobs)
	}
	wantBox := BlobBox{X1: 5, Y1: 5, X2: 15, Y2: 15}
	if len(det.MathBoxes) != 1 || det.MathBoxes[0] != wantBox {
		t.Errorf("expected math box %+v, got %+v", wantBox, det.MathBoxes)
	}
}

func TestRenderOverlayTool(t *testing.T) {
	s, pagePath := newCorpusServer(t)

	if _, err := callTool(t, s, "train", map[string]string{}); err != nil {
		t.Fatalf("train failed: %v", err)
	}
	result, err := callTool(t, s, "render_overlay", map[string]string{"path": pagePath})
	if err != nil {
		t.Fatalf("render_overlay failed: %v", err)
	}
	if fmt.Sprintf("%v", result) == "" {
		t.Fatal("empty render_overlay result")
	}
}
