package pipeline

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/Imageomics/wing-segmentation/internal/config"
	"github.com/Imageomics/wing-segmentation/internal/imageio"
	"github.com/Imageomics/wing-segmentation/internal/logger"
	"github.com/Imageomics/wing-segmentation/internal/mask"
	"github.com/Imageomics/wing-segmentation/internal/model"
	"github.com/Imageomics/wing-segmentation/pkg/geometry"
)

// stubDetector keys its canned detections on image width, which lets one
// stub serve a whole batch of differently-sized test images.
type stubDetector struct {
	byWidth map[int][]model.Detection
}

func (d *stubDetector) Detect(img image.Image) ([]model.Detection, error) {
	return d.byWidth[img.Bounds().Dx()], nil
}

func (d *stubDetector) Close() error { return nil }

// stubSegmenter fills the prompt box as the mask.
type stubSegmenter struct{}

func (s *stubSegmenter) Segment(img image.Image, prompt geometry.Box) (*mask.Mask, error) {
	b := img.Bounds()
	m := mask.New(b.Dx(), b.Dy())
	r := prompt.ToRect()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Set(x, y)
		}
	}
	return m, nil
}

func (s *stubSegmenter) Close() error { return nil }

func writeTestImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 2), uint8(y * 2), 120, 255})
		}
	}
	if err := imageio.SaveAtomic(path, img); err != nil {
		t.Fatal(err)
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.MinInstanceArea = 10
	cfg.CropMarginPx = 0
	return cfg
}

// End-to-end batch: image A has two clear wings, image B no detections,
// image C a single wing. Expect 2 succeeded, 1 skipped, 0 failed, output
// folders for A (2 files) and C (1 file), and a skip record for B.
func TestRunEndToEnd(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	writeTestImage(t, filepath.Join(inputDir, "a.png"), 200, 100)
	writeTestImage(t, filepath.Join(inputDir, "b.png"), 50, 50)
	writeTestImage(t, filepath.Join(inputDir, "c.png"), 120, 100)

	det := &stubDetector{byWidth: map[int][]model.Detection{
		200: {
			{Box: geometry.NewBox(10, 10, 80, 90, 0.9)},    // x-center 45 -> left
			{Box: geometry.NewBox(110, 10, 180, 90, 0.85)}, // x-center 145 -> right
		},
		120: {
			{Box: geometry.NewBox(20, 20, 100, 80, 0.7)},
		},
	}}

	p := New(testConfig(), det, &stubSegmenter{}, outputDir, logger.New())
	summary, err := p.Run(inputDir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Total != 3 || summary.Succeeded != 2 || summary.Skipped != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 3 total / 2 succeeded / 1 skipped / 0 failed", summary)
	}
	if summary.ExitCode() != 0 {
		t.Errorf("exit code = %d, want 0 for partial-skip batch", summary.ExitCode())
	}

	if len(summary.Records) != 1 {
		t.Fatalf("expected one skip record, got %d", len(summary.Records))
	}
	if summary.Records[0].Reason != SkipNoInstance || filepath.Base(summary.Records[0].Path) != "b.png" {
		t.Errorf("unexpected skip record: %+v", summary.Records[0])
	}

	// Image A: one left, one right. Right slot is flipped by default policy.
	for _, want := range []string{
		filepath.Join(outputDir, "a", "a_left_orig.png"),
		filepath.Join(outputDir, "a", "a_right_flipped.png"),
		filepath.Join(outputDir, "c", "c_unknown_orig.png"),
	} {
		if _, err := os.Stat(want); err != nil {
			t.Errorf("expected output %s: %v", want, err)
		}
	}

	entriesA, err := os.ReadDir(filepath.Join(outputDir, "a"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entriesA) != 2 {
		t.Errorf("specimen a has %d files, want 2", len(entriesA))
	}

	// No folder for the detection-less image.
	if _, err := os.Stat(filepath.Join(outputDir, "b")); !os.IsNotExist(err) {
		t.Error("specimen b should have no output folder")
	}
}

func TestRunIsIdempotentAcrossReruns(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeTestImage(t, filepath.Join(inputDir, "a.png"), 200, 100)

	det := &stubDetector{byWidth: map[int][]model.Detection{
		200: {
			{Box: geometry.NewBox(10, 10, 80, 90, 0.9)},
			{Box: geometry.NewBox(110, 10, 180, 90, 0.85)},
		},
	}}

	run := func() {
		p := New(testConfig(), det, &stubSegmenter{}, outputDir, logger.New())
		if _, err := p.Run(inputDir); err != nil {
			t.Fatal(err)
		}
	}
	run()

	firstRight, err := os.ReadFile(filepath.Join(outputDir, "a", "a_right_flipped.png"))
	if err != nil {
		t.Fatal(err)
	}

	run()

	secondRight, err := os.ReadFile(filepath.Join(outputDir, "a", "a_right_flipped.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(firstRight) != string(secondRight) {
		t.Error("re-run changed the flipped crop; flip must be applied exactly once per run from source")
	}

	entries, err := os.ReadDir(filepath.Join(outputDir, "a"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("re-run left %d files for specimen a, want 2 (no flip-state duplicates)", len(entries))
	}
}

func TestRunFailsCleanlyWhenNothingSucceeds(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	// A corrupt file is a decode failure, not a batch abort.
	if err := os.WriteFile(filepath.Join(inputDir, "bad.png"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(testConfig(), &stubDetector{}, &stubSegmenter{}, outputDir, logger.New())
	summary, err := p.Run(inputDir)
	if err != nil {
		t.Fatalf("batch should complete despite decode failures: %v", err)
	}
	if summary.Failed != 1 || summary.Succeeded != 0 {
		t.Errorf("summary = %+v, want 1 failed / 0 succeeded", summary)
	}
	if summary.ExitCode() == 0 {
		t.Error("exit code should be non-zero when images failed and none succeeded")
	}
	if summary.Records[0].Reason != SkipDecode {
		t.Errorf("reason = %s, want decode-error", summary.Records[0].Reason)
	}
}

func TestCollectImagesFlatVsNested(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "top.png"), 10, 10)
	writeTestImage(t, filepath.Join(dir, "sub", "deep.png"), 10, 10)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	flat, err := CollectImages(dir, config.LayoutFlat)
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 1 || filepath.Base(flat[0]) != "top.png" {
		t.Errorf("flat layout = %v, want only top.png", flat)
	}

	nested, err := CollectImages(dir, config.LayoutNested)
	if err != nil {
		t.Fatal(err)
	}
	if len(nested) != 2 {
		t.Errorf("nested layout found %d images, want 2", len(nested))
	}
}

func TestCollectImagesMissingDirIsFatal(t *testing.T) {
	if _, err := CollectImages(filepath.Join(t.TempDir(), "absent"), config.LayoutFlat); err == nil {
		t.Error("missing input directory must be a startup error")
	}
}
