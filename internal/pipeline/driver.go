package pipeline

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Imageomics/wing-segmentation/internal/config"
	"github.com/Imageomics/wing-segmentation/internal/imageio"
)

// SkipReason classifies why an image produced no output.
type SkipReason string

const (
	SkipDecode     SkipReason = "decode-error"
	SkipNoInstance SkipReason = "no-instance"
	SkipInference  SkipReason = "inference-error"
)

// Record is one per-image outcome in the batch summary.
type Record struct {
	Path   string
	Reason SkipReason
	Err    string
}

// Summary is the user-visible batch report.
type Summary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Records   []Record
}

// ExitCode implements the CLI contract: 0 on full success or partial
// failure with at least one success, non-zero when images failed and none
// succeeded.
func (s Summary) ExitCode() int {
	if s.Failed > 0 && s.Succeeded == 0 {
		return 1
	}
	return 0
}

// Print writes the summary report.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\nProcessed %d images: %d succeeded, %d skipped, %d failed\n",
		s.Total, s.Succeeded, s.Skipped, s.Failed)
	for _, r := range s.Records {
		if r.Err != "" {
			fmt.Fprintf(w, "  %-16s %s: %s\n", r.Reason, r.Path, r.Err)
		} else {
			fmt.Fprintf(w, "  %-16s %s\n", r.Reason, r.Path)
		}
	}
}

// CollectImages lists the batch inputs under inputDir. Flat layout takes
// only files directly under the directory; nested layout walks the whole
// tree. Paths are returned sorted for deterministic processing order.
func CollectImages(inputDir string, layout config.Layout) ([]string, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", inputDir)
	}

	var paths []string
	if layout == config.LayoutFlat {
		entries, err := os.ReadDir(inputDir)
		if err != nil {
			return nil, fmt.Errorf("read input directory: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() && imageio.Supported(e.Name()) {
				paths = append(paths, filepath.Join(inputDir, e.Name()))
			}
		}
	} else {
		err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && imageio.Supported(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk input directory: %w", err)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Run processes every image under inputDir through the pipeline with the
// configured number of workers. Any per-image failure is caught, logged with
// the source path, and counted; the batch always runs to completion.
func (p *Pipeline) Run(inputDir string) (Summary, error) {
	paths, err := CollectImages(inputDir, p.cfg.InputLayout)
	if err != nil {
		return Summary{}, err
	}
	if len(paths) == 0 {
		return Summary{}, fmt.Errorf("no images found under %s", inputDir)
	}

	summary := Summary{Total: len(paths)}
	var mu sync.Mutex
	record := func(r Record, failed bool) {
		mu.Lock()
		defer mu.Unlock()
		summary.Records = append(summary.Records, r)
		if failed {
			summary.Failed++
		} else {
			summary.Skipped++
		}
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for w := 0; w < p.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				rel, relErr := filepath.Rel(inputDir, path)
				if relErr != nil {
					rel = filepath.Base(path)
				}
				crops, err := p.ProcessImage(path, rel)
				switch {
				case err == nil:
					mu.Lock()
					summary.Succeeded++
					mu.Unlock()
					p.log.Info("%s: wrote %d crop(s)", path, len(crops))
				case errors.Is(err, ErrNoInstance):
					p.log.Warn("%s: no wing instance found, skipped", path)
					record(Record{Path: path, Reason: SkipNoInstance}, false)
				default:
					p.log.Error("%s: %v", path, err)
					reason := SkipInference
					var decErr *DecodeError
					if errors.As(err, &decErr) {
						reason = SkipDecode
					}
					record(Record{Path: path, Reason: reason, Err: err.Error()}, true)
				}
			}
		}()
	}
	for _, path := range paths {
		jobs <- path
	}
	close(jobs)
	wg.Wait()

	sort.Slice(summary.Records, func(i, j int) bool {
		return summary.Records[i].Path < summary.Records[j].Path
	})
	return summary, nil
}
