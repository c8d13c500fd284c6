// Command scanruns lists existing processing runs for a dataset by reading
// the metadata.json manifests in <dataset>_<runid> directories.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/Imageomics/wing-segmentation/internal/manifest"
)

func main() {
	dataset := flag.String("dataset", "", "Path to the dataset directory (required)")
	outputBase := flag.String("output-base", "", "Base directory where runs were stored (default: next to the dataset)")
	flag.Parse()

	if *dataset == "" {
		fmt.Fprintln(os.Stderr, "Usage: scanruns -dataset <path> [-output-base <path>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	datasetPath, err := filepath.Abs(*dataset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve dataset path: %v\n", err)
		os.Exit(2)
	}
	base := *outputBase
	if base == "" {
		base = filepath.Dir(datasetPath)
	}

	runs, err := manifest.ScanRuns(datasetPath, base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	if len(runs) == 0 {
		fmt.Printf("No processing runs found for dataset %q under %s\n", filepath.Base(datasetPath), base)
		return
	}

	fmt.Printf("Found %d processing run(s) for dataset %q:\n\n", len(runs), filepath.Base(datasetPath))
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN DIR\tCOMPLETED\tIMAGES\tOK\tSKIP\tFAIL\tCONF\tIOU\tBACKGROUND")
	for _, r := range runs {
		st := r.Manifest.Status
		pr := r.Manifest.Parameters
		fmt.Fprintf(w, "%s\t%v\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%s\n",
			filepath.Base(r.Dir), st.Completed, r.Manifest.Dataset.NumImages,
			st.Succeeded, st.Skipped, st.Failed,
			pr.ConfidenceThreshold, pr.IoUThreshold, pr.Background)
	}
	w.Flush()
}
