// Package resolver turns raw detector candidates into at most two
// semantically-slotted wing instances.
package resolver

import (
	"sort"

	"github.com/Imageomics/wing-segmentation/internal/model"
	"github.com/Imageomics/wing-segmentation/pkg/geometry"
)

// Slot is the semantic role assigned to a resolved instance.
type Slot string

const (
	SlotLeft    Slot = "left"
	SlotRight   Slot = "right"
	SlotUnknown Slot = "unknown"
)

// Instance is one resolved wing candidate, ready for segmentation.
type Instance struct {
	Box  geometry.Box
	Slot Slot
}

// Result carries the resolved instances and whether candidates beyond the
// top two were discarded (an ambiguous detection, reported as a warning).
type Result struct {
	Instances []Instance
	Discarded int // boxes dropped as surplus beyond the top two
}

// Resolve filters and slots the detector candidates:
//
//  1. Discard boxes below the confidence threshold.
//  2. Greatest-confidence-wins NMS at the IoU threshold.
//  3. Zero survivors: no instances (the caller reports, not an error).
//  4. One survivor: slot unknown.
//  5. Two or more: keep the two highest-confidence boxes; the smaller
//     x-center is left, the other right. Surplus boxes are noise.
//
// The left/right assignment is positional, not anatomical: with more than
// two true wings in frame the resolver still keeps exactly two.
func Resolve(detections []model.Detection, confThreshold, iouThreshold float64) Result {
	kept := make([]geometry.Box, 0, len(detections))
	for _, d := range detections {
		if d.Box.Confidence >= confThreshold {
			kept = append(kept, d.Box)
		}
	}

	kept = suppress(kept, iouThreshold)

	switch len(kept) {
	case 0:
		return Result{}
	case 1:
		return Result{Instances: []Instance{{Box: kept[0], Slot: SlotUnknown}}}
	}

	// Top two by confidence; the sort is stable so equal-confidence boxes
	// retain the detector's original order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	discarded := len(kept) - 2
	a, b := kept[0], kept[1]

	left, right := a, b
	// Tie-break on equal centers keeps detector order: a stays left.
	if b.CenterX() < a.CenterX() {
		left, right = b, a
	}

	return Result{
		Instances: []Instance{
			{Box: left, Slot: SlotLeft},
			{Box: right, Slot: SlotRight},
		},
		Discarded: discarded,
	}
}

// suppress applies greatest-confidence-wins non-maximum suppression: any box
// overlapping an already-kept higher-confidence box at or above the IoU
// threshold is dropped.
func suppress(boxes []geometry.Box, iouThreshold float64) []geometry.Box {
	if len(boxes) <= 1 {
		return boxes
	}

	order := make([]int, len(boxes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return boxes[order[i]].Confidence > boxes[order[j]].Confidence
	})

	var kept []geometry.Box
	for _, idx := range order {
		candidate := boxes[idx]
		dup := false
		for _, k := range kept {
			if candidate.IoU(k) >= iouThreshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, candidate)
		}
	}
	return kept
}
