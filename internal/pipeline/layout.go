package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Imageomics/wing-segmentation/internal/orient"
	"github.com/Imageomics/wing-segmentation/internal/resolver"
)

// Layout maps specimens to their output locations. One folder per specimen;
// crop files encode slot and flip state so re-runs overwrite deterministically
// and can tell whether orientation normalization was already applied.
type Layout struct {
	Root string
}

// SpecimenID derives the stable specimen identifier from the source path:
// the filename stem, prefixed by the relative directory (with separators
// collapsed) when the input tree is nested.
func SpecimenID(relPath string) string {
	dir, file := filepath.Split(relPath)
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	if dir == "" {
		return stem
	}
	return strings.ReplaceAll(dir, "/", "-") + "-" + stem
}

// SpecimenDir returns the folder holding all outputs of one specimen.
func (l Layout) SpecimenDir(specimen string) string {
	return filepath.Join(l.Root, specimen)
}

// CropPath returns the output path for one crop:
// <root>/<specimen>/<specimen>_<slot>_<flipstate>.png
func (l Layout) CropPath(specimen string, slot resolver.Slot, state orient.FlipState) string {
	name := fmt.Sprintf("%s_%s_%s.png", specimen, slot, state)
	return filepath.Join(l.SpecimenDir(specimen), name)
}

// SlotPaths returns both possible flip-state paths for a specimen/slot pair.
// The driver removes the stale one before writing so a re-run never leaves
// two flip states of the same wing behind.
func (l Layout) SlotPaths(specimen string, slot resolver.Slot) []string {
	return []string{
		l.CropPath(specimen, slot, orient.FlipNone),
		l.CropPath(specimen, slot, orient.FlipApplied),
	}
}

// MaskPath returns the saved-mask location for a specimen/slot pair.
func (l Layout) MaskPath(specimen string, slot resolver.Slot) string {
	return filepath.Join(l.Root, "masks", fmt.Sprintf("%s_%s_mask.png", specimen, slot))
}

// VizPath returns the segmentation-overlay location for a specimen.
func (l Layout) VizPath(specimen string) string {
	return filepath.Join(l.Root, "seg_viz", specimen+"_viz.png")
}

// ParseCropName recovers (specimen, slot, flip state) from a crop filename.
// Slot and flip state come from fixed vocabularies, so they are parsed from
// the right and the specimen identifier may itself contain underscores.
func ParseCropName(name string) (specimen string, slot resolver.Slot, state orient.FlipState, err error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndex(stem, "_")
	if i < 0 {
		return "", "", "", fmt.Errorf("crop name %q: missing flip state", name)
	}
	stateStr := stem[i+1:]
	rest := stem[:i]
	switch orient.FlipState(stateStr) {
	case orient.FlipNone, orient.FlipApplied:
		state = orient.FlipState(stateStr)
	default:
		return "", "", "", fmt.Errorf("crop name %q: unknown flip state %q", name, stateStr)
	}

	j := strings.LastIndex(rest, "_")
	if j < 0 {
		return "", "", "", fmt.Errorf("crop name %q: missing slot", name)
	}
	slotStr := rest[j+1:]
	switch resolver.Slot(slotStr) {
	case resolver.SlotLeft, resolver.SlotRight, resolver.SlotUnknown:
		slot = resolver.Slot(slotStr)
	default:
		return "", "", "", fmt.Errorf("crop name %q: unknown slot %q", name, slotStr)
	}

	specimen = rest[:j]
	if specimen == "" {
		return "", "", "", fmt.Errorf("crop name %q: empty specimen identifier", name)
	}
	return specimen, slot, state, nil
}
