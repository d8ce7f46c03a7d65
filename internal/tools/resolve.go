package tools

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Remote parameter names understood by the conversion engine.
const (
	paramPreset     = "Preset"
	paramQuality    = "Quality"
	paramWidth      = "ImageWidth"
	paramHeight     = "ImageHeight"
	paramTargetSize = "CompressionFileSize"
)

// Compression presets, from most to least aggressive.
const (
	presetArchive = "archive"
	presetWeb     = "web"
	presetText    = "text"
)

// convertOps maps a convert sub-tool to its operation name. Ambiguous source
// formats (word, excel, powerpoint) are resolved from the file extension.
var convertOps = map[string]string{
	"word-to-pdf":       "docx/to/pdf",
	"excel-to-pdf":      "xlsx/to/pdf",
	"powerpoint-to-pdf": "pptx/to/pdf",
	"jpg-to-pdf":        "jpg/to/pdf",
	"png-to-pdf":        "png/to/pdf",
	"html-to-pdf":       "html/to/pdf",
	"pdf-to-jpg":        "pdf/to/jpg",
	"pdf-to-png":        "pdf/to/png",
	"pdf-to-word":       "pdf/to/docx",
}

// legacyExtensionOps overrides the operation source token for pre-OOXML
// extensions of the ambiguous office formats.
var legacyExtensionOps = map[string]string{
	".doc": "doc/to/pdf",
	".xls": "xls/to/pdf",
	".ppt": "ppt/to/pdf",
}

// Resolve computes the remote operation for a tool selection. It never
// performs network I/O; a failure here means the orchestration must not
// start.
func Resolve(sel Selection, file FileInfo) (Operation, error) {
	switch sel.View {
	case ViewConvert:
		return resolveConvert(sel, file)
	case ViewCompress:
		return resolveCompress(sel)
	case ViewResize:
		return resolveResize(sel, file)
	case ViewMerge:
		return resolveMerge(sel)
	default:
		return Operation{}, ErrUnrecognizedOperation
	}
}

// NeedsDimensions reports whether Resolve will require the file's natural
// pixel dimensions for this selection.
func NeedsDimensions(sel Selection) bool {
	if sel.View != ViewResize {
		return false
	}
	if strings.TrimSpace(sel.Options.Width) != "" || strings.TrimSpace(sel.Options.Height) != "" {
		return false
	}
	return sel.Options.ScalePercent > 0 && sel.Options.ScalePercent != 100
}

func resolveConvert(sel Selection, file FileInfo) (Operation, error) {
	name, ok := convertOps[sel.SubTool]
	if !ok {
		return Operation{}, ErrUnrecognizedOperation
	}

	ext := strings.ToLower(filepath.Ext(file.Name))
	if legacy, ok := legacyExtensionOps[ext]; ok && ambiguousSubTool(sel.SubTool) {
		name = legacy
	}

	return Operation{Name: name, Parameters: map[string]string{}}, nil
}

func ambiguousSubTool(subTool string) bool {
	switch subTool {
	case "word-to-pdf", "excel-to-pdf", "powerpoint-to-pdf":
		return true
	default:
		return false
	}
}

func resolveCompress(sel Selection) (Operation, error) {
	var name string
	imageTarget := false
	switch sel.SubTool {
	case "compress-pdf":
		name = "pdf/to/compress"
	case "compress-jpg":
		name = "jpg/to/compress"
		imageTarget = true
	case "compress-png":
		name = "png/to/compress"
		imageTarget = true
	default:
		return Operation{}, ErrUnrecognizedOperation
	}

	params := map[string]string{}

	if sel.Options.TargetSize > 0 {
		// Target-size mode: normalize KB/MB to kilobytes, fixed preset
		// fallback.
		kb := sel.Options.TargetSize
		if strings.EqualFold(sel.Options.TargetSizeUnit, "MB") {
			kb = sel.Options.TargetSize * 1024
		}
		params[paramTargetSize] = strconv.Itoa(kb)
		params[paramPreset] = presetWeb
		return Operation{Name: name, Parameters: params}, nil
	}

	level := sel.Options.Level
	if level < 1 || level > 9 {
		level = 5
	}
	params[paramPreset] = presetForLevel(level)
	if imageTarget {
		params[paramQuality] = strconv.Itoa(qualityForLevel(level))
	}
	return Operation{Name: name, Parameters: params}, nil
}

// presetForLevel maps the 1-9 slider onto the engine's three presets. Low
// levels mean "make it small", so they get the aggressive preset.
func presetForLevel(level int) string {
	switch {
	case level <= 3:
		return presetArchive
	case level <= 6:
		return presetWeb
	default:
		return presetText
	}
}

// qualityForLevel derives a numeric image quality from the slider, clamped
// to the engine's accepted [10, 95] range.
func qualityForLevel(level int) int {
	q := level * 10
	if q < 10 {
		q = 10
	}
	if q > 95 {
		q = 95
	}
	return q
}

func resolveResize(sel Selection, file FileInfo) (Operation, error) {
	var name string
	switch sel.SubTool {
	case "resize-jpg":
		name = "jpg/to/jpg"
	case "resize-png":
		name = "png/to/png"
	default:
		return Operation{}, ErrUnrecognizedOperation
	}

	params := map[string]string{}

	width := strings.TrimSpace(sel.Options.Width)
	height := strings.TrimSpace(sel.Options.Height)
	if width != "" || height != "" {
		// Explicit dimensions pass through verbatim.
		if width != "" {
			params[paramWidth] = width
		}
		if height != "" {
			params[paramHeight] = height
		}
		return Operation{Name: name, Parameters: params}, nil
	}

	scale := sel.Options.ScalePercent
	if scale > 0 && scale != 100 {
		if file.Width <= 0 || file.Height <= 0 {
			return Operation{}, ErrDimensionsRequired
		}
		params[paramWidth] = strconv.Itoa(scaleDimension(file.Width, scale))
		params[paramHeight] = strconv.Itoa(scaleDimension(file.Height, scale))
	}
	return Operation{Name: name, Parameters: params}, nil
}

// scaleDimension applies a percentage to a pixel dimension, rounding to the
// nearest integer and never going below one pixel.
func scaleDimension(px, percent int) int {
	scaled := int(math.Round(float64(px) * float64(percent) / 100.0))
	if scaled < 1 {
		return 1
	}
	return scaled
}

func resolveMerge(sel Selection) (Operation, error) {
	if sel.SubTool != "merge-pdf" {
		return Operation{}, ErrUnrecognizedOperation
	}
	return Operation{Name: "pdf/to/merge", Parameters: map[string]string{}, MultiSource: true}, nil
}
