package tools

import "errors"

// View identifies the top-level tool family.
type View string

const (
	ViewConvert  View = "convert"
	ViewCompress View = "compress"
	ViewResize   View = "resize"
	ViewMerge    View = "merge"
)

// Selection is the user's tool choice plus its view-specific options.
type Selection struct {
	View    View    `json:"view"`
	SubTool string  `json:"subTool"`
	Options Options `json:"options"`
}

// Options carries the per-view tuning knobs. Zero values mean "not set".
type Options struct {
	// Compress.
	Level          int    `json:"level"`          // slider 1..9
	TargetSize     int    `json:"targetSize"`     // target-size mode when > 0
	TargetSizeUnit string `json:"targetSizeUnit"` // "KB" or "MB"

	// Resize.
	Width        string `json:"width"`  // passed through verbatim when set
	Height       string `json:"height"` // passed through verbatim when set
	ScalePercent int    `json:"scalePercent"`
}

// FileInfo describes the primary staged file as the resolver needs it.
type FileInfo struct {
	Name string
	// Natural pixel dimensions, populated by the caller only when
	// NeedsDimensions reports true for the selection.
	Width  int
	Height int
}

// Operation is the resolved remote conversion operation.
type Operation struct {
	// Name encodes the source/target pair, e.g. "docx/to/pdf".
	Name string
	// Parameters are operation-specific remote parameters, all stringly
	// typed the way the engine expects them.
	Parameters map[string]string
	// MultiSource is true for operations that take the whole staged file
	// set (merge) instead of a single source URL.
	MultiSource bool
}

// ErrUnrecognizedOperation is returned when no view/subTool combination maps
// to a remote operation. It is terminal for the current attempt and must be
// surfaced before any network call.
var ErrUnrecognizedOperation = errors.New("unrecognized tool operation")

// ErrDimensionsRequired is returned when a percentage resize needs natural
// pixel dimensions that the caller did not supply.
var ErrDimensionsRequired = errors.New("image dimensions required for percentage resize")

// DefaultSubTool returns the sub-tool a view falls back to when the view
// changes. Changing views always resets the sub-tool.
func DefaultSubTool(v View) string {
	switch v {
	case ViewConvert:
		return "word-to-pdf"
	case ViewCompress:
		return "compress-pdf"
	case ViewResize:
		return "resize-jpg"
	case ViewMerge:
		return "merge-pdf"
	default:
		return ""
	}
}
