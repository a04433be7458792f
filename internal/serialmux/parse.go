package serialmux

import "strings"

// LineKind classifies a line read from the serial port.
type LineKind int

const (
	LineUnknown LineKind = iota
	// LineFrame is a JSON keypoint frame.
	LineFrame
	// LineAck is a device acknowledgement such as "OK" or "ERR ...".
	LineAck
	// LineComment is a "#"-prefixed diagnostic line.
	LineComment
)

// ClassifyLine inspects a line and reports what kind of payload it carries.
func ClassifyLine(line string) LineKind {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return LineUnknown
	case strings.HasPrefix(line, "{"), strings.HasPrefix(line, "["):
		return LineFrame
	case strings.HasPrefix(line, "#"):
		return LineComment
	case line == "OK", strings.HasPrefix(line, "OK "), strings.HasPrefix(line, "ERR"):
		return LineAck
	default:
		return LineUnknown
	}
}
