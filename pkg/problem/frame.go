package problem

import (
	"runtime"
	"strconv"

	"github.com/pkg/errors"
)

// Frame is a single captured stack frame. Frames compare by value, so two
// frames are equal when they name the same function, file and line.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// String renders the frame as "Function(File:Line)".
func (f Frame) String() string {
	return f.Function + "(" + f.File + ":" + strconv.Itoa(f.Line) + ")"
}

// FramesOf converts a pkg/errors stack trace into frames, outermost call last.
// A nil trace yields nil.
func FramesOf(st errors.StackTrace) []Frame {
	if len(st) == 0 {
		return nil
	}
	frames := make([]Frame, 0, len(st))
	for _, f := range st {
		frames = append(frames, frameOf(f))
	}
	return frames
}

// frameOf resolves a pkg/errors frame, which holds the return address of the call.
func frameOf(f errors.Frame) Frame {
	pc := uintptr(f) - 1
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return Frame{Function: "unknown", File: "unknown"}
	}
	file, line := fn.FileLine(pc)
	return Frame{Function: fn.Name(), File: file, Line: line}
}
