//go:build android

package logging

/*
#cgo LDFLAGS: -llog
#include <stdlib.h>
#include <android/log.h>
*/
import "C"

import (
	"log/slog"
	"unsafe"
)

var ctag = C.CString(Tag)

func newPlatformHandler(level slog.Level) slog.Handler {
	return newLineHandler(level, writeLogcat)
}

func writeLogcat(level slog.Level, line string) {
	cline := C.CString(line)
	defer C.free(unsafe.Pointer(cline))
	C.__android_log_write(C.int(priority(level)), ctag, cline)
}

func priority(level slog.Level) int {
	switch {
	case level >= slog.LevelError:
		return C.ANDROID_LOG_ERROR
	case level >= slog.LevelWarn:
		return C.ANDROID_LOG_WARN
	case level >= slog.LevelInfo:
		return C.ANDROID_LOG_INFO
	default:
		return C.ANDROID_LOG_DEBUG
	}
}
