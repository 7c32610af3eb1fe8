package logs

import (
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
)

// StacktraceField 当前 goroutine 的堆栈，逐行缩进
func StacktraceField() zap.Field {
	lines := strings.Split(strings.TrimRight(string(debug.Stack()), "\n"), "\n")
	return zap.String("stacktrace", strings.Join(lines, "\n\t"))
}
