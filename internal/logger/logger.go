package logger

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

var (
	info    = color.New(color.FgCyan).SprintFunc()
	success = color.New(color.FgGreen).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	muted   = color.New(color.FgHiBlack).SprintFunc()
)

func stamp() string {
	return muted("[" + time.Now().Format("15:04:05") + "]")
}

// Info logs a general message.
func Info(format string, args ...interface{}) {
	fmt.Fprintf(color.Output, "%s %s\n", stamp(), info(fmt.Sprintf(format, args...)))
}

// Success logs a completed step (boot, connection, registration).
func Success(format string, args ...interface{}) {
	fmt.Fprintf(color.Output, "%s %s\n", stamp(), success("✅ "+fmt.Sprintf(format, args...)))
}

// Warning logs a recoverable failure, e.g. one member of a batch.
func Warning(format string, args ...interface{}) {
	fmt.Fprintf(color.Output, "%s %s\n", stamp(), warning("⚠️  "+fmt.Sprintf(format, args...)))
}

// Error logs a failure the caller could not recover from.
func Error(format string, args ...interface{}) {
	fmt.Fprintf(color.Error, "%s %s\n", stamp(), failure("❌ "+fmt.Sprintf(format, args...)))
}
