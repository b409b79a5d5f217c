//go:build trace

package tracing

import (
	"context"
	"os"
	"runtime/trace"
)

const traceFileName = "mcguard-trace.out"

var traceFile *os.File

// Start enables runtime tracing for the whole scan.
func Start() error {
	var err error
	traceFile, err = os.OpenFile(traceFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	return trace.Start(traceFile)
}

func Stop() {
	trace.Stop()
	if traceFile != nil {
		traceFile.Close()
	}
}

// StartTask begins a trace task; call the returned func to end it.
func StartTask(ctx context.Context, name string) (context.Context, func()) {
	ctx, task := trace.NewTask(ctx, name)
	return ctx, task.End
}

func StartRegion(ctx context.Context, name string) func() {
	return trace.StartRegion(ctx, name).End
}

func Log(ctx context.Context, category, message string) {
	trace.Log(ctx, category, message)
}
