package ui

import (
	"context"

	"github.com/hewenyu/OperationKernel/internal/provider"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
)

// Agent is the conversation engine as the UI drives it.
//
// Submit and Retry block until the turn ends; progress arrives on the
// workflow.Event channel the engine was built with. Cancel and Clear are
// safe to call from any goroutine.
type Agent interface {
	Submit(ctx context.Context, text string) (*provider.Message, error)
	Retry(ctx context.Context) (*provider.Message, error)
	Cancel()
	Clear() error
	CanRetry() bool
}

// JobLister lists background jobs for /jobs.
type JobLister interface {
	List() []process.Summary
}
