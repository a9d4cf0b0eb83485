// Package reasoning wraps the external language-model API behind a small,
// timeout-bounded interface used by the summary and decision stages.
package reasoning

import (
	"context"
	"fmt"
	"time"

	"github.com/miradorstack/autoops/internal/utils"
)

// Options tune one completion request.
type Options struct {
	JSONMode    bool
	Temperature float32
}

// Provider turns a system prompt plus a user payload into a text completion.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPayload string, opts Options) (string, error)
	Name() string
}

// NotConfigured is the provider used when no credential is available. Every
// call fails with ErrProviderNotConfigured so stages fall back immediately.
type NotConfigured struct{}

// Complete always fails.
func (NotConfigured) Complete(context.Context, string, string, Options) (string, error) {
	return "", utils.NewAppError("reasoning.Complete", "no provider credential", utils.ErrProviderNotConfigured)
}

// Name identifies the provider in logs and metrics.
func (NotConfigured) Name() string { return "none" }

type completion struct {
	text string
	err  error
}

// CompleteWithTimeout races p.Complete against timeout. The in-flight request
// sees a cancelled context once the deadline passes; a late answer is dropped.
func CompleteWithTimeout(ctx context.Context, p Provider, timeout time.Duration, systemPrompt, userPayload string, opts Options) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan completion, 1)
	go func() {
		text, err := p.Complete(callCtx, systemPrompt, userPayload, opts)
		done <- completion{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if callCtx.Err() == context.DeadlineExceeded {
				return "", utils.NewAppError("reasoning.Complete", fmt.Sprintf("no answer within %s", timeout), utils.ErrProviderTimeout)
			}
			return "", res.err
		}
		return res.text, nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return "", utils.NewAppError("reasoning.Complete", "caller cancelled", ctx.Err())
		}
		return "", utils.NewAppError("reasoning.Complete", fmt.Sprintf("no answer within %s", timeout), utils.ErrProviderTimeout)
	}
}
