package gateways

import (
	"context"
	"strings"
	"sync"

	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
)

// fakeRunner records commands instead of executing them
type fakeRunner struct {
	mu      sync.Mutex
	calls   []gateways.Command
	handler func(cmd gateways.Command) (*gateways.CommandResult, error)
}

func (f *fakeRunner) Run(_ context.Context, cmd gateways.Command) (*gateways.CommandResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	if f.handler != nil {
		return f.handler(cmd)
	}
	return &gateways.CommandResult{}, nil
}

// lines renders each call as "name arg1 arg2 ..."
func (f *fakeRunner) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, strings.TrimSpace(c.Name+" "+strings.Join(c.Args, " ")))
	}
	return out
}
