package gateways

import (
	"context"
	"time"
)

// Command is one invocation of an external native tool
type Command struct {
	Name        string
	Args        []string
	Dir         string
	Env         map[string]string
	Description string
}

// CommandResult holds the captured outcome of a Command
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// CommandRunner runs external tools synchronously. A non-zero exit is an error
// wrapping entities.ErrToolFailed; the result is still returned.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (*CommandResult, error)
}

// AssetSigner produces Sigstore bundles for release assets
type AssetSigner interface {
	// SignBlob signs filePath and writes the bundle to bundlePath
	SignBlob(ctx context.Context, filePath, bundlePath string) error
}
