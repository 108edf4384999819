package gateways

import (
	"context"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// RuntimeMetadataGateway resolves runtime descriptors from the vendor API
type RuntimeMetadataGateway interface {
	// FetchRuntime returns a descriptor for the target; on failure the descriptor is
	// returned incomplete rather than as an error
	FetchRuntime(ctx context.Context, javaVersion int, target entities.Target) *entities.RuntimeDescriptor
}

// RuntimeResolver resolves descriptors for a whole target set, reusing cached
// metadata while it is fresh and complete
type RuntimeResolver interface {
	ResolveRuntimes(ctx context.Context, javaVersion int, targets map[string]entities.Target) map[string]*entities.RuntimeDescriptor
}

// RuntimeDownloader places runtime archives and their signatures in a local directory
type RuntimeDownloader interface {
	// DownloadRuntime fetches the archive, signature and optional jmods for a descriptor into dir
	DownloadRuntime(ctx context.Context, desc *entities.RuntimeDescriptor, dir string) error

	// CleanExtraneous deletes stale files for the descriptor's system id from dir
	CleanExtraneous(desc *entities.RuntimeDescriptor, dir string) error
}

// ChecksumVerifier checks SHA-256 digests
type ChecksumVerifier interface {
	VerifyChecksum(ctx context.Context, filePath, expectedSum string) error
	CalculateChecksum(filePath string) (string, error)
}

// SignatureVerifier checks detached OpenPGP signatures against a single trusted key
type SignatureVerifier interface {
	// ImportKey fetches the key with the given fingerprint from the configured keyserver
	ImportKey(ctx context.Context, fingerprint string) error

	// VerifyDetached checks sigPath against filePath using only the imported key
	VerifyDetached(ctx context.Context, filePath, sigPath string) error
}
