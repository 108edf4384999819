package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
)

// DefaultAdoptiumAPI is the public Adoptium API root
const DefaultAdoptiumAPI = "https://api.adoptium.net"

// AdoptiumGateway resolves runtime descriptors from the Adoptium assets API
type AdoptiumGateway struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     interfaces.Logger
}

// NewAdoptiumGateway creates a gateway for baseURL, or the public API when empty
func NewAdoptiumGateway(baseURL string, logger interfaces.Logger) *AdoptiumGateway {
	if baseURL == "" {
		baseURL = DefaultAdoptiumAPI
	}
	return &AdoptiumGateway{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "aijpack/1.0",
		logger:    interfaces.OrNoOp(logger),
	}
}

// adoptiumRelease is one entry of the /v3/assets/latest response; unknown fields are ignored
type adoptiumRelease struct {
	Binary struct {
		ImageType string `json:"image_type"`
		Package   struct {
			Name          string `json:"name"`
			Checksum      string `json:"checksum"`
			Link          string `json:"link"`
			SignatureLink string `json:"signature_link"`
		} `json:"package"`
	} `json:"binary"`
	Version struct {
		Major int `json:"major"`
	} `json:"version"`
}

// AssetsURL builds the latest-release query for one image type
func (g *AdoptiumGateway) AssetsURL(javaVersion int, target entities.Target, imageType entities.RuntimeKind) string {
	q := url.Values{}
	q.Set("architecture", string(target.Arch))
	q.Set("image_type", string(imageType))
	q.Set("os", string(target.OS))
	q.Set("vendor", "eclipse")
	return fmt.Sprintf("%s/v3/assets/latest/%d/hotspot?%s", g.baseURL, javaVersion, q.Encode())
}

// FetchRuntime resolves the runtime (and jmods, when the target asks for them).
// Failures are logged and leave the descriptor incomplete; callers check IsComplete.
func (g *AdoptiumGateway) FetchRuntime(ctx context.Context, javaVersion int, target entities.Target) *entities.RuntimeDescriptor {
	desc := entities.NewRuntimeDescriptor(target)

	kind := target.Kind
	if kind == "" || kind == entities.RuntimeJMODS {
		kind = entities.RuntimeJDK
	}

	rel, err := g.latest(ctx, javaVersion, target, kind)
	if err != nil {
		g.logger.Warn("Failed to fetch runtime metadata",
			interfaces.F("target", target.ID), interfaces.F("image", kind), interfaces.Err(err))
		return desc
	}
	desc.Version = rel.Version.Major
	desc.Name = rel.Binary.Package.Name
	desc.SHA256 = rel.Binary.Package.Checksum
	desc.URL = rel.Binary.Package.Link
	desc.SignatureURL = rel.Binary.Package.SignatureLink

	if target.Jmods {
		jm, err := g.latest(ctx, javaVersion, target, entities.RuntimeJMODS)
		if err != nil {
			g.logger.Warn("Failed to fetch jmods metadata", interfaces.F("target", target.ID), interfaces.Err(err))
			return desc
		}
		desc.JmodName = jm.Binary.Package.Name
		desc.JmodSHA256 = jm.Binary.Package.Checksum
		desc.JmodURL = jm.Binary.Package.Link
		desc.JmodSignatureURL = jm.Binary.Package.SignatureLink
	}

	return desc
}

// latest returns the first release whose package matches the target extension,
// falling back to the first release
func (g *AdoptiumGateway) latest(ctx context.Context, javaVersion int, target entities.Target, imageType entities.RuntimeKind) (*adoptiumRelease, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", g.AssetsURL(javaVersion, target, imageType), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("adoptium API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var releases []adoptiumRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&releases); err != nil {
		return nil, fmt.Errorf("failed to parse adoptium response: %w", err)
	}
	if len(releases) == 0 {
		return nil, fmt.Errorf("no %s release for %s", imageType, target.Platform())
	}

	if target.Ext != "" {
		for i := range releases {
			if strings.HasSuffix(strings.ToLower(releases[i].Binary.Package.Name), "."+strings.ToLower(target.Ext)) {
				return &releases[i], nil
			}
		}
	}
	return &releases[0], nil
}
