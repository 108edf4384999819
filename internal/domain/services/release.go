package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// MaxWorkflowInputs is GitHub's limit on workflow_dispatch inputs
const MaxWorkflowInputs = 10

// VersionInputName is the workflow input carrying the release version
const VersionInputName = "version"

var (
	releaseVersionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)
	dailyVersionPattern   = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)\.(\d+)`)
	letterPattern         = regexp.MustCompile(`[a-zA-Z]`)
)

// ReleaseStatus represents the outcome of validating release inputs
type ReleaseStatus string

// Release validation statuses
const (
	StatusReady            ReleaseStatus = "ready"
	StatusEmptyVersion     ReleaseStatus = "empty_version"
	StatusMalformedVersion ReleaseStatus = "malformed_version"
	StatusVersionExists    ReleaseStatus = "version_exists"
	StatusTooManyInputs    ReleaseStatus = "too_many_inputs"
	StatusMissingInput     ReleaseStatus = "missing_input"
	StatusInvalidChoice    ReleaseStatus = "invalid_choice"
)

// ReleaseValidation contains the validation result for a set of release inputs
type ReleaseValidation struct {
	Status  ReleaseStatus
	Version string
	Input   string
}

// IsReady returns true if the inputs can be dispatched
func (rv *ReleaseValidation) IsReady() bool {
	return rv.Status == StatusReady
}

// ErrorMessage returns a human-readable error message if not ready
func (rv *ReleaseValidation) ErrorMessage() string {
	switch rv.Status {
	case StatusReady:
		return ""
	case StatusEmptyVersion:
		return "Version must not be empty"
	case StatusMalformedVersion:
		return fmt.Sprintf("Version %q must look like 1.2.3.00", rv.Version)
	case StatusVersionExists:
		return fmt.Sprintf("Version %s has already been released", rv.Version)
	case StatusTooManyInputs:
		return fmt.Sprintf("GitHub accepts at most %d workflow inputs", MaxWorkflowInputs)
	case StatusMissingInput:
		return fmt.Sprintf("Input %q is required", rv.Input)
	case StatusInvalidChoice:
		return fmt.Sprintf("Input %q is not one of the allowed options", rv.Input)
	default:
		return "Unknown status"
	}
}

// Err returns nil when ready, otherwise an error wrapping entities.ErrValidation
func (rv *ReleaseValidation) Err() error {
	if rv.IsReady() {
		return nil
	}
	return fmt.Errorf("%w: %s", entities.ErrValidation, rv.ErrorMessage())
}

// ReleaseService holds release metadata and release validation rules
type ReleaseService struct {
	now func() time.Time
}

// NewReleaseService creates a new release service
func NewReleaseService() *ReleaseService {
	return &ReleaseService{now: time.Now}
}

// WithClock overrides the clock used for release timestamps
func (s *ReleaseService) WithClock(now func() time.Time) *ReleaseService {
	s.now = now
	return s
}

// EnsureVersionInput returns declared with a required version input in front when the
// workflow does not declare one. The release prompt always asks for a version.
func (s *ReleaseService) EnsureVersionInput(declared []entities.WorkflowInput) []entities.WorkflowInput {
	for _, input := range declared {
		if input.Name == VersionInputName {
			return declared
		}
	}
	version := entities.WorkflowInput{
		Name:        VersionInputName,
		Description: "Version to release",
		Required:    true,
		Type:        entities.InputTypeString,
	}
	return append([]entities.WorkflowInput{version}, declared...)
}

// ValidateInputs checks collected workflow inputs before dispatching a release
func (s *ReleaseService) ValidateInputs(declared []entities.WorkflowInput, values map[string]string, published *entities.Versions) *ReleaseValidation {
	if len(values) > MaxWorkflowInputs || len(declared) > MaxWorkflowInputs {
		return &ReleaseValidation{Status: StatusTooManyInputs}
	}

	version := strings.TrimSpace(values[VersionInputName])
	switch {
	case version == "":
		return &ReleaseValidation{Status: StatusEmptyVersion}
	case !releaseVersionPattern.MatchString(version):
		return &ReleaseValidation{Status: StatusMalformedVersion, Version: version}
	case published != nil && published.Contains(version):
		return &ReleaseValidation{Status: StatusVersionExists, Version: version}
	}

	for _, input := range declared {
		value, ok := values[input.Name]
		if input.Required && (!ok || value == "") {
			return &ReleaseValidation{Status: StatusMissingInput, Input: input.Name}
		}
		if input.Type == entities.InputTypeChoice && ok && value != "" && !contains(input.Options, value) {
			return &ReleaseValidation{Status: StatusInvalidChoice, Input: input.Name}
		}
	}

	return &ReleaseValidation{Status: StatusReady, Version: version}
}

// ReleaseType classifies a version: letters or a non-"00" daily component mean prerelease
func (s *ReleaseService) ReleaseType(version string) entities.ReleaseType {
	if letterPattern.MatchString(version) {
		return entities.ReleaseTypePrerelease
	}
	if m := dailyVersionPattern.FindStringSubmatch(version); m != nil && m[4] != "00" {
		return entities.ReleaseTypePrerelease
	}
	return entities.ReleaseTypeRelease
}

// ArtifactFileName is the path of an artifact below the artifact base URL.
// GitHub release downloads are grouped by tag; other hosts carry the version in the file name.
func (s *ReleaseService) ArtifactFileName(baseArtifactURL, name, version string) string {
	if strings.Contains(strings.ToLower(baseArtifactURL), "github") {
		return version + "/" + name
	}

	short := strings.ReplaceAll(version, ".00", "")
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return name + short
	}
	return name[:dot] + short + name[dot:]
}

// BuildArtifact assembles the published record for one shipped file
func (s *ReleaseService) BuildArtifact(file entities.UpdateFile, version, baseArtifactURL, baseMetaURL, sha256, signatureSHA256 string) entities.ReleaseArtifact {
	fileName := s.ArtifactFileName(baseArtifactURL, file.Artifact, version)
	return entities.ReleaseArtifact{
		Name:             file.Artifact,
		Destination:      file.Destination,
		URL:              strings.TrimSuffix(baseArtifactURL, "/") + "/" + fileName,
		SHA256:           sha256,
		OS:               file.OS,
		Arch:             file.Arch,
		RequiresElevator: file.RequiresElevator,
		SignatureURL:     strings.TrimSuffix(baseMetaURL, "/") + "/signatures/" + fileName + ".sigstore.json",
		SignatureSHA256:  signatureSHA256,
	}
}

// BuildVersion assembles the version index entry for a release
func (s *ReleaseService) BuildVersion(version, baseMetaURL string, maxJava *int, minJava int) entities.Version {
	entry := entities.Version{
		Version:     version,
		URL:         fmt.Sprintf("%s/versions/%s.json", strings.TrimSuffix(baseMetaURL, "/"), version),
		Type:        s.ReleaseType(version),
		ReleaseTime: s.now().UTC().Format(time.RFC3339),
		MaxJava:     maxJava,
	}
	if minJava > 0 {
		m := minJava
		entry.MinJava = &m
	}
	return entry
}

// PrependVersion puts entry at the head of the index unless its version is already listed.
// Returns false when nothing changed.
func (s *ReleaseService) PrependVersion(index *entities.Versions, entry entities.Version) bool {
	if index.Contains(entry.Version) {
		return false
	}
	index.Versions = append([]entities.Version{entry}, index.Versions...)
	return true
}

// LatestVersion returns the highest version in the index by numeric component comparison
func (s *ReleaseService) LatestVersion(index *entities.Versions) string {
	latest := ""
	for _, v := range index.Versions {
		if latest == "" || CompareVersions(v.Version, latest) > 0 {
			latest = v.Version
		}
	}
	return latest
}

// CompareVersions compares dotted versions component by component, ignoring any
// "+build" or "-pre" suffix. Missing or non-numeric components compare as zero.
func CompareVersions(a, b string) int {
	as := strings.Split(versionCore(a), ".")
	bs := strings.Split(versionCore(b), ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		ai, bi := component(as, i), component(bs, i)
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ShortVersion keeps the first three components of a version (macOS bundle versions)
func ShortVersion(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, ".")
}

func versionCore(v string) string {
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}
	if i := strings.IndexByte(v, '-'); i >= 0 {
		v = v[:i]
	}
	return v
}

func component(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil {
		return 0
	}
	return n
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
