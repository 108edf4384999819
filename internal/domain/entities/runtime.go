package entities

// RuntimeDescriptor is the resolved metadata for one downloadable Java runtime.
// It is written to and read from the runtime cache file, hence the JSON tags.
type RuntimeDescriptor struct {
	ID           string          `json:"id"`
	Ext          string          `json:"ext"`
	Arch         Architecture    `json:"arch"`
	OS           OperatingSystem `json:"os"`
	Kind         RuntimeKind     `json:"type"`
	Version      int             `json:"version,omitempty"`
	Name         string          `json:"name,omitempty"`
	SHA256       string          `json:"sha256,omitempty"`
	URL          string          `json:"url,omitempty"`
	SignatureURL string          `json:"sigUrl,omitempty"`

	WithJmods        bool   `json:"withJmods,omitempty"`
	JmodName         string `json:"jmodName,omitempty"`
	JmodSHA256       string `json:"jmodSha256,omitempty"`
	JmodURL          string `json:"jmodUrl,omitempty"`
	JmodSignatureURL string `json:"jmodSigUrl,omitempty"`
}

// NewRuntimeDescriptor returns an empty descriptor for a target
func NewRuntimeDescriptor(t Target) *RuntimeDescriptor {
	return &RuntimeDescriptor{
		ID:        t.ID,
		Ext:       t.Ext,
		Arch:      t.Arch,
		OS:        t.OS,
		Kind:      t.Kind,
		WithJmods: t.Jmods,
	}
}

// Target reconstructs the packaging target this descriptor was fetched for
func (r *RuntimeDescriptor) Target() Target {
	return Target{
		ID:    r.ID,
		OS:    r.OS,
		Arch:  r.Arch,
		Ext:   r.Ext,
		Kind:  r.Kind,
		Jmods: r.WithJmods,
	}
}

// SystemID returns the download prefix, see Target.SystemID
func (r *RuntimeDescriptor) SystemID() string {
	return r.Target().SystemID()
}

// IsComplete reports whether every field needed to download and verify the runtime is present
func (r *RuntimeDescriptor) IsComplete() bool {
	if r == nil {
		return false
	}
	if r.Version <= 0 || r.Name == "" || r.SHA256 == "" || r.URL == "" || r.SignatureURL == "" {
		return false
	}
	if r.WithJmods {
		return r.JmodName != "" && r.JmodSHA256 != "" && r.JmodURL != "" && r.JmodSignatureURL != ""
	}
	return true
}

// ArchiveFileName is the local name of the downloaded runtime archive
func (r *RuntimeDescriptor) ArchiveFileName() string {
	return r.SystemID() + "-" + r.Name
}

// SignatureFileName is the local name of the runtime archive's detached signature
func (r *RuntimeDescriptor) SignatureFileName() string {
	return r.ArchiveFileName() + ".sig"
}

// JmodFileName is the local name of the downloaded jmods archive
func (r *RuntimeDescriptor) JmodFileName() string {
	return r.SystemID() + "-" + r.JmodName + "-jmod"
}

// JmodSignatureFileName is the local name of the jmods archive's detached signature
func (r *RuntimeDescriptor) JmodSignatureFileName() string {
	return r.JmodFileName() + ".sig"
}

// ExpectedFiles lists every file the downloader should leave in the target's directory
func (r *RuntimeDescriptor) ExpectedFiles() []string {
	files := []string{r.ArchiveFileName(), r.SignatureFileName()}
	if r.WithJmods {
		files = append(files, r.JmodFileName(), r.JmodSignatureFileName())
	}
	return files
}
