package entities

import "sort"

// ManifestFileName is written into the app directory of every bundle
const ManifestFileName = "manifest.json"

// ManifestEntry is one file of an app image with its upper-case hex MD5
type ManifestEntry struct {
	Path string `json:"path"`
	MD5  string `json:"md5"`
}

// Manifest lists the files of an app image, sorted by path
type Manifest struct {
	Entries []ManifestEntry `json:"entries"`
}

// Sort orders entries by path so the manifest is deterministic
func (m *Manifest) Sort() {
	sort.Slice(m.Entries, func(i, j int) bool {
		return m.Entries[i].Path < m.Entries[j].Path
	})
}
