package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Build variables injected via ldflags:
// -X 'github.com/spiffworkflow/backend/pkg/version.Version=v1.0.0'
// -X 'github.com/spiffworkflow/backend/pkg/version.CommitHash=abc123'
// -X 'github.com/spiffworkflow/backend/pkg/version.BuildDate=2024-01-01T00:00:00Z'
var (
	// Version is the semantic version of the binary (e.g., "1.0.0")
	Version = "unknown"
	// CommitHash is the git commit hash used to build the binary
	CommitHash = "unknown"
	// BuildDate is the timestamp when the binary was built (RFC3339 format)
	BuildDate = "unknown"
)

// DefaultInfoFile is the version file written by the image build, relative to the working dir.
const DefaultInfoFile = "version_info.json"

// Info returns build information in a structured format
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
}

// Get returns the current build information
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
	}
}

// GetVersion returns just the version string
func GetVersion() string {
	return Version
}

// AsMap returns the build fields keyed by their JSON names.
func (i Info) AsMap() map[string]any {
	return map[string]any{
		"version":     i.Version,
		"commit_hash": i.CommitHash,
		"build_date":  i.BuildDate,
	}
}

// LoadData merges the JSON object in path over the build information.
// A missing file yields the build information alone.
func LoadData(path string) (map[string]any, error) {
	data := Get().AsMap()
	if path == "" {
		return data, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return data, nil
		}
		return data, fmt.Errorf("reading version info file %s: %w", path, err)
	}
	var overlay map[string]any
	if err := json.Unmarshal(raw, &overlay); err != nil {
		return data, fmt.Errorf("parsing version info file %s: %w", path, err)
	}
	for k, v := range overlay {
		data[k] = v
	}
	return data, nil
}
