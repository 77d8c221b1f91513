// Package updater checks GitHub for a newer release at startup.
package updater

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/version"
)

const releasesURL = "https://api.github.com/repos/Dicklesworthstone/pipeline_viewer/releases/latest"

// Release is the subset of the GitHub release payload we read.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// CheckForUpdates queries GitHub for the latest release. It returns the new
// version tag and its URL when an update is available, empty strings
// otherwise. The timeout is short so startup never hangs on it.
func CheckForUpdates() (string, string, error) {
	client := http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(releasesURL)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("github api returned status: %s", resp.Status)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", "", err
	}

	if compareVersions(rel.TagName, version.Version) > 0 {
		return rel.TagName, rel.HTMLURL, nil
	}
	return "", "", nil
}

// compareVersions returns 1 if v1 > v2, -1 if v1 < v2, 0 if equal. Segments
// are compared numerically so v0.10.0 sorts after v0.2.0.
func compareVersions(v1, v2 string) int {
	a := strings.Split(strings.TrimPrefix(v1, "v"), ".")
	b := strings.Split(strings.TrimPrefix(v2, "v"), ".")
	for i := 0; i < len(a) || i < len(b); i++ {
		x, y := 0, 0
		if i < len(a) {
			fmt.Sscanf(a[i], "%d", &x)
		}
		if i < len(b) {
			fmt.Sscanf(b[i], "%d", &y)
		}
		if x != y {
			if x > y {
				return 1
			}
			return -1
		}
	}
	return 0
}
