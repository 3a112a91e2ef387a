// Package version holds the build-time version string and an async check
// against GitHub releases for a newer tag, the way the teacher's
// internal/version package does.
package version

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
)

const githubAPI = "https://api.github.com/repos/faughnn/factreel/releases/latest"

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
)

var (
	mu                    sync.RWMutex
	newerVersionAvailable bool
	latestTag             string
)

// CheckForUpdate queries GitHub's latest-release endpoint in the
// background and records whether it names a semver tag newer than
// Version. A dev build or a network failure leaves the result false.
func CheckForUpdate() {
	if Version == "dev" {
		return
	}
	go func() {
		tag, err := latestReleaseTag()
		if err != nil {
			return
		}
		localVer, errLocal := semver.NewVersion(Version)
		remoteVer, errRemote := semver.NewVersion(tag)
		if errLocal != nil || errRemote != nil {
			return
		}
		if remoteVer.GreaterThan(localVer) {
			mu.Lock()
			newerVersionAvailable = true
			latestTag = tag
			mu.Unlock()
		}
	}()
}

// NewerVersionAvailable reports whether CheckForUpdate found a newer
// release, and the tag it found, if any.
func NewerVersionAvailable() (bool, string) {
	mu.RLock()
	defer mu.RUnlock()
	return newerVersionAvailable, latestTag
}

// String returns the "<version> (<commit>)" identifier printed by --version.
func String() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}

func latestReleaseTag() (string, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(githubAPI)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github releases API returned status %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	return release.TagName, nil
}
