package tui

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ReleasesURL is the GitHub endpoint consulted for newer builds.
const ReleasesURL = "https://api.github.com/repos/callwave/callwave/releases/latest"

// updateAvailableMsg reports a newer release than the running build.
type updateAvailableMsg struct {
	latest string
}

// checkVersion asks url for the latest release tag. It yields nothing for
// dev builds, on any failure, or when the build is current.
func checkVersion(url, current string) tea.Cmd {
	if url == "" || current == "" || current == "dev" {
		return nil
	}
	return func() tea.Msg {
		hc := &http.Client{Timeout: 5 * time.Second}
		resp, err := hc.Get(url)
		if err != nil {
			return nil
		}
		defer resp.Body.Close() //nolint:errcheck
		if resp.StatusCode != http.StatusOK {
			return nil
		}
		var release struct {
			TagName string `json:"tag_name"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
			return nil
		}
		latest := strings.TrimPrefix(release.TagName, "v")
		if IsNewerVersion(latest, current) {
			return updateAvailableMsg{latest: "v" + latest}
		}
		return nil
	}
}

// IsNewerVersion reports whether latest is a newer semver than current.
// A leading "v" is ignored; unparsable parts count as zero.
func IsNewerVersion(latest, current string) bool {
	lMaj, lMin, lPatch := parseVersion(latest)
	cMaj, cMin, cPatch := parseVersion(current)
	if lMaj != cMaj {
		return lMaj > cMaj
	}
	if lMin != cMin {
		return lMin > cMin
	}
	return lPatch > cPatch
}

func parseVersion(v string) (maj, minor, patch int) {
	parts := strings.SplitN(strings.TrimPrefix(v, "v"), ".", 3)
	nums := make([]int, 3)
	for i, p := range parts {
		n, _ := strconv.Atoi(p) //nolint:errcheck
		nums[i] = n
	}
	return nums[0], nums[1], nums[2]
}
