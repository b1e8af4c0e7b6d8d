// Package browser opens links from the help overlay.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Open starts the platform's URL handler for url without waiting for it.
// Only http and https links are opened.
func Open(url string) error {
	name, args, err := command(runtime.GOOS, url)
	if err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

func command(goos, url string) (string, []string, error) {
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return "", nil, fmt.Errorf("browser: refusing to open %q", url)
	}
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("browser: unsupported OS %s", goos)
	}
}
