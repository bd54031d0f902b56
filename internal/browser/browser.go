// Package browser opens a paper's source link in the user's browser.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// launch starts the platform opener. Tests replace it.
var launch = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Validate rejects anything that is not an absolute http(s) link.
func Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid link: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open link with scheme %q (only http/https allowed)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("link %q has no host", rawURL)
	}
	return nil
}

func Open(rawURL string) error {
	if err := Validate(rawURL); err != nil {
		return err
	}

	switch runtime.GOOS {
	case "darwin":
		return launch("open", rawURL)
	case "windows":
		// rundll32 avoids cmd's shell parsing of the link.
		return launch("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		return launch("xdg-open", rawURL)
	}
}
