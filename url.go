// SPDX-License-Identifier: EPL-2.0

package audbridge

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

var errEmptyLocation = errors.New("empty location")

// localPath accepts a plain path or a file:// URL and returns the path.
func localPath(location string) (string, error) {
	if location == "" {
		return "", errEmptyLocation
	}
	if !strings.Contains(location, "://") {
		return location, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", location, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("remote file URL host %q", u.Host)
	}
	if u.Path == "" {
		return "", errEmptyLocation
	}
	return filepath.FromSlash(u.Path), nil
}
