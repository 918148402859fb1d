package project

import (
	"path/filepath"
	"regexp"
	"strings"
)

var githubRemotePatterns = []*regexp.Regexp{
	// git@github.com:owner/repo.git
	regexp.MustCompile(`^git@github\.com:([^/]+)/(.+?)(?:\.git)?$`),
	// https://github.com/owner/repo(.git)
	regexp.MustCompile(`^https?://github\.com/([^/]+)/(.+?)(?:\.git)?/?$`),
	// ssh://git@github.com/owner/repo.git
	regexp.MustCompile(`^ssh://git@github\.com/([^/]+)/(.+?)(?:\.git)?$`),
}

// RepoIDFromRemote parses a git remote URL and returns the GitHub repository
// id in "owner/repo" form. Returns empty string for non-GitHub remotes.
func RepoIDFromRemote(remoteURL string) string {
	remoteURL = strings.TrimSpace(remoteURL)
	for _, pat := range githubRemotePatterns {
		if m := pat.FindStringSubmatch(remoteURL); m != nil {
			return m[1] + "/" + m[2]
		}
	}
	return ""
}

// NormalizePath canonicalizes a filesystem path for identity comparison:
// absolute, cleaned, and without a trailing separator. Symlinks are resolved
// by the caller when the path exists on disk.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return strings.TrimRight(abs, string(filepath.Separator))
}

// SlugFromName derives a URL-safe slug from a display name.
func SlugFromName(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
