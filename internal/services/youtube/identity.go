package youtube

import (
	"regexp"
	"strings"
)

// idPattern is the site's native video ID grammar.
const idPattern = `([A-Za-z0-9_-]{11})`

// idEnd stops a match from succeeding on the first 11 characters of a longer token.
const idEnd = `(?:[^A-Za-z0-9_-]|$)`

const hostStart = `(?:^|[/.\s])`

// Order matters: the first rule that captures wins.
var identityPatterns = []*regexp.Regexp{
	// watch page, v may be any query parameter
	regexp.MustCompile(hostStart + `youtube\.com/watch/?\?(?:[^#\s]*&)?v=` + idPattern + idEnd),
	// short link
	regexp.MustCompile(hostStart + `youtu\.be/` + idPattern + idEnd),
	// shorts
	regexp.MustCompile(hostStart + `youtube\.com/shorts/` + idPattern + idEnd),
	// embed, legacy /v/ and live
	regexp.MustCompile(hostStart + `youtube(?:-nocookie)?\.com/(?:embed|v|live)/` + idPattern + idEnd),
	// bare ID
	regexp.MustCompile(`^` + idPattern + `$`),
}

// ResolveIdentity extracts the video ID from any accepted link shape, or
// from a bare 11 character ID.
func ResolveIdentity(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}

	for _, re := range identityPatterns {
		if matches := re.FindStringSubmatch(input); len(matches) > 1 {
			return matches[1], true
		}
	}
	return "", false
}

// IsValidURL reports whether input resolves to a video ID.
func IsValidURL(input string) bool {
	_, ok := ResolveIdentity(input)
	return ok
}
