package youtube

import (
	"regexp"
	"strings"
)

var (
	channelURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/@([\w-]+)`),
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/channel/(UC[\w-]+)`),
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/c/([\w-]+)`),
	}
	bareHandle = regexp.MustCompile(`^[\w-]+$`)
)

// ParseChannelInput normalizes a channel reference to either an "@handle"
// or a "UC…" channel ID. It accepts handles, channel URLs, custom URLs,
// raw IDs and bare names.
func ParseChannelInput(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "@") {
		return input, true
	}
	for _, re := range channelURLPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			if strings.HasPrefix(m[1], "UC") {
				return m[1], true
			}
			return "@" + m[1], true
		}
	}
	if strings.HasPrefix(input, "UC") {
		return input, true
	}
	if bareHandle.MatchString(input) {
		return "@" + input, true
	}
	return "", false
}
