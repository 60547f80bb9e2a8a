package textutil

import (
	"regexp"
	"sort"
	"strings"
)

// hashtagRegex matches a hashtag at the start of the text or after
// whitespace or an opening bracket, so URL fragments (page#section) and
// markdown headings ("# Title") are not tags.
var hashtagRegex = regexp.MustCompile(`(?:^|[\s(\[])#([\w-]+)`)

var numericRegex = regexp.MustCompile(`^[0-9]+$`)

// ExtractHashtags parses hashtags from task notes.
// Returns a sorted list of unique lowercase tags. Purely numeric tags
// (#42, usually an order or ticket number) are skipped.
func ExtractHashtags(text string) []string {
	seen := make(map[string]bool)
	for _, match := range hashtagRegex.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(strings.Trim(match[1], "-_"))
		if tag == "" || numericRegex.MatchString(tag) {
			continue
		}
		seen[tag] = true
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// HasHashtag reports whether text carries tag (with or without the leading #)
func HasHashtag(text, tag string) bool {
	tag = strings.ToLower(strings.TrimPrefix(tag, "#"))
	for _, t := range ExtractHashtags(text) {
		if t == tag {
			return true
		}
	}
	return false
}
