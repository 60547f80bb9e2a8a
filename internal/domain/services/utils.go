package services

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9_-]+`)

// extractEmail returns the first email address in message, or fallback.
func extractEmail(message, fallback string) string {
	if m := emailPattern.FindString(message); m != "" {
		return m
	}
	return fallback
}

// dataMessage returns the envelope payload when it is a plain string.
func dataMessage(env *client.Envelope, fallback string) string {
	var s string
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &s) == nil && s != "" {
		return s
	}
	return fallback
}

// matchesSearch reports whether every whitespace-separated term of search
// appears, case-insensitively, in the task's title, content or contacts.
func matchesSearch(t entities.Task, search string) bool {
	haystack := strings.ToLower(t.Title + "\n" + t.Content + "\n" + strings.Join(t.RelatedContacts, "\n"))
	for _, term := range strings.Fields(strings.ToLower(search)) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
