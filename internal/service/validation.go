package service

import (
	"regexp"
	"strings"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// ValidUsername enforces the account name policy: 3-20 characters,
// letters, digits and underscores only. Exported because the hub uses
// the same rule to vet user_online payloads.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

func validPassword(password string) bool {
	return len(password) >= 8
}

var tagStripper = strings.NewReplacer("<", "", ">", "")

// sanitize strips angle brackets from user-supplied text before it is
// stored or echoed to other clients.
func sanitize(input string) string {
	return tagStripper.Replace(input)
}

// truncateRunes caps a string at n visible characters.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// preview produces the conversation-list summary of a message: at most
// 50 visible characters, with an ellipsis marker beyond that.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= 50 {
		return text
	}
	return string(runes[:50]) + "..."
}
