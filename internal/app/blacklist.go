package app

import "strings"

// Usernames that can never be registered. Kept small and explicit; routes
// and support handles collide with these.
var blacklistedUsernames = map[string]struct{}{
	"admin":     {},
	"root":      {},
	"support":   {},
	"stackup":   {},
	"login":     {},
	"logout":    {},
	"sign-up":   {},
	"recover":   {},
	"wallet":    {},
	"about":     {},
	"help":      {},
	"security":  {},
	"official":  {},
	"moderator": {},
}

// IsBlacklistedUsername reports whether the (normalized) username is
// reserved. The check is independent of uniqueness and both are enforced.
func IsBlacklistedUsername(username string) bool {
	_, found := blacklistedUsernames[strings.ToLower(strings.TrimSpace(username))]
	return found
}
