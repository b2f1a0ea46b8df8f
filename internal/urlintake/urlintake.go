// Package urlintake filters candidate URLs before they are handed to the
// fetch coordinator. It is deliberately minimal: CSV roster ingestion and
// fuzzy school-name matching are out of scope (spec Non-goals); this
// package only validates the URL shape itself.
package urlintake

import (
	"log"
	"strings"
)

var allowedSchemes = []string{"http://", "https://", "ftp://"}

// Filter accepts candidate URLs, rejecting empty strings and strings that
// don't begin with an allowed scheme. Each rejection is logged. Returns the
// accepted subset and true iff at least one URL was accepted.
func Filter(urls []string) (accepted []string, ok bool) {
	for _, u := range urls {
		if u == "" {
			log.Printf("[urlintake] rejecting empty URL")
			continue
		}
		if !hasAllowedScheme(u) {
			log.Printf("[urlintake] rejecting URL with unsupported scheme: %q", u)
			continue
		}
		accepted = append(accepted, u)
	}
	return accepted, len(accepted) > 0
}

func hasAllowedScheme(u string) bool {
	for _, scheme := range allowedSchemes {
		if strings.HasPrefix(u, scheme) {
			return true
		}
	}
	return false
}
