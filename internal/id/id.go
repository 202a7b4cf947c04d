// Package id generates identifiers for registered mock cases.
//
// Case IDs are short prefixed strings ("case-9f86d081") so that checkpoint
// failures and mismatch reports can name the offending case without
// dumping a full UUID.
package id

import "github.com/google/uuid"

// Case returns a new unique case identifier.
func Case() string {
	return "case-" + uuid.NewString()[:8]
}
