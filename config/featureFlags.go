package config

import (
	"os"
	"strings"
)

// LegacyRoleNamesOnWrite keeps the old behavior of storing employee display
// names (instead of id strings) in the new lead table's role columns.
// Read paths accept both; writes default to id strings.
//
// Set via env:
// - LEGACY_ROLE_NAMES_ON_WRITE=true
func LegacyRoleNamesOnWrite() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("LEGACY_ROLE_NAMES_ON_WRITE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SignedReportIncludeDropped includes leads that signed and later dropped
// (stage 91) in the signed sales report. Off by default: the report is a
// financial document and dropped matters are reconciled separately.
//
// Set via env:
// - SIGNED_REPORT_INCLUDE_DROPPED=true
func SignedReportIncludeDropped() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SIGNED_REPORT_INCLUDE_DROPPED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
