// Package modeljson cleans up and parses the loosely formatted JSON that
// vision models return.
package modeljson

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/box-annotator/pkg/types"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)([^:"])//[^"]*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// Sanitize removes code fences, comments and trailing commas, and trims the
// text to its outermost JSON object or array.
func Sanitize(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "$1")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	open, close := "{", "}"
	if o, a := strings.Index(raw, "{"), strings.Index(raw, "["); a >= 0 && (o < 0 || a < o) {
		open, close = "[", "]"
	}
	if start := strings.Index(raw, open); start >= 0 {
		if end := strings.LastIndex(raw, close); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// ParseProposals parses a model reply of the form {"objects": [...]} or a bare
// array of objects. Replies without usable JSON yield an empty set whose
// Description says why; they are not errors.
func ParseProposals(raw string) *types.ProposalSet {
	clean := Sanitize(raw)

	switch {
	case strings.HasPrefix(clean, "["):
		var objs []types.Proposal
		if err := json.Unmarshal([]byte(clean), &objs); err != nil {
			return &types.ProposalSet{Description: "Failed to parse model response"}
		}
		return &types.ProposalSet{Objects: objs}
	case strings.HasPrefix(clean, "{"):
		var set types.ProposalSet
		if err := json.Unmarshal([]byte(clean), &set); err != nil {
			return &types.ProposalSet{Description: "Failed to parse model response"}
		}
		return &set
	}
	return &types.ProposalSet{Description: "Model returned non-JSON response"}
}
