package merge

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Empirically chosen thresholds for deciding whether two texts are the
// same resource, lightly updated, or unrelated content. Changing them is
// a product decision, not a bug fix.
const (
	// MinMatchBlocks is the minimum longest run of common blocks needed
	// to merge.
	MinMatchBlocks = 1
	// MinMatchRatio is the minimum fraction of new-side blocks that must
	// match somewhere in the old side.
	MinMatchRatio = 0.3
)

// ResultType indicates the outcome of a merge operation.
type ResultType int

const (
	// Merged means content was reconciled based on common blocks.
	Merged ResultType = iota
	// KeptNew means no merge happened; the non-empty new content was kept.
	KeptNew
	// KeptEmpty means the new content was empty or absent.
	KeptEmpty
)

func (t ResultType) String() string {
	switch t {
	case Merged:
		return "merged"
	case KeptNew:
		return "kept_new"
	case KeptEmpty:
		return "kept_empty"
	default:
		return "unknown"
	}
}

// Result is the outcome of one merge call. Content is nil when there is
// nothing to keep (see Merge).
type Result struct {
	Type    ResultType
	Content *string
}

// One or more consecutive blank lines separate blocks; a blank line may
// carry spaces or tabs.
var blockSeparator = regexp.MustCompile(`\n\s*\n`)

// Merge reconciles a previously stored text with a freshly extracted one,
// aligning them block by block so that repeated visits to the same
// resource never silently lose or duplicate material.
//
// Absent or whitespace-only new content yields KeptEmpty (with "" as
// content only when new was exactly the empty string). Absent or
// whitespace-only old content yields KeptNew. Otherwise both sides are
// split into blank-line-delimited blocks, compared by whitespace-
// normalized form, and merged through a full opcode alignment when the
// longest common run and the overall match ratio clear the thresholds;
// the reconstruction keeps the new side's original block text for equal,
// replace and insert spans and drops old-only spans. Degenerate
// (whitespace-only) reconstructions fall back to KeptNew.
func Merge(oldText, newText *string) Result {
	if newText == nil || strings.TrimSpace(*newText) == "" {
		var content *string
		if newText != nil && *newText == "" {
			content = newText
		}
		return Result{Type: KeptEmpty, Content: content}
	}

	if oldText == nil || strings.TrimSpace(*oldText) == "" {
		return Result{Type: KeptNew, Content: newText}
	}

	_, oldNormalized := splitBlocks(*oldText)
	newOriginal, newNormalized := splitBlocks(*newText)

	if len(newNormalized) == 0 {
		empty := ""
		return Result{Type: KeptEmpty, Content: &empty}
	}
	if len(oldNormalized) == 0 {
		return Result{Type: KeptNew, Content: newText}
	}

	matcher := difflib.NewMatcher(oldNormalized, newNormalized)

	longestRun := 0
	totalMatched := 0
	for _, m := range matcher.GetMatchingBlocks() {
		totalMatched += m.Size
		if m.Size > longestRun {
			longestRun = m.Size
		}
	}
	matchRatio := float64(totalMatched) / float64(len(newNormalized))

	if longestRun < MinMatchBlocks || matchRatio < MinMatchRatio {
		return Result{Type: KeptNew, Content: newText}
	}

	// Reconstruct from the new side's original (un-normalized) blocks so
	// formatting survives; ties always keep the new side's exact text.
	var kept []string
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e', 'r', 'i':
			kept = append(kept, newOriginal[op.J1:op.J2]...)
		}
	}

	merged := strings.Join(kept, "\n\n")
	if strings.TrimSpace(merged) == "" {
		return Result{Type: KeptNew, Content: newText}
	}

	return Result{Type: Merged, Content: &merged}
}

// splitBlocks splits text into blocks on blank-line boundaries, returning
// each block's original text together with its whitespace-normalized form
// used for comparison. Blocks that normalize to empty are dropped from
// both sequences.
func splitBlocks(text string) (original, normalized []string) {
	for _, block := range blockSeparator.Split(strings.TrimSpace(text), -1) {
		norm := strings.Join(strings.Fields(block), " ")
		if norm == "" {
			continue
		}
		original = append(original, block)
		normalized = append(normalized, norm)
	}
	return original, normalized
}
