// Package merge reconciles two versions of a text document by aligning
// blank-line-delimited content blocks.
//
// It exists because crawled pages are extracted more than once and the
// later extraction is not always a superset of the earlier one: lazy
// rendering can drop blocks, edits can rewrite them. Merge keeps the new
// extraction's shape while refusing to merge content that does not look
// like the same document at all.
//
//	result := merge.Merge(prior, fresh)
//	switch result.Type {
//	case merge.Merged, merge.KeptNew:
//		store.SaveContent(id, *result.Content)
//	case merge.KeptEmpty:
//		// nothing worth storing
//	}
package merge
