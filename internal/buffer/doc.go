// Package buffer stages row additions and removals on mesh tables and commits
// them in one pass on Flush.
//
// Between creation and Flush, rows are addressed by logical index: authoritative
// rows first, then pending rows in the order they were added. Flush keeps the
// relative order of surviving rows.
package buffer
