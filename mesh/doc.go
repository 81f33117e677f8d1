// Package mesh is the flat, index-addressed mesh partition the adaptation
// engine operates on.
//
// A Mesh holds dictionaries (node collections with global ids, owner ranks and
// fields), element groups (Entities) with one connectivity table per bound
// dictionary (Space), and fields. Everything is addressed by typed indices
// (DictIdx, EntitiesIdx, FieldIdx) rather than pointers, so removing an entity
// never leaves a dangling reference.
//
// Derived indexes (global id lookups, node to element connectivity) are
// rebuilt explicitly; callers track when they are stale.
package mesh
