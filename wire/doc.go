// Package wire defines the self-contained records that carry one element or
// one node between ranks.
//
// Records are positional: after the header (collection index, local index,
// global id, owner rank) an element carries one connectivity row per space of
// its group, and a node one value row per field of its dictionary, in mesh
// order. The receiver reads exactly as many rows as its own mesh structure
// declares, so both sides must share the same structure.
//
// Element connectivity always travels as node global ids.
package wire
