package meshadapt

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of an Adaptor.
type State uint8

const (
	// StateIdle means no buffers are open; local indices are authoritative.
	StateIdle State = iota
	// StateBuffersOpen means mutations are staged in buffers.
	StateBuffersOpen
	// StateConnectivityGlobal means buffers are open and element connectivity
	// holds node global ids.
	StateConnectivityGlobal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBuffersOpen:
		return "BuffersOpen"
	case StateConnectivityGlobal:
		return "ConnectivityGlobal"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// Stale is a set of derived structures that need a rebuild, or buffers that
// need a flush, before dependent operations may run.
type Stale uint8

const (
	// StaleGlbToLoc marks the global id to local index maps out of date.
	StaleGlbToLoc Stale = 1 << iota
	// StaleNodeElements marks the node to element connectivity out of date.
	StaleNodeElements
	// PendingElementFlush marks staged element changes.
	PendingElementFlush
	// PendingNodeFlush marks staged node changes.
	PendingNodeFlush
)

// Has reports whether every bit of f is set.
func (s Stale) Has(f Stale) bool { return s&f == f }

// Any reports whether any bit of f is set.
func (s Stale) Any(f Stale) bool { return s&f != 0 }

func (s Stale) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for _, b := range []struct {
		bit  Stale
		name string
	}{
		{StaleGlbToLoc, "glb_to_loc"},
		{StaleNodeElements, "node_elements"},
		{PendingElementFlush, "element_flush"},
		{PendingNodeFlush, "node_flush"},
	} {
		if s.Has(b.bit) {
			parts = append(parts, b.name)
		}
	}
	return strings.Join(parts, "|")
}
