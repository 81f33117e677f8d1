// Package idset provides roaring-bitmap sets of local indices and of global ids.
package idset
