// Package conv provides checked integer conversions for the fixed-width fields
// of wire records and transport frames.
//
// Local indices, collection indices and lengths are Go ints in memory but travel
// as uint32. A value that does not fit is a corrupt or unsupported record, never a
// silent truncation.
package conv
