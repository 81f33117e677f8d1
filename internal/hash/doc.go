// Package hash provides the CRC32-Castagnoli checksum used to protect transport
// frames exchanged between ranks.
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(payload)
//
// To check a received payload:
//
//	if err := hash.Verify(payload, checksum); err != nil { ... }
package hash
