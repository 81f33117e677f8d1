// Package exchange moves element and node records between ranks in one
// all-to-all step.
//
// The sender packs one segment per destination rank in increasing rank order.
// The receiver unpacks records sequentially, attributes each one to its source
// rank through the displacement table of the received buffer, and adds it
// through the buffer set unless its global id is already live.
package exchange
