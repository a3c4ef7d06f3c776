// Package peers manages the list of block-sync peers a node dials.
//
// Peers come from the --peers flag and from an optional peers.json file in the
// data directory. The file holds a JSON array of objects with a NetAddr and an
// optional Moniker, and may be edited by hand. When both sources are present
// the flag entries come first and duplicates are dropped, so the order of the
// merged set is the order in which the node tries its peers.
package peers
