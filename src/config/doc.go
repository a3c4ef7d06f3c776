// Package config defines the configuration for a rollsync node.
//
// Regardless of how rollsync is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. The command line
// also reads an optional rollsync.toml (or .json, .yaml) from the data
// directory, defined by Config.DataDir. The data directory may further
// contain:
//
//  peers.json // (optional) a JSON file listing block-sync peers to dial.
//  badger_db  // the chain store, when Config.Store is set.
package config
