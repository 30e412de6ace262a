// Package app wires application dependencies for the CLI.
//
// Config is loaded in layers (defaults, .env, YAML file, SMARTSESSION_*
// variables). NewWire builds the store, codec, owner signer, relay client
// and services from it and exposes them via the Wire struct; App is the
// narrower view commands work against.
package app
