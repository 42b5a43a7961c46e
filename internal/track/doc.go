// Package track implements the stored-composition domain: encoding note
// events into Standard MIDI Files and persisting them across the dual-store
// split (metadata in the main database, binary payloads in the file store).
//
// The Store type is the only entry point handlers use. It applies the saga
// ordering for creation (payload, then metadata, with a compensating delete)
// and runs the reconcile sweep that removes payloads orphaned by crashes
// between the two writes.
package track
