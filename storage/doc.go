// Package storage defines the persistence interfaces for the indexing
// pipeline: a message repository holding the conversation records to be
// embedded, and a job repository tracking embedding pass lifecycles.
//
// The only shipped backend is storage/badger, built on BadgerDB. Records
// are serialized with the MUS binary format via the serializers in core.
package storage
