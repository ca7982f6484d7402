// Package types provides the foundational, zero-dependency types shared by
// every core package: the Event tagged union, Session records, derived
// Endpoint aggregates, and Detected issues.
//
// Design Principle: Zero Dependencies
// This package imports only the Go standard library. It is safe to import
// from any other package without creating circular dependencies.
//
// Architecture Layer: Foundation
//
//	Layer 1: types (zero deps)           <- you are here
//	Layer 2: ring, store, registry, commandrouter
//	Layer 3: detect, apidiscovery, checkpoint
//	Layer 4: collector (server), cmd/devlensd
package types
