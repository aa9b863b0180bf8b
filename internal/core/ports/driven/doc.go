// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Extractor: Produces Documents from one source (website, drive, video, local-dir)
//   - Normaliser: Turns raw bytes of one format into Documents
//   - PostProcessor: Splits Documents into Chunks
//   - EmbeddingService: Maps chunk text to vectors
//   - IndexBuilder: Builds, persists and queries the vector index
//
// # Supporting Interfaces
//
//   - CommandRunner: Runs an external process without a shell
//   - Transcriber: Speech-to-text over an audio file
//   - CredentialProvider: Resolves an authenticated HTTP client
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
