// Package state provides in-memory document and form stores that satisfy
// the bridge reader and writer capability sets, plus func-based writer
// adapters for stores that are only partially wired.
//
// Responsibilities:
//   - MemoryDocumentStore and MemoryFormStore own their state, hand out deep
//     copies on read and bump a revision on every write.
//   - Mutate applies a Mutator under the store lock, optionally guarded by
//     an expected revision.
//   - DocumentWriterFuncs and FormWriterFuncs wrap plain functions and
//     report unwired methods through MissingWrites, so the bridge refuses
//     a write before touching any field.
package state
