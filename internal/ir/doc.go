// Package ir is the value model shared by the staging store, the data broker
// and the catalog payloads.
//
// Normalized ISIS records and catalog payloads are trees of strings, arrays
// and objects (plus the occasional integer or boolean). They are serialized
// with MarshalCanonical so that the same record always produces the same
// bytes and therefore the same content hash, whichever backend stored it.
//
// Constraints:
//   - no floats: ISIS data is textual, numbers are integers
//   - object keys ordered by UTF-16 code units (RFC 8785)
//   - strings NFC normalized at the serialization boundary
//
// ir imports nothing internal.
package ir
