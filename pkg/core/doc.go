// Package core defines the shared language of mstools.
//
// This package contains:
//   - Visibility domain types (Stokes codes, PolarizationSetup, AntennaCatalog)
//   - Time windows and MJD conversion helpers
//   - Typed column arrays exchanged with table stores (Array, Column)
//   - The immutable metadata Snapshot consulted by every transform
//   - Error kinds shared by the engine, the catalog and the stores
//   - Store configuration (StoreConfig)
//
// The Golden Rule: pkg/core imports only the standard library and small leaf
// libraries (roaring, x/text). All other packages depend on core, not the reverse.
package core
