// Package core defines the shared language of the leapbundle make phase.
//
// This package contains:
//   - Identity types (ModuleIdentifier, DependencyID)
//   - The module variant (NormalModule, SelfModule) consumed by the add step
//   - Dependency records discovered while building a module
//   - The per-module profile handle
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
