// Package core defines the shared language of the GSQL engine.
//
// This package contains:
//   - Typed values and literal coercion (CoerceLiteral, NormalizeType)
//   - Table schemas and the statement AST (one struct per statement kind)
//   - The uniform result envelope returned by every execution
//   - The error taxonomy (SyntaxError, ExecutionError, ...)
//   - Service interfaces (Store, TransactionManager, TxBackend)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
