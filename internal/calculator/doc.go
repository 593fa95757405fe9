// Package calculator implements the pure settlement and spending-statistics
// functions for a household ledger.
//
// Every function here is a fold over its inputs: no I/O, no shared state, safe
// for concurrent use. Amounts are accumulated at full float64 precision;
// callers round with Round2 only for presentation.
package calculator
