// Package selector exposes memoized derived values over store state.
//
// A Selector pairs one compute function with one memo cell. Reading through
// Select compares the current source snapshot against the memo using a
// pluggable equality (reference/shallow by default): on a hit the memoized
// result is returned without running compute; on a miss the selector
// recomputes, bumps its generation, and notifies subscribers, but only
// when the result itself changed under the result comparator.
//
// Selectors are themselves Sources, so Derive and Combine build dependency
// chains where recomputation cascades only along edges whose upstream
// result actually changed. A write to an unrelated state slice touches the
// root snapshot but stops at the first selector whose result is unchanged.
//
// Subscribing never triggers an immediate notification; callers wanting
// the current value read it explicitly with Select.
package selector
