// Package registry provides the process-wide singleton cache for stores.
//
// Stores are keyed by "<storageType>_<name>" or an explicit override key.
// The first resolution for a key constructs and initializes the store; a
// later resolution with a structurally different config is settled by the
// requested merge strategy: strict (fail), first_wins (keep the first,
// the default), deep_merge (fold the new initial state in, first
// registration winning on primitive conflicts), override (reconstruct
// with the new config, identity fields preserved), or warn_and_use_first
// (keep the first and log a field-enumerated diff).
//
// Resolution is a single mutex-guarded check-and-insert, which closes the
// race between two call sites constructing the same key concurrently: the
// loser observes the winner's entry and applies the merge strategy.
// Entries live until Unregister, registry Close, or the owning store's
// own Destroy, whose hook drops the entry; nothing is collected
// implicitly.
package registry
