// Package manuscript holds the journal core: the ordered manuscript store and
// its persistence contract, the filter engine, the kanban and vault view
// selectors, the composer workflow and the transient session state.
//
// The vault gate (SessionState.VaultUnlocked) is presentational only. It is
// not an access-control boundary: Vault always returns every pinned or
// favorite manuscript.
package manuscript
