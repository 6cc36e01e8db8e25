// Package state tracks indexing status and progress, and publishes
// throttled update events.
//
// The state machine is Standby -> Indexing -> {Indexed | Error} ->
// Indexing (next run). Every transition resets the progress counters.
//
// Event emission is trailing-edge coalesced rather than debounced: the
// first update after an idle period fires its listeners immediately;
// bursts inside the throttle window collapse into exactly one further
// emission carrying the latest values. CurrentStatus always returns
// the freshest state synchronously regardless of throttling.
package state
