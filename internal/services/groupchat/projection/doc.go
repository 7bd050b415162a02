// Package projection folds journal records into the group chat read model.
//
// The Projector applies one batch of records; each event is applied at most
// once, keyed by its event id, in the same read model transaction as its row
// changes. The Poller feeds the Projector from the journal feed and advances a
// named checkpoint when a batch is acknowledged. Redelivery after a crash
// between apply and acknowledge is therefore harmless.
package projection
