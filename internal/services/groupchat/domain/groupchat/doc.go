// Package groupchat implements the group chat aggregate: its value types, the
// command transitions that emit events, and replay of an event history back
// into state.
//
// A GroupChat is an immutable value. Every command returns the next state
// together with the event that records the change, or a typed failure and the
// unchanged receiver. Events are a closed set of payload types dispatched with
// Visitor, so adding a variant breaks every consumer at compile time until it
// handles the new case.
package groupchat
