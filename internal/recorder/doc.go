// Package recorder runs the two-state capture lifecycle.
//
// A Recorder is either idle or recording exactly one encoder process. Start
// reserves the recording slot before the encoder is spawned, so a second
// start issued while the first is still launching is rejected rather than
// queued. Stop terminates the encoder, waits for it to exit, and optionally
// remuxes the finished capture. Every transition is published to an
// EventHub that control surfaces can follow.
package recorder
