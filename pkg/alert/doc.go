// Package alert drives the transmission display's one-shot cue.
//
// A Detector watches ticket state as it arrives in a transmission context.
// Every state whose lastUpdate is newer than anything seen before produces
// exactly one highlight of the counter that changed and exactly one
// playback of the configured alert profile. The highlight falls back to
// idle after a fixed dwell unless a newer state replaces it first.
//
// The Catalog holds the five alert profiles as tone sequences. Synthesis
// is left to whatever renders them (the browser, in the panel server).
package alert
