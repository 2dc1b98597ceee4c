// Package playback drives spoken guide playback.
//
// A Controller owns one session at a time: it fetches speech through a
// Synthesizer, decodes it into a sample buffer and plays it on an
// output.Device. Exactly one output.Unit is active while playing; pause,
// seek and resume always stop the previous unit before starting another.
// Position is derived from the device clock and sampled by a poller that
// is cancelled on every exit from the playing state.
package playback
