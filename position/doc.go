// Package position normalizes the two device geolocation primitives behind
// one Source interface.
//
// BrowserSource receives readings pushed by a browser page's geolocation API
// through a websocket bridge; GPSDSource reads a local gpsd-style JSON TPV
// stream from the device GPS. Both yield the same Reading shape with one-shot
// and continuous-watch semantics. ReplaySource feeds scripted readings for
// tests and demos.
package position
