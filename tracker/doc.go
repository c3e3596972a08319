// Package tracker orchestrates a tracking session.
//
// The Controller owns the position-source subscription and the two polling
// loops (fleet presence, dispatch stats), each as an independently
// cancellable task; teardown is "cancel every handle I own". It enforces the
// session state machine Idle -> TrackingManual -> TrackingContinuous -> Idle,
// including the role/dispatch gate on starting and the permission gate on
// continuous mode.
package tracker
