// Package gps defines the core location-tracking domain model.
//
// It contains:
//   - Fix: a single reported device position with optional kinematics
//   - Reading: a normalized device reading before it becomes a stored fix
//   - CrewPresence: a crew member's latest fix plus derived status
//   - Site, Geofence: fixed service locations and their visualization zones
//   - RoutePath: the reconstructed travelled path for one dispatch
//
// Everything in this package is plain data plus pure classification logic;
// fetching and rendering live in the backend, fleet, route, georender and
// surface packages.
package gps
