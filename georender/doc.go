// Package georender turns crew positions, sites and route history into
// map-ready primitives: GeoJSON point features, a route polyline, geofence
// circles and clusterable site collections.
//
// Everything here is a pure transformation with no I/O. Both map surfaces
// consume this package so marker semantics (colors, icon intent) stay
// identical across rendering backends.
package georender
