// Package surface renders the tracking map through one of two interchangeable
// backends.
//
// Surface is the capability set both backends satisfy: center/zoom, style
// selection, crew/site/device markers, the route polyline, geofence circles
// and a re-center action. WebSurface pushes GeoJSON snapshots to a browser
// map over websockets and lets the browser's map layer do marker clustering;
// NativeSurface emits layer commands to a host map shell and clusters site
// markers itself with an R-tree, since the native layer has no cluster
// primitive. The backend is chosen once at construction from the platform
// descriptor, never per render.
package surface
