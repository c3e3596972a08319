// Package route reconstructs the travelled path for a dispatch from its
// recorded fix history and computes the path aggregates shown next to the
// map: total distance, duration, average speed and point count.
package route
