// Package dynamo provides the leaf primitives shared by every part of the
// simulator.
//
// The package defines the small value types the rest of the code is built on:
//
//   - [Vec2]: 2D vector with the usual arithmetic
//   - [Box]: the periodic rectangular domain (a torus), with minimum-image
//     displacement and position wrapping
//   - [Rand]: a seeded random source with uniform and Gaussian draws
//
// # Example
//
//	box := dynamo.NewBox(32, 32)
//	d := box.Distance(dynamo.Vec2{X: 0.1, Y: 0.1}, dynamo.Vec2{X: 31.9, Y: 0.1})
//	// d == 0.2
//
// # Thread Safety
//
// Vec2 and Box are plain values and safe to share. Rand is NOT thread-safe;
// every engine owns its own.
package dynamo
