// Package lyapunov holds the deviation vector set used to estimate
// Lyapunov exponents of a particle population.
//
// A direction is the reference population plus a small displacement of a
// few randomly chosen particles. Directions are evolved independently and
// compared against the reference:
//
//   - [Initialize] draws the displacements of every direction
//   - [AssignDirections] splits the directions over nodes
//   - [Deviation] measures a perturbed population against the reference
//   - [Estimator] renormalizes deviations and accumulates growth rates
//
// # Renormalization
//
// With [RenormNone] deviations grow freely and the estimate is the total
// log growth over the elapsed time; it is only meaningful while the
// deviations stay in the linear regime. [RenormIndependent] rescales each
// direction back to its initial norm, giving one estimate of the largest
// exponent per direction. [RenormGramSchmidt] orthonormalizes the
// directions in order and yields the leading part of the spectrum.
package lyapunov
