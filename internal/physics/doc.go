// Package physics provides the interaction models of self-propelled particles.
//
// Every model implements [Model], a two-phase step contract:
//
//   - [Model.Interact] is a pure function of two particles. It returns the
//     pair of [Delta] values the caller must add to each particle's
//     [Accumulator]. Nothing is mutated inside the call.
//   - [Model.Advance] integrates the accumulated torque/force with an explicit
//     Euler step, adds the model's noise, wraps the position back into the
//     periodic domain and resets the accumulators to the model baseline.
//
// Available models:
//
//   - [Vicsek]: heading averaging with uniform angular noise
//   - [VicsekVelocity]: velocity averaging with a short-range Fermi repulsion
//   - [Continuous]: sine alignment torque plus a chirality torque
//   - [Zoned]: piecewise alignment/anti-alignment torque with a radial core
//   - [Yukawa]: repulsive force singular at a core radius plus alignment
//   - [Phase]: continuous torques plus a phase field that modulates speed
//
// Models are built once from a [Config] with [New] and are read-only
// afterwards, so one value can be shared by every engine in the process.
//
// # Singular configurations
//
// Two particles at exactly the same position have no defined displacement
// direction. Models that divide by the distance produce NaN in that case;
// this is a precondition violation, not something the models recover from.
package physics
