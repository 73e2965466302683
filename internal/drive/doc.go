// Package drive runs the drive loop: it steers an articulated body toward a
// target configuration through its joint drives and presents a frame after
// every batch of sub-steps.
//
// Each outer iteration performs SubSteps sub-steps, each of which
//
//  1. optionally queries the passive force (gravity and Coriolis/centrifugal
//     terms) and applies it as an additive joint-force command,
//  2. sets the drive target from the [control.TargetSource], and
//  3. advances the simulation clock by one timestep,
//
// and then synchronizes render state and presents a frame. The loop stops
// when the context passed to [Controller.Run] is done or, when configured,
// after MaxFrames frames. Cancellation is only observed between batches, so a
// started batch always completes.
//
// The controller only depends on the [dynamo.Simulator] and [dynamo.Renderer]
// capabilities and can be driven by stubs in tests.
package drive
