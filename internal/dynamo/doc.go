// Package dynamo provides the core primitives shared by the articulated-body
// engine, the drive loop and the viewer.
//
// The package defines the vocabulary types and the narrow capability
// interfaces the drive loop is written against:
//
//   - [Vector]: joint-space vector (positions, velocities, forces)
//   - [Pose]: root pose (position + orientation quaternion)
//   - [Simulator]: physics capability (joint state, passive force, drives, stepping)
//   - [Renderer]: render-state synchronization and frame presentation
//   - [System] and [Integrator]: explicit ODE stepping for the engine
//   - [Metric] and [Observer]: per-sub-step instrumentation
//
// # Example
//
//	body := world.Body(0)
//	loop := drive.New(world, renderer, control.NewConstant(q), drive.DefaultConfig(), logger)
//	stats, err := loop.Run(ctx)
//
// # Thread Safety
//
// Simulator and Renderer implementations are NOT thread-safe. The drive loop
// owns them exclusively for its lifetime.
package dynamo
