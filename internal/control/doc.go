// Package control provides target sources for the joint drives.
//
// A [TargetSource] yields the drive target for every active joint as a
// function of simulation time:
//
//   - [Constant]: a fixed configuration
//   - [Ramp]: minimum-jerk move between two configurations, then hold
//   - [Waypoints]: a sequence of ramped moves with optional holds and looping
//   - [Manual]: a configuration edited at runtime, e.g. from the viewer
//
// # Usage
//
//	src, err := control.NewRamp(start, goal, 2.0)
//	if err != nil {
//	    return err
//	}
//	q := src.Target(sim.Time())
//
// Sources report their dimension with Dim so callers can check it against
// the active-joint count before driving a body.
package control
