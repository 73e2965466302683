// Package physics is a small articulated rigid-body engine.
//
// A [World] owns a fixed timestep, gravity, an optional ground plane and the
// scene lighting consumed by renderers. Bodies are built from parsed URDF
// descriptions with [World.AddBody]; each [Body] implements
// [dynamo.Simulator] so the drive loop can run against it directly:
//
//	w := physics.NewWorld()
//	w.AddGround(0)
//	body, err := w.AddBody(robot)
//	if err != nil {
//	    return err
//	}
//	body.SetJointPositions(qpos)
//	for i := 0; i < body.ActiveJointCount(); i++ {
//	    body.SetDriveProperty(i, 1e5, 1e3)
//	}
//
// # Dynamics
//
// Inverse dynamics uses the recursive Newton-Euler algorithm over the link
// tree, evaluated with world-frame vectors. The joint-space mass matrix is
// assembled one column at a time from unit accelerations and factorized with
// a Cholesky decomposition.
//
// Joint drives are PD springs toward a target. In the default mode the drive
// is integrated implicitly, solving
//
//	(M + dt·D + dt²·K)·q̈ = qf + K·(q* − q − dt·q̇) − D·q̇ − h(q, q̇)
//
// before a semi-implicit Euler update, which keeps stiff drives stable at
// millisecond timesteps. Setting [World.Integrator] switches to an explicit
// integrator over the state x = [q, q̇].
//
// A free root is modelled by six massless virtual joints (x, y, z, yaw,
// pitch, roll) ahead of the root link. They are never reported as active
// joints.
package physics
