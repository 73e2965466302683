package physics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/armsim/internal/dynamo"
)

// frames holds the world placement of every node for one configuration.
type frames struct {
	rot  []r3.Rotation
	pos  []r3.Vec
	axis []r3.Vec
	com  []r3.Vec
}

func (b *Body) kinematics(q []float64) *frames {
	n := len(b.nodes)
	f := &frames{
		rot:  make([]r3.Rotation, n),
		pos:  make([]r3.Vec, n),
		axis: make([]r3.Vec, n),
		com:  make([]r3.Vec, n),
	}
	for i, nd := range b.nodes {
		pr, pp := b.baseRot, b.basePos
		if nd.parent >= 0 {
			pr, pp = f.rot[nd.parent], f.pos[nd.parent]
		}
		jr := compose(pr, nd.originRot)
		jp := r3.Add(pp, pr.Rotate(nd.origin))
		f.axis[i] = jr.Rotate(nd.axis)
		f.rot[i], f.pos[i] = jr, jp
		switch nd.kind {
		case revoluteKind:
			f.rot[i] = compose(jr, r3.NewRotation(q[nd.dof], nd.axis))
		case prismaticKind:
			f.pos[i] = r3.Add(jp, r3.Scale(q[nd.dof], f.axis[i]))
		}
		f.com[i] = r3.Add(f.pos[i], f.rot[i].Rotate(nd.com))
	}
	return f
}

// velocities returns the angular velocity and origin velocity of each node.
func (b *Body) velocities(f *frames, qd []float64) (omega, vel []r3.Vec) {
	n := len(b.nodes)
	omega = make([]r3.Vec, n)
	vel = make([]r3.Vec, n)
	for i, nd := range b.nodes {
		var wp, vp r3.Vec
		pp := b.basePos
		if nd.parent >= 0 {
			wp, vp, pp = omega[nd.parent], vel[nd.parent], f.pos[nd.parent]
		}
		w := wp
		v := r3.Add(vp, r3.Cross(wp, r3.Sub(f.pos[i], pp)))
		switch nd.kind {
		case revoluteKind:
			w = r3.Add(w, r3.Scale(qd[nd.dof], f.axis[i]))
		case prismaticKind:
			v = r3.Add(v, r3.Scale(qd[nd.dof], f.axis[i]))
		}
		omega[i], vel[i] = w, v
	}
	return omega, vel
}

// inverseDynamics is the recursive Newton-Euler algorithm. baseAcc is the
// linear acceleration of the base; passing -g accounts for gravity.
func (b *Body) inverseDynamics(f *frames, qd, qdd []float64, baseAcc r3.Vec) []float64 {
	n := len(b.nodes)
	omega := make([]r3.Vec, n)
	alpha := make([]r3.Vec, n)
	acc := make([]r3.Vec, n)
	force := make([]r3.Vec, n)
	moment := make([]r3.Vec, n)

	for i, nd := range b.nodes {
		var wp, ap r3.Vec
		lp, pp := baseAcc, b.basePos
		if p := nd.parent; p >= 0 {
			wp, ap, lp, pp = omega[p], alpha[p], acc[p], f.pos[p]
		}
		r := r3.Sub(f.pos[i], pp)
		w, a := wp, ap
		l := r3.Add(lp, r3.Add(r3.Cross(ap, r), r3.Cross(wp, r3.Cross(wp, r))))
		if nd.dof >= 0 {
			ax, v, dv := f.axis[i], qd[nd.dof], qdd[nd.dof]
			switch nd.kind {
			case revoluteKind:
				w = r3.Add(w, r3.Scale(v, ax))
				a = r3.Add(a, r3.Add(r3.Scale(dv, ax), r3.Cross(wp, r3.Scale(v, ax))))
			case prismaticKind:
				l = r3.Add(l, r3.Add(r3.Scale(dv, ax), r3.Scale(2*v, r3.Cross(wp, ax))))
			}
		}
		omega[i], alpha[i], acc[i] = w, a, l

		c := r3.Sub(f.com[i], f.pos[i])
		ac := r3.Add(l, r3.Add(r3.Cross(a, c), r3.Cross(w, r3.Cross(w, c))))
		force[i] = r3.Scale(nd.mass, ac)
		torque := r3.Add(
			applyInertia(f.rot[i], nd.inertia, a),
			r3.Cross(w, applyInertia(f.rot[i], nd.inertia, w)),
		)
		moment[i] = r3.Add(torque, r3.Cross(c, force[i]))
	}

	tau := make([]float64, b.dofs)
	for i := n - 1; i >= 0; i-- {
		nd := b.nodes[i]
		switch nd.kind {
		case revoluteKind:
			tau[nd.dof] = r3.Dot(f.axis[i], moment[i])
		case prismaticKind:
			tau[nd.dof] = r3.Dot(f.axis[i], force[i])
		}
		if p := nd.parent; p >= 0 {
			force[p] = r3.Add(force[p], force[i])
			arm := r3.Sub(f.pos[i], f.pos[p])
			moment[p] = r3.Add(moment[p], r3.Add(moment[i], r3.Cross(arm, force[i])))
		}
	}
	return tau
}

func (b *Body) massMatrix(f *frames) *mat.SymDense {
	n := b.dofs
	cols := make([][]float64, n)
	zero := make([]float64, n)
	unit := make([]float64, n)
	for k := range cols {
		unit[k] = 1
		cols[k] = b.inverseDynamics(f, zero, unit, r3.Vec{})
		unit[k] = 0
	}
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			m.SetSym(i, j, 0.5*(cols[j][i]+cols[i][j]))
		}
		m.SetSym(i, i, m.At(i, i)+b.armature[i])
	}
	return m
}

func solve(a *mat.SymDense, rhs []float64) ([]float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, dynamo.ErrSingularMassMatrix
	}
	x := mat.NewVecDense(len(rhs), nil)
	if err := chol.SolveVecTo(x, mat.NewVecDense(len(rhs), rhs)); err != nil {
		return nil, fmt.Errorf("%w: %w", dynamo.ErrSingularMassMatrix, err)
	}
	return x.RawVector().Data, nil
}

// MassMatrix returns the joint-space inertia over the active joints.
func (b *Body) MassMatrix() *mat.SymDense {
	if len(b.joints) == 0 {
		return nil
	}
	full := b.massMatrix(b.kinematics(b.q))
	n := len(b.joints)
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, full.At(b.root+i, b.root+j))
		}
	}
	return out
}

// PassiveForce returns the active-joint force that balances gravity and/or
// the Coriolis and centrifugal terms at the current state.
func (b *Body) PassiveForce(gravity, coriolisAndCentrifugal bool) (dynamo.Vector, error) {
	zero := make([]float64, b.dofs)
	qd := zero
	if coriolisAndCentrifugal {
		qd = b.qd
	}
	var baseAcc r3.Vec
	if gravity {
		baseAcc = r3.Scale(-1, b.world.Gravity)
	}
	tau := dynamo.Vector(b.inverseDynamics(b.kinematics(b.q), qd, zero, baseAcc)[b.root:])
	if !tau.IsValid() {
		return nil, dynamo.EngineError(fmt.Errorf("passive force: %w", dynamo.ErrInvalidState))
	}
	return tau.Clone(), nil
}

func (b *Body) KineticEnergy() float64 {
	if b.dofs == 0 {
		return 0
	}
	m := b.massMatrix(b.kinematics(b.q))
	qd := mat.NewVecDense(b.dofs, append([]float64(nil), b.qd...))
	return 0.5 * mat.Inner(qd, m, qd)
}

// PotentialEnergy is measured relative to the world origin.
func (b *Body) PotentialEnergy() float64 {
	f := b.kinematics(b.q)
	e := 0.0
	for i, nd := range b.nodes {
		e -= nd.mass * r3.Dot(b.world.Gravity, f.com[i])
	}
	return e
}

// appliedForce is every generalized force except the drives: the joint-force
// command, ground contact and the negated bias h(q, q̇).
func (b *Body) appliedForce(f *frames, qd, qf []float64) []float64 {
	zero := make([]float64, b.dofs)
	rhs := b.inverseDynamics(f, qd, zero, r3.Scale(-1, b.world.Gravity))
	contact := b.contactForce(f, qd)
	for k := range rhs {
		rhs[k] = contact[k] - rhs[k]
	}
	for a, v := range qf {
		rhs[b.root+a] += v
	}
	return rhs
}

func (b *Body) advance(dt float64) error {
	if b.dofs == 0 {
		return nil
	}
	var err error
	if b.world.Integrator != nil {
		err = b.advanceExplicit(dt)
	} else {
		err = b.advanceImplicit(dt)
	}
	if err != nil {
		return err
	}
	b.enforceLimits()
	if !dynamo.Vector(b.q).IsValid() || !dynamo.Vector(b.qd).IsValid() {
		return dynamo.ErrInvalidState
	}
	return nil
}

func (b *Body) advanceImplicit(dt float64) error {
	f := b.kinematics(b.q)
	m := b.massMatrix(f)
	rhs := b.appliedForce(f, b.qd, b.qf)
	for k := 0; k < b.dofs; k++ {
		c := b.jointDamping[k]
		rhs[k] -= c * b.qd[k]
		m.SetSym(k, k, m.At(k, k)+dt*c)
	}
	for a := range b.joints {
		k := b.root + a
		kp, kd := b.stiffness[a], b.damping[a]
		rhs[k] += kp*(b.target[a]-b.q[k]-dt*b.qd[k]) - kd*b.qd[k]
		m.SetSym(k, k, m.At(k, k)+dt*kd+dt*dt*kp)
	}
	qdd, err := solve(m, rhs)
	if err != nil {
		return err
	}
	for k := range b.q {
		b.qd[k] += dt * qdd[k]
		b.q[k] += dt * b.qd[k]
	}
	return nil
}

// acceleration evaluates forward dynamics with an explicit drive.
func (b *Body) acceleration(q, qd, qf []float64) ([]float64, error) {
	f := b.kinematics(q)
	m := b.massMatrix(f)
	rhs := b.appliedForce(f, qd, qf)
	for k := 0; k < b.dofs; k++ {
		rhs[k] -= b.jointDamping[k] * qd[k]
	}
	for a := range b.joints {
		k := b.root + a
		rhs[k] += b.stiffness[a]*(b.target[a]-q[k]) - b.damping[a]*qd[k]
	}
	return solve(m, rhs)
}

// stateODE exposes the body as x = [q, q̇] with the joint-force command as u.
type stateODE struct {
	b   *Body
	err error
}

func (s *stateODE) StateDim() int   { return 2 * s.b.dofs }
func (s *stateODE) ControlDim() int { return len(s.b.joints) }

func (s *stateODE) Derive(x dynamo.Vector, u dynamo.Vector, t float64) dynamo.Vector {
	n := s.b.dofs
	dx := make(dynamo.Vector, 2*n)
	copy(dx, x[n:])
	qdd, err := s.b.acceleration(x[:n], x[n:], u)
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		return dx
	}
	copy(dx[n:], qdd)
	return dx
}

func (b *Body) advanceExplicit(dt float64) error {
	n := b.dofs
	x := make(dynamo.Vector, 2*n)
	copy(x, b.q)
	copy(x[n:], b.qd)
	sys := &stateODE{b: b}
	next := b.world.Integrator.Step(sys, x, dynamo.Vector(b.qf), b.world.time, dt)
	if sys.err != nil {
		return sys.err
	}
	if len(next) != 2*n {
		return dynamo.NewDimensionError("integrated state", len(next), 2*n)
	}
	copy(b.q, next[:n])
	copy(b.qd, next[n:])
	return nil
}

// enforceLimits clamps bounded joints and removes velocity that pushes
// further out of range.
func (b *Body) enforceLimits() {
	for a, j := range b.joints {
		if !j.Limit.Bounded() {
			continue
		}
		k := b.root + a
		switch {
		case b.q[k] < j.Limit.Lower:
			b.q[k] = j.Limit.Lower
			if b.qd[k] < 0 {
				b.qd[k] = 0
			}
		case b.q[k] > j.Limit.Upper:
			b.q[k] = j.Limit.Upper
			if b.qd[k] > 0 {
				b.qd[k] = 0
			}
		}
	}
}
