package integrators

import "github.com/san-kum/armsim/internal/dynamo"

// Verlet is velocity Verlet over a state laid out as [q, q̇].
type Verlet struct {
	prevAcc dynamo.Vector
	scratch dynamo.Vector
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) ensureScratch(n int) {
	if len(v.scratch) != n {
		v.scratch = make(dynamo.Vector, n)
		v.prevAcc = nil
	}
}

func (v *Verlet) Step(sys dynamo.System, x dynamo.Vector, u dynamo.Vector, t, dt float64) dynamo.Vector {
	n := len(x)
	half := n / 2
	v.ensureScratch(n)

	result := make(dynamo.Vector, n)
	dx := sys.Derive(x, u, t)
	dt2 := dt * dt

	for i := 0; i < half; i++ {
		result[i] = x[i] + x[half+i]*dt + 0.5*dx[half+i]*dt2
	}

	for i := 0; i < half; i++ {
		v.scratch[i] = result[i]
		v.scratch[half+i] = x[half+i]
	}

	dxNew := sys.Derive(v.scratch, u, t+dt)

	halfDt := 0.5 * dt
	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + (dx[half+i]+dxNew[half+i])*halfDt
	}

	return result
}

// Leapfrog is kick-drift-kick over [q, q̇].
type Leapfrog struct {
	scratch dynamo.Vector
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(sys dynamo.System, x dynamo.Vector, u dynamo.Vector, t, dt float64) dynamo.Vector {
	n := len(x)
	half := n / 2

	if len(l.scratch) != n {
		l.scratch = make(dynamo.Vector, n)
	}

	result := make(dynamo.Vector, n)
	dx := sys.Derive(x, u, t)
	halfDt := dt * 0.5

	for i := 0; i < half; i++ {
		l.scratch[half+i] = x[half+i] + dx[half+i]*halfDt
	}

	for i := 0; i < half; i++ {
		result[i] = x[i] + l.scratch[half+i]*dt
		l.scratch[i] = result[i]
	}

	dxNew := sys.Derive(l.scratch, u, t+dt)

	for i := 0; i < half; i++ {
		result[half+i] = l.scratch[half+i] + dxNew[half+i]*halfDt
	}

	return result
}
