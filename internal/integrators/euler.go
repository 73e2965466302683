package integrators

import "github.com/san-kum/armsim/internal/dynamo"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.Vector, u dynamo.Vector, t float64, dt float64) dynamo.Vector {
	dx := sys.Derive(x, u, t)
	result := make(dynamo.Vector, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

// SemiImplicitEuler updates velocities first and then positions with the new
// velocities. The state must be laid out as [q, q̇].
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (s *SemiImplicitEuler) Step(sys dynamo.System, x dynamo.Vector, u dynamo.Vector, t float64, dt float64) dynamo.Vector {
	half := len(x) / 2
	dx := sys.Derive(x, u, t)
	result := make(dynamo.Vector, len(x))
	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + dt*dx[half+i]
		result[i] = x[i] + dt*result[half+i]
	}
	return result
}
