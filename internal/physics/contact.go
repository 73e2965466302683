package physics

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// contactForce maps penalty forces from points below the ground plane to
// generalized forces with the Jacobian transpose.
func (b *Body) contactForce(f *frames, qd []float64) []float64 {
	tau := make([]float64, b.dofs)
	w := b.world
	if w.ground == nil {
		return tau
	}
	var omega, vel []r3.Vec
	for i, nd := range b.nodes {
		for _, c := range nd.contacts {
			x := r3.Add(f.pos[i], f.rot[i].Rotate(c.center))
			depth := w.ground.Height + c.radius - x.Z
			if depth <= 0 {
				continue
			}
			if omega == nil {
				omega, vel = b.velocities(f, qd)
			}
			v := r3.Add(vel[i], r3.Cross(omega[i], r3.Sub(x, f.pos[i])))
			normal := w.ContactStiffness*depth - w.ContactDamping*v.Z
			if normal <= 0 {
				continue
			}
			tangent := r3.Vec{X: -w.ContactDamping * v.X, Y: -w.ContactDamping * v.Y}
			if t := r3.Norm(tangent); t > w.Friction*normal {
				tangent = r3.Scale(w.Friction*normal/t, tangent)
			}
			b.applyPointForce(f, i, x, r3.Vec{X: tangent.X, Y: tangent.Y, Z: normal}, tau)
		}
	}
	return tau
}

func (b *Body) applyPointForce(f *frames, i int, x, force r3.Vec, tau []float64) {
	for j := i; j >= 0; j = b.nodes[j].parent {
		nd := b.nodes[j]
		switch nd.kind {
		case revoluteKind:
			tau[nd.dof] += r3.Dot(f.axis[j], r3.Cross(r3.Sub(x, f.pos[j]), force))
		case prismaticKind:
			tau[nd.dof] += r3.Dot(f.axis[j], force)
		}
	}
}
