package tracker

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/rm-radar/radarstation/internal/geometry"
)

// filterDim is the Singer-model state dimension: position, velocity, and
// acceleration on each of 3 axes.
const filterDim = 9

// singerFilter is a per-track linear-Gaussian filter over a 9-dim Singer
// maneuvering-target state. Position is observed directly; velocity and
// acceleration are inferred. Grounded on the gonum.org/v1/gonum/mat usage
// pattern in the pack's EKF implementation (VecDense state, SymDense
// covariance, Dense transition/noise matrices), specialized here to a
// fixed, known-structure transition instead of a numerically linearized one.
type singerFilter struct {
	x *mat.VecDense // [px,vx,ax, py,vy,ay, pz,vz,az]
	p *mat.SymDense

	maxAcceleration float64
	tau             float64
	observationStd  geometry.Vec3
}

func newSingerFilter(initial geometry.Vec3, maxAcceleration, tau float64, observationStd geometry.Vec3) *singerFilter {
	x := mat.NewVecDense(filterDim, nil)
	x.SetVec(0, initial.X)
	x.SetVec(3, initial.Y)
	x.SetVec(6, initial.Z)

	p := mat.NewSymDense(filterDim, nil)
	for i := 0; i < filterDim; i++ {
		v := 1.0
		if i%3 == 0 {
			v = observationStd.X * observationStd.X // rough initial position uncertainty
		} else {
			v = maxAcceleration * maxAcceleration
		}
		p.SetSym(i, i, v)
	}

	return &singerFilter{
		x:               x,
		p:               p,
		maxAcceleration: maxAcceleration,
		tau:             tau,
		observationStd:  observationStd,
	}
}

// position returns the filter's current position estimate.
func (f *singerFilter) position() geometry.Vec3 {
	return geometry.Vec3{X: f.x.AtVec(0), Y: f.x.AtVec(3), Z: f.x.AtVec(6)}
}

// axisTransition builds the 3x3 Singer transition block for one axis over
// dt, with exponentially correlated acceleration parameterized by tau.
func axisTransition(dt, tau float64) *mat.Dense {
	if tau <= 0 {
		tau = 1e-6
	}
	alpha := 1.0 / tau
	e := math.Exp(-alpha * dt)
	return mat.NewDense(3, 3, []float64{
		1, dt, (alpha*dt - 1 + e) / (alpha * alpha),
		0, 1, (1 - e) / alpha,
		0, 0, e,
	})
}

// axisProcessNoise builds the 3x3 Singer process noise block for one axis,
// scaling with max_acceleration^2 * (1 - e^{-2 dt/tau}) per the standard
// Singer formulation.
func axisProcessNoise(dt, tau, maxAcceleration float64) *mat.Dense {
	if tau <= 0 {
		tau = 1e-6
	}
	alpha := 1.0 / tau
	sigma2 := maxAcceleration * maxAcceleration * (1 - math.Exp(-2*alpha*dt))

	e := math.Exp(-alpha * dt)
	e2 := e * e
	q11 := sigma2 / (2 * math.Pow(alpha, 5)) * (1 - e2 + 2*alpha*dt + (2*math.Pow(alpha, 3)*dt*dt*dt)/3 - 2*alpha*alpha*dt*dt - 4*alpha*dt*e)
	q12 := sigma2 / (2 * math.Pow(alpha, 4)) * (e2 + 1 - 2*e + 2*alpha*dt*e - 2*alpha*dt + alpha*alpha*dt*dt)
	q13 := sigma2 / (2 * math.Pow(alpha, 3)) * (1 - e2 - 2*alpha*dt*e)
	q22 := sigma2 / (2 * math.Pow(alpha, 3)) * (4*e - 3 - e2 + 2*alpha*dt)
	q23 := sigma2 / (2 * alpha * alpha) * (e2 + 1 - 2*e)
	q33 := sigma2 / (2 * alpha) * (1 - e2)

	return mat.NewDense(3, 3, []float64{
		q11, q12, q13,
		q12, q22, q23,
		q13, q23, q33,
	})
}

// predict advances the filter by dt, using a block-diagonal transition over
// the three independent axes (x, y, z), each governed by the same Singer
// dynamics.
func (f *singerFilter) predict(dt time.Duration) {
	dtSec := dt.Seconds()
	if dtSec <= 0 {
		return
	}

	fBlock := axisTransition(dtSec, f.tau)
	qBlock := axisProcessNoise(dtSec, f.tau, f.maxAcceleration)

	newX := mat.NewVecDense(filterDim, nil)
	newP := mat.NewDense(filterDim, filterDim, nil)

	for axis := 0; axis < 3; axis++ {
		off := axis * 3
		sub := mat.NewVecDense(3, []float64{f.x.AtVec(off), f.x.AtVec(off + 1), f.x.AtVec(off + 2)})
		var predicted mat.VecDense
		predicted.MulVec(fBlock, sub)
		for i := 0; i < 3; i++ {
			newX.SetVec(off+i, predicted.AtVec(i))
		}

		subP := mat.NewDense(3, 3, nil)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				subP.Set(i, j, f.p.At(off+i, off+j))
			}
		}
		var fp mat.Dense
		fp.Mul(fBlock, subP)
		var fpft mat.Dense
		fpft.Mul(&fp, fBlock.T())
		fpft.Add(&fpft, qBlock)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				newP.Set(off+i, off+j, fpft.At(i, j))
			}
		}
	}

	f.x = newX
	symP := mat.NewSymDense(filterDim, nil)
	for i := 0; i < filterDim; i++ {
		for j := i; j < filterDim; j++ {
			symP.SetSym(i, j, newP.At(i, j))
		}
	}
	f.p = symP
}

// update performs a Kalman measurement update using a 3-D location
// observation with diagonal observation noise observationStd^2. Only the
// position rows of the state are directly observed; velocity/acceleration
// are corrected only through the cross-covariance terms, which is the
// standard behavior for a partially observed linear-Gaussian filter.
func (f *singerFilter) update(loc geometry.Vec3) {
	h := mat.NewDense(3, filterDim, nil)
	h.Set(0, 0, 1)
	h.Set(1, 3, 1)
	h.Set(2, 6, 1)

	r := mat.NewDiagDense(3, []float64{
		f.observationStd.X * f.observationStd.X,
		f.observationStd.Y * f.observationStd.Y,
		f.observationStd.Z * f.observationStd.Z,
	})

	z := mat.NewVecDense(3, []float64{loc.X, loc.Y, loc.Z})

	var predictedZ mat.VecDense
	predictedZ.MulVec(h, f.x)
	var innovation mat.VecDense
	innovation.SubVec(z, &predictedZ)

	var hp mat.Dense
	hp.Mul(h, f.p)
	var s mat.Dense
	s.Mul(&hp, h.T())
	s.Add(&s, r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return
	}

	var pht mat.Dense
	pht.Mul(f.p, h.T())
	var k mat.Dense
	k.Mul(&pht, &sInv)

	var correction mat.VecDense
	correction.MulVec(&k, &innovation)
	var newX mat.VecDense
	newX.AddVec(f.x, &correction)
	f.x = &newX

	var kh mat.Dense
	kh.Mul(&k, h)
	identity := mat.NewDiagDense(filterDim, nil)
	for i := 0; i < filterDim; i++ {
		identity.SetDiag(i, 1)
	}
	var ikh mat.Dense
	ikh.Sub(identity, &kh)
	var newP mat.Dense
	newP.Mul(&ikh, f.p)

	symP := mat.NewSymDense(filterDim, nil)
	for i := 0; i < filterDim; i++ {
		for j := i; j < filterDim; j++ {
			symP.SetSym(i, j, (newP.At(i, j)+newP.At(j, i))/2)
		}
	}
	f.p = symP
}
