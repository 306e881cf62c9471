// Package geometry provides the small set of vector, matrix, and coordinate
// transform helpers shared by the Locator and Tracker: camera/LiDAR/world
// frame conversions, all expressed as plain row-major float64 arrays.
package geometry

import "math"

// Vec3 is a point in a 3-D coordinate frame; which frame is determined by
// context (LiDAR, camera, or world), never tagged on the value itself.
type Vec3 struct {
	X, Y, Z float64
}

// IsZero reports whether p is the origin on all three axes, the sentinel the
// Locator uses to skip degenerate LiDAR returns.
func (p Vec3) IsZero() bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0
}

func (p Vec3) Add(q Vec3) Vec3 { return Vec3{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }
func (p Vec3) Sub(q Vec3) Vec3 { return Vec3{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }
func (p Vec3) Scale(s float64) Vec3 {
	return Vec3{p.X * s, p.Y * s, p.Z * s}
}

// Distance returns the Euclidean distance between p and q.
func (p Vec3) Distance(q Vec3) float64 {
	d := p.Sub(q)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// Mat3 is a 3x3 row-major matrix, used for the camera intrinsic K.
type Mat3 [9]float64

// MulVec applies m to v: m*v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		Z: m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Inverse returns the inverse of a 3x3 matrix via the adjugate method. K is
// always invertible for a valid camera intrinsic; callers that pass a
// degenerate K get a zero matrix back rather than a panic, consistent with
// the rest of the Locator's "skip on bad input" error philosophy.
func (m Mat3) Inverse() Mat3 {
	det := m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
	if det == 0 {
		return Mat3{}
	}
	invDet := 1.0 / det
	return Mat3{
		(m[4]*m[8] - m[5]*m[7]) * invDet,
		(m[2]*m[7] - m[1]*m[8]) * invDet,
		(m[1]*m[5] - m[2]*m[4]) * invDet,
		(m[5]*m[6] - m[3]*m[8]) * invDet,
		(m[0]*m[8] - m[2]*m[6]) * invDet,
		(m[2]*m[3] - m[0]*m[5]) * invDet,
		(m[3]*m[7] - m[4]*m[6]) * invDet,
		(m[1]*m[6] - m[0]*m[7]) * invDet,
		(m[0]*m[4] - m[1]*m[3]) * invDet,
	}
}

// Mat4 is a 4x4 row-major homogeneous transform, the representation used for
// T_L->C and T_W->C throughout the Locator.
type Mat4 [16]float64

// Identity4 returns the identity transform.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Apply applies T to point p, returning T*p in homogeneous coordinates.
func (T Mat4) Apply(p Vec3) Vec3 {
	return Vec3{
		X: T[0]*p.X + T[1]*p.Y + T[2]*p.Z + T[3],
		Y: T[4]*p.X + T[5]*p.Y + T[6]*p.Z + T[7],
		Z: T[8]*p.X + T[9]*p.Y + T[10]*p.Z + T[11],
	}
}

// Rotation returns the upper-left 3x3 rotation block.
func (T Mat4) Rotation() Mat3 {
	return Mat3{T[0], T[1], T[2], T[4], T[5], T[6], T[8], T[9], T[10]}
}

// Translation returns the rightmost column of the rotation rows.
func (T Mat4) Translation() Vec3 {
	return Vec3{T[3], T[7], T[11]}
}

// Inverse returns the inverse of a rigid transform (rotation R, translation
// t): inverse is [R^T | -R^T*t]. Assumes T is a proper rigid transform, which
// holds for calibrated extrinsics; this is a configuration precondition, not
// a runtime input, so it is not defensively checked here.
func (T Mat4) Inverse() Mat4 {
	r := T.Rotation()
	rt := Mat3{r[0], r[3], r[6], r[1], r[4], r[7], r[2], r[5], r[8]}
	t := T.Translation()
	negRtT := rt.MulVec(t).Scale(-1)
	return Mat4{
		rt[0], rt[1], rt[2], negRtT.X,
		rt[3], rt[4], rt[5], negRtT.Y,
		rt[6], rt[7], rt[8], negRtT.Z,
		0, 0, 0, 1,
	}
}

// Calibration holds the camera intrinsic and the two extrinsics the Locator
// needs; the derived inverses are computed once at construction and reused
// on every tick.
type Calibration struct {
	K       Mat3
	TLtoC   Mat4
	TWtoC   Mat4
	KInv    Mat3
	TCtoL   Mat4
	TCtoW   Mat4
	RCtoL   Mat3
	TransCL Vec3
}

// NewCalibration derives the inverse transforms from K, T_L->C and T_W->C.
func NewCalibration(k Mat3, tLtoC, tWtoC Mat4) Calibration {
	tCtoL := tLtoC.Inverse()
	return Calibration{
		K:       k,
		TLtoC:   tLtoC,
		TWtoC:   tWtoC,
		KInv:    k.Inverse(),
		TCtoL:   tCtoL,
		TCtoW:   tWtoC.Inverse(),
		RCtoL:   tCtoL.Rotation(),
		TransCL: tCtoL.Translation(),
	}
}

// Pixel is a camera-space projection: (u, v) in zoomed pixel coordinates and
// the camera-frame depth at that pixel.
type Pixel struct {
	U, V int
	D    float64
}

// LidarToCamera projects a LiDAR-frame point p through T_L->C then K,
// dividing by depth and scaling by zoomFactor. ok is false when the point is
// behind the camera (non-positive depth), a degenerate projection the
// caller should skip.
func (c Calibration) LidarToCamera(p Vec3, zoomFactor float64) (px Pixel, ok bool) {
	cam := c.TLtoC.Apply(p)
	if cam.Z <= 0 {
		return Pixel{}, false
	}
	proj := c.K.MulVec(cam)
	u := (proj.X / cam.Z) * zoomFactor
	v := (proj.Y / cam.Z) * zoomFactor
	return Pixel{U: int(u), V: int(v), D: cam.Z}, true
}

// CameraToLidar back-projects a zoomed pixel (u, v) with camera-frame depth d
// into the LiDAR frame: back-project by K^-1*d, translate by t_C->L, then
// rotate by R_C->L.
func (c Calibration) CameraToLidar(u, v int, d float64, zoomFactor float64) Vec3 {
	homog := Vec3{X: float64(u) / zoomFactor, Y: float64(v) / zoomFactor, Z: 1}
	cam := c.KInv.MulVec(homog).Scale(d)
	return c.RCtoL.MulVec(cam.Add(c.TransCL))
}

// LidarToWorld transforms a LiDAR-frame point into the world/field frame via
// the camera frame.
func (c Calibration) LidarToWorld(p Vec3) Vec3 {
	return c.TCtoW.Apply(c.TLtoC.Apply(p))
}
