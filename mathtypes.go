package hser

// Engine value types. The codec treats them as opaque fixed-layout leaves
// and flattens them as the ordered concatenation of their scalar fields.

type Vector2 struct {
	X, Y float32
}

type Vector3 struct {
	X, Y, Z float32
}

type Vector4 struct {
	X, Y, Z, W float32
}

type Vector2Int struct {
	X, Y int32
}

type Vector3Int struct {
	X, Y, Z int32
}

type Quaternion struct {
	X, Y, Z, W float32
}

// IdentityQuaternion is the rotation that does nothing.
var IdentityQuaternion = Quaternion{0, 0, 0, 1}

// Color is a linear RGBA color with float components.
type Color struct {
	R, G, B, A float32
}

// Color32 is an RGBA color with byte components.
type Color32 struct {
	R, G, B, A uint8
}

type Rect struct {
	X, Y, Width, Height float32
}

func (r Rect) Contains(p Vector2) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

type Bounds struct {
	Center  Vector3
	Extents Vector3
}

// Matrix4x4 stores its elements column by column.
type Matrix4x4 struct {
	M [16]float32
}

func IdentityMatrix() Matrix4x4 {
	var m Matrix4x4
	m.M[0], m.M[5], m.M[10], m.M[15] = 1, 1, 1, 1
	return m
}

// LayerMask is a bitmask of up to 32 layers.
type LayerMask uint32

func (m LayerMask) Contains(layer int) bool {
	return layer >= 0 && layer < 32 && m&(1<<uint(layer)) != 0
}

func (m LayerMask) With(layer int) LayerMask {
	return m | 1<<uint(layer)
}

type Keyframe struct {
	Time       float32
	Value      float32
	InTangent  float32
	OutTangent float32
}

// Curve is a keyed curve. On the wire it is a key count followed by the keys.
type Curve struct {
	Keys []Keyframe
}

const keyframeSize = 16
