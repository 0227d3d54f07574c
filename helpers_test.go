package hser

import (
	"encoding/hex"
	"reflect"
	"strings"
	"testing"
	"time"
)

type testAsset struct {
	id string
}

func (a *testAsset) AssetID() string { return a.id }

type Stats struct {
	Health int32
	Speed  float32
	Tags   []string
}

type Weapon struct {
	Name   string
	Damage float64
	Icon   *testAsset
	Stats  Stats
}

type Character struct {
	Name      string
	Level     int
	Alive     bool
	Position  Vector3
	Rotation  Quaternion
	Tint      Color
	Mask      LayerMask
	Weapon    *Weapon
	Scores    []int32
	Inventory []*Weapon
	Slots     [3]uint16
	Created   time.Time
	Portrait  *testAsset
	Notes     *string
	Blob      []byte
	Jump      Curve

	armor int32 `hser:",serialize"`
	Cache string `hser:"-"`
}

// Pickup is the three-slot example: a count, a label and an asset.
type Pickup struct {
	Count  int32
	Label  string
	Target *testAsset
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func x(data string) []byte {
	data = strings.ReplaceAll(data, " ", "")
	return must(hex.DecodeString(data))
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}

func ptrTo[T any](v T) *T {
	return &v
}
