package store

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/andreyvit/hser"
)

type texture struct {
	id string
}

func (t *texture) AssetID() string { return t.id }

type preset struct {
	Name  string
	Level int32
	Tags  []string
	Icon  *texture
	Spare *texture
}

func samplePreset() *preset {
	return &preset{
		Name:  "goblin",
		Level: 7,
		Tags:  []string{"melee", "green"},
		Icon:  &texture{"tex:goblin"},
	}
}

var textures = AssetResolverFunc(func(id string) (hser.Asset, error) {
	return &texture{id}, nil
})

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ok(err error) {
	if err != nil {
		panic(err)
	}
}

func deepEqual[T any](t testing.TB, a, e T) {
	t.Helper()
	if !reflect.DeepEqual(a, e) {
		t.Fatalf("** got %+v, wanted %+v", a, e)
	}
}

func openBolt(t testing.TB, opt Options) *Store {
	t.Helper()
	opt.IsTesting = true
	s, err := Open(filepath.Join(t.TempDir(), "presets.db"), opt)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func openMemory(t testing.TB, opt Options) *Store {
	s := OpenMemory(opt)
	t.Cleanup(func() { s.Close() })
	return s
}
