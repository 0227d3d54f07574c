package hser

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"unsafe"
)

// Visibility selects which members of a type take part in serialization.
type Visibility int

const (
	// VisibilityNone serializes no members.
	VisibilityNone Visibility = iota
	// VisibilityPublic serializes exported fields, minus those tagged `hser:"-"`,
	// plus unexported fields tagged `hser:",serialize"`, plus listed properties.
	VisibilityPublic
	// VisibilityAllPublic serializes every exported field and property,
	// ignoring `hser:"-"`.
	VisibilityAllPublic
	// VisibilitySnapshot serializes only members tagged `hser:",snapshot"`.
	VisibilitySnapshot
	// VisibilityAll serializes exported and unexported fields and properties,
	// minus those tagged `hser:"-"`.
	VisibilityAll
)

var visibilityNames = [...]string{"none", "public", "allpublic", "snapshot", "all"}

func (vis Visibility) String() string {
	if vis >= 0 && int(vis) < len(visibilityNames) {
		return visibilityNames[vis]
	}
	return fmt.Sprintf("Visibility(%d)", int(vis))
}

func ParseVisibility(s string) (Visibility, error) {
	for i, name := range visibilityNames {
		if s == name {
			return Visibility(i), nil
		}
	}
	return 0, fmt.Errorf("unknown visibility %q", s)
}

// selectsMembers is false for VisibilityNone and undefined values.
func (vis Visibility) selectsMembers() bool {
	return vis > VisibilityNone && vis <= VisibilityAll
}

func (vis Visibility) includesField(exported bool, tag memberTag) bool {
	switch vis {
	case VisibilityPublic:
		return !tag.exclude && (exported || tag.serialize)
	case VisibilityAllPublic:
		return exported
	case VisibilitySnapshot:
		return !tag.exclude && tag.snapshot
	case VisibilityAll:
		return !tag.exclude
	default:
		return false
	}
}

// PropertyLister exposes getter/setter method pairs as members. Each entry
// names a property, optionally followed by options as in a struct tag
// ("Health,snapshot"). Property Foo is read with Foo() and written with
// SetFoo(v), both declared on the pointer type.
type PropertyLister interface {
	SerializedProperties() []string
}

var propertyListerType = reflect.TypeOf((*PropertyLister)(nil)).Elem()

// Member describes one serializable field or property.
type Member struct {
	Name string
	Type reflect.Type

	info     *typeInfo
	path     []int // field indices from the root struct; for properties, the path to the struct declaring them
	property bool
	getter   int // method indices on the pointer type
	setter   int
}

func (m *Member) IsList() bool     { return m.info.shape == shapeList }
func (m *Member) IsProperty() bool { return m.property }

func (m *Member) String() string {
	return m.Name + " " + m.Type.String()
}

// Get returns the member's value within obj, which must be an addressable
// struct. Field values are addressable and settable; property values are
// addressable copies.
func (m *Member) Get(obj reflect.Value) reflect.Value {
	holder := fieldByPath(obj, m.path)
	if m.property {
		return addressable(holder.Addr().Method(m.getter).Call(nil)[0])
	}
	return holder
}

func (m *Member) Set(obj reflect.Value, v reflect.Value) {
	holder := fieldByPath(obj, m.path)
	if m.property {
		holder.Addr().Method(m.setter).Call([]reflect.Value{v})
		return
	}
	holder.Set(v)
}

// fieldByPath walks field indices, materializing nil embedded pointers on the
// way. Unexported fields are made settable.
func fieldByPath(v reflect.Value, path []int) reflect.Value {
	for _, i := range path {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(newDefault(v.Type().Elem()))
			}
			v = v.Elem()
		}
		f := v.Field(i)
		if !f.CanSet() {
			f = reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
		}
		v = f
	}
	return v
}

type catalogKey struct {
	typ reflect.Type
	vis Visibility
}

var catalogCache sync.Map // catalogKey -> []*Member

// Members returns the ordered serializable members of a struct type under the
// given visibility. Members of embedded structs come first, then the type's
// own fields in declaration order, then its properties.
func Members(typ reflect.Type, vis Visibility) []*Member {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		panic(fmt.Errorf("hser: %v is not a struct", typ))
	}
	key := catalogKey{typ, vis}
	if v, ok := catalogCache.Load(key); ok {
		return v.([]*Member)
	}
	var members []*Member
	if vis.selectsMembers() {
		collectMembers(&members, typ, vis, nil, 0)
	}
	actual, _ := catalogCache.LoadOrStore(key, members)
	return actual.([]*Member)
}

// MemberNamed returns nil if the name is not in the catalog.
func MemberNamed(typ reflect.Type, vis Visibility, name string) *Member {
	for _, m := range Members(typ, vis) {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func collectMembers(out *[]*Member, typ reflect.Type, vis Visibility, path []int, depth int) {
	n := typ.NumField()
	for i := 0; i < n; i++ {
		f := typ.Field(i)
		if !isEmbeddedBase(f) || depth >= MaxDepth {
			continue
		}
		if fieldTag(f).exclude && vis != VisibilityAllPublic {
			continue
		}
		collectMembers(out, derefType(f.Type), vis, appendPath(path, i), depth+1)
	}

	for i := 0; i < n; i++ {
		f := typ.Field(i)
		if isEmbeddedBase(f) || f.Name == "_" {
			continue
		}
		tag := fieldTag(f)
		if !vis.includesField(f.IsExported(), tag) {
			continue
		}
		if isRecordShaped(f.Type) && !tag.force {
			continue
		}
		info := infoOf(f.Type)
		if info.shape == shapeUnsupported {
			slog.Debug("hser: skipping field of unsupported type", "type", typ, "field", f.Name, "field_type", f.Type)
			continue
		}
		name := f.Name
		if tag.name != "" {
			name = tag.name
		}
		addMember(out, &Member{
			Name: name,
			Type: f.Type,
			info: info,
			path: appendPath(path, i),
		})
	}

	collectProperties(out, typ, vis, path)
}

func collectProperties(out *[]*Member, typ reflect.Type, vis Visibility, path []int) {
	ptrType := reflect.PointerTo(typ)
	if !ptrType.Implements(propertyListerType) {
		return
	}
	for _, entry := range reflect.New(typ).Interface().(PropertyLister).SerializedProperties() {
		tag := parseMemberTag(entry)
		if tag.name == "" {
			continue
		}
		if vis == VisibilitySnapshot && !tag.snapshot {
			continue
		}
		name := tag.name
		getter, gok := ptrType.MethodByName(name)
		setter, sok := ptrType.MethodByName("Set" + name)
		if !gok || !sok {
			slog.Debug("hser: skipping property without getter and setter", "type", typ, "property", name)
			continue
		}
		gt, st := getter.Type, setter.Type
		if gt.NumIn() != 1 || gt.NumOut() != 1 || st.NumIn() != 2 || st.NumOut() != 0 || st.In(1) != gt.Out(0) {
			slog.Debug("hser: skipping property with mismatched accessors", "type", typ, "property", name)
			continue
		}
		vt := gt.Out(0)
		if reason := rejectPropertyType(vt); reason != "" {
			slog.Debug("hser: skipping property", "type", typ, "property", name, "reason", reason)
			continue
		}
		addMember(out, &Member{
			Name:     name,
			Type:     vt,
			info:     infoOf(vt),
			path:     path,
			property: true,
			getter:   getter.Index,
			setter:   setter.Index,
		})
	}
}

func rejectPropertyType(typ reflect.Type) string {
	if isRecordShaped(typ) {
		return "record"
	}
	t := typ
	if k := t.Kind(); k == reflect.Slice || k == reflect.Array {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Func:
		return "func"
	case reflect.Chan:
		return "callback channel"
	case reflect.Interface:
		if !t.Implements(assetType) {
			return "abstract"
		}
	}
	if infoOf(typ).shape == shapeUnsupported {
		return "unsupported"
	}
	return ""
}

// addMember appends m; a member declared later (closer to the outer type)
// shadows an earlier one with the same name.
func addMember(out *[]*Member, m *Member) {
	for i, prior := range *out {
		if prior.Name == m.Name {
			*out = append((*out)[:i], (*out)[i+1:]...)
			break
		}
	}
	*out = append(*out, m)
}

func isEmbeddedBase(f reflect.StructField) bool {
	return f.Anonymous && derefType(f.Type).Kind() == reflect.Struct && infoOf(f.Type).shape == shapeComposite
}

func derefType(typ reflect.Type) reflect.Type {
	if typ.Kind() == reflect.Ptr {
		return typ.Elem()
	}
	return typ
}

func appendPath(path []int, i int) []int {
	res := make([]int, len(path)+1)
	copy(res, path)
	res[len(path)] = i
	return res
}

// ClearCaches forgets all per-type metadata and memoized hashes. Registered
// types are kept.
func ClearCaches() {
	catalogCache.Clear()
	typeInfoCache.Clear()
	stringHashCache.Clear()
}
