package hser

import (
	"reflect"
	"strings"
	"testing"
)

type visProbe struct {
	Plain   int32
	Hidden  int32 `hser:"-"`
	Snap    int32 `hser:",snapshot"`
	private int32
	kept    int32 `hser:",serialize"`
	Named   int32 `hser:"Other"`
	Nested  Record
	Forced  *Record `hser:",force"`
	Many    []Record
}

func memberNames(typ reflect.Type, vis Visibility) string {
	var names []string
	for _, m := range Members(typ, vis) {
		names = append(names, m.Name)
	}
	return strings.Join(names, " ")
}

func TestMembers_visibility(t *testing.T) {
	typ := reflect.TypeOf(visProbe{})
	tests := []struct {
		vis      Visibility
		expected string
	}{
		{VisibilityNone, ""},
		{VisibilityPublic, "Plain Snap kept Other Forced"},
		{VisibilityAllPublic, "Plain Hidden Snap Other Forced"},
		{VisibilitySnapshot, "Snap"},
		{VisibilityAll, "Plain Snap private kept Other Forced"},
	}
	for _, test := range tests {
		if a := memberNames(typ, test.vis); a != test.expected {
			t.Errorf("** Members(%s) = %q, wanted %q", test.vis, a, test.expected)
		}
	}
}

func TestMembers_pointerTypeAndCache(t *testing.T) {
	a := Members(reflect.TypeOf(&visProbe{}), VisibilityPublic)
	b := Members(reflect.TypeOf(visProbe{}), VisibilityPublic)
	if len(a) == 0 || &a[0] != &b[0] {
		t.Fatalf("Members(*T) and Members(T) returned different catalogs")
	}
	assertPanics(t, func() { Members(reflect.TypeOf(42), VisibilityPublic) })
}

func TestMember_getSetUnexported(t *testing.T) {
	var p visProbe
	obj := reflect.ValueOf(&p).Elem()
	m := MemberNamed(obj.Type(), VisibilityAll, "private")
	if m == nil {
		t.Fatalf("no member private")
	}
	m.Set(obj, reflect.ValueOf(int32(42)))
	if p.private != 42 {
		t.Fatalf("private = %d, wanted 42", p.private)
	}
	if a := m.Get(obj).Interface(); a != int32(42) {
		t.Fatalf("Get = %v, wanted 42", a)
	}
	if m.IsProperty() || m.IsList() {
		t.Fatalf("private: IsProperty = %v, IsList = %v", m.IsProperty(), m.IsList())
	}
}

type baseEntity struct {
	ID   int32
	Name string
}

type derivedEntity struct {
	baseEntity
	Name  string
	Extra []int32
}

type pointerDerived struct {
	*baseEntity
	Extra int32
}

type excludedBase struct {
	baseEntity `hser:"-"`
	Extra      int32
}

func TestMembers_embedded(t *testing.T) {
	if a, e := memberNames(reflect.TypeOf(derivedEntity{}), VisibilityPublic), "ID Name Extra"; a != e {
		t.Fatalf("Members(derivedEntity) = %q, wanted %q", a, e)
	}
	if a, e := memberNames(reflect.TypeOf(excludedBase{}), VisibilityPublic), "Extra"; a != e {
		t.Fatalf("Members(excludedBase) = %q, wanted %q", a, e)
	}
	if a, e := memberNames(reflect.TypeOf(excludedBase{}), VisibilityAllPublic), "ID Name Extra"; a != e {
		t.Fatalf("Members(excludedBase, AllPublic) = %q, wanted %q", a, e)
	}

	m := MemberNamed(reflect.TypeOf(derivedEntity{}), VisibilityPublic, "Extra")
	if m == nil || !m.IsList() {
		t.Fatalf("Extra.IsList() = false, wanted true")
	}

	d := derivedEntity{baseEntity: baseEntity{ID: 1, Name: "base"}, Name: "outer"}
	rec := Serialize(&d, VisibilityPublic)
	out := must(Unmarshal[derivedEntity](rec, VisibilityPublic))
	if out.ID != 1 || out.Name != "outer" || out.baseEntity.Name != "" {
		t.Fatalf("Unmarshal = %+v, wanted ID=1 Name=outer and empty shadowed name", out)
	}
}

func TestMembers_embeddedPointerMaterialized(t *testing.T) {
	var p pointerDerived
	obj := reflect.ValueOf(&p).Elem()
	m := MemberNamed(obj.Type(), VisibilityPublic, "ID")
	if m == nil {
		t.Fatalf("no member ID")
	}
	m.Set(obj, reflect.ValueOf(int32(5)))
	if p.baseEntity == nil || p.ID != 5 {
		t.Fatalf("embedded pointer = %v, wanted materialized with ID 5", p.baseEntity)
	}

	rec := Serialize(&pointerDerived{baseEntity: &baseEntity{ID: 3, Name: "n"}, Extra: 4}, VisibilityPublic)
	out := must(Unmarshal[pointerDerived](rec, VisibilityPublic))
	if out.baseEntity == nil || out.ID != 3 || out.Name != "n" || out.Extra != 4 {
		t.Fatalf("Unmarshal = %+v", out)
	}
}

type propHolder struct {
	hp   int32
	mana float32
	tags []string
}

func (p *propHolder) SerializedProperties() []string {
	return []string{"HP,snapshot", "Mana", "Tags", "Missing", "Callback", "Nested", "ReadOnly"}
}

func (p *propHolder) HP() int32            { return p.hp }
func (p *propHolder) SetHP(v int32)        { p.hp = v }
func (p *propHolder) Mana() float32        { return p.mana }
func (p *propHolder) SetMana(v float32)    { p.mana = v }
func (p *propHolder) Tags() []string       { return p.tags }
func (p *propHolder) SetTags(v []string)   { p.tags = v }
func (p *propHolder) Callback() func()     { return nil }
func (p *propHolder) SetCallback(f func()) {}
func (p *propHolder) Nested() *Record      { return nil }
func (p *propHolder) SetNested(r *Record)  {}
func (p *propHolder) ReadOnly() int32      { return 1 }
func (p *propHolder) SetReadOnly(v int64)  {}

func TestMembers_properties(t *testing.T) {
	typ := reflect.TypeOf(propHolder{})
	if a, e := memberNames(typ, VisibilityPublic), "HP Mana Tags"; a != e {
		t.Fatalf("Members(Public) = %q, wanted %q", a, e)
	}
	if a, e := memberNames(typ, VisibilitySnapshot), "HP"; a != e {
		t.Fatalf("Members(Snapshot) = %q, wanted %q", a, e)
	}
	for _, vis := range []Visibility{VisibilityNone, Visibility(9), Visibility(-1)} {
		if a := memberNames(typ, vis); a != "" {
			t.Fatalf("Members(%v) = %q, wanted none", vis, a)
		}
	}

	m := MemberNamed(typ, VisibilityPublic, "Tags")
	if !m.IsProperty() || !m.IsList() {
		t.Fatalf("Tags: IsProperty = %v, IsList = %v", m.IsProperty(), m.IsList())
	}

	rec := Serialize(&propHolder{hp: 5, mana: 1.5, tags: []string{"a"}}, VisibilityPublic)
	out := must(Unmarshal[propHolder](rec, VisibilityPublic))
	deepEqual(t, *out, propHolder{hp: 5, mana: 1.5, tags: []string{"a"}})

	rec = Serialize(&propHolder{hp: 5, mana: 1.5}, VisibilitySnapshot)
	out = must(Unmarshal[propHolder](rec, VisibilityPublic))
	deepEqual(t, *out, propHolder{hp: 5})
}

type propertyComposite struct {
	inner Stats
}

func (p *propertyComposite) SerializedProperties() []string { return []string{"Inner"} }
func (p *propertyComposite) Inner() Stats                   { return p.inner }
func (p *propertyComposite) SetInner(v Stats)               { p.inner = v }

func TestMembers_compositeProperty(t *testing.T) {
	rec := Serialize(&propertyComposite{inner: Stats{Health: 3, Tags: []string{"t"}}}, VisibilityPublic)
	out := must(Unmarshal[propertyComposite](rec, VisibilityPublic))
	deepEqual(t, out.inner, Stats{Health: 3, Tags: []string{"t"}})
}

func TestVisibility_stringAndParse(t *testing.T) {
	for _, vis := range []Visibility{VisibilityNone, VisibilityPublic, VisibilityAllPublic, VisibilitySnapshot, VisibilityAll} {
		a, err := ParseVisibility(vis.String())
		if err != nil || a != vis {
			t.Errorf("** ParseVisibility(%q) = %v, %v, wanted %v", vis.String(), a, err, vis)
		}
	}
	if _, err := ParseVisibility("bogus"); err == nil {
		t.Fatalf("ParseVisibility(bogus) succeeded")
	}
	if a, e := Visibility(42).String(), "Visibility(42)"; a != e {
		t.Fatalf("String() = %q, wanted %q", a, e)
	}
}

func TestParseMemberTag(t *testing.T) {
	tests := []struct {
		input    string
		expected memberTag
	}{
		{"", memberTag{}},
		{"-", memberTag{exclude: true}},
		{"Other", memberTag{name: "Other"}},
		{",serialize", memberTag{serialize: true}},
		{",snapshot,force", memberTag{snapshot: true, force: true}},
		{"HP,snapshot", memberTag{name: "HP", snapshot: true}},
	}
	for _, test := range tests {
		if a := parseMemberTag(test.input); a != test.expected {
			t.Errorf("** parseMemberTag(%q) = %+v, wanted %+v", test.input, a, test.expected)
		}
	}
}

func TestClearCaches(t *testing.T) {
	before := Members(reflect.TypeOf(visProbe{}), VisibilityPublic)
	StringHash("warm")
	ClearCaches()
	after := Members(reflect.TypeOf(visProbe{}), VisibilityPublic)
	if len(before) != len(after) || &before[0] == &after[0] {
		t.Fatalf("ClearCaches did not rebuild the catalog")
	}
	if a, e := StringHash("warm"), stringHashUncached("warm"); a != e {
		t.Fatalf("StringHash after ClearCaches = %d, wanted %d", a, e)
	}
}
