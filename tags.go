package hser

import (
	"reflect"

	"github.com/vmihailenco/tagparser/v2"
)

const tagKey = "hser"

// memberTag holds the markers a struct field or property carries.
//
//	Speed   float32 `hser:"-"`              // excluded unless VisibilityAllPublic
//	armor   int32   `hser:",serialize"`     // unexported, but serialized in VisibilityPublic
//	Health  int32   `hser:",snapshot"`      // included in VisibilitySnapshot
//	Max     int32   `hser:"MaxHealth"`      // hashed under a different name
//	Saved   *Record `hser:",force"`         // a nested record, included on purpose
type memberTag struct {
	name      string
	exclude   bool
	serialize bool
	snapshot  bool
	force     bool
}

func parseMemberTag(s string) memberTag {
	var mt memberTag
	if s == "" {
		return mt
	}
	tag := tagparser.Parse(s)
	if tag.Name == "-" {
		mt.exclude = true
	} else {
		mt.name = tag.Name
	}
	mt.serialize = tag.HasOption("serialize")
	mt.snapshot = tag.HasOption("snapshot")
	mt.force = tag.HasOption("force")
	return mt
}

func fieldTag(f reflect.StructField) memberTag {
	return parseMemberTag(f.Tag.Get(tagKey))
}
