package pectin

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zoobzio/sentinel"
)

func init() {
	sentinel.Tag("pectin")
}

// RegisterStruct registers struct type T in the process-wide registry under
// name, deriving its properties from `pectin` struct tags instead of explicit
// Prop calls:
//
//	type User struct {
//	    Name    string  `pectin:"name"`
//	    Age     int     `pectin:"age"`
//	    Friends []*User `pectin:"friends"`
//	    Extra   any     `pectin:"extra"`
//	}
//
//	pectin.RegisterStruct[User]("User")
//
// Untagged fields and fields tagged "-" are skipped. Property order follows
// field order. Embedded fields whose type is already registered become
// ancestors, so their properties serialize first.
//
// The tag cannot express element types, so Set and Map container fields, and
// any property needing hooks or an explicit type reference, still use Prop.
func RegisterStruct[T any](name string, opts ...TypeOption) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("pectin: RegisterStruct requires a struct type, got %s", t))
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous {
			continue
		}
		at := derefType(sf.Type)
		if _, ok := global.LookupType(at); ok {
			opts = append(opts, extends(at))
		}
	}
	global.Register(t, name, opts...)

	spec := sentinel.Scan[T]()
	for _, f := range spec.Fields {
		tag, ok := f.Tags["pectin"]
		if !ok || tag == "-" {
			continue
		}
		key := tag
		if i := strings.Index(tag, ","); i >= 0 {
			key = tag[:i]
		}
		if key == "" {
			key = f.Name
		}
		global.Declare(t, key, tagProperty(f).FromField(f.Name))
	}
}

// tagProperty infers a property declaration from a field's type.
func tagProperty(f sentinel.FieldMetadata) PropertyDescriptor {
	ft := f.ReflectType
	if ft == reflect.TypeFor[*Set]() || ft == reflect.TypeFor[*Map]() {
		panic(fmt.Sprintf("pectin: container field %s needs a Prop declaration carrying its element types", f.Name))
	}
	if isByteSlice(ft) {
		return Scalar(TypeRef{typ: ft})
	}
	switch ft.Kind() {
	case reflect.Slice, reflect.Array:
		elem := ft.Elem()
		if elem.Kind() == reflect.Interface {
			return Dynamic()
		}
		return Array(TypeRef{typ: elem})
	case reflect.Interface:
		return Dynamic()
	}
	return Scalar(TypeRef{typ: ft})
}
