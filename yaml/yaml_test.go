package yaml

import (
	"reflect"
	"testing"

	"github.com/zoobzio/pectin"
)

type sample struct {
	A float64
	B string
}

func init() {
	pectin.Register[sample]("YAMLSample")
	pectin.Prop[sample]("a", pectin.Scalar(pectin.Untyped()).FromField("A"))
	pectin.Prop[sample]("b", pectin.Scalar(pectin.Untyped()).FromField("B"))
}

func TestContentType(t *testing.T) {
	if got := New().ContentType(); got != "application/yaml" {
		t.Errorf("ContentType = %q", got)
	}
}

func TestMarshal_PreservesKeyOrder(t *testing.T) {
	in := pectin.NewObject().Set("z", 1).Set("a", 2)
	data, err := New().Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := "z: 1\na: 2\n"
	if string(data) != want {
		t.Errorf("Marshal = %q, want %q", data, want)
	}
}

func TestUnmarshal_PreservesKeyOrder(t *testing.T) {
	v, err := New().Unmarshal([]byte("z: first\na:\n  - x\n  - nested: true\n"))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	o, ok := v.(*pectin.Object)
	if !ok {
		t.Fatalf("got %T, want *Object", v)
	}
	if !reflect.DeepEqual(o.Keys(), []string{"z", "a"}) {
		t.Errorf("keys = %v", o.Keys())
	}
	arr, _ := o.Get("a")
	elems, ok := arr.([]any)
	if !ok || len(elems) != 2 {
		t.Fatalf("a = %#v", arr)
	}
	nested, ok := elems[1].(*pectin.Object)
	if !ok {
		t.Fatalf("nested = %T", elems[1])
	}
	if v, _ := nested.Get("nested"); v != true {
		t.Errorf("nested = %v", v)
	}
}

func TestSerializerWithYAMLCodec(t *testing.T) {
	ser := pectin.New(pectin.WithCodec(New()))
	in := &sample{A: 1.5, B: "s"}
	data, err := ser.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out sample
	if err := ser.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out != *in {
		t.Errorf("got %+v, want %+v", out, *in)
	}
}
