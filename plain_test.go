package pectin

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestObject_InsertionOrder(t *testing.T) {
	o := NewObject().Set("z", 1).Set("a", 2).Set("m", 3)
	want := []string{"z", "a", "m"}
	if !reflect.DeepEqual(o.Keys(), want) {
		t.Errorf("keys = %v, want %v", o.Keys(), want)
	}

	// Replacing keeps the original position.
	o.Set("a", 9)
	if !reflect.DeepEqual(o.Keys(), want) {
		t.Errorf("keys after replace = %v, want %v", o.Keys(), want)
	}
	if v, _ := o.Get("a"); v != 9 {
		t.Errorf("a = %v, want 9", v)
	}
}

func TestObject_MarshalJSONKeepsOrder(t *testing.T) {
	o := NewObject().Set("z", 1).Set("a", NewObject().Set("b", "x"))
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"z":1,"a":{"b":"x"}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestObject_UnmarshalJSONKeepsOrder(t *testing.T) {
	var o Object
	if err := json.Unmarshal([]byte(`{"z":1,"a":2,"m":3}`), &o); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	want := []string{"z", "a", "m"}
	if !reflect.DeepEqual(o.Keys(), want) {
		t.Errorf("keys = %v, want %v", o.Keys(), want)
	}
}

func TestDecodeJSON(t *testing.T) {
	v, err := decodeJSON([]byte(`{"b":[1,"s",null],"a":{"x":true}}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	o, ok := v.(*Object)
	if !ok {
		t.Fatalf("got %T, want *Object", v)
	}
	if !reflect.DeepEqual(o.Keys(), []string{"b", "a"}) {
		t.Errorf("keys = %v", o.Keys())
	}
	b, _ := o.Get("b")
	if !reflect.DeepEqual(b, []any{1.0, "s", nil}) {
		t.Errorf("b = %#v", b)
	}
	a, _ := o.Get("a")
	inner, ok := a.(*Object)
	if !ok {
		t.Fatalf("a = %T, want *Object", a)
	}
	if x, _ := inner.Get("x"); x != true {
		t.Errorf("x = %v", x)
	}
}

func TestDecodeJSON_Scalars(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{`"s"`, "s"},
		{`1.5`, 1.5},
		{`true`, true},
		{`null`, nil},
	}
	for _, tt := range tests {
		v, err := decodeJSON([]byte(tt.input))
		if err != nil {
			t.Fatalf("decode %s failed: %v", tt.input, err)
		}
		if v != tt.want {
			t.Errorf("decode %s = %v, want %v", tt.input, v, tt.want)
		}
	}
}

func TestSortedObject(t *testing.T) {
	o := sortedObject(map[string]any{"c": 3, "a": 1, "b": 2})
	if !reflect.DeepEqual(o.Keys(), []string{"a", "b", "c"}) {
		t.Errorf("keys = %v", o.Keys())
	}
}
