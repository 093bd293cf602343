package pectin

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Shared test types, registered once for the whole package test binary.

type Point struct {
	X, Y float64
}

type Point3 struct {
	Point
	Z float64
}

type Animal struct {
	Name    string
	Species string
}

type Person struct {
	Name string
	Age  int
	Tags []string
	Pet  *Animal
}

type Node struct {
	Name     string
	Parent   *Node
	Children []*Node
}

type Wallet struct {
	Balance *big.Int
	Data    []byte
	Created time.Time
}

type Box struct {
	Items  *Set
	Labels *Map
}

type Doc struct {
	Title string
	Meta  map[string]any
	Extra any
}

type Holder struct {
	V any
}

type Secret struct {
	V string
}

type Gadget struct {
	ID    string
	Power int
}

type Celsius struct {
	Deg float64
}

// temperature converts itself to a plain shape before serialization.
type temperature struct {
	C float64
}

func (t temperature) Plain() any {
	return NewObject().Set("celsius", t.C)
}

func init() {
	Register[Point]("Point")
	Prop[Point]("x", Scalar(Untyped()).FromField("X"))
	Prop[Point]("y", Scalar(Untyped()).FromField("Y"))

	Register[Point3]("Point3", Extends[Point]())
	Prop[Point3]("z", Scalar(Untyped()).FromField("Z"))

	Register[Animal]("Animal")
	Prop[Animal]("name", Scalar(Untyped()))
	Prop[Animal]("species", Scalar(Untyped()))

	Register[Person]("Person")
	Prop[Person]("name", Scalar(Untyped()))
	Prop[Person]("age", Scalar(Type[int]()))
	Prop[Person]("tags", Array(Type[string]()))
	Prop[Person]("pet", Scalar(Type[Animal]()))

	Register[Node]("Node")
	Prop[Node]("name", Scalar(Untyped()))
	Prop[Node]("parent", Scalar(Type[Node]()))
	Prop[Node]("children", Array(Type[Node]()))

	Register[Wallet]("Wallet")
	Prop[Wallet]("balance", Scalar(Type[big.Int]()))
	Prop[Wallet]("data", Scalar(Type[[]byte]()))
	Prop[Wallet]("created", Scalar(Type[time.Time]()))

	Register[Box]("Box")
	Prop[Box]("items", SetOf(Type[string]()))
	Prop[Box]("labels", MapOf(Type[string](), Untyped()))

	Register[Doc]("Doc")
	Prop[Doc]("title", Scalar(Untyped()))
	Prop[Doc]("meta", Scalar(Type[map[string]any]()))
	Prop[Doc]("extra", Dynamic())

	Register[Holder]("Holder")
	Prop[Holder]("v", Scalar(Untyped()))

	Register[Secret]("Secret")
	Prop[Secret]("v", Scalar(Untyped()).
		WithSerializer(func(v any) (any, error) {
			return "x-" + v.(string), nil
		}).
		WithDeserializer(func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", v)
			}
			return strings.TrimPrefix(s, "x-"), nil
		}))

	Register[Gadget]("Gadget", WithFactory(func() any { return &Gadget{Power: 9} }))
	Prop[Gadget]("id", Scalar(Untyped()).FromField("ID"))

	Register[Celsius]("Celsius",
		WithTypeSerializer(func(v any) (any, error) {
			switch c := v.(type) {
			case Celsius:
				return c.Deg, nil
			case *Celsius:
				return c.Deg, nil
			}
			return nil, fmt.Errorf("expected Celsius, got %T", v)
		}),
		WithTypeDeserializer(func(v any) (any, error) {
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("expected number, got %T", v)
			}
			return Celsius{Deg: f}, nil
		}))
}
