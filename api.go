// Package pectin provides declarative bidirectional conversion between typed
// Go object graphs and plain data trees.
//
// Types register once against a metadata registry, declaring a serialized
// name and an ordered set of properties; afterwards any registered value can
// be flattened to a codec-ready plain tree and reconstructed from one, with
// polymorphism, ordered containers, and shared references handled by the
// engine rather than by hand-written MarshalJSON methods.
//
// # Registration
//
// Each type declares its serialized name and properties:
//
//	type Point struct {
//	    X, Y float64
//	}
//
//	func init() {
//	    pectin.Register[Point]("Point")
//	    pectin.Prop[Point]("x", pectin.Scalar(pectin.Untyped()).FromField("X"))
//	    pectin.Prop[Point]("y", pectin.Scalar(pectin.Untyped()).FromField("Y"))
//	}
//
// Properties serialize in declaration order, parents before children, so
// output is byte-stable. Structs whose fields carry `pectin:"..."` tags can
// register in one call with RegisterStruct instead.
//
// # Basic Usage
//
//	data, _ := pectin.Marshal(&Point{X: 1, Y: 2})
//	// {"#type":"Point","x":1,"y":2}
//
//	p, _ := pectin.As[Point](data)
//
// The type tag names the registered type so heterogeneous data deserializes
// without an external hint; it is omitted wherever the declared property type
// already pins the runtime type.
//
// # Instances
//
// The package-level functions share one default instance. New builds
// separately configured instances:
//
//	ser := pectin.New(
//	    pectin.RefField("#ref"),
//	    pectin.WithMapEncoding(pectin.EncodeKeyValueObjects),
//	)
//
// Options cover the type tag field, reference encoding for shared and
// circular structures, map entry encoding, resolver callbacks and type
// tables for cross-registry work, strictness toggles, indentation, and the
// output codec.
//
// # References
//
// Object graphs may share values or contain cycles. With RefField set,
// repeated values serialize as path markers pointing at their first
// occurrence and deserialize back to one shared value:
//
//	{"#type":"Node","name":"a","parent":{"#ref":[]}}
//
// Without a reference field, shared siblings serialize as duplicates and a
// true cycle is an error.
//
// # Built-in Conversions
//
// []byte travels as base64, *big.Int as an exact decimal string, and
// time.Time as RFC 3339 with nanoseconds. Custom conversions attach per type
// or per property via hooks.
package pectin

// Plainable is implemented by values that convert themselves to a plain
// representation before serialization. The result is serialized in place of
// the value; returning the receiver falls through to the structural walk.
type Plainable interface {
	Plain() any
}

// TypeNamer is implemented by values that carry their own registered type
// name, consulted when the runtime type itself is not registered.
type TypeNamer interface {
	TypeName() string
}
