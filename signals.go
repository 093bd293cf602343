package pectin

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for serialization events.
var (
	SignalTypeRegistered      = capitan.NewSignal("pectin.type.registered", "Type metadata registered")
	SignalSerializeStart      = capitan.NewSignal("pectin.serialize.start", "Serialize operation beginning")
	SignalSerializeComplete   = capitan.NewSignal("pectin.serialize.complete", "Serialize operation finished")
	SignalDeserializeStart    = capitan.NewSignal("pectin.deserialize.start", "Deserialize operation beginning")
	SignalDeserializeComplete = capitan.NewSignal("pectin.deserialize.complete", "Deserialize operation finished")
)

// Keys for typed event data.
var (
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeyGoType      = capitan.NewStringKey("go_type")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyVisited     = capitan.NewIntKey("visited")
	KeyPendingRefs = capitan.NewIntKey("pending_refs")
	KeyError       = capitan.NewErrorKey("error")
)

// emitTypeRegistered emits an event when a type is registered.
func emitTypeRegistered(name, goType string) {
	capitan.Emit(context.Background(), SignalTypeRegistered,
		KeyTypeName.Field(name),
		KeyGoType.Field(goType),
	)
}

// emitSerializeStart emits an event when serialization begins.
func emitSerializeStart(typeName string) {
	capitan.Emit(context.Background(), SignalSerializeStart,
		KeyTypeName.Field(typeName),
	)
}

// emitSerializeComplete emits an event when serialization finishes.
func emitSerializeComplete(typeName string, duration time.Duration, visited int, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
		KeyVisited.Field(visited),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(context.Background(), SignalSerializeComplete, fields...)
		return
	}
	capitan.Emit(context.Background(), SignalSerializeComplete, fields...)
}

// emitDeserializeStart emits an event when deserialization begins.
func emitDeserializeStart(typeName string) {
	capitan.Emit(context.Background(), SignalDeserializeStart,
		KeyTypeName.Field(typeName),
	)
}

// emitDeserializeComplete emits an event when deserialization finishes.
func emitDeserializeComplete(typeName string, duration time.Duration, pendingRefs int, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
		KeyPendingRefs.Field(pendingRefs),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(context.Background(), SignalDeserializeComplete, fields...)
		return
	}
	capitan.Emit(context.Background(), SignalDeserializeComplete, fields...)
}
