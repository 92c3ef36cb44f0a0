package owl

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownExpression is returned when decoding an expression whose type
// tag is not one of the supported constructors.
var ErrUnknownExpression = errors.New("unknown class expression type")

// Type tags of the JSON encoding.
const (
	TagClass        = "Class"
	TagAllValues    = "ObjectAllValuesFrom"
	TagSomeValues   = "ObjectSomeValuesFrom"
	TagHasValue     = "ObjectHasValue"
	TagIntersection = "ObjectIntersectionOf"
)

// expressionJSON is the stored form of a class expression:
//
//	{"type":"ObjectAllValuesFrom","property":"...","filler":{"type":"Class","iri":"..."}}
type expressionJSON struct {
	Type       string            `json:"type"`
	IRI        IRI               `json:"iri,omitempty"`
	Property   IRI               `json:"property,omitempty"`
	Individual IRI               `json:"individual,omitempty"`
	Filler     json.RawMessage   `json:"filler,omitempty"`
	Operands   []json.RawMessage `json:"operands,omitempty"`
}

// MarshalExpression encodes ce as JSON.
func MarshalExpression(ce ClassExpression) ([]byte, error) {
	var out expressionJSON
	switch x := ce.(type) {
	case Class:
		out = expressionJSON{Type: TagClass, IRI: x.IRI}
	case ObjectAllValuesFrom:
		filler, err := MarshalExpression(x.Filler)
		if err != nil {
			return nil, err
		}
		out = expressionJSON{Type: TagAllValues, Property: x.Property, Filler: filler}
	case ObjectSomeValuesFrom:
		filler, err := MarshalExpression(x.Filler)
		if err != nil {
			return nil, err
		}
		out = expressionJSON{Type: TagSomeValues, Property: x.Property, Filler: filler}
	case ObjectHasValue:
		out = expressionJSON{Type: TagHasValue, Property: x.Property, Individual: x.Individual}
	case ObjectIntersectionOf:
		out = expressionJSON{Type: TagIntersection}
		for _, op := range x.Operands {
			data, err := MarshalExpression(op)
			if err != nil {
				return nil, err
			}
			out.Operands = append(out.Operands, data)
		}
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnknownExpression)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownExpression, ce)
	}
	return json.Marshal(out)
}

// UnmarshalExpression decodes a class expression written by MarshalExpression.
func UnmarshalExpression(data []byte) (ClassExpression, error) {
	var in expressionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decoding class expression: %w", err)
	}

	switch in.Type {
	case TagClass:
		if in.IRI == "" {
			return nil, fmt.Errorf("class without iri")
		}
		return Class{IRI: in.IRI}, nil
	case TagAllValues, TagSomeValues:
		if len(in.Filler) == 0 {
			return nil, fmt.Errorf("%s without filler", in.Type)
		}
		filler, err := UnmarshalExpression(in.Filler)
		if err != nil {
			return nil, err
		}
		if in.Type == TagAllValues {
			return ObjectAllValuesFrom{Property: in.Property, Filler: filler}, nil
		}
		return ObjectSomeValuesFrom{Property: in.Property, Filler: filler}, nil
	case TagHasValue:
		return ObjectHasValue{Property: in.Property, Individual: in.Individual}, nil
	case TagIntersection:
		ops := make([]ClassExpression, 0, len(in.Operands))
		for _, raw := range in.Operands {
			op, err := UnmarshalExpression(raw)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
		return ObjectIntersectionOf{Operands: ops}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownExpression, in.Type)
}
