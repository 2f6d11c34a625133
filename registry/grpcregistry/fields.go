package grpcregistry

import (
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/datatoken/dtid"
)

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func boolField(s *structpb.Struct, key string) bool {
	if s == nil {
		return false
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return false
	}
	return v.GetBoolValue()
}

func dtField(s *structpb.Struct, key string) (dtid.DT, error) {
	return dtid.Parse(stringField(s, key))
}

func dtListField(s *structpb.Struct, key string) ([]dtid.DT, error) {
	if s == nil {
		return nil, nil
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}
	values := v.GetListValue().GetValues()
	out := make([]dtid.DT, 0, len(values))
	for _, item := range values {
		dt, err := dtid.Parse(item.GetStringValue())
		if err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, nil
}

func mustStruct(fields map[string]interface{}) *structpb.Struct {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		// Only reachable with non-representable values, which the callers
		// never produce (strings, bools and nested maps/slices thereof).
		panic("grpcregistry: non-representable struct: " + err.Error())
	}
	return s
}

func emptyStruct() *structpb.Struct { return mustStruct(nil) }
