// Package snapshot exports the cluster layout as a protobuf Struct, for
// printing as JSON after a script run.
package snapshot

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"kvbalancer/internal/balancer"
)

// Source is what a snapshot is taken from.
type Source interface {
	Servers() []balancer.ServerInfo
	Placements() []balancer.Placement
}

// Take snapshots src.
func Take(src Source) *structpb.Struct {
	return Build(src.Servers(), src.Placements())
}

// Build converts server and ring listings into a Struct with "servers"
// and "ring" lists.
func Build(servers []balancer.ServerInfo, placements []balancer.Placement) *structpb.Struct {
	serverValues := make([]*structpb.Value, 0, len(servers))
	for _, s := range servers {
		serverValues = append(serverValues, structpb.NewStructValue(serverToProto(s)))
	}

	ringValues := make([]*structpb.Value, 0, len(placements))
	for _, p := range placements {
		ringValues = append(ringValues, structpb.NewStructValue(placementToProto(p)))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"servers": structpb.NewListValue(&structpb.ListValue{Values: serverValues}),
		"ring":    structpb.NewListValue(&structpb.ListValue{Values: ringValues}),
	}}
}

// Marshal renders s as indented JSON.
func Marshal(s *structpb.Struct) ([]byte, error) {
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
}

func serverToProto(s balancer.ServerInfo) *structpb.Struct {
	positions := make([]*structpb.Value, 0, len(s.Positions))
	for _, pos := range s.Positions {
		positions = append(positions, structpb.NewNumberValue(float64(pos)))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":             structpb.NewNumberValue(float64(s.ID)),
		"positions":      structpb.NewListValue(&structpb.ListValue{Values: positions}),
		"store_keys":     structpb.NewNumberValue(float64(s.StoreKeys)),
		"cache_keys":     structpb.NewNumberValue(float64(s.CacheKeys)),
		"cache_capacity": structpb.NewNumberValue(float64(s.CacheCap)),
		"queue_depth":    structpb.NewNumberValue(float64(s.QueueDepth)),
	}}
}

func placementToProto(p balancer.Placement) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"position":  structpb.NewNumberValue(float64(p.Position)),
		"label":     structpb.NewNumberValue(float64(p.Label)),
		"server_id": structpb.NewNumberValue(float64(p.ServerID)),
		"primary":   structpb.NewBoolValue(p.Primary),
	}}
}
