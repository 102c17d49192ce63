package httpapi

import (
	"google.golang.org/protobuf/types/dynamicpb"

	pb "github.com/BrandonDHaskell/Gatekeeper/server/api/gatekeeper/v1"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// ── Check-in ─────────────────────────────────────────────────────────────────

func checkinRequestFromProto(m *dynamicpb.Message) types.CheckinRequest {
	return types.CheckinRequest{
		DeviceID: pb.GetString(m, "device_id"),
		IP:       pb.GetString(m, "ip"),
	}
}

func checkinResponseToProto(r types.CheckinResponse) *dynamicpb.Message {
	m := pb.New(pb.CheckinResponseName)
	pb.SetString(m, "status", r.Status)
	pb.SetString(m, "timestamp", r.Timestamp)
	return m
}

// ── Access ───────────────────────────────────────────────────────────────────

func accessRequestFromProto(m *dynamicpb.Message) types.AccessRequest {
	return types.AccessRequest{
		DeviceID:   pb.GetString(m, "device_id"),
		Method:     types.AccessMethod(pb.GetString(m, "method")),
		Credential: pb.GetString(m, "credential"),
	}
}

func accessResponseToProto(r types.AccessResponse) *dynamicpb.Message {
	m := pb.New(pb.AccessResponseName)
	pb.SetBool(m, "granted", r.Granted)
	pb.SetString(m, "reason", r.Reason)
	pb.SetString(m, "device_id", r.DeviceID)
	pb.SetString(m, "log_id", r.LogID)
	pb.SetString(m, "server_time", r.ServerTime)
	return m
}
