// Package gatekeeperv1 holds the protobuf messages spoken by door
// controllers. The descriptors mirror gatekeeper.proto and are built at init,
// so no generated code is checked in; messages are dynamicpb values.
package gatekeeperv1

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	CheckinRequestName  protoreflect.Name = "CheckinRequest"
	CheckinResponseName protoreflect.Name = "CheckinResponse"
	IdentifierListName  protoreflect.Name = "IdentifierList"
	AccessRequestName   protoreflect.Name = "AccessRequest"
	AccessResponseName  protoreflect.Name = "AccessResponse"
)

// File is the descriptor of gatekeeper.proto.
var File protoreflect.FileDescriptor

func init() {
	fd, err := protodesc.NewFile(fileProto(), nil)
	if err != nil {
		panic(fmt.Sprintf("gatekeeperv1: build descriptor: %v", err))
	}
	File = fd
}

func str(name string, num int32) *descriptorpb.FieldDescriptorProto {
	return field(name, num, descriptorpb.FieldDescriptorProto_TYPE_STRING, descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL)
}

func field(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type, label descriptorpb.FieldDescriptorProto_Label) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(num),
		Type:   typ.Enum(),
		Label:  label.Enum(),
	}
}

func fileProto() *descriptorpb.FileDescriptorProto {
	msg := func(name protoreflect.Name, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
		return &descriptorpb.DescriptorProto{Name: proto.String(string(name)), Field: fields}
	}
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("gatekeeper/v1/gatekeeper.proto"),
		Package: proto.String("gatekeeper.v1"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			msg(CheckinRequestName, str("device_id", 1), str("ip", 2)),
			msg(CheckinResponseName, str("status", 1), str("timestamp", 2)),
			msg(IdentifierListName, field("values", 1,
				descriptorpb.FieldDescriptorProto_TYPE_STRING,
				descriptorpb.FieldDescriptorProto_LABEL_REPEATED)),
			msg(AccessRequestName, str("device_id", 1), str("method", 2), str("credential", 3)),
			msg(AccessResponseName,
				field("granted", 1, descriptorpb.FieldDescriptorProto_TYPE_BOOL, descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL),
				str("reason", 2), str("device_id", 3), str("log_id", 4), str("server_time", 5)),
		},
	}
}

// New returns an empty message of the named type. It panics on an unknown
// name, which is a programming error.
func New(name protoreflect.Name) *dynamicpb.Message {
	md := File.Messages().ByName(name)
	if md == nil {
		panic(fmt.Sprintf("gatekeeperv1: unknown message %s", name))
	}
	return dynamicpb.NewMessage(md)
}

func fieldByName(m *dynamicpb.Message, name string) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Sprintf("gatekeeperv1: %s has no field %s", m.Descriptor().Name(), name))
	}
	return fd
}

func GetString(m *dynamicpb.Message, name string) string {
	return m.Get(fieldByName(m, name)).String()
}

func SetString(m *dynamicpb.Message, name, v string) {
	m.Set(fieldByName(m, name), protoreflect.ValueOfString(v))
}

func GetBool(m *dynamicpb.Message, name string) bool {
	return m.Get(fieldByName(m, name)).Bool()
}

func SetBool(m *dynamicpb.Message, name string, v bool) {
	m.Set(fieldByName(m, name), protoreflect.ValueOfBool(v))
}

// Identifiers builds an IdentifierList.
func Identifiers(values []string) *dynamicpb.Message {
	m := New(IdentifierListName)
	list := m.Mutable(fieldByName(m, "values")).List()
	for _, v := range values {
		list.Append(protoreflect.ValueOfString(v))
	}
	return m
}

// IdentifierValues reads the values of an IdentifierList.
func IdentifierValues(m *dynamicpb.Message) []string {
	list := m.Get(fieldByName(m, "values")).List()
	out := make([]string, list.Len())
	for i := range out {
		out[i] = list.Get(i).String()
	}
	return out
}
