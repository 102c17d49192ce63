package gatekeeperv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func TestDescriptorHasAllMessages(t *testing.T) {
	for _, name := range []string{"CheckinRequest", "CheckinResponse", "IdentifierList", "AccessRequest", "AccessResponse"} {
		assert.NotNil(t, File.Messages().ByName(protoreflect.Name(name)), name)
	}
}

// Controller firmware writes CheckinRequest field by field; make sure the
// field numbers line up with that encoding.
func TestCheckinRequest_DecodesHandEncodedBytes(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "esp32-front")
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, "10.0.0.7")

	m := New(CheckinRequestName)
	require.NoError(t, proto.Unmarshal(b, m))
	assert.Equal(t, "esp32-front", GetString(m, "device_id"))
	assert.Equal(t, "10.0.0.7", GetString(m, "ip"))
}

func TestIdentifiers(t *testing.T) {
	data, err := proto.Marshal(Identifiers([]string{"04A21B6F", "DEADBEEF"}))
	require.NoError(t, err)

	m := New(IdentifierListName)
	require.NoError(t, proto.Unmarshal(data, m))
	assert.Equal(t, []string{"04A21B6F", "DEADBEEF"}, IdentifierValues(m))

	assert.Empty(t, IdentifierValues(Identifiers(nil)))
}

func TestNew_UnknownNamePanics(t *testing.T) {
	assert.Panics(t, func() { New("Nope") })
}
