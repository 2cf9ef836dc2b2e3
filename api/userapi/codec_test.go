package userapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

func TestCodec_Registered(t *testing.T) {
	t.Parallel()

	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)
	assert.Equal(t, CodecName, c.Name())
}

func TestCodec_UsesJSONFieldNames(t *testing.T) {
	t.Parallel()

	b, err := Codec{}.Marshal(&UserResponse{Id: 7, FirstName: "Ana", IsActive: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7","firstName":"Ana","isActive":true}`, string(b))

	var req UpdateUserRequest
	require.NoError(t, Codec{}.Unmarshal([]byte(`{"id":3,"email":"a@b.com","isActive":true,"extra":1}`), &req))
	assert.True(t, proto.Equal(&UpdateUserRequest{Id: 3, Email: "a@b.com", IsActive: true}, &req))
}

func TestCodec_ProtoMessages(t *testing.T) {
	t.Parallel()

	b, err := Codec{}.Marshal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"SERVING"}`, string(b))

	var resp healthpb.HealthCheckResponse
	require.NoError(t, Codec{}.Unmarshal(b, &resp))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestCodec_Errors(t *testing.T) {
	t.Parallel()

	var req GetUserRequest
	assert.Error(t, Codec{}.Unmarshal([]byte(`{"id":"x"}`), &req))

	_, err := Codec{}.Marshal(struct{ ID int }{ID: 1})
	assert.Error(t, err)
	assert.Error(t, Codec{}.Unmarshal([]byte(`{}`), &struct{}{}))
}

func TestUsersProto_Registered(t *testing.T) {
	t.Parallel()

	d, err := protoregistry.GlobalFiles.FindDescriptorByName(protoreflect.FullName(UserService_ServiceDesc.ServiceName))
	require.NoError(t, err)

	svc, ok := d.(protoreflect.ServiceDescriptor)
	require.True(t, ok)
	assert.Equal(t, "users.proto", svc.ParentFile().Path())

	list := svc.Methods().ByName("ListUsers")
	require.NotNil(t, list)
	assert.True(t, list.IsStreamingServer())
	assert.Equal(t, protoreflect.FullName("users.UserResponse"), list.Output().FullName())

	get := svc.Methods().ByName("GetUser")
	require.NotNil(t, get)
	assert.Equal(t, protoreflect.FullName("users.GetUserRequest"), get.Input().FullName())
}

func TestMessages_BinaryRoundTrip(t *testing.T) {
	t.Parallel()

	in := &UserResponse{
		Id:        42,
		Email:     "a@b.com",
		FirstName: "Ana",
		LastName:  "Diaz",
		Role:      "Admin",
		CreatedAt: "2024-01-02T03:04:05Z",
		IsActive:  true,
	}
	b, err := proto.Marshal(in)
	require.NoError(t, err)

	var out UserResponse
	require.NoError(t, proto.Unmarshal(b, &out))
	assert.True(t, proto.Equal(in, &out))
	assert.Empty(t, out.GetLastLogin())
}
