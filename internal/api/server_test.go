package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/autoops/internal/config"
	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/utils"
)

type fakeAutoOps struct {
	UnimplementedAutoOpsServer
	lastRaw map[string]any
	fail    error
	cleared int
}

func (f *fakeAutoOps) RunFlow(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw, err := FromProtoRunRequest(req)
	if err != nil {
		return nil, err
	}
	f.lastRaw = raw
	if f.fail != nil {
		return nil, RunErrorStatus(f.fail)
	}
	return ToProtoRunResult(models.RunResult{RunID: "run-42", Summary: "ok"})
}

func (f *fakeAutoOps) ClearCache(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	f.cleared++
	return ToProtoMessage("Cache cleared"), nil
}

func startServer(t *testing.T, svc AutoOpsServer) *Client {
	t.Helper()
	srv, err := NewServer(config.ServerConfig{Address: "127.0.0.1:0", GracefulTimeout: time.Second}, svc)
	require.NoError(t, err)
	go func() { _ = srv.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), srv.GracefulTimeout())
		defer cancel()
		srv.Shutdown(ctx)
	})

	client, err := Dial(srv.Address())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientServerRunFlow(t *testing.T) {
	svc := &fakeAutoOps{}
	client := startServer(t, svc)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := client.RunFlow(ctx, map[string]any{"errors": 7})
	require.NoError(t, err)
	assert.Equal(t, "run-42", out["runId"])
	assert.Equal(t, float64(7), svc.lastRaw["errors"])

	msg, err := client.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Cache cleared", msg)
	assert.Equal(t, 1, svc.cleared)
}

func TestClientSurfacesRunError(t *testing.T) {
	cause := errors.Join(utils.ErrIngestionFailure, errors.New("no telemetry"))
	svc := &fakeAutoOps{fail: models.NewRunError("Failed to fetch metrics", cause, "ts")}
	client := startServer(t, svc)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.RunFlow(ctx, nil)
	var runErr *models.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "Failed to fetch metrics", runErr.Kind)
	assert.Equal(t, "ts", runErr.Timestamp)
	assert.Nil(t, svc.lastRaw)
}

func TestServerRegistersHealthService(t *testing.T) {
	client := startServer(t, &fakeAutoOps{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(client.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: AutoOpsServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	_, err = client.HealthCheck(ctx)
	require.Error(t, err, "fake does not implement HealthCheck")
}

func TestDialRequiresAddress(t *testing.T) {
	_, err := Dial("")
	require.Error(t, err)
}
