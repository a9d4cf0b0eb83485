package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Client is a thin wrapper over AutoOpsClient that speaks plain maps.
type Client struct {
	conn *grpc.ClientConn
	rpc  AutoOpsClient
}

// Dial connects to an AutoOps server without transport security.
func Dial(address string, opts ...grpc.DialOption) (*Client, error) {
	if address == "" {
		return nil, fmt.Errorf("server address is required")
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return &Client{conn: conn, rpc: NewAutoOpsClient(conn)}, nil
}

// RunFlow triggers one remote run. Aggregate failures come back as *models.RunError.
func (c *Client) RunFlow(ctx context.Context, raw map[string]any) (map[string]any, error) {
	req, err := ToProtoRunRequest(raw)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	resp, err := c.rpc.RunFlow(ctx, req)
	if err != nil {
		if runErr, ok := RunErrorFromStatus(err); ok {
			return nil, runErr
		}
		return nil, err
	}
	return resp.AsMap(), nil
}

// ClearCache drops every cached stage result on the server.
func (c *Client) ClearCache(ctx context.Context) (string, error) {
	resp, err := c.rpc.ClearCache(ctx, &emptypb.Empty{})
	if err != nil {
		return "", err
	}
	return resp.GetFields()["message"].GetStringValue(), nil
}

// HealthCheck returns the server's current health document.
func (c *Client) HealthCheck(ctx context.Context) (map[string]any, error) {
	resp, err := c.rpc.HealthCheck(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
