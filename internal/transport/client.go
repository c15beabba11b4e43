package transport

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"prism/callback"
	"prism/proxy"
)

type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a diagnostics server. Without options the connection is
// plaintext.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: cc}, nil
}

func (c *Client) Ping(ctx context.Context) (string, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodPing, &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetFields()["status"].GetStringValue(), nil
}

func (c *Client) ListCallbacks(ctx context.Context) ([]proxy.Summary, error) {
	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, methodListCallbacks, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(out.AsSlice())
	if err != nil {
		return nil, err
	}
	var sums []proxy.Summary
	return sums, json.Unmarshal(raw, &sums)
}

// SetSignal sets ref to v on the server and returns every signal value
// afterwards, keyed by "id.property".
func (c *Client) SetSignal(ctx context.Context, ref callback.Ref, v any) (map[string]any, error) {
	in, err := structpb.NewStruct(map[string]any{
		"component_id": ref.ComponentID,
		"property":     ref.Property,
		"value":        v,
	})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodSetSignal, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (c *Client) Close() error { return c.conn.Close() }
