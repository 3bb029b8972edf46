package grpc_control

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"onion-watch/src/helpers"
	"onion-watch/src/logger"
	"onion-watch/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeBackend struct {
	lastControl models.MControlRequest
	controlErr  error
}

func (f *fakeBackend) Status() models.MHealth {
	return models.MHealth{Status: "ok", ActiveConnections: 4, HistoryLength: 12}
}

func (f *fakeBackend) SendControl(_ context.Context, req models.MControlRequest) (int, error) {
	f.lastControl = req
	if f.controlErr != nil {
		return 0, f.controlErr
	}
	return 4, nil
}

func (f *fakeBackend) CurrentSnapshot() models.MTrafficSnapshot {
	return models.MTrafficSnapshot{ID: "snap-1", Timestamp: time.Unix(0, 0).UTC(), TotalRequests: 12345}
}

func newTestClient(t *testing.T, backend Backend) *ControlClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterControlServer(srv, NewControlService(backend, logger.NewNop()))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewControlClient(conn)
}

func TestGetStatus(t *testing.T) {
	client := newTestClient(t, &fakeBackend{})
	out, err := client.GetStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	fields := out.AsMap()
	if fields["connections"] != float64(4) || fields["historyLength"] != float64(12) {
		t.Fatalf("status = %v", fields)
	}
}

func TestSendControl(t *testing.T) {
	backend := &fakeBackend{}
	client := newTestClient(t, backend)

	req, err := structpb.NewStruct(map[string]interface{}{"action": "block", "value": "10.0.0.1"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := client.SendControl(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if fields := out.AsMap(); fields["success"] != true || fields["recipients"] != float64(4) {
		t.Fatalf("response = %v", fields)
	}
	if backend.lastControl.Action != "block" || backend.lastControl.Value != "10.0.0.1" {
		t.Fatalf("backend got %+v", backend.lastControl)
	}
}

func TestSendControlErrors(t *testing.T) {
	cases := []struct {
		name    string
		fields  map[string]interface{}
		backErr error
		want    codes.Code
	}{
		{"missing action", map[string]interface{}{"value": 1}, nil, codes.InvalidArgument},
		{"protocol error", map[string]interface{}{"action": "x"}, helpers.NewProtocolError("bad", nil), codes.InvalidArgument},
		{"bus down", map[string]interface{}{"action": "x"}, errors.New("redis gone"), codes.Unavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, &fakeBackend{controlErr: tc.backErr})
			req, _ := structpb.NewStruct(tc.fields)
			_, err := client.SendControl(context.Background(), req)
			if status.Code(err) != tc.want {
				t.Fatalf("code = %v, want %v", status.Code(err), tc.want)
			}
		})
	}
}

func TestGetSnapshot(t *testing.T) {
	client := newTestClient(t, &fakeBackend{})
	out, err := client.GetSnapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fields := out.AsMap(); fields["id"] != "snap-1" || fields["totalRequests"] != float64(12345) {
		t.Fatalf("snapshot = %v", fields)
	}
}
