package grpc

import (
	"context"
	"time"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protowire"
)

const ServiceName = "boxoffice.v1.BoxOffice"

const (
	MethodJoinQueue  = "/" + ServiceName + "/JoinQueue"
	MethodGetStatus  = "/" + ServiceName + "/GetStatus"
	MethodLeaveQueue = "/" + ServiceName + "/LeaveQueue"
	MethodPurchase   = "/" + ServiceName + "/Purchase"
)

type JoinQueueRequest struct {
	EventID string
}

type JoinQueueResponse struct {
	SequenceNumber int64
	Status         StatusResponse
}

type GetStatusRequest struct {
	EventID string
}

type StatusResponse struct {
	Status       string
	Rank         int64
	QueueLength  int64
	ExpiresAt    *time.Time
	PurchasePass string
}

type LeaveQueueRequest struct {
	EventID string
}

type LeaveQueueResponse struct {
	EventID string
	Message string
}

type PurchaseRequest struct {
	EventID    string
	CategoryID string
	Quantity   int
	Payment    models.PaymentDetails
}

type PurchaseResponse struct {
	TransactionID string
	Amount        int64
	Seats         []int
	TicketIDs     []string
}

// JoinQueue, GetStatus and LeaveQueue requests carry only an event id.
func marshalEventID(eventID string) []byte {
	return appendString(nil, 1, eventID)
}

func unmarshalEventID(b []byte, eventID *string) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeString(typ, b, eventID), nil
		}
		return 0, nil
	})
}

func (m *JoinQueueRequest) marshalWire() []byte { return marshalEventID(m.EventID) }
func (m *JoinQueueRequest) unmarshalWire(b []byte) error { return unmarshalEventID(b, &m.EventID) }

func (m *GetStatusRequest) marshalWire() []byte { return marshalEventID(m.EventID) }
func (m *GetStatusRequest) unmarshalWire(b []byte) error { return unmarshalEventID(b, &m.EventID) }

func (m *LeaveQueueRequest) marshalWire() []byte { return marshalEventID(m.EventID) }
func (m *LeaveQueueRequest) unmarshalWire(b []byte) error { return unmarshalEventID(b, &m.EventID) }

func (m *StatusResponse) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.Status)
	b = appendInt64(b, 2, m.Rank)
	b = appendInt64(b, 3, m.QueueLength)
	b = appendTimestamp(b, 4, m.ExpiresAt)
	b = appendString(b, 5, m.PurchasePass)
	return b
}

func (m *StatusResponse) unmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.Status), nil
		case 2:
			return consumeInt64(typ, b, &m.Rank), nil
		case 3:
			return consumeInt64(typ, b, &m.QueueLength), nil
		case 4:
			return consumeTimestamp(typ, b, &m.ExpiresAt)
		case 5:
			return consumeString(typ, b, &m.PurchasePass), nil
		}
		return 0, nil
	})
}

func (m *JoinQueueResponse) marshalWire() []byte {
	var b []byte
	b = appendInt64(b, 1, m.SequenceNumber)
	b = appendMessage(b, 2, m.Status.marshalWire())
	return b
}

func (m *JoinQueueResponse) unmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt64(typ, b, &m.SequenceNumber), nil
		case 2:
			return consumeMessage(typ, b, m.Status.unmarshalWire)
		}
		return 0, nil
	})
}

func (m *LeaveQueueResponse) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.EventID)
	b = appendString(b, 2, m.Message)
	return b
}

func (m *LeaveQueueResponse) unmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.EventID), nil
		case 2:
			return consumeString(typ, b, &m.Message), nil
		}
		return 0, nil
	})
}

func (m *PurchaseRequest) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.EventID)
	b = appendString(b, 2, m.CategoryID)
	b = appendInt32(b, 3, m.Quantity)
	b = appendMessage(b, 4, marshalPayment(m.Payment))
	return b
}

func (m *PurchaseRequest) unmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.EventID), nil
		case 2:
			return consumeString(typ, b, &m.CategoryID), nil
		case 3:
			return consumeInt32(typ, b, &m.Quantity), nil
		case 4:
			return consumeMessage(typ, b, func(v []byte) error {
				return unmarshalPayment(v, &m.Payment)
			})
		}
		return 0, nil
	})
}

func (m *PurchaseResponse) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.TransactionID)
	b = appendInt64(b, 2, m.Amount)
	b = appendPackedInt32(b, 3, m.Seats)
	for _, id := range m.TicketIDs {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, id)
	}
	return b
}

func (m *PurchaseResponse) unmarshalWire(b []byte) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.TransactionID), nil
		case 2:
			return consumeInt64(typ, b, &m.Amount), nil
		case 3:
			return consumeRepeatedInt32(typ, b, &m.Seats)
		case 4:
			var id string
			n := consumeString(typ, b, &id)
			if n > 0 {
				m.TicketIDs = append(m.TicketIDs, id)
			}
			return n, nil
		}
		return 0, nil
	})
}

type BoxOfficeServer interface {
	JoinQueue(ctx context.Context, req *JoinQueueRequest) (*JoinQueueResponse, error)
	GetStatus(ctx context.Context, req *GetStatusRequest) (*StatusResponse, error)
	LeaveQueue(ctx context.Context, req *LeaveQueueRequest) (*LeaveQueueResponse, error)
	Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error)
}

func unaryHandler[Req, Resp any](fullMethod string, call func(BoxOfficeServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BoxOfficeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BoxOfficeServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BoxOfficeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "JoinQueue",
			Handler:    unaryHandler(MethodJoinQueue, BoxOfficeServer.JoinQueue),
		},
		{
			MethodName: "GetStatus",
			Handler:    unaryHandler(MethodGetStatus, BoxOfficeServer.GetStatus),
		},
		{
			MethodName: "LeaveQueue",
			Handler:    unaryHandler(MethodLeaveQueue, BoxOfficeServer.LeaveQueue),
		},
		{
			MethodName: "Purchase",
			Handler:    unaryHandler(MethodPurchase, BoxOfficeServer.Purchase),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "boxoffice/v1/boxoffice",
}

func RegisterBoxOfficeServer(s grpc.ServiceRegistrar, srv BoxOfficeServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// BoxOfficeClient calls the service over any connection.
type BoxOfficeClient struct {
	cc grpc.ClientConnInterface
}

func NewBoxOfficeClient(cc grpc.ClientConnInterface) *BoxOfficeClient {
	return &BoxOfficeClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BoxOfficeClient) JoinQueue(ctx context.Context, in *JoinQueueRequest, opts ...grpc.CallOption) (*JoinQueueResponse, error) {
	return invoke[JoinQueueResponse](ctx, c.cc, MethodJoinQueue, in, opts)
}

func (c *BoxOfficeClient) GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodGetStatus, in, opts)
}

func (c *BoxOfficeClient) LeaveQueue(ctx context.Context, in *LeaveQueueRequest, opts ...grpc.CallOption) (*LeaveQueueResponse, error) {
	return invoke[LeaveQueueResponse](ctx, c.cc, MethodLeaveQueue, in, opts)
}

func (c *BoxOfficeClient) Purchase(ctx context.Context, in *PurchaseRequest, opts ...grpc.CallOption) (*PurchaseResponse, error) {
	return invoke[PurchaseResponse](ctx, c.cc, MethodPurchase, in, opts)
}
