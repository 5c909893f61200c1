package grpc

import (
	"context"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/service"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
	resp "github.com/vogiaan1904/ticketbottle-boxoffice/pkg/response"
)

type grpcService struct {
	svc     service.BoxOfficeService
	session service.AuthSession
	l       logger.Logger
}

func NewGrpcService(svc service.BoxOfficeService, session service.AuthSession, l logger.Logger) BoxOfficeServer {
	return &grpcService{
		svc:     svc,
		session: session,
		l:       l,
	}
}

func (s *grpcService) fail(ctx context.Context, method string, err error) error {
	if delivery.IsInternal(err) {
		s.l.Errorf(ctx, "delivery.grpc.grpcService.%s: %v", method, err)
	}
	return resp.ParseGRPCError(delivery.GRPCError(err))
}

func (s *grpcService) currentUser(ctx context.Context) (string, error) {
	uid, ok := s.session.CurrentUserID(ctx)
	if !ok {
		return "", errs.ErrUnauthenticated
	}
	return uid, nil
}

func toStatusResponse(st models.AdmissionStatus) StatusResponse {
	return StatusResponse{
		Status:       string(st.Kind),
		Rank:         st.Rank,
		QueueLength:  st.QueueLength,
		ExpiresAt:    st.ExpiresAt,
		PurchasePass: st.PurchasePass,
	}
}

func (s *grpcService) JoinQueue(ctx context.Context, req *JoinQueueRequest) (*JoinQueueResponse, error) {
	uid, err := s.currentUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, "JoinQueue", err)
	}

	out, err := s.svc.JoinQueue(ctx, req.EventID, uid)
	if err != nil {
		return nil, s.fail(ctx, "JoinQueue", err)
	}

	return &JoinQueueResponse{
		SequenceNumber: out.SequenceNumber,
		Status:         toStatusResponse(out.Status),
	}, nil
}

func (s *grpcService) GetStatus(ctx context.Context, req *GetStatusRequest) (*StatusResponse, error) {
	uid, err := s.currentUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, "GetStatus", err)
	}

	st, err := s.svc.GetStatus(ctx, req.EventID, uid)
	if err != nil {
		return nil, s.fail(ctx, "GetStatus", err)
	}

	out := toStatusResponse(st)
	return &out, nil
}

func (s *grpcService) LeaveQueue(ctx context.Context, req *LeaveQueueRequest) (*LeaveQueueResponse, error) {
	uid, err := s.currentUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, "LeaveQueue", err)
	}

	if err := s.svc.LeaveQueue(ctx, req.EventID, uid); err != nil {
		return nil, s.fail(ctx, "LeaveQueue", err)
	}

	return &LeaveQueueResponse{
		EventID: req.EventID,
		Message: "Queue left successfully",
	}, nil
}

func (s *grpcService) Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error) {
	uid, err := s.currentUser(ctx)
	if err != nil {
		return nil, s.fail(ctx, "Purchase", err)
	}

	res, err := s.svc.Purchase(ctx, service.PurchaseInput{
		EventID:    req.EventID,
		UserID:     uid,
		CategoryID: req.CategoryID,
		Quantity:   req.Quantity,
		Payment:    req.Payment,
	})
	if err != nil {
		return nil, s.fail(ctx, "Purchase", err)
	}

	out := &PurchaseResponse{
		TransactionID: res.TransactionID,
		Amount:        res.Amount,
		Seats:         res.Seats,
	}
	for _, t := range res.Tickets {
		out.TicketIDs = append(out.TicketIDs, t.ID)
	}

	return out, nil
}
