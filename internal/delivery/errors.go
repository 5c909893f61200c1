package delivery

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	pkgErrors "github.com/vogiaan1904/ticketbottle-boxoffice/pkg/errors"
	"google.golang.org/grpc/codes"
)

// Error codes returned in the error_code field and in gRPC status messages.
const (
	CodeValidation       = 40000
	CodeInvalidCategory  = 40001
	CodeInvalidQuantity  = 40002
	CodeQuantityTooLarge = 40003
	CodePaymentRequired  = 40004
	CodeUnauthenticated  = 40100
	CodeNotYourTurn      = 40300
	CodeEventNotFound    = 40400
	CodeNotInLine        = 40401
	CodeAlreadyQueued    = 40900
	CodeSoldOut          = 40901
	CodeWindowExpired    = 41000
	CodePurchaseFailed   = 50001
	CodeSalesPaused      = 50300
	CodeInternal         = 50000
)

type mapping struct {
	target  error
	code    int
	status  int
	grpc    codes.Code
	message string
}

var mappings = []mapping{
	{errs.ErrUnauthenticated, CodeUnauthenticated, http.StatusUnauthorized, codes.Unauthenticated, "Authentication required"},
	{errs.ErrEventNotFound, CodeEventNotFound, http.StatusNotFound, codes.NotFound, "Event not found"},
	{errs.ErrNotFound, CodeNotInLine, http.StatusNotFound, codes.NotFound, "You are not in line for this event"},
	{errs.ErrAlreadyQueued, CodeAlreadyQueued, http.StatusConflict, codes.AlreadyExists, "Already in line"},
	{errs.ErrNotYourTurn, CodeNotYourTurn, http.StatusForbidden, codes.FailedPrecondition, "Not your turn yet"},
	{errs.ErrExpired, CodeWindowExpired, http.StatusGone, codes.FailedPrecondition, "Your purchase window expired"},
	{errs.ErrInsufficientSeats, CodeSoldOut, http.StatusConflict, codes.ResourceExhausted, "Tickets sold out"},
	{errs.ErrInvalidCategory, CodeInvalidCategory, http.StatusBadRequest, codes.InvalidArgument, "Invalid ticket category"},
	{errs.ErrInvalidQuantity, CodeInvalidQuantity, http.StatusBadRequest, codes.InvalidArgument, "Quantity must be at least 1"},
	{errs.ErrQuantityTooLarge, CodeQuantityTooLarge, http.StatusBadRequest, codes.InvalidArgument, "Too many tickets in one purchase"},
	{errs.ErrPaymentDetailsRequired, CodePaymentRequired, http.StatusBadRequest, codes.InvalidArgument, "Payment details are required"},
	{errs.ErrLedgerCorruption, CodeSalesPaused, http.StatusServiceUnavailable, codes.Unavailable, "Sales for this category are paused"},
	{errs.ErrPurchaseFailed, CodePurchaseFailed, http.StatusInternalServerError, codes.Aborted, "Purchase failed, please try again"},
}

func lookup(err error) (mapping, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return m, true
		}
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return mapping{code: CodeValidation, status: http.StatusBadRequest, grpc: codes.InvalidArgument, message: "Validation failed"}, true
	}

	return mapping{}, false
}

// IsInternal reports whether err has no client-facing mapping.
func IsInternal(err error) bool {
	_, ok := lookup(err)
	return !ok
}

func HTTPError(err error) *pkgErrors.HTTPError {
	m, ok := lookup(err)
	if !ok {
		return pkgErrors.ErrHTTPInternal
	}

	he := pkgErrors.NewHTTPError(m.code, m.status, m.message)

	var nyt *errs.NotYourTurnError
	if errors.As(err, &nyt) && nyt.Rank > 0 {
		he = he.WithData(map[string]int64{"rank": nyt.Rank})
	}

	return he
}

func GRPCError(err error) *pkgErrors.GRPCError {
	m, ok := lookup(err)
	if !ok {
		return pkgErrors.NewGRPCError(codes.Internal, CodeInternal, "Internal server error")
	}

	return pkgErrors.NewGRPCError(m.grpc, m.code, m.message)
}
