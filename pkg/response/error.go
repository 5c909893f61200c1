package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	pkgErrors "github.com/vogiaan1904/ticketbottle-boxoffice/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Resp struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Errors    any    `json:"errors,omitempty"`
}

func parseHttpError(err error) (int, Resp) {
	var parsedErr *pkgErrors.HTTPError
	if errors.As(err, &parsedErr) {
		statusCode := parsedErr.StatusCode
		if statusCode == 0 {
			statusCode = http.StatusBadRequest
		}

		return statusCode, Resp{
			ErrorCode: parsedErr.Code,
			Message:   parsedErr.Message,
			Data:      parsedErr.Data,
		}
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, ok := echoErr.Message.(string)
		if !ok {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, Resp{
			ErrorCode: echoErr.Code * 100,
			Message:   msg,
		}
	}

	return http.StatusInternalServerError, Resp{
		ErrorCode: pkgErrors.ErrHTTPInternal.Code,
		Message:   pkgErrors.ErrHTTPInternal.Message,
	}
}

// Error writes err as a JSON error envelope.
func Error(c echo.Context, err error) error {
	statusCode, resp := parseHttpError(err)
	return c.JSON(statusCode, resp)
}

func OK(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, Resp{
		Message: "Success",
		Data:    data,
	})
}

func ParseGRPCError(err error) error {
	var parsedErr *pkgErrors.GRPCError
	if errors.As(err, &parsedErr) {
		grpcCode := parsedErr.GrpcCode
		if grpcCode == 0 {
			grpcCode = codes.InvalidArgument
		}
		return status.Error(grpcCode, parsedErr.Error())
	}
	return status.Error(codes.Internal, "Internal server error")
}
