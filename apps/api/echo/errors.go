package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
)

// RPC error codes
const (
	codeBadRequest         = "BAD_REQUEST"
	codeUnauthorized       = "UNAUTHORIZED"
	codeForbidden          = "FORBIDDEN"
	codeNotFound           = "NOT_FOUND"
	codeMethodNotSupported = "METHOD_NOT_SUPPORTED"
	codeInternal           = "INTERNAL_SERVER_ERROR"
)

var rpcCodes = map[string]struct {
	jsonRPC    int
	httpStatus int
}{
	codeBadRequest:         {-32600, http.StatusBadRequest},
	codeUnauthorized:       {-32001, http.StatusUnauthorized},
	codeForbidden:          {-32003, http.StatusForbidden},
	codeNotFound:           {-32004, http.StatusNotFound},
	codeMethodNotSupported: {-32005, http.StatusMethodNotAllowed},
	codeInternal:           {-32603, http.StatusInternalServerError},
}

var (
	errUnauthed = newRPCError(codeUnauthorized, "Please login (10001)")

	errHttpUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "Please login (10001)")
	errHttpForbidden    = echo.NewHTTPError(http.StatusForbidden, "Manager access required")
)

type rpcError struct {
	code        string
	message     string
	fieldErrors map[string]string
}

func newRPCError(code, msg string) *rpcError {
	return &rpcError{code: code, message: msg}
}

func (e *rpcError) Error() string {
	return e.message
}

func (e *rpcError) httpStatus() int {
	return rpcCodes[e.code].httpStatus
}

// fieldErrors maps the failing fields to their messages. ok is false for errors that are not about the input.
func fieldErrors(err error, translator ut.Translator) (flds map[string]string, msg string, ok bool) {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		flds = make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			flds[vErr.Field()] = vErr.Translate(translator)
		}
		if len(origErr) > 0 {
			msg = flds[origErr[0].Field()]
		}
		return flds, msg, true
	case *core.ValidationError:
		if origErr.Fields != nil {
			flds = make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				flds[fErr.Field] = fErr.Error
			}
		}
		return flds, origErr.Error(), true
	}
	return nil, "", false
}

// toRPCError maps any error returned by a procedure to the error sent back to the client.
// Unexpected errors are logged; the shutdown ones also stop the server.
func (s *Server) toRPCError(ctx echo.Context, path string, err error) *rpcError {
	if flds, msg, ok := fieldErrors(err, s.Translator); ok {
		return &rpcError{code: codeBadRequest, message: msg, fieldErrors: flds}
	}

	switch origErr := errors.Cause(err).(type) {
	case *rpcError:
		return origErr
	case *core.NotFoundError:
		return newRPCError(codeNotFound, origErr.Error())
	case *core.PermissionError:
		return newRPCError(codeForbidden, origErr.Error())
	}

	msg := http.StatusText(http.StatusInternalServerError)
	logArgs := []interface{}{errors.Wrap(err, msg)}
	if usr := getContextUser(ctx); usr != nil {
		logArgs = append(logArgs, *usr)
	}
	s.Logger.Error(fmt.Sprintf("%s: %v", path, err), logArgs...)
	if core.IsShutdown(err) {
		s.signalShutdown()
	}
	if s.Conf.Debug {
		msg = err.Error()
	}
	return newRPCError(codeInternal, msg)
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		if flds, msg, ok := fieldErrors(err, translator); ok {
			code = http.StatusBadRequest
			if flds != nil {
				message = echo.Map{"error": msg, "fields": flds}
			} else {
				message = msg
			}
		} else {
			switch origErr := errors.Cause(err).(type) {
			case *echo.HTTPError:
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case *core.NotFoundError:
				code = http.StatusNotFound
				message = origErr.Error()
			case *core.PermissionError:
				code = http.StatusForbidden
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				logArgs := []interface{}{errors.Wrap(err, msg)}
				if usr := getContextUser(ctx); usr != nil {
					logArgs = append(logArgs, *usr)
				}
				logger.Error(msg, logArgs...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
				if ctx.Echo().Debug {
					message = err.Error()
				}
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
