package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core/user"
)

// Procedure kinds
const (
	kindQuery    = "query"
	kindMutation = "mutation"
)

type (
	// gate decides whether the caller may run a procedure. usr is nil for anonymous callers.
	gate func(usr *user.User) error

	procedure struct {
		kind   string
		gate   gate
		handle func(c *call) (interface{}, error)
	}

	// call is one procedure invocation.
	call struct {
		echo.Context
		srv   *Server
		path  string
		input json.RawMessage
		user  *user.User
	}

	rpcResponse struct {
		Result *rpcResult     `json:"result,omitempty"`
		Error  *rpcErrorShape `json:"error,omitempty"`
	}

	rpcResult struct {
		Data interface{} `json:"data"`
	}

	rpcErrorShape struct {
		Message string       `json:"message"`
		Code    int          `json:"code"`
		Data    rpcErrorData `json:"data"`
	}

	rpcErrorData struct {
		Code        string            `json:"code"`
		HTTPStatus  int               `json:"httpStatus"`
		Path        string            `json:"path"`
		FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	}
)

// Gates

func public(*user.User) error { return nil }

func protected(usr *user.User) error {
	if usr == nil {
		return errUnauthed
	}
	return nil
}

func roleGate(allowed func(user.User) bool, msg string) gate {
	return func(usr *user.User) error {
		if usr == nil {
			return errUnauthed
		}
		if !allowed(*usr) {
			return newRPCError(codeForbidden, msg)
		}
		return nil
	}
}

var (
	agentOnly      = roleGate(user.User.IsAgent, "Agent access required")
	managerOnly    = roleGate(user.User.IsManager, "Manager access required")
	adminOnly      = roleGate(user.User.IsAdmin, "Admin access required")
	systemAdmin    = roleGate(user.User.IsAdmin, "You do not have required permission (10002)")
	projectManager = roleGate(user.User.IsManager, "Project manager access required")
)

func (s *Server) query(path string, g gate, handle func(c *call) (interface{}, error)) {
	s.procs[path] = procedure{kind: kindQuery, gate: g, handle: handle}
}

func (s *Server) mutation(path string, g gate, handle func(c *call) (interface{}, error)) {
	s.procs[path] = procedure{kind: kindMutation, gate: g, handle: handle}
}

// handleRPC serves single and batched (?batch=1) procedure calls.
// Queries are GET requests with an input query param; mutations are POST requests with a JSON body.
func (s *Server) handleRPC(ctx echo.Context) error {
	batch := ctx.QueryParam("batch") != ""
	paths := []string{ctx.Param("path")}
	if batch {
		paths = strings.Split(ctx.Param("path"), ",")
	}

	inputs, err := readInputs(ctx, batch, len(paths))
	if err != nil {
		rerr := newRPCError(codeBadRequest, err.Error())
		return ctx.JSON(rerr.httpStatus(), s.errorResponse(ctx, strings.Join(paths, ","), rerr))
	}

	responses := make([]rpcResponse, len(paths))
	statuses := make([]int, len(paths))
	for i, path := range paths {
		responses[i], statuses[i] = s.invoke(ctx, path, inputs[i])
	}

	if !batch {
		return ctx.JSON(statuses[0], responses[0])
	}
	return ctx.JSON(batchStatus(statuses), responses)
}

// batchStatus is the common status of the calls, 207 when they differ.
func batchStatus(statuses []int) int {
	for _, st := range statuses[1:] {
		if st != statuses[0] {
			return http.StatusMultiStatus
		}
	}
	return statuses[0]
}

func (s *Server) invoke(ctx echo.Context, path string, input json.RawMessage) (rpcResponse, int) {
	kind := kindQuery
	if ctx.Request().Method == http.MethodPost {
		kind = kindMutation
	}

	proc, ok := s.procs[path]
	if !ok {
		rerr := newRPCError(codeNotFound, fmt.Sprintf("No %q-procedure on path %q", kind, path))
		return s.errorResponse(ctx, path, rerr), rerr.httpStatus()
	}
	if proc.kind != kind {
		rerr := newRPCError(codeMethodNotSupported,
			fmt.Sprintf("Unsupported %s-request to %s procedure at path %q", ctx.Request().Method, proc.kind, path))
		return s.errorResponse(ctx, path, rerr), rerr.httpStatus()
	}

	c := &call{Context: ctx, srv: s, path: path, input: input, user: getContextUser(ctx)}
	if err := proc.gate(c.user); err != nil {
		rerr := s.toRPCError(ctx, path, err)
		return s.errorResponse(ctx, path, rerr), rerr.httpStatus()
	}
	data, err := proc.handle(c)
	if err != nil {
		rerr := s.toRPCError(ctx, path, err)
		return s.errorResponse(ctx, path, rerr), rerr.httpStatus()
	}
	return rpcResponse{Result: &rpcResult{Data: data}}, http.StatusOK
}

func (s *Server) errorResponse(_ echo.Context, path string, rerr *rpcError) rpcResponse {
	code := rpcCodes[rerr.code]
	return rpcResponse{Error: &rpcErrorShape{
		Message: rerr.message,
		Code:    code.jsonRPC,
		Data: rpcErrorData{
			Code:        rerr.code,
			HTTPStatus:  code.httpStatus,
			Path:        path,
			FieldErrors: rerr.fieldErrors,
		},
	}}
}

// readInputs returns the raw input of each call. Batched inputs are keyed by the call index.
func readInputs(ctx echo.Context, batch bool, n int) ([]json.RawMessage, error) {
	var raw []byte
	if ctx.Request().Method == http.MethodGet {
		raw = []byte(ctx.QueryParam("input"))
	} else {
		b, err := io.ReadAll(ctx.Request().Body)
		if err != nil {
			return nil, errors.Wrap(err, "reading body")
		}
		raw = b
	}

	inputs := make([]json.RawMessage, n)
	if !batch {
		inputs[0] = unwrapInput(raw)
		return inputs, nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return inputs, nil
	}
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, errors.New(`"input" needs to be an object when doing a batch call`)
	}
	for i := range inputs {
		inputs[i] = unwrapInput(keyed[strconv.Itoa(i)])
	}
	return inputs, nil
}

// unwrapInput accepts inputs sent as {"json": <input>, "meta": ...} by clients using a serializing transformer.
func unwrapInput(raw json.RawMessage) json.RawMessage {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return raw
	}
	inner, ok := wrapped["json"]
	if !ok {
		return raw
	}
	for key := range wrapped {
		if key != "json" && key != "meta" {
			return raw
		}
	}
	return inner
}

// bind decodes the call input into dst and validates it. Missing inputs decode as {}.
func (c *call) bind(dst interface{}) error {
	raw := bytes.TrimSpace(c.input)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return newRPCError(codeBadRequest, "invalid input: "+err.Error())
	}
	return c.srv.Validate.Struct(dst)
}

// actor returns the caller of a gated procedure.
func (c *call) actor() user.User {
	if c.user == nil {
		return user.User{}
	}
	return *c.user
}

func (c *call) context() context.Context {
	return c.Request().Context()
}
