package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

const mimeFITS = "application/fits"

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "")
}

func writeServerError(c *echo.Context, err error) error {
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
}

func writeError(c *echo.Context, status int, errType, msg, param string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Param:   param,
		},
	})
}

// writeBodyError maps a readBody failure onto a response.
func writeBodyError(c *echo.Context, err error) error {
	if errors.Is(err, ErrBodyTooLarge) {
		return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error", err.Error(), "")
	}
	return writeBadRequest(c, err.Error())
}

func writeFITS(c *echo.Context, data []byte) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, mimeFITS)
	res.Header().Set("Content-Length", strconv.Itoa(len(data)))
	res.WriteHeader(http.StatusOK)
	_, err := res.Write(data)
	return err
}

// readBody reads at most limit bytes of the request body.
func readBody(c *echo.Context, limit int64) ([]byte, error) {
	body := c.Request().Body
	if body == nil {
		return nil, newInvalidRequest("request body is empty")
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, limit)
	}
	if len(data) == 0 {
		return nil, newInvalidRequest("request body is empty")
	}
	return data, nil
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, newInvalidRequest("decode request: %v", err)
	}
	return out, nil
}

// queryBool reads a boolean query parameter, falling back to def when it is
// absent or unparseable.
func queryBool(c *echo.Context, name string, def bool) bool {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
