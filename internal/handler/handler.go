package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"storefront/internal/auth"
	"storefront/internal/errors"
)

// MessageResponse is the body of successful writes that return no entity.
type MessageResponse struct {
	Message string `json:"message"`
}

// respondError maps a service error onto an echo HTTP error. Internal causes
// stay attached for the error handler to log and are never sent to clients.
func respondError(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	he := echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	if httpErr.StatusCode >= http.StatusInternalServerError {
		he.SetInternal(err)
	}
	return he
}

// bindAndValidate decodes the JSON body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := bindBody(c, req); err != nil {
		return err
	}
	return validate(c, req)
}

func bindBody(c echo.Context, req interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
		return respondError(errors.Validation("invalid request body"))
	}
	return nil
}

// validate runs the echo validator, whose messages are already client-safe.
func validate(c echo.Context, req interface{}) error {
	if err := c.Validate(req); err != nil {
		return respondError(errors.Validation(err.Error()))
	}
	return nil
}

// pathID parses the :id path parameter. Anything that is not a positive
// integer cannot name a row, so it answers with notFound.
func pathID(c echo.Context, notFound error) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, respondError(notFound)
	}
	return uint(id), nil
}

// callerID returns the user the Auth Gate attached to the request.
func callerID(c echo.Context) (uint, error) {
	id, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return 0, respondError(errors.ErrInvalidToken)
	}
	return id, nil
}
