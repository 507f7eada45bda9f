package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ProtectedHandler answers the role-gated routes. The role gate runs in
// middleware; these handlers only echo the caller's identity.
type ProtectedHandler struct{}

func NewProtectedHandler() *ProtectedHandler {
	return &ProtectedHandler{}
}

// Admin handles GET /admin.
//
// @Summary      Admin-only resource
// @Tags         protected
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Principal
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /admin [get]
func (h *ProtectedHandler) Admin(c echo.Context) error {
	return h.whoami(c)
}

// User handles GET /user.
//
// @Summary      User-only resource
// @Tags         protected
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Principal
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /user [get]
func (h *ProtectedHandler) User(c echo.Context) error {
	return h.whoami(c)
}

func (h *ProtectedHandler) whoami(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
