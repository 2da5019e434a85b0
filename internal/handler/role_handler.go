package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuschain/credit-ledger-api/internal/dto"
	"github.com/campuschain/credit-ledger-api/internal/service"
	appErrors "github.com/campuschain/credit-ledger-api/pkg/errors"
	"github.com/campuschain/credit-ledger-api/pkg/response"
)

// RoleHandler wires role registry operations to HTTP routes.
type RoleHandler struct {
	service *service.CreditService
}

// NewRoleHandler creates a new handler.
func NewRoleHandler(svc *service.CreditService) *RoleHandler {
	return &RoleHandler{service: svc}
}

// Assign godoc
// @Summary Assign a ledger role
// @Description Grant a role to an account, replacing any previous role
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body dto.AssignRoleRequest true "Role payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /roles [post]
func (h *RoleHandler) Assign(c *gin.Context) {
	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid role payload"))
		return
	}

	res, err := h.service.AssignRole(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Get godoc
// @Summary Get an account's role
// @Tags Roles
// @Produce json
// @Param account path string true "Ledger account"
// @Success 200 {object} response.Envelope
// @Router /roles/{account} [get]
func (h *RoleHandler) Get(c *gin.Context) {
	account := c.Param("account")
	if account == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgument, "account is required"))
		return
	}

	response.JSON(c, http.StatusOK, h.service.Role(account), nil)
}
