package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuschain/credit-ledger-api/internal/dto"
	"github.com/campuschain/credit-ledger-api/internal/service"
	appErrors "github.com/campuschain/credit-ledger-api/pkg/errors"
	"github.com/campuschain/credit-ledger-api/pkg/response"
)

// CreditHandler wires credit ledger operations to HTTP routes.
type CreditHandler struct {
	service *service.CreditService
}

// NewCreditHandler creates a new handler.
func NewCreditHandler(svc *service.CreditService) *CreditHandler {
	return &CreditHandler{service: svc}
}

// Record godoc
// @Summary Record a credit
// @Description Submit a new pending credit record for a student
// @Tags Credits
// @Accept json
// @Produce json
// @Param payload body dto.RecordCreditRequest true "Credit payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /credits [post]
func (h *CreditHandler) Record(c *gin.Context) {
	var req dto.RecordCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid credit payload"))
		return
	}

	record, err := h.service.Record(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record)
}

// Approve godoc
// @Summary Approve a pending credit
// @Tags Credits
// @Accept json
// @Produce json
// @Param id path int true "Record ID"
// @Param payload body dto.ReviewNote false "Optional review note"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /credits/{id}/approve [post]
func (h *CreditHandler) Approve(c *gin.Context) {
	recordID, err := recordIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	note, err := reviewNoteBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.service.Approve(c.Request.Context(), claimsFromContext(c), recordID, note)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// Reject godoc
// @Summary Reject a pending credit
// @Tags Credits
// @Accept json
// @Produce json
// @Param id path int true "Record ID"
// @Param payload body dto.ReviewNote false "Optional review note"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /credits/{id}/reject [post]
func (h *CreditHandler) Reject(c *gin.Context) {
	recordID, err := recordIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	note, err := reviewNoteBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.service.Reject(c.Request.Context(), claimsFromContext(c), recordID, note)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// StudentCredits godoc
// @Summary List a student's credits
// @Description Returns all of a student's credit records in creation order
// @Tags Credits
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /credits/student/{studentId} [get]
func (h *CreditHandler) StudentCredits(c *gin.Context) {
	records, err := h.service.StudentCredits(c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, nil)
}

// Pending godoc
// @Summary List pending credits
// @Tags Credits
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /credits/pending [get]
func (h *CreditHandler) Pending(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.PendingCredits(), nil)
}

// Transcript godoc
// @Summary Export a student transcript
// @Description Renders the student's approved credits as CSV or PDF
// @Tags Credits
// @Produce text/csv
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /credits/student/{studentId}/transcript [get]
func (h *CreditHandler) Transcript(c *gin.Context) {
	studentID := c.Param("studentId")
	format := c.DefaultQuery("format", "csv")

	data, contentType, err := h.service.Transcript(c.Request.Context(), studentID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("transcript-%s.%s", studentID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// reviewNoteBody reads the optional JSON body of a review request. An empty
// body is a plain decision with no note.
func reviewNoteBody(c *gin.Context) (dto.ReviewNote, error) {
	var note dto.ReviewNote
	if c.Request.ContentLength == 0 {
		return note, nil
	}
	if err := c.ShouldBindJSON(&note); err != nil {
		return note, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review note payload")
	}
	return note, nil
}

func recordIDParam(c *gin.Context) (uint64, error) {
	recordID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrInvalidArgument, "record id must be a non-negative integer")
	}
	return recordID, nil
}
