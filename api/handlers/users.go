package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wellcheck-api/internal/checkin"
	"wellcheck-api/internal/common"
	"wellcheck-api/internal/registry"
	"wellcheck-api/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// UserHandler exposes user settings, contacts and check-ins to non-chat clients
type UserHandler struct {
	users  registry.Service
	checks checkin.Manager
	logger *logger.Logger
}

func NewUserHandler(users registry.Service, checks checkin.Manager, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		checks: checks,
		logger: logger,
	}
}

// AddContactRequest is the body of POST /users/:id/contacts
type AddContactRequest struct {
	Address     string `json:"address" binding:"required"`
	DisplayName string `json:"display_name"`
}

// ResponseRequest is the body of POST /users/:id/responses
type ResponseRequest struct {
	Kind common.ResponseKind `json:"kind" binding:"required"`
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), userIDParam(c))
	if err != nil {
		h.fail(c, "get user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var update registry.UserUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		writeBindError(c, err)
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), userIDParam(c), update)
	if err != nil {
		h.fail(c, "update user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ListContacts(c *gin.Context) {
	userID := userIDParam(c)
	if _, err := h.users.GetUser(c.Request.Context(), userID); err != nil {
		h.fail(c, "list contacts", err)
		return
	}

	contacts, err := h.users.ListContacts(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "list contacts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts, "count": len(contacts)})
}

func (h *UserHandler) AddContact(c *gin.Context) {
	var request AddContactRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		writeBindError(c, err)
		return
	}

	contact, err := h.users.AddContact(c.Request.Context(), userIDParam(c), request.Address, request.DisplayName)
	if err != nil {
		h.fail(c, "add contact", err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

func (h *UserHandler) RemoveContact(c *gin.Context) {
	contactID := common.ContactID(c.Param("contactId"))
	if err := h.users.RemoveContact(c.Request.Context(), userIDParam(c), contactID); err != nil {
		h.fail(c, "remove contact", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateCheck issues an on-demand check-in prompt
func (h *UserHandler) CreateCheck(c *gin.Context) {
	instance, err := h.checks.CreateCheck(c.Request.Context(), userIDParam(c), checkin.SourceOnDemand)
	if err != nil {
		h.fail(c, "create check", err)
		return
	}
	c.JSON(http.StatusCreated, instance)
}

// ListChecks returns the newest check instances, bounded by ?limit=
func (h *UserHandler) ListChecks(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(c, common.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	checks, err := h.checks.History(c.Request.Context(), userIDParam(c), limit)
	if err != nil {
		h.fail(c, "list checks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checks": checks, "count": len(checks)})
}

// RecordResponse resolves the pending check as if the user pressed a button
func (h *UserHandler) RecordResponse(c *gin.Context) {
	var request ResponseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		writeBindError(c, err)
		return
	}
	if !request.Kind.IsValid() {
		writeError(c, common.ValidationError{Field: "kind", Message: "must be okay or need_help"})
		return
	}

	outcome, err := h.checks.OnUserResponse(c.Request.Context(), userIDParam(c), request.Kind)
	if err != nil {
		h.fail(c, "record response", err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *UserHandler) fail(c *gin.Context, operation string, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Errorw("Admin request failed",
			"request_id", c.GetString(requestIDKey),
			"operation", operation,
			"user_id", c.Param("id"),
			"error", err)
	}
	writeError(c, err)
}

func userIDParam(c *gin.Context) common.UserID {
	return common.UserID(c.Param("id"))
}
