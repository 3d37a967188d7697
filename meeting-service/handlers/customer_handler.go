package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetdesk-backend/shared/apperror"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store"
	utils "meetdesk-backend/shared/utils/auth"
	"meetdesk-backend/shared/utils/query"
	"meetdesk-backend/shared/utils/response"
)

// CustomerHandler manages customers on behalf of staff users
type CustomerHandler struct {
	customers store.CustomerStore
	users     store.UserStore
	notifier  Notifier
}

func NewCustomerHandler(customers store.CustomerStore, users store.UserStore, notifier Notifier) *CustomerHandler {
	return &CustomerHandler{customers: customers, users: users, notifier: notifier}
}

type CreateCustomerRequest struct {
	Name    string `json:"name" binding:"required,max=200" example:"Grace Hopper"`
	Email   string `json:"email" binding:"required,email" example:"grace@example.com"`
	Phone   string `json:"phone" binding:"required,max=30" example:"+911234567890"`
	Company string `json:"company" binding:"max=200" example:"Navy"`
	Status  string `json:"status" binding:"omitempty,oneof=active inactive lead" example:"lead"`
}

// UpdateCustomerRequest is a partial update: omitted fields are left unchanged
type UpdateCustomerRequest struct {
	Name       *string    `json:"name" binding:"omitempty,min=1,max=200"`
	Email      *string    `json:"email" binding:"omitempty,email"`
	Phone      *string    `json:"phone" binding:"omitempty,min=1,max=30"`
	Company    *string    `json:"company" binding:"omitempty,max=200"`
	Status     *string    `json:"status" binding:"omitempty,oneof=active inactive lead"`
	AssignedTo *uuid.UUID `json:"assignedTo"`
}

type AddNoteRequest struct {
	Content string `json:"content" binding:"required" example:"Interested in the annual plan"`
}

// Create adds a customer assigned to the caller
// @Summary Create a customer
// @Tags customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCustomerRequest true "Customer data"
// @Success 201 {object} response.Envelope{data=models.Customer}
// @Failure 400 {object} response.Envelope "Validation error or duplicate email"
// @Router /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req CreateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	caller := identityFrom(c).User

	status := req.Status
	if status == "" {
		status = models.CustomerStatusLead
	}

	customer := &models.Customer{
		Name:         req.Name,
		Email:        utils.NormalizeEmail(req.Email),
		Phone:        req.Phone,
		Company:      req.Company,
		Status:       status,
		AssignedToID: &caller.ID,
	}
	if err := h.customers.CreateCustomer(c.Request.Context(), customer); err != nil {
		c.Error(err)
		return
	}
	customer.AssignedTo = caller

	h.notifier.SendCustomerWelcome(detached(c), customer)
	response.Success(c, http.StatusCreated, "Customer created successfully", customer)
}

// List returns customers newest first
// @Summary List customers
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10, max: 100)"
// @Param status query string false "Filter by status (active, inactive, lead)"
// @Param search query string false "Case-insensitive search over name, email and company"
// @Success 200 {object} response.Envelope{data=[]models.Customer}
// @Router /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	params := query.ParsePageParams(c)

	customers, total, err := h.customers.ListCustomers(c.Request.Context(), store.CustomerFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   store.Page{Offset: params.Offset(), Limit: params.Limit},
	})
	if err != nil {
		c.Error(err)
		return
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	response.Paginated(c, http.StatusOK, "Customers retrieved successfully", customers, query.BuildPagination(params, total))
}

// Get returns one customer with notes and assignee
// @Summary Get a customer
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Success 200 {object} response.Envelope{data=models.Customer}
// @Failure 404 {object} response.Envelope "Customer not found"
// @Router /customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	customer, err := h.customers.GetCustomerByID(c.Request.Context(), id)
	if err != nil {
		c.Error(notFoundAs(err, "Customer not found"))
		return
	}
	response.Success(c, http.StatusOK, "Customer retrieved successfully", customer)
}

// Update applies a partial update and notifies assignees on reassignment
// @Summary Update a customer
// @Tags customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Param request body UpdateCustomerRequest true "Fields to change"
// @Success 200 {object} response.Envelope{data=models.Customer}
// @Failure 404 {object} response.Envelope "Customer not found"
// @Router /customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	customer, err := h.customers.GetCustomerByID(ctx, id)
	if err != nil {
		c.Error(notFoundAs(err, "Customer not found"))
		return
	}

	changes := store.CustomerChanges{
		Name:    req.Name,
		Phone:   req.Phone,
		Company: req.Company,
		Status:  req.Status,
	}
	if req.Email != nil {
		email := utils.NormalizeEmail(*req.Email)
		changes.Email = &email
	}

	var newAssignee, previousAssignee *models.User
	if req.AssignedTo != nil && (customer.AssignedToID == nil || *customer.AssignedToID != *req.AssignedTo) {
		newAssignee, err = h.users.GetUserByID(ctx, *req.AssignedTo)
		if err != nil {
			c.Error(notFoundAs(err, "Assigned user not found"))
			return
		}
		previousAssignee = customer.AssignedTo
		changes.AssignedToID = &newAssignee.ID
	}

	if err := h.customers.UpdateCustomer(ctx, id, changes); err != nil {
		c.Error(notFoundAs(err, "Customer not found"))
		return
	}
	if customer, err = h.customers.GetCustomerByID(ctx, id); err != nil {
		c.Error(notFoundAs(err, "Customer not found"))
		return
	}

	if newAssignee != nil {
		h.notifier.SendCustomerAssigned(detached(c), customer, newAssignee)
		if previousAssignee != nil {
			h.notifier.SendCustomerReassigned(detached(c), customer, previousAssignee)
		}
	}
	response.Success(c, http.StatusOK, "Customer updated successfully", customer)
}

// AddNote appends a note written by the caller
// @Summary Add a customer note
// @Tags customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Param request body AddNoteRequest true "Note"
// @Success 200 {object} response.Envelope{data=models.Customer}
// @Failure 404 {object} response.Envelope "Customer not found"
// @Router /customers/{id}/notes [post]
func (h *CustomerHandler) AddNote(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req AddNoteRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	caller := identityFrom(c).User

	if _, err := h.customers.GetCustomerByID(ctx, id); err != nil {
		c.Error(notFoundAs(err, "Customer not found"))
		return
	}

	note := &models.CustomerNote{
		CustomerID:  id,
		Content:     req.Content,
		CreatedByID: &caller.ID,
	}
	if err := h.customers.AddCustomerNote(ctx, note); err != nil {
		c.Error(err)
		return
	}

	customer, err := h.customers.GetCustomerByID(ctx, id)
	if err != nil {
		c.Error(notFoundAs(err, "Customer not found"))
		return
	}
	response.Success(c, http.StatusOK, "Note added successfully", customer)
}

// Delete removes a customer
// @Summary Delete a customer (admin only)
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope "Customer not found"
// @Router /customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.customers.DeleteCustomer(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apperror.NotFound("Customer not found")
		}
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Customer deleted successfully", nil)
}
