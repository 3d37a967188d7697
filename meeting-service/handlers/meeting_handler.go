package handlers

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetdesk-backend/meeting-service/services"
	"meetdesk-backend/shared/apperror"
	"meetdesk-backend/shared/clients"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store"
	utils "meetdesk-backend/shared/utils/auth"
	"meetdesk-backend/shared/utils/query"
	"meetdesk-backend/shared/utils/response"
)

// MeetingHandler schedules video meetings between staff hosts and customers
type MeetingHandler struct {
	store    store.Store
	provider MeetingProvider
	notifier Notifier
	events   EventPublisher
	now      func() time.Time
}

func NewMeetingHandler(s store.Store, provider MeetingProvider, notifier Notifier, events EventPublisher) *MeetingHandler {
	return &MeetingHandler{store: s, provider: provider, notifier: notifier, events: events, now: time.Now}
}

// CreateMeetingRequest is validated by hand so that errors surface in a fixed order
type CreateMeetingRequest struct {
	Title           interface{} `json:"title" swaggertype:"string" example:"Onboarding call"`
	CustomerID      string      `json:"customerId" example:"3f1c2a4e-8b0d-4d7e-9a61-2f5c7e9b1a20"`
	HostID          string      `json:"hostId,omitempty"`
	StartTime       string      `json:"startTime" example:"2030-05-01T09:00:00Z"`
	Duration        *float64    `json:"duration,omitempty" example:"30"`
	Price           float64     `json:"price,omitempty" example:"499"`
	Currency        string      `json:"currency,omitempty" example:"INR"`
	PaymentRequired bool        `json:"paymentRequired,omitempty"`
	Notes           string      `json:"notes,omitempty"`
}

type UpdateMeetingStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=scheduled completed cancelled" example:"cancelled"`
}

// MeetingCreatedResponse carries provider secrets that are never persisted
type MeetingCreatedResponse struct {
	*models.Meeting
	ZoomPassword string `json:"zoomPassword,omitempty"`
	ZoomStartURL string `json:"zoomStartUrl,omitempty"`
}

type meetingInput struct {
	title      string
	customerID uuid.UUID
	hostID     *uuid.UUID
	startTime  time.Time
	duration   int
}

func (h *MeetingHandler) validateCreate(req *CreateMeetingRequest) (*meetingInput, error) {
	title, _ := req.Title.(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.BadRequest("Valid title is required")
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, apperror.BadRequest("customerId is required")
	}
	if strings.TrimSpace(req.StartTime) == "" {
		return nil, apperror.BadRequest("startTime is required")
	}

	duration := float64(models.DefaultMeetingDuration)
	if req.Duration != nil {
		duration = *req.Duration
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return nil, apperror.BadRequest("duration must be a positive number")
	}

	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		return nil, apperror.BadRequest("startTime must be a valid date")
	}
	if !startTime.After(h.now()) {
		return nil, apperror.BadRequest("startTime must be in the future")
	}
	if req.PaymentRequired && !(req.Price > 0) {
		return nil, apperror.BadRequest("price must be a positive number when payment is required")
	}
	if math.IsNaN(req.Price) || math.IsInf(req.Price, 0) || req.Price < 0 {
		return nil, apperror.BadRequest("price cannot be negative")
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, apperror.NotFound("Customer not found")
	}
	in := &meetingInput{
		title:      title,
		customerID: customerID,
		startTime:  startTime.UTC(),
		duration:   int(math.Ceil(duration)),
	}
	if req.HostID != "" {
		hostID, err := uuid.Parse(req.HostID)
		if err != nil {
			return nil, apperror.NotFound("Host user not found")
		}
		in.hostID = &hostID
	}
	return in, nil
}

// Create books a remote meeting, persists it and notifies both parties
// @Summary Create a meeting
// @Description Validates input, creates the Zoom meeting under the host, stores it and emails the customer and host.
// @Tags meetings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateMeetingRequest true "Meeting data"
// @Success 201 {object} response.Envelope{data=MeetingCreatedResponse}
// @Failure 400 {object} response.Envelope "Validation error"
// @Failure 404 {object} response.Envelope "Customer or host not found"
// @Failure 502 {object} response.Envelope "Failed to create Zoom meeting"
// @Router /meetings [post]
func (h *MeetingHandler) Create(c *gin.Context) {
	var req CreateMeetingRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := h.validateCreate(&req)
	if err != nil {
		c.Error(err)
		return
	}
	ctx := c.Request.Context()

	customer, err := h.store.GetCustomerByID(ctx, in.customerID)
	if err != nil {
		c.Error(notFoundAs(err, "Customer not found"))
		return
	}

	host := identityFrom(c).User
	if in.hostID != nil && *in.hostID != host.ID {
		host, err = h.store.GetUserByID(ctx, *in.hostID)
		if err != nil {
			c.Error(notFoundAs(err, "Host user not found"))
			return
		}
	}

	remote, err := h.provider.CreateMeeting(ctx, clients.ZoomMeetingRequest{
		Topic:      in.title,
		StartTime:  in.startTime,
		Duration:   in.duration,
		HostUserID: host.ZoomUserID,
	})
	if err != nil {
		c.Error(apperror.Wrap(err, http.StatusBadGateway, "Failed to create Zoom meeting"))
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	meeting := &models.Meeting{
		Title:           in.title,
		CustomerID:      customer.ID,
		HostID:          host.ID,
		StartTime:       in.startTime,
		Duration:        in.duration,
		ZoomMeetingID:   remote.ID,
		ZoomJoinURL:     remote.JoinURL,
		Status:          models.MeetingStatusScheduled,
		Price:           req.Price,
		Currency:        currency,
		PaymentRequired: req.PaymentRequired,
		PaymentStatus:   models.PaymentStatusPending,
		Notes:           req.Notes,
	}
	// The remote meeting is left in place if this fails.
	if err := h.store.CreateMeeting(ctx, meeting); err != nil {
		c.Error(err)
		return
	}
	meeting.Customer = customer
	meeting.Host = host

	h.notifier.SendMeetingConfirmation(detached(c), meeting, services.CustomerRecipient(customer))
	h.notifier.SendMeetingConfirmation(detached(c), meeting, services.UserRecipient(host))
	h.events.Publish(host.ID, services.Event{
		Type:     "meeting.created",
		Level:    services.EventLevelSuccess,
		Title:    "Meeting scheduled",
		Message:  meeting.Title + " with " + customer.Name,
		Entity:   "meeting",
		EntityID: meeting.ID.String(),
	})

	response.Success(c, http.StatusCreated, "Meeting created successfully", MeetingCreatedResponse{
		Meeting:      meeting,
		ZoomPassword: remote.Password,
		ZoomStartURL: remote.StartURL,
	})
}

// List returns meetings ordered by start time
// @Summary List meetings
// @Description Admins see every meeting, other staff only the meetings they host.
// @Tags meetings
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10, max: 100)"
// @Param status query string false "Filter by status (scheduled, completed, cancelled)"
// @Param startDate query string false "Range start (requires endDate)"
// @Param endDate query string false "Range end (requires startDate)"
// @Success 200 {object} response.Envelope{data=[]models.Meeting}
// @Router /meetings [get]
func (h *MeetingHandler) List(c *gin.Context) {
	params := query.ParsePageParams(c)
	identity := identityFrom(c)

	filter := store.MeetingFilter{
		Status: c.Query("status"),
		Page:   store.Page{Offset: params.Offset(), Limit: params.Limit},
	}
	if from, to, ok := query.ParseDateRange(c); ok {
		filter.From, filter.To = &from, &to
	}
	if !identity.Can(utils.CapMeetingsReadAll) {
		hostID := identity.ID()
		filter.HostID = &hostID
	}

	meetings, total, err := h.store.ListMeetings(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	if meetings == nil {
		meetings = []models.Meeting{}
	}
	response.Paginated(c, http.StatusOK, "Meetings retrieved successfully", meetings, query.BuildPagination(params, total))
}

// Get returns a single meeting visible to the caller
// @Summary Get a meeting
// @Tags meetings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Meeting ID"
// @Success 200 {object} response.Envelope{data=models.Meeting}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope "Meeting not found"
// @Router /meetings/{id} [get]
func (h *MeetingHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	meeting, err := h.store.GetMeetingByID(c.Request.Context(), id)
	if err != nil {
		c.Error(notFoundAs(err, "Meeting not found"))
		return
	}

	identity := identityFrom(c)
	if !identity.Can(utils.CapMeetingsReadAll) && meeting.HostID != identity.ID() {
		c.Error(apperror.Forbidden(msgNotAuthorized))
		return
	}
	response.Success(c, http.StatusOK, "Meeting retrieved successfully", meeting)
}

// UpdateStatus changes a meeting's status. Cancelling deletes the remote meeting first.
// @Summary Update meeting status
// @Tags meetings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Meeting ID"
// @Param request body UpdateMeetingStatusRequest true "New status"
// @Success 200 {object} response.Envelope{data=models.Meeting}
// @Failure 404 {object} response.Envelope "Meeting not found"
// @Failure 502 {object} response.Envelope "Failed to cancel Zoom meeting"
// @Router /meetings/{id}/status [patch]
func (h *MeetingHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateMeetingStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	meeting, err := h.store.GetMeetingByID(ctx, id)
	if err != nil {
		c.Error(notFoundAs(err, "Meeting not found"))
		return
	}

	cancelling := req.Status == models.MeetingStatusCancelled && meeting.Status != models.MeetingStatusCancelled
	if cancelling {
		if meeting.ZoomMeetingID != "" {
			if err := h.provider.DeleteMeeting(ctx, meeting.ZoomMeetingID); err != nil {
				c.Error(apperror.Wrap(err, http.StatusBadGateway, "Failed to cancel Zoom meeting"))
				return
			}
		}
		if meeting.Customer != nil {
			h.notifier.SendMeetingCancelled(detached(c), meeting, services.CustomerRecipient(meeting.Customer))
		}
	}

	if err := h.store.UpdateMeetingStatus(ctx, id, req.Status); err != nil {
		c.Error(notFoundAs(err, "Meeting not found"))
		return
	}
	meeting.Status = req.Status

	level := services.EventLevelInfo
	if cancelling {
		level = services.EventLevelWarning
	}
	h.events.Publish(meeting.HostID, services.Event{
		Type:     "meeting." + req.Status,
		Level:    level,
		Title:    "Meeting " + req.Status,
		Message:  meeting.Title,
		Entity:   "meeting",
		EntityID: meeting.ID.String(),
	})

	response.Success(c, http.StatusOK, "Meeting status updated successfully", meeting)
}
