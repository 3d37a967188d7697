package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetdesk-backend/shared/apperror"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store"
	"meetdesk-backend/shared/utils/cache"
	"meetdesk-backend/shared/utils/query"
	"meetdesk-backend/shared/utils/response"
)

// SlotHandler manages staff availability slots
type SlotHandler struct {
	slots    store.SlotStore
	meetings store.MeetingStore
	cache    SlotCache
}

func NewSlotHandler(slots store.SlotStore, meetings store.MeetingStore, slotCache SlotCache) *SlotHandler {
	return &SlotHandler{slots: slots, meetings: meetings, cache: slotCache}
}

type CreateSlotRequest struct {
	StartTime  time.Time `json:"startTime" binding:"required" example:"2030-05-01T09:00:00Z"`
	EndTime    time.Time `json:"endTime" binding:"required" example:"2030-05-01T09:30:00Z"`
	Recurrence string    `json:"recurrence" binding:"omitempty,oneof=none daily weekly monthly" example:"none"`
}

type BookSlotRequest struct {
	SlotID    uuid.UUID `json:"slotId" binding:"required"`
	MeetingID uuid.UUID `json:"meetingId" binding:"required"`
}

// Create adds an availability slot owned by the caller
// @Summary Create a slot
// @Tags slots
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateSlotRequest true "Slot window"
// @Success 201 {object} response.Envelope{data=models.Slot}
// @Failure 400 {object} response.Envelope "Validation error"
// @Router /slots [post]
func (h *SlotHandler) Create(c *gin.Context) {
	var req CreateSlotRequest
	if !bindJSON(c, &req) {
		return
	}
	if !req.EndTime.After(req.StartTime) {
		c.Error(apperror.BadRequest("End time must be after start time"))
		return
	}
	recurrence := req.Recurrence
	if recurrence == "" {
		recurrence = models.RecurrenceNone
	}

	slot := &models.Slot{
		UserID:     identityFrom(c).ID(),
		StartTime:  req.StartTime.UTC(),
		EndTime:    req.EndTime.UTC(),
		Recurrence: recurrence,
	}
	if err := h.slots.CreateSlot(c.Request.Context(), slot); err != nil {
		c.Error(err)
		return
	}
	h.invalidateAvailability(c)

	response.Success(c, http.StatusCreated, "Slot created successfully", slot)
}

// Available lists unbooked slots in a date range
// @Summary List available slots
// @Tags slots
// @Produce json
// @Security BearerAuth
// @Param startDate query string true "Range start (RFC3339 or YYYY-MM-DD)"
// @Param endDate query string true "Range end (RFC3339 or YYYY-MM-DD)"
// @Param userId query string false "Only slots owned by this user"
// @Success 200 {object} response.Envelope{data=[]models.Slot}
// @Failure 400 {object} response.Envelope
// @Router /slots/available [get]
func (h *SlotHandler) Available(c *gin.Context) {
	from, to, ok := query.ParseDateRange(c)
	if !ok {
		c.Error(apperror.BadRequest("startDate and endDate are required valid dates"))
		return
	}

	filter := store.SlotFilter{From: &from, To: &to, OnlyAvailable: true}
	if raw := c.Query("userId"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.Error(apperror.BadRequest("Invalid userId"))
			return
		}
		filter.UserID = &userID
	}

	ctx := c.Request.Context()
	key := cache.AvailableSlotsPrefix + from.Format(time.RFC3339) + ":" + to.Format(time.RFC3339) + ":" + c.Query("userId")

	var slots []models.Slot
	if hit, err := h.cache.GetJSON(ctx, key, &slots); err != nil {
		log.Printf("⚠️ Slot cache read failed: %v", err)
	} else if hit {
		response.Success(c, http.StatusOK, "Available slots retrieved successfully", slots)
		return
	}

	slots, _, err := h.slots.ListSlots(ctx, filter)
	if err != nil {
		c.Error(err)
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	if err := h.cache.SetJSON(ctx, key, slots, cache.AvailableSlotsTTL); err != nil {
		log.Printf("⚠️ Slot cache write failed: %v", err)
	}

	response.Success(c, http.StatusOK, "Available slots retrieved successfully", slots)
}

// Book attaches a meeting to a free slot
// @Summary Book a slot
// @Tags slots
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BookSlotRequest true "Slot and meeting"
// @Success 200 {object} response.Envelope{data=models.Slot}
// @Failure 400 {object} response.Envelope "Slot is already booked"
// @Failure 404 {object} response.Envelope "Slot or meeting not found"
// @Router /slots/book [post]
func (h *SlotHandler) Book(c *gin.Context) {
	var req BookSlotRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.meetings.GetMeetingByID(ctx, req.MeetingID); err != nil {
		c.Error(notFoundAs(err, "Meeting not found"))
		return
	}

	booked, err := h.slots.BookSlot(ctx, req.SlotID, req.MeetingID)
	if err != nil {
		c.Error(err)
		return
	}

	slot, err := h.slots.GetSlotByID(ctx, req.SlotID)
	if err != nil {
		c.Error(notFoundAs(err, "Slot not found"))
		return
	}
	if !booked {
		c.Error(apperror.BadRequest("Slot is already booked"))
		return
	}
	h.invalidateAvailability(c)

	response.Success(c, http.StatusOK, "Slot booked successfully", slot)
}

// MySlots lists the caller's slots with their booked meetings
// @Summary List my slots
// @Tags slots
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10, max: 100)"
// @Param startDate query string false "Range start (requires endDate)"
// @Param endDate query string false "Range end (requires startDate)"
// @Success 200 {object} response.Envelope{data=[]models.Slot}
// @Router /slots/my-slots [get]
func (h *SlotHandler) MySlots(c *gin.Context) {
	params := query.ParsePageParams(c)
	userID := identityFrom(c).ID()

	filter := store.SlotFilter{
		UserID: &userID,
		Page:   store.Page{Offset: params.Offset(), Limit: params.Limit},
	}
	if from, to, ok := query.ParseDateRange(c); ok {
		filter.From, filter.To = &from, &to
	}

	slots, total, err := h.slots.ListSlots(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	response.Paginated(c, http.StatusOK, "Slots retrieved successfully", slots, query.BuildPagination(params, total))
}

func (h *SlotHandler) invalidateAvailability(c *gin.Context) {
	if err := h.cache.InvalidatePrefix(detached(c), cache.AvailableSlotsPrefix); err != nil {
		log.Printf("⚠️ Slot cache invalidation failed: %v", err)
	}
}
