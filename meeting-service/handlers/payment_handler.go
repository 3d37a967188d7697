package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetdesk-backend/meeting-service/services"
	"meetdesk-backend/shared/apperror"
	"meetdesk-backend/shared/clients"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store"
	"meetdesk-backend/shared/utils/response"
)

// PaymentHandler runs the Razorpay checkout for meetings that require payment
type PaymentHandler struct {
	meetings store.MeetingStore
	provider PaymentProvider
	events   EventPublisher
}

func NewPaymentHandler(meetings store.MeetingStore, provider PaymentProvider, events EventPublisher) *PaymentHandler {
	return &PaymentHandler{meetings: meetings, provider: provider, events: events}
}

type CreateOrderRequest struct {
	MeetingID uuid.UUID `json:"meetingId" binding:"required"`
}

type VerifyPaymentRequest struct {
	MeetingID         uuid.UUID `json:"meetingId" binding:"required"`
	RazorpayOrderID   string    `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string    `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string    `json:"razorpay_signature" binding:"required"`
}

type OrderResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

type PaymentNotRequiredResponse struct {
	MeetingID uuid.UUID   `json:"meetingId"`
	Order     interface{} `json:"order"`
}

type PaymentStatusResponse struct {
	MeetingID uuid.UUID `json:"meetingId"`
	Status    string    `json:"status"`
}

// loadMeeting fetches the meeting and enforces that customers only touch their own
func (h *PaymentHandler) loadMeeting(c *gin.Context, id uuid.UUID) (*models.Meeting, bool) {
	meeting, err := h.meetings.GetMeetingByID(c.Request.Context(), id)
	if err != nil {
		c.Error(notFoundAs(err, "Meeting not found"))
		return nil, false
	}
	identity := identityFrom(c)
	if identity.IsCustomer() && meeting.CustomerID != identity.ID() {
		c.Error(apperror.Forbidden(msgNotAuthorized))
		return nil, false
	}
	return meeting, true
}

// receiptFor stays within the provider's 40 character receipt limit
func receiptFor(id uuid.UUID) string {
	return "meeting_" + strings.ReplaceAll(id.String(), "-", "")
}

// CreateOrder opens a payment order for a meeting
// @Summary Create a payment order
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateOrderRequest true "Meeting to pay for"
// @Success 201 {object} response.Envelope{data=OrderResponse}
// @Success 200 {object} response.Envelope{data=PaymentNotRequiredResponse} "Payment not required"
// @Failure 400 {object} response.Envelope "Already paid or invalid price"
// @Failure 404 {object} response.Envelope "Meeting not found"
// @Failure 409 {object} response.Envelope "Concurrent order creation"
// @Failure 502 {object} response.Envelope "Payment provider failure"
// @Router /payments/create-order [post]
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	meeting, ok := h.loadMeeting(c, req.MeetingID)
	if !ok {
		return
	}

	if !meeting.PaymentRequired {
		response.Success(c, http.StatusOK, "Payment not required for this meeting", PaymentNotRequiredResponse{MeetingID: meeting.ID})
		return
	}
	if meeting.PaymentStatus == models.PaymentStatusPaid {
		c.Error(apperror.BadRequest("Meeting is already paid"))
		return
	}
	if !(meeting.Price > 0) {
		c.Error(apperror.BadRequest("Invalid meeting price"))
		return
	}

	currency := meeting.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	ctx := c.Request.Context()

	order, err := h.provider.CreateOrder(ctx, clients.AmountInMinorUnits(meeting.Price), currency,
		receiptFor(meeting.ID), map[string]string{"meetingId": meeting.ID.String()})
	if err != nil {
		c.Error(apperror.Wrap(err, http.StatusBadGateway, "Failed to create payment order"))
		return
	}

	stored, err := h.meetings.SetMeetingOrder(ctx, meeting.ID, meeting.RazorpayOrderID, order.ID)
	if err != nil {
		c.Error(err)
		return
	}
	if !stored {
		c.Error(apperror.Wrap(store.ErrConflict, http.StatusConflict, "Payment state changed, please retry"))
		return
	}

	response.Success(c, http.StatusCreated, "Order created", OrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    h.provider.KeyID(),
	})
}

// Verify checks the checkout signature and records the payment outcome
// @Summary Verify a payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body VerifyPaymentRequest true "Checkout result"
// @Success 200 {object} response.Envelope{data=PaymentStatusResponse}
// @Failure 400 {object} response.Envelope "Order mismatch or invalid signature"
// @Failure 404 {object} response.Envelope "Meeting not found"
// @Failure 409 {object} response.Envelope "Concurrent verification"
// @Router /payments/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req VerifyPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	meeting, ok := h.loadMeeting(c, req.MeetingID)
	if !ok {
		return
	}
	if meeting.RazorpayOrderID == "" || meeting.RazorpayOrderID != req.RazorpayOrderID {
		c.Error(apperror.BadRequest("Order mismatch"))
		return
	}
	if meeting.PaymentStatus == models.PaymentStatusPaid {
		c.Error(apperror.BadRequest("Meeting is already paid"))
		return
	}
	ctx := c.Request.Context()

	if !h.provider.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		if _, err := h.meetings.MarkMeetingPaymentFailed(ctx, meeting.ID, req.RazorpayOrderID); err != nil {
			c.Error(err)
			return
		}
		c.Error(apperror.BadRequest("Invalid payment signature"))
		return
	}

	paid, err := h.meetings.MarkMeetingPaid(ctx, meeting.ID, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		c.Error(err)
		return
	}
	if !paid {
		c.Error(apperror.Wrap(store.ErrConflict, http.StatusConflict, "Payment state changed, please retry"))
		return
	}

	h.events.Publish(meeting.HostID, services.Event{
		Type:     "meeting.paid",
		Level:    services.EventLevelSuccess,
		Title:    "Payment received",
		Message:  meeting.Title,
		Entity:   "meeting",
		EntityID: meeting.ID.String(),
	})

	response.Success(c, http.StatusOK, "Payment verified successfully", PaymentStatusResponse{
		MeetingID: meeting.ID,
		Status:    models.PaymentStatusPaid,
	})
}
