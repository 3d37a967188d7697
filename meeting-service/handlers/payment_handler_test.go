package handlers

import (
	"context"
	"net/http"
	"testing"

	"meetdesk-backend/shared/database/models"
)

func paidMeeting(price float64) func(*models.Meeting) {
	return func(m *models.Meeting) {
		m.PaymentRequired = true
		m.Price = price
	}
}

func TestCreateOrder(t *testing.T) {
	s := newTestServer(t)
	host, token := s.staff(models.RoleAgent)
	meeting := s.meeting(host, s.customer(nil), paidMeeting(499))

	res := s.do(http.MethodPost, "/api/payments/create-order", token, map[string]interface{}{"meetingId": meeting.ID})
	expectStatus(t, res, http.StatusCreated, "Order created")

	var order OrderResponse
	res.into(t, &order)
	if order.Amount != 49900 || order.Currency != models.DefaultCurrency || order.KeyID != "rzp_test_key" {
		t.Errorf("unexpected order %+v", order)
	}

	call := s.payments.orders[0]
	if call.receipt != receiptFor(meeting.ID) || len(call.receipt) > 40 {
		t.Errorf("unexpected receipt %q", call.receipt)
	}
	if call.notes["meetingId"] != meeting.ID.String() {
		t.Errorf("expected meetingId note, got %v", call.notes)
	}

	stored, _ := s.store.GetMeetingByID(context.Background(), meeting.ID)
	if stored.RazorpayOrderID != order.OrderID {
		t.Errorf("expected order %q stored, got %q", order.OrderID, stored.RazorpayOrderID)
	}

	// a second order replaces the first
	res = s.do(http.MethodPost, "/api/payments/create-order", token, map[string]interface{}{"meetingId": meeting.ID})
	expectStatus(t, res, http.StatusCreated, "")
	var second OrderResponse
	res.into(t, &second)
	stored, _ = s.store.GetMeetingByID(context.Background(), meeting.ID)
	if stored.RazorpayOrderID != second.OrderID {
		t.Errorf("expected the newer order to be stored")
	}

	// a failed verification followed by a fresh order is pending again
	if ok, _ := s.store.MarkMeetingPaymentFailed(context.Background(), meeting.ID, second.OrderID); !ok {
		t.Fatalf("expected the payment to be marked failed")
	}
	res = s.do(http.MethodPost, "/api/payments/create-order", token, map[string]interface{}{"meetingId": meeting.ID})
	expectStatus(t, res, http.StatusCreated, "Order created")
	var retry OrderResponse
	res.into(t, &retry)
	stored, _ = s.store.GetMeetingByID(context.Background(), meeting.ID)
	if stored.RazorpayOrderID != retry.OrderID || stored.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("expected order %q with pending status, got %q/%s", retry.OrderID, stored.RazorpayOrderID, stored.PaymentStatus)
	}
}

func TestCreateOrderRejections(t *testing.T) {
	s := newTestServer(t)
	host, token := s.staff(models.RoleAgent)
	customer := s.customer(nil)

	free := s.meeting(host, customer, nil)
	paid := s.meeting(host, customer, func(m *models.Meeting) {
		m.PaymentRequired = true
		m.Price = 100
		m.PaymentStatus = models.PaymentStatusPaid
	})
	zeroPrice := s.meeting(host, customer, paidMeeting(0))

	tests := []struct {
		name    string
		body    map[string]interface{}
		status  int
		message string
	}{
		{"payment not required", map[string]interface{}{"meetingId": free.ID}, http.StatusOK, "Payment not required for this meeting"},
		{"already paid", map[string]interface{}{"meetingId": paid.ID}, http.StatusBadRequest, "Meeting is already paid"},
		{"invalid price", map[string]interface{}{"meetingId": zeroPrice.ID}, http.StatusBadRequest, "Invalid meeting price"},
		{"unknown meeting", map[string]interface{}{"meetingId": "00000000-0000-0000-0000-000000000001"}, http.StatusNotFound, "Meeting not found"},
		{"missing meeting id", map[string]interface{}{}, http.StatusBadRequest, "Validation Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.do(http.MethodPost, "/api/payments/create-order", token, tt.body)
			expectStatus(t, res, tt.status, tt.message)
		})
	}
	if len(s.payments.orders) != 0 {
		t.Errorf("expected no provider orders, got %d", len(s.payments.orders))
	}
}

func TestCreateOrderProviderFailure(t *testing.T) {
	s := newTestServer(t)
	host, token := s.staff(models.RoleAgent)
	meeting := s.meeting(host, s.customer(nil), paidMeeting(10))
	s.payments.orderErr = errProviderDown

	res := s.do(http.MethodPost, "/api/payments/create-order", token, map[string]interface{}{"meetingId": meeting.ID})
	expectStatus(t, res, http.StatusBadGateway, "Failed to create payment order")
}

func TestVerifyPayment(t *testing.T) {
	s := newTestServer(t)
	host, _ := s.staff(models.RoleAgent)
	customer := s.customer(nil)
	token := s.customerToken(customer)
	meeting := s.meeting(host, customer, paidMeeting(499))

	res := s.do(http.MethodPost, "/api/payments/create-order", token, map[string]interface{}{"meetingId": meeting.ID})
	expectStatus(t, res, http.StatusCreated, "")
	var order OrderResponse
	res.into(t, &order)

	verify := func(orderID, signature string) result {
		return s.do(http.MethodPost, "/api/payments/verify", token, map[string]interface{}{
			"meetingId":           meeting.ID,
			"razorpay_order_id":   orderID,
			"razorpay_payment_id": "pay_123",
			"razorpay_signature":  signature,
		})
	}

	res = verify("order_other", validSignature)
	expectStatus(t, res, http.StatusBadRequest, "Order mismatch")

	res = verify(order.OrderID, "forged")
	expectStatus(t, res, http.StatusBadRequest, "Invalid payment signature")
	stored, _ := s.store.GetMeetingByID(context.Background(), meeting.ID)
	if stored.PaymentStatus != models.PaymentStatusFailed {
		t.Errorf("expected payment marked failed, got %s", stored.PaymentStatus)
	}

	res = verify(order.OrderID, validSignature)
	expectStatus(t, res, http.StatusOK, "Payment verified successfully")
	var status PaymentStatusResponse
	res.into(t, &status)
	if status.Status != models.PaymentStatusPaid || status.MeetingID != meeting.ID {
		t.Errorf("unexpected status %+v", status)
	}

	stored, _ = s.store.GetMeetingByID(context.Background(), meeting.ID)
	if stored.PaymentStatus != models.PaymentStatusPaid || stored.RazorpayPaymentID != "pay_123" || stored.RazorpaySignature != validSignature {
		t.Errorf("expected payment details stored, got %+v", stored)
	}
	if types := s.events.types(); len(types) != 1 || types[0] != "meeting.paid" {
		t.Errorf("expected a meeting.paid event, got %v", types)
	}

	res = verify(order.OrderID, validSignature)
	expectStatus(t, res, http.StatusBadRequest, "Meeting is already paid")
}

func TestPaymentsForAnotherCustomer(t *testing.T) {
	s := newTestServer(t)
	host, _ := s.staff(models.RoleAgent)
	owner := s.customer(nil)
	stranger := s.customer(nil)
	meeting := s.meeting(host, owner, paidMeeting(100))

	res := s.do(http.MethodPost, "/api/payments/create-order", s.customerToken(stranger), map[string]interface{}{"meetingId": meeting.ID})
	expectStatus(t, res, http.StatusForbidden, "Not authorized to access this resource")

	res = s.do(http.MethodPost, "/api/payments/create-order", "", map[string]interface{}{"meetingId": meeting.ID})
	expectStatus(t, res, http.StatusUnauthorized, "No authentication token provided")
}
