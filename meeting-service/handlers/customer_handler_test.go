package handlers

import (
	"context"
	"net/http"
	"testing"

	"meetdesk-backend/shared/database/models"
)

func TestCreateCustomer(t *testing.T) {
	s := newTestServer(t)
	agent, token := s.staff(models.RoleAgent)

	body := map[string]string{
		"name":    "Grace Hopper",
		"email":   "Grace@Example.com",
		"phone":   "+911234567890",
		"company": "Navy",
	}
	res := s.do(http.MethodPost, "/api/customers", token, body)
	expectStatus(t, res, http.StatusCreated, "Customer created successfully")

	var created models.Customer
	res.into(t, &created)
	if created.Email != "grace@example.com" {
		t.Errorf("expected normalized email, got %q", created.Email)
	}
	if created.Status != models.CustomerStatusLead {
		t.Errorf("expected default status lead, got %q", created.Status)
	}
	if created.AssignedToID == nil || *created.AssignedToID != agent.ID {
		t.Errorf("expected customer assigned to the creator, got %v", created.AssignedToID)
	}
	if _, ok := s.notifier.find("customer-welcome", "grace@example.com"); !ok {
		t.Error("expected a welcome email to the customer")
	}

	res = s.do(http.MethodPost, "/api/customers", token, body)
	expectStatus(t, res, http.StatusBadRequest, "Duplicate field: email. Please use another value.")

	res = s.do(http.MethodPost, "/api/customers", token, map[string]string{"name": "No Email", "phone": "1"})
	expectStatus(t, res, http.StatusBadRequest, "Validation Error")
}

func TestListCustomers(t *testing.T) {
	s := newTestServer(t)
	_, token := s.staff(models.RoleAgent)
	ctx := context.Background()

	for _, c := range []models.Customer{
		{Name: "Alice Archer", Email: "alice@acme.test", Phone: "1", Company: "Acme", Status: models.CustomerStatusActive},
		{Name: "Bob Baker", Email: "bob@globex.test", Phone: "2", Company: "Globex", Status: models.CustomerStatusLead},
		{Name: "Carol Cook", Email: "carol@acme.test", Phone: "3", Company: "Acme", Status: models.CustomerStatusLead},
	} {
		c := c
		if err := s.store.CreateCustomer(ctx, &c); err != nil {
			t.Fatalf("failed to seed customer: %v", err)
		}
	}

	tests := []struct {
		name  string
		query string
		count int
		total int64
		pages int64
	}{
		{"all", "", 3, 3, 1},
		{"search is case insensitive", "?search=ACME", 2, 2, 1},
		{"status filter", "?status=lead", 2, 2, 1},
		{"pagination", "?limit=2&page=2", 1, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.do(http.MethodGet, "/api/customers"+tt.query, token, nil)
			expectStatus(t, res, http.StatusOK, "Customers retrieved successfully")

			var customers []models.Customer
			res.into(t, &customers)
			if len(customers) != tt.count {
				t.Errorf("expected %d customers, got %d", tt.count, len(customers))
			}
			if res.env.Pagination == nil {
				t.Fatal("expected pagination")
			}
			if res.env.Pagination.Total != tt.total || res.env.Pagination.Pages != tt.pages {
				t.Errorf("expected total %d pages %d, got %+v", tt.total, tt.pages, res.env.Pagination)
			}
		})
	}
}

func TestGetCustomer(t *testing.T) {
	s := newTestServer(t)
	agent, token := s.staff(models.RoleAgent)
	customer := s.customer(agent)

	res := s.do(http.MethodGet, "/api/customers/"+customer.ID.String(), token, nil)
	expectStatus(t, res, http.StatusOK, "Customer retrieved successfully")
	var got models.Customer
	res.into(t, &got)
	if got.AssignedTo == nil || got.AssignedTo.ID != agent.ID {
		t.Errorf("expected the assignee to be attached, got %+v", got.AssignedTo)
	}

	res = s.do(http.MethodGet, "/api/customers/not-a-uuid", token, nil)
	expectStatus(t, res, http.StatusBadRequest, "")

	res = s.do(http.MethodGet, "/api/customers/00000000-0000-0000-0000-000000000001", token, nil)
	expectStatus(t, res, http.StatusNotFound, "Customer not found")
}

func TestReassignCustomer(t *testing.T) {
	s := newTestServer(t)
	previous, token := s.staff(models.RoleAgent)
	next, _ := s.staff(models.RoleManager)
	customer := s.customer(previous)

	res := s.do(http.MethodPut, "/api/customers/"+customer.ID.String(), token, map[string]interface{}{
		"company":    "Remington Rand",
		"assignedTo": next.ID,
	})
	expectStatus(t, res, http.StatusOK, "Customer updated successfully")

	var updated models.Customer
	res.into(t, &updated)
	if updated.Company != "Remington Rand" || updated.Name != customer.Name {
		t.Errorf("expected a partial update, got %+v", updated)
	}
	if updated.AssignedToID == nil || *updated.AssignedToID != next.ID {
		t.Errorf("expected assignee %s, got %v", next.ID, updated.AssignedToID)
	}
	if _, ok := s.notifier.find("customer-assigned", next.Email); !ok {
		t.Error("expected the new assignee to be notified")
	}
	if _, ok := s.notifier.find("customer-reassigned", previous.Email); !ok {
		t.Error("expected the previous assignee to be notified")
	}

	// same assignee again sends nothing new
	res = s.do(http.MethodPut, "/api/customers/"+customer.ID.String(), token, map[string]interface{}{"assignedTo": next.ID})
	expectStatus(t, res, http.StatusOK, "")
	if got := s.notifier.count("customer-assigned"); got != 1 {
		t.Errorf("expected 1 assignment email, got %d", got)
	}

	res = s.do(http.MethodPut, "/api/customers/"+customer.ID.String(), token, map[string]interface{}{
		"assignedTo": "00000000-0000-0000-0000-000000000001",
	})
	expectStatus(t, res, http.StatusNotFound, "Assigned user not found")
}

func TestAddCustomerNote(t *testing.T) {
	s := newTestServer(t)
	agent, token := s.staff(models.RoleAgent)
	customer := s.customer(agent)

	res := s.do(http.MethodPost, "/api/customers/"+customer.ID.String()+"/notes", token, map[string]string{"content": "Wants a demo"})
	expectStatus(t, res, http.StatusOK, "Note added successfully")

	var got models.Customer
	res.into(t, &got)
	if len(got.Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(got.Notes))
	}
	note := got.Notes[0]
	if note.Content != "Wants a demo" || note.CreatedBy == nil || note.CreatedBy.ID != agent.ID {
		t.Errorf("unexpected note %+v", note)
	}

	res = s.do(http.MethodPost, "/api/customers/"+customer.ID.String()+"/notes", token, map[string]string{})
	expectStatus(t, res, http.StatusBadRequest, "Validation Error")
}

func TestDeleteCustomer(t *testing.T) {
	s := newTestServer(t)
	_, agentToken := s.staff(models.RoleAgent)
	_, adminToken := s.staff(models.RoleAdmin)
	customer := s.customer(nil)
	path := "/api/customers/" + customer.ID.String()

	res := s.do(http.MethodDelete, path, agentToken, nil)
	expectStatus(t, res, http.StatusForbidden, "Not authorized to access this resource")

	res = s.do(http.MethodDelete, path, adminToken, nil)
	expectStatus(t, res, http.StatusOK, "Customer deleted successfully")

	res = s.do(http.MethodDelete, path, adminToken, nil)
	expectStatus(t, res, http.StatusNotFound, "Customer not found")
}
