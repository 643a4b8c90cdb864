package policy

import (
	"errors"
	"testing"

	"github.com/hawosalon/salon/libs/auth"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
)

func TestAuthorize(t *testing.T) {
	b := model.Booking{ID: "b1", UserID: "u-owner", StaffID: "s-1"}

	owner := auth.Actor{UserID: "u-owner", Role: auth.RoleCustomer}
	stranger := auth.Actor{UserID: "u-other", Role: auth.RoleCustomer}
	assigned := auth.Actor{UserID: "u-staff", Role: auth.RoleStaff, StaffID: "s-1"}
	otherStaff := auth.Actor{UserID: "u-staff2", Role: auth.RoleStaff, StaffID: "s-2"}
	admin := auth.Actor{UserID: "u-admin", Role: auth.RoleAdmin}
	spoofed := auth.Actor{UserID: "u-x", Role: auth.RoleCustomer, StaffID: "s-1"}

	cases := []struct {
		name   string
		actor  auth.Actor
		action Action
		allow  bool
	}{
		{"owner views", owner, ActionView, true},
		{"owner reschedules", owner, ActionReschedule, true},
		{"owner cancels", owner, ActionCancel, true},
		{"owner cannot update status", owner, ActionUpdateStatus, false},
		{"owner reviews", owner, ActionReview, true},
		{"stranger cannot view", stranger, ActionView, false},
		{"stranger cannot cancel", stranger, ActionCancel, false},
		{"assigned staff reschedules", assigned, ActionReschedule, true},
		{"assigned staff updates status", assigned, ActionUpdateStatus, true},
		{"assigned staff cannot review", assigned, ActionReview, false},
		{"other staff cannot update status", otherStaff, ActionUpdateStatus, false},
		{"customer with staff id is not staff", spoofed, ActionUpdateStatus, false},
		{"admin updates status", admin, ActionUpdateStatus, true},
		{"admin cancels", admin, ActionCancel, true},
		{"anonymous", auth.Actor{}, ActionView, false},
		{"unknown action", owner, Action("delete"), false},
	}
	for _, tc := range cases {
		err := Authorize(tc.actor, b, tc.action)
		if tc.allow && err != nil {
			t.Fatalf("%s: expected allow, got %v", tc.name, err)
		}
		if !tc.allow && !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s: expected ErrForbidden, got %v", tc.name, err)
		}
	}
}

func TestScopeBookings(t *testing.T) {
	customer := auth.Actor{UserID: "u1", Role: auth.RoleCustomer}
	f, err := ScopeBookings(customer, model.BookingFilter{})
	if err != nil || f.UserID != "u1" {
		t.Fatalf("customer scope: %+v %v", f, err)
	}
	if _, err := ScopeBookings(customer, model.BookingFilter{UserID: "u2"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for foreign user, got %v", err)
	}

	staff := auth.Actor{UserID: "u5", Role: auth.RoleStaff, StaffID: "s1"}
	f, err = ScopeBookings(staff, model.BookingFilter{From: "2026-03-01"})
	if err != nil || f.StaffID != "s1" || f.From != "2026-03-01" {
		t.Fatalf("staff scope: %+v %v", f, err)
	}
	if _, err := ScopeBookings(staff, model.BookingFilter{StaffID: "s2"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for foreign staff, got %v", err)
	}
	f, err = ScopeBookings(staff, model.BookingFilter{UserID: "u5"})
	if err != nil || f.UserID != "u5" || f.StaffID != "" {
		t.Fatalf("staff own bookings: %+v %v", f, err)
	}

	admin := auth.Actor{UserID: "a", Role: auth.RoleAdmin}
	f, err = ScopeBookings(admin, model.BookingFilter{UserID: "u2"})
	if err != nil || f.UserID != "u2" {
		t.Fatalf("admin scope: %+v %v", f, err)
	}
}

func TestAuthorizeReview(t *testing.T) {
	r := model.Review{ID: "r1", UserID: "u1"}
	if err := AuthorizeReview(auth.Actor{UserID: "u1", Role: auth.RoleCustomer}, r); err != nil {
		t.Fatalf("author: %v", err)
	}
	if err := AuthorizeReview(auth.Actor{UserID: "a", Role: auth.RoleAdmin}, r); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if err := AuthorizeReview(auth.Actor{UserID: "u2", Role: auth.RoleStaff, StaffID: "s1"}, r); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for another user, got %v", err)
	}
	if err := AuthorizeReview(auth.Actor{}, r); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for anonymous, got %v", err)
	}
}
