package stripeapi

import (
	"context"
	"errors"
	"testing"
)

func TestUpdateParameters_OnlyWhitelistedDirtyFields(t *testing.T) {
	cu := newCustomer(map[string]any{
		"id":     "cus_123",
		"object": "customer",
		"email":  "old@example.com",
		"name":   "Old Name",
	}, nil)

	cu.Set("email", "new@example.com")
	cu.Set("livemode", true) // not in the customer whitelist

	params := cu.UpdateParameters()
	if len(params) != 1 {
		t.Fatalf("expected 1 dirty whitelisted field, got %d: %v", len(params), params)
	}
	if params["email"] != "new@example.com" {
		t.Errorf("expected dirty email, got %v", params["email"])
	}
}

func TestUpdateParameters_EmptyAfterHydration(t *testing.T) {
	sub := newSubscription(map[string]any{
		"id":     "sub_123",
		"object": "subscription",
		"status": "active",
		"customer": map[string]any{
			"id":     "cus_123",
			"object": "customer",
			"email":  "sub@example.com",
		},
		"metadata": map[string]any{"form_id": "42"},
		"items":    []any{map[string]any{"id": "si_1", "quantity": float64(1)}},
	}, nil)

	if params := sub.UpdateParameters(); len(params) != 0 {
		t.Errorf("freshly hydrated object should have an empty diff, got %v", params)
	}
}

func TestDirtyDiff_NumericTypesCompareLoosely(t *testing.T) {
	pi := newPaymentIntent(map[string]any{
		"id":     "pi_123",
		"amount": float64(1500),
	}, nil)

	// JSON decoding produced float64; the caller writes an int back.
	pi.Set("amount", 1500)
	if params := pi.UpdateParameters(); len(params) != 0 {
		t.Errorf("equal numeric values must not be dirty, got %v", params)
	}

	pi.Set("amount", int64(2000))
	params := pi.UpdateParameters()
	if _, ok := params["amount"]; !ok {
		t.Errorf("changed amount should be dirty, got %v", params)
	}
}

func TestDirtyDiff_FieldAbsentFromSnapshotIsDirty(t *testing.T) {
	cu := newCustomer(map[string]any{"id": "cus_123"}, nil)
	cu.Set("description", "added after hydration")

	params := cu.UpdateParameters()
	if params["description"] != "added after hydration" {
		t.Errorf("field absent from the snapshot must be dirty, got %v", params)
	}
}

func TestNestedExpansion_TypedChain(t *testing.T) {
	sub := newSubscription(map[string]any{
		"id": "sub_123",
		"latest_invoice": map[string]any{
			"id":     "in_123",
			"object": "invoice",
			"status": "open",
			"payment_intent": map[string]any{
				"id":     "pi_123",
				"object": "payment_intent",
				"status": "requires_payment_method",
			},
		},
	}, nil)

	inv := sub.LatestInvoice()
	if inv == nil {
		t.Fatal("expected latest_invoice to expand into an Invoice")
	}
	pi := inv.PaymentIntent()
	if pi == nil {
		t.Fatal("expected invoice payment_intent to expand into a PaymentIntent")
	}
	if pi.Status() != "requires_payment_method" {
		t.Errorf("unexpected nested intent status %q", pi.Status())
	}

	// Expansion must not mark anything dirty.
	if params := sub.UpdateParameters(); len(params) != 0 {
		t.Errorf("expansion made the object dirty: %v", params)
	}
}

func TestNestedExpansion_ScalarReferenceLeftAlone(t *testing.T) {
	sub := newSubscription(map[string]any{
		"id":             "sub_123",
		"latest_invoice": "in_123",
	}, nil)

	if inv := sub.LatestInvoice(); inv != nil {
		t.Errorf("unexpanded reference should not produce a typed child, got %v", inv)
	}
	if id := sub.LatestInvoiceID(); id != "in_123" {
		t.Errorf("expected reference ID in_123, got %q", id)
	}
}

func TestImmutableVariants_RejectUpdate(t *testing.T) {
	ctx := context.Background()

	session := newCheckoutSession(map[string]any{"id": "cs_123"}, nil)
	if err := session.Update(ctx, "cs_123", Params{"status": "complete"}); err == nil {
		t.Error("checkout session update should fail")
	} else if !isImmutable(err) {
		t.Errorf("expected ErrImmutable, got %v", err)
	}

	txn := newCustomerBalanceTransaction(map[string]any{"id": "cbtxn_123"}, nil)
	if err := txn.Save(ctx); !isImmutable(err) {
		t.Errorf("balance transaction save: expected ErrImmutable, got %v", err)
	}

	event := newEvent(map[string]any{"id": "evt_123"}, nil)
	if err := event.Save(ctx); !isImmutable(err) {
		t.Errorf("event save: expected ErrImmutable, got %v", err)
	}
}

func TestEventData_PolymorphicObjectExpansion(t *testing.T) {
	event := newEvent(map[string]any{
		"id":   "evt_123",
		"type": "charge.captured",
		"data": map[string]any{
			"object": map[string]any{
				"id":     "ch_123",
				"object": "charge",
				"amount": float64(2500),
				"paid":   true,
			},
		},
	}, nil)

	data := event.Data()
	if data == nil {
		t.Fatal("expected event data to expand")
	}
	ch := data.Charge()
	if ch == nil {
		t.Fatalf("expected data.object to expand into a Charge, got %T", data.RawObject())
	}
	if ch.Amount() != 2500 || !ch.Paid() {
		t.Errorf("unexpected charge fields: amount=%d paid=%v", ch.Amount(), ch.Paid())
	}
}

func TestEventData_UnknownObjectTagFallsBack(t *testing.T) {
	event := newEvent(map[string]any{
		"id":   "evt_456",
		"type": "mandate.updated",
		"data": map[string]any{
			"object": map[string]any{
				"id":     "mandate_123",
				"object": "mandate",
				"status": "active",
			},
		},
	}, nil)

	obj, ok := event.Data().RawObject().(*EventObject)
	if !ok {
		t.Fatalf("expected generic EventObject fallback, got %T", event.Data().RawObject())
	}
	if obj.GetString("status") != "active" {
		t.Errorf("unexpected fallback object status %q", obj.GetString("status"))
	}
}

func TestPaymentIntent_PerEndpointWhitelists(t *testing.T) {
	pi := newPaymentIntent(map[string]any{
		"id":     "pi_123",
		"amount": float64(1000),
	}, nil)

	pi.Set("payment_method", "pm_123")
	pi.Set("amount_to_capture", int64(900))
	pi.Set("amount", int64(1100))

	update := pi.UpdateParameters()
	if _, ok := update["amount_to_capture"]; ok {
		t.Error("amount_to_capture must not pass the update whitelist")
	}
	if _, ok := update["amount"]; !ok {
		t.Error("amount should pass the update whitelist")
	}

	confirm := pi.ConfirmParameters()
	if _, ok := confirm["amount"]; ok {
		t.Error("amount must not pass the confirm whitelist")
	}
	if confirm["payment_method"] != "pm_123" {
		t.Errorf("expected payment_method in confirm params, got %v", confirm)
	}

	capture := pi.CaptureParameters()
	if capture["amount_to_capture"] != int64(900) {
		t.Errorf("expected amount_to_capture in capture params, got %v", capture)
	}
}

func TestReferenceID(t *testing.T) {
	cu := newCustomer(map[string]any{"id": "cus_123"}, nil)

	cases := []struct {
		in   any
		want string
	}{
		{"cus_raw", "cus_raw"},
		{cu, "cus_123"},
		{map[string]any{"id": "cus_map"}, "cus_map"},
		{nil, ""},
		{42, ""},
	}
	for _, tc := range cases {
		if got := referenceID(tc.in); got != tc.want {
			t.Errorf("referenceID(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func isImmutable(err error) bool {
	return errors.Is(err, ErrImmutable)
}
