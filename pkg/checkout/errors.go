package checkout

import "errors"

var (
	// ErrDraftNotFound is returned when a resume targets a draft that no
	// longer exists, including the second of two resume attempts for the
	// same token. The caller must treat this as already-processed and
	// must not finalize anything.
	ErrDraftNotFound = errors.New("checkout: draft not found")

	// ErrEntryNotFound is returned by EntryStore lookups that match no
	// entry.
	ErrEntryNotFound = errors.New("checkout: entry not found")

	// ErrPaymentDeclined is returned when the refetched intent is in
	// requires_payment_method: the attempted method was declined at an
	// intermediate step.
	ErrPaymentDeclined = errors.New("checkout: payment method declined")

	// ErrInvalidRedirectState is returned when resume validation fails
	// for any other reason (secret mismatch, unacceptable status,
	// unrecognized object ID). The entry must not be finalized.
	ErrInvalidRedirectState = errors.New("checkout: invalid redirect state")

	// ErrCouponInvalid is returned when a submitted coupon code does not
	// resolve to a currently valid coupon.
	ErrCouponInvalid = errors.New("checkout: coupon is not valid")

	// ErrTotalMismatch is returned when the amount actually charged does
	// not match the expected discounted total.
	ErrTotalMismatch = errors.New("checkout: charged amount does not match expected total")
)
