package view

// Notices are fixed messages addressed by key in the ?notice= query
// parameter, so nothing the visitor typed is ever echoed back.
var notices = map[string]struct{ msg, kind string }{
	"registered":        {"Registration successful! You are now logged in.", "success"},
	"logged_out":        {"You have been logged out.", "info"},
	"session_expired":   {"Your session has expired. Please log in again.", "warning"},
	"booking_requested": {"Request sent! Waiting for owner approval.", "success"},
	"booking_accepted":  {"Booking accepted.", "success"},
	"booking_declined":  {"Booking declined.", "info"},
	"invalid_state":     {"This booking can no longer be changed.", "warning"},
	"payment_success":   {"Payment Successful! Gear is yours.", "success"},
	"not_payable":       {"Only approved bookings can be paid.", "warning"},
	"listing_created":   {"Item listed successfully!", "success"},
	"listing_deleted":   {"Listing deleted.", "info"},
	"confirm_delete":    {"Confirm the deletion to remove a listing.", "warning"},
	"price_updated":     {"Price updated!", "success"},
	"price_invalid":     {"Enter a price greater than zero.", "danger"},
	"review_added":      {"Thanks for your review!", "success"},
	"own_item":          {"You cannot book or review your own item.", "warning"},
	"forbidden":         {"You are not allowed to do that.", "danger"},
	"not_found":         {"That item or booking no longer exists.", "warning"},
	"action_failed":     {"Action failed. Please try again.", "danger"},
	"search_failed":     {"Search is unavailable right now.", "warning"},
	"load_failed":       {"We could not load this list right now.", "warning"},
}

// Notice resolves a notice key. Unknown keys resolve to nothing.
func Notice(key string) (msg, kind string) {
	n, ok := notices[key]
	if !ok {
		return "", ""
	}
	return n.msg, n.kind
}

// HasNotice reports whether key is a known notice.
func HasNotice(key string) bool {
	_, ok := notices[key]
	return ok
}
