package constants

// Platform permissions
const (
	// Admin permissions
	PermSuperAdminFull = "tour-booking.super-admin.full-permit"
	PermSupportFull    = "tour-booking.support.full-permit"

	// Guide (tour operator) permissions
	PermGuideFull = "tour-booking.guide.full-permit"

	// Traveler permissions
	PermTravelerFull = "tour-booking.traveler.full-permit"

	// Special permissions
	PermAny = "any"
)

// Permission groups for convenience
var (
	BackofficePermissions = []string{
		PermSuperAdminFull,
		PermSupportFull,
	}

	GuideOrAdminPermissions = []string{
		PermGuideFull,
		PermSuperAdminFull,
	}
)
