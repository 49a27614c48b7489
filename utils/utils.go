package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"tour-booking/database"
	"tour-booking/models/user"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// referenceAlphabet omits ambiguous characters (0/O, 1/I) so references
// survive being read over the phone.
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBookingReference produces the human-facing booking code, e.g. "TB-7GK2MQ4F".
func GenerateBookingReference() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate booking reference: %w", err)
	}
	code := make([]byte, 8)
	for i, b := range buf {
		code[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return "TB-" + string(code), nil
}

// GenerateTicketCode produces the opaque ticket QR payload assigned once at
// confirmation.
func GenerateTicketCode(bookingID uint) string {
	return fmt.Sprintf("TKT-%d-%s", bookingID, uuid.NewString())
}

// ExtractClaims returns the JWT claims the auth middleware attached to the context.
func ExtractClaims(c *fiber.Ctx) (jwt.MapClaims, error) {
	claims, ok := c.Locals("user").(jwt.MapClaims)
	if !ok {
		return nil, errors.New("no user claims in context")
	}
	return claims, nil
}

// ExtractUserUUID returns the authenticated user's uuid claim.
func ExtractUserUUID(c *fiber.Ctx) (string, error) {
	claims, err := ExtractClaims(c)
	if err != nil {
		return "", err
	}
	userUUID, ok := claims["uuid"].(string)
	if !ok || userUUID == "" {
		return "", errors.New("uuid not found in token")
	}
	return userUUID, nil
}

// GetUserByUUID retrieves a user by their UUID from the database
func GetUserByUUID(uid string) (*user.User, error) {
	if uid == "" {
		return nil, errors.New("UUID cannot be empty")
	}

	var userModel user.User
	if err := database.DB.Where("uuid = ?", uid).First(&userModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &userModel, nil
}

// CurrentUser resolves the authenticated user from the request context.
func CurrentUser(c *fiber.Ctx) (*user.User, error) {
	userUUID, err := ExtractUserUUID(c)
	if err != nil {
		return nil, err
	}
	return GetUserByUUID(userUUID)
}

// ValidatePhoneNumber accepts international numbers in loose E.164 form:
// optional +, 8-15 digits.
func ValidatePhoneNumber(phone string) bool {
	phone = strings.TrimSpace(phone)
	pattern := `^\+?[0-9]{8,15}$`
	re := regexp.MustCompile(pattern)
	return re.MatchString(phone)
}

// FormatSlotWindow renders a slot window for notification bodies.
func FormatSlotWindow(start, end time.Time) string {
	return fmt.Sprintf("%s to %s", start.Format("2006-01-02 15:04"), end.Format("15:04"))
}
