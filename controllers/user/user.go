package user

import (
	"fmt"

	"tour-booking/logger"
	"tour-booking/types"
	authTypes "tour-booking/types/auth"
	"tour-booking/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserController struct {
	DB            *gorm.DB
	Logger        *logger.AsyncLogger
	EncryptionKey string
}

func NewUserController(db *gorm.DB, asyncLogger *logger.AsyncLogger, encryptionKey string) *UserController {
	return &UserController{DB: db, Logger: asyncLogger, EncryptionKey: encryptionKey}
}

func (uc *UserController) GetUserInfo(c *fiber.Ctx) error {
	u, err := utils.CurrentUser(c)
	if err != nil {
		logger.Error("Failed to resolve current user", err)
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "User not found",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	// The stored account number is encrypted; show only the masked tail.
	var payoutAccountMasked *string
	if u.PayoutAccountEncrypted != nil && *u.PayoutAccountEncrypted != "" {
		account, err := utils.DecryptData(uc.EncryptionKey, *u.PayoutAccountEncrypted)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to decrypt payout account for user %s", u.Uuid), err)
		} else {
			masked := utils.MaskAccountNumber(account)
			payoutAccountMasked = &masked
		}
	}

	// Construct user info response
	userInfo := map[string]interface{}{
		"uuid":                      u.Uuid,
		"name":                      u.Name,
		"email":                     u.Email,
		"phone":                     u.Phone,
		"permissions":               u.Permissions,
		"payout_recipient_id":       u.PayoutRecipientID,
		"payout_accountholder_name": u.PayoutAccountholderName,
		"payout_account_masked":     payoutAccountMasked,
		"created_at":                u.CreatedAt.Format("2006-01-02 15:04:05"),
		"updated_at":                u.UpdatedAt.Format("2006-01-02 15:04:05"),
	}

	logger.Success("User fetched successfully")
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "User fetched successfully",
		Status:  fiber.StatusOK,
		Data:    userInfo,
	})
}

// SetPayoutAccount stores a guide's payout destination. The account number is
// encrypted at rest; only the recipient id and holder name read back in clear.
func (uc *UserController) SetPayoutAccount(c *fiber.Ctx) error {
	var req authTypes.PayoutAccountRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
			Data:    nil,
		})
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
			Data:    nil,
		})
	}

	u, err := utils.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "User not found",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	encrypted, err := utils.EncryptData(uc.EncryptionKey, req.AccountNumber)
	if err != nil {
		logger.Error("Failed to encrypt payout account", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Failed to store payout account",
			Status:  fiber.StatusInternalServerError,
			Data:    nil,
		})
	}

	u.PayoutRecipientID = &req.RecipientID
	u.PayoutAccountEncrypted = &encrypted
	u.PayoutAccountholderName = &req.AccountholderName

	if err := uc.DB.Save(u).Error; err != nil {
		logger.Error("Failed to save payout account", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Failed to store payout account",
			Status:  fiber.StatusInternalServerError,
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Payout account updated for user %s", u.Uuid))

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Payout account updated successfully",
		Status:  fiber.StatusOK,
		Data: map[string]interface{}{
			"payout_recipient_id":       u.PayoutRecipientID,
			"payout_accountholder_name": u.PayoutAccountholderName,
		},
	})
}
