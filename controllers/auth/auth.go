package auth

import (
	"errors"
	"fmt"
	"os"

	"tour-booking/constants"
	"tour-booking/logger"
	"tour-booking/middleware"
	userModel "tour-booking/models/user"
	"tour-booking/types"
	authTypes "tour-booking/types/auth"
	"tour-booking/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

func NewAuthController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *AuthController {
	return &AuthController{DB: db, Logger: asyncLogger}
}

// Helper function to set secure cookies based on environment
func (h *AuthController) setSecureCookie(c *fiber.Ctx, name, value string, maxAge int) {
	isProduction := os.Getenv("APP_ENV") == "production"

	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		HTTPOnly: false,
		Secure:   isProduction, // Only secure in production (HTTPS)
		SameSite: "Strict",
		MaxAge:   maxAge,
		Path:     "/",
	})
}

// Register creates a local account. The role decides the starting permission:
// guides get the guide grant, everyone else starts as a traveler.
func (h *AuthController) Register(c *fiber.Ctx) error {
	var req authTypes.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Error parsing request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Message: fmt.Sprintf("Error parsing request body: %v", err),
			Status:  fiber.StatusBadRequest,
			Data:    nil,
		})
	}

	if err := req.Validate(); err != nil {
		logger.Error("Register validation failed", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
			Data:    nil,
		})
	}

	if req.Phone != "" && !utils.ValidatePhoneNumber(req.Phone) {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Message: "Invalid phone number format",
			Status:  fiber.StatusBadRequest,
			Data:    nil,
		})
	}

	var existing userModel.User
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(types.ApiResponse{
			Message: "An account with this email already exists",
			Status:  fiber.StatusConflict,
			Data:    nil,
		})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Database error while checking existing user", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
			Data:    nil,
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Failed to hash password", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Failed to create account",
			Status:  fiber.StatusInternalServerError,
			Data:    nil,
		})
	}

	permissions := userModel.StringSlice{constants.PermTravelerFull}
	if req.Role == "guide" {
		permissions = userModel.StringSlice{constants.PermGuideFull}
	}

	newUser := userModel.User{
		Uuid:         uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Permissions:  permissions,
	}
	if req.Phone != "" {
		newUser.Phone = &req.Phone
	}

	if err := h.DB.Create(&newUser).Error; err != nil {
		logger.Error("Failed to create user", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Failed to create account",
			Status:  fiber.StatusInternalServerError,
			Data:    nil,
		})
	}

	token, err := middleware.IssueToken(&newUser)
	if err != nil {
		logger.Error("Failed to issue token", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Account created but failed to issue token",
			Status:  fiber.StatusInternalServerError,
			Data:    nil,
		})
	}

	h.setSecureCookie(c, "access", token, 60*60)

	logger.Success(fmt.Sprintf("User registered successfully: %s", newUser.Email))

	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Message: "Account created successfully",
		Status:  fiber.StatusCreated,
		Token:   token,
		Data: map[string]interface{}{
			"uuid":        newUser.Uuid,
			"name":        newUser.Name,
			"email":       newUser.Email,
			"permissions": newUser.Permissions,
		},
	})
}

// Login verifies credentials and returns a fresh access token.
func (h *AuthController) Login(c *fiber.Ctx) error {
	var req authTypes.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Error parsing request body", err)
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

	var u userModel.User
	if err := h.DB.Where("email = ?", req.Email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
				Message: "Invalid email or password",
				Status:  fiber.StatusUnauthorized,
				Data:    nil,
			})
		}
		logger.Error("Database error during login", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
			Data:    nil,
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "Invalid email or password",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	token, err := middleware.IssueToken(&u)
	if err != nil {
		logger.Error("Failed to issue token", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Failed to issue token",
			Status:  fiber.StatusInternalServerError,
			Data:    nil,
		})
	}

	h.setSecureCookie(c, "access", token, 60*60)

	logger.Success(fmt.Sprintf("User logged in: %s", u.Email))

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Login successful",
		Status:  fiber.StatusOK,
		Token:   token,
		Data: map[string]interface{}{
			"uuid":        u.Uuid,
			"name":        u.Name,
			"email":       u.Email,
			"permissions": u.Permissions,
		},
	})
}

// Logout clears the access cookie.
func (h *AuthController) Logout(c *fiber.Ctx) error {
	h.setSecureCookie(c, "access", "", -1)
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Logged out",
		Status:  fiber.StatusOK,
		Data:    nil,
	})
}
