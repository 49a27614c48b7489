package tour

import (
	"errors"
	"fmt"

	"tour-booking/constants"
	"tour-booking/logger"
	"tour-booking/middleware"
	tourModel "tour-booking/models/tour"
	"tour-booking/types"
	tourTypes "tour-booking/types/tour"
	"tour-booking/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// TourController handles tour catalogue HTTP requests
type TourController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

// NewTourController creates a new tour controller
func NewTourController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *TourController {
	return &TourController{DB: db, Logger: asyncLogger}
}

// Store creates a new tour owned by the authenticated guide
func (tc *TourController) Store(c *fiber.Ctx) error {
	var req tourTypes.TourCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	guide, err := utils.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "User not found",
			Data:    nil,
		})
	}

	currency := req.Currency
	if currency == "" {
		currency = "THB"
	}

	tour := tourModel.Tour{
		GuideID:      guide.ID,
		Title:        req.Title,
		City:         req.City,
		Description:  req.Description,
		MeetingPoint: req.MeetingPoint,
		DurationMin:  req.DurationMin,
		PricePerHead: req.PricePerHead,
		Currency:     currency,
		MaxGroupSize: req.MaxGroupSize,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		IsPublished:  false,
	}

	if err := tc.DB.Create(&tour).Error; err != nil {
		logger.Error("Failed to create tour", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to create tour",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Tour created successfully with ID: %d", tour.ID))

	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Tour created successfully",
		Data:    tour,
	})
}

// Index lists published tours, optionally filtered by city
func (tc *TourController) Index(c *fiber.Ctx) error {
	query := tc.DB.Where("is_published = ?", true)
	if city := c.Query("city"); city != "" {
		query = query.Where("city = ?", city)
	}

	var tours []tourModel.Tour
	if err := query.Order("created_at DESC").Find(&tours).Error; err != nil {
		logger.Error("Failed to list tours", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to list tours",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Tours retrieved successfully",
		Data:    tours,
	})
}

// Show returns a single tour with its guide preloaded
func (tc *TourController) Show(c *fiber.Ctx) error {
	tourID, err := c.ParamsInt("id")
	if err != nil || tourID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid tour id",
			Data:    nil,
		})
	}

	var tour tourModel.Tour
	if err := tc.DB.Preload("Guide").First(&tour, tourID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Tour not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load tour", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Tour retrieved successfully",
		Data:    tour,
	})
}

// Update modifies a tour. Only the owning guide or backoffice staff may edit.
func (tc *TourController) Update(c *fiber.Ctx) error {
	tourID, err := c.ParamsInt("id")
	if err != nil || tourID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid tour id",
			Data:    nil,
		})
	}

	var req tourTypes.TourUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	var tour tourModel.Tour
	if err := tc.DB.First(&tour, tourID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Tour not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load tour", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	if !tc.canManage(c, &tour) {
		return c.Status(fiber.StatusForbidden).JSON(types.ApiResponse{
			Status:  fiber.StatusForbidden,
			Message: "You do not manage this tour",
			Data:    nil,
		})
	}

	if req.Title != nil {
		tour.Title = *req.Title
	}
	if req.City != nil {
		tour.City = *req.City
	}
	if req.Description != nil {
		tour.Description = *req.Description
	}
	if req.MeetingPoint != nil {
		tour.MeetingPoint = *req.MeetingPoint
	}
	if req.DurationMin != nil {
		tour.DurationMin = *req.DurationMin
	}
	if req.PricePerHead != nil {
		tour.PricePerHead = *req.PricePerHead
	}
	if req.MaxGroupSize != nil {
		tour.MaxGroupSize = *req.MaxGroupSize
	}
	if req.IsPublished != nil {
		tour.IsPublished = *req.IsPublished
	}

	if err := tc.DB.Save(&tour).Error; err != nil {
		logger.Error("Failed to update tour", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to update tour",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Tour %d updated", tour.ID))

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Tour updated successfully",
		Data:    tour,
	})
}

// MyTours lists the authenticated guide's tours regardless of publish state
func (tc *TourController) MyTours(c *fiber.Ctx) error {
	guide, err := utils.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "User not found",
			Data:    nil,
		})
	}

	var tours []tourModel.Tour
	if err := tc.DB.Where("guide_id = ?", guide.ID).Order("created_at DESC").Find(&tours).Error; err != nil {
		logger.Error("Failed to list guide tours", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to list tours",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Tours retrieved successfully",
		Data:    tours,
	})
}

func (tc *TourController) canManage(c *fiber.Ctx, tour *tourModel.Tour) bool {
	if middleware.CheckPermissionInController(c, constants.PermSuperAdminFull) ||
		middleware.CheckPermissionInController(c, constants.PermSupportFull) {
		return true
	}
	u, err := utils.CurrentUser(c)
	if err != nil {
		return false
	}
	return tour.GuideID == u.ID
}
