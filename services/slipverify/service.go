package slipverify

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tour-booking/logger"
	bookingModel "tour-booking/models/booking"
	slipModel "tour-booking/models/slip"
	bookingService "tour-booking/services/booking"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/genai"
	"gorm.io/gorm"
)

// Service verifies uploaded bank-transfer slips for bookings paid outside
// the card flow. A Gemini vision call extracts the amount and reference; a
// matching amount confirms the booking through the ledger.
type Service struct {
	DB       *gorm.DB
	Bookings *bookingService.Service
	APIKey   string
}

// NewService creates a new slip verification service
func NewService(db *gorm.DB, bookings *bookingService.Service, apiKey string) *Service {
	return &Service{DB: db, Bookings: bookings, APIKey: apiKey}
}

// GenerateRequestID generates a 24 character unique request ID
func (s *Service) GenerateRequestID() string {
	// Generate 12 random bytes (which will become 24 hex characters)
	bytes := make([]byte, 12)
	rand.Read(bytes)

	requestID := hex.EncodeToString(bytes)

	// Use last 6 characters of timestamp + 18 characters of random hex
	timestamp := time.Now().Unix()
	return fmt.Sprintf("%06x%s", timestamp&0xffffff, requestID[:18])
}

// CreateInitialRequest creates an initial request record in the database
func (s *Service) CreateInitialRequest(c *fiber.Ctx, requestID string, bookingID uint, originalFileName string, fileBytes []byte, mimeType string) (*slipModel.SlipVerificationRequest, error) {
	ipAddress := c.IP()
	if ipAddress == "" {
		ipAddress = "unknown"
	}
	userAgent := c.Get("User-Agent")

	hash := sha256.Sum256(fileBytes)

	request := &slipModel.SlipVerificationRequest{
		RequestID:        requestID,
		BookingID:        bookingID,
		OriginalFileName: originalFileName,
		FileHash:         hex.EncodeToString(hash[:]),
		FileSize:         int64(len(fileBytes)),
		MimeType:         mimeType,
		Status:           "processing",
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
	}

	if err := s.DB.Create(request).Error; err != nil {
		return nil, fmt.Errorf("failed to create initial request: %w", err)
	}

	return request, nil
}

// VerifyAndConfirm extracts slip data, checks the amount against the booking
// and confirms it through the ledger when they match. The verification
// request row records the outcome either way.
func (s *Service) VerifyAndConfirm(ctx context.Context, request *slipModel.SlipVerificationRequest, b *bookingModel.Booking, imageBytes []byte, mimeType string) (*slipModel.SlipData, error) {
	startTime := time.Now()

	data, err := s.extractSlipData(ctx, imageBytes, mimeType)
	if err != nil {
		_ = request.MarkAsFailed(s.DB, err.Error(), time.Since(startTime).Milliseconds())
		return nil, err
	}

	amountMatched := amountsMatch(data.Amount, b.TotalAmount) &&
		(data.Currency == "" || strings.EqualFold(data.Currency, b.Currency))

	confirmed := false
	if amountMatched {
		if _, err := s.Bookings.MarkConfirmed(b.ID, nil, "slip-verification"); err != nil {
			_ = request.MarkAsFailed(s.DB, err.Error(), time.Since(startTime).Milliseconds())
			return nil, err
		}
		confirmed = true
	} else {
		logger.Warning(fmt.Sprintf("Slip amount %.2f %s does not match booking %s total %.2f %s",
			data.Amount, data.Currency, b.BookingReference, b.TotalAmount, b.Currency))
	}

	if err := request.MarkAsSuccess(s.DB, data, time.Since(startTime).Milliseconds(), amountMatched, confirmed); err != nil {
		return nil, fmt.Errorf("failed to update request record: %w", err)
	}

	return data, nil
}

// extractSlipData runs the vision call against the uploaded image.
func (s *Service) extractSlipData(ctx context.Context, imageBytes []byte, mimeType string) (*slipModel.SlipData, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("slip verification API key is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	prompt := `Analyze this bank transfer slip image and extract the following information. Return ONLY valid JSON.

			Extract these fields from the image. If a field is missing or unclear, use an empty string ("") for strings and 0 for the amount.

			Required JSON format:
			{
			"amount": number,          // Transferred amount as a decimal number
			"currency": string,        // 3-letter currency code if printed, e.g. "THB"
			"sender_name": string,     // Account holder who sent the transfer
			"transfer_ref": string,    // Transaction/reference number
			"transferred_at": string   // Date and time of the transfer as printed
			}`

	content := &genai.Content{
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     imageBytes,
			}},
		},
	}

	result, err := client.Models.GenerateContent(
		ctx,
		"gemini-2.5-flash-lite",
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(0.1)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with OCR: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no content generated by OCR")
	}

	responseText := result.Candidates[0].Content.Parts[0].Text
	if responseText == "" {
		return nil, fmt.Errorf("empty response from OCR")
	}

	return parseSlipResponse(responseText)
}

// parseSlipResponse tolerates the model wrapping its JSON in a code fence.
func parseSlipResponse(responseText string) (*slipModel.SlipData, error) {
	cleaned := strings.TrimSpace(responseText)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var data slipModel.SlipData
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("failed to parse OCR response: %w", err)
	}
	return &data, nil
}

// amountsMatch compares money values with a one-subunit tolerance.
func amountsMatch(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 0.01
}
