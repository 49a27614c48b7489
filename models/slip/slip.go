package slip

import (
	"time"

	"gorm.io/gorm"
)

// SlipVerificationRequest represents one bank-transfer slip verification run
type SlipVerificationRequest struct {
	ID               uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	RequestID        string `json:"request_id" gorm:"type:varchar(24);uniqueIndex;not null"` // 24 character unique ID
	BookingID        uint   `json:"booking_id" gorm:"not null;index"`
	OriginalFileName string `json:"original_file_name" gorm:"type:varchar(255);not null"`
	FileHash         string `json:"file_hash" gorm:"type:varchar(128);index"` // SHA256 hash
	FileSize         int64  `json:"file_size" gorm:"not null"`
	MimeType         string `json:"mime_type" gorm:"type:varchar(100);not null"`
	Status           string `json:"status" gorm:"type:varchar(50);not null;default:'processing';index"` // processing, success, failed
	ProcessingTimeMs int64  `json:"processing_time_ms" gorm:"default:0"`

	// Extracted data fields
	Amount           float64 `json:"amount" gorm:"type:decimal(10,2);default:0"`
	Currency         string  `json:"currency" gorm:"type:varchar(3);default:''"`
	SenderName       string  `json:"sender_name" gorm:"type:varchar(255);default:''"`
	TransferRef      string  `json:"transfer_ref" gorm:"type:varchar(100);index;default:''"`
	TransferredAt    string  `json:"transferred_at" gorm:"type:varchar(50);default:''"`
	AmountMatched    bool    `json:"amount_matched" gorm:"default:false"`
	BookingConfirmed bool    `json:"booking_confirmed" gorm:"default:false"`

	// Error information
	ErrorMessage string `json:"error_message" gorm:"type:text;default:''"`

	// Metadata
	IPAddress string `json:"ip_address" gorm:"type:varchar(45);index;default:''"` // Support IPv6
	UserAgent string `json:"user_agent" gorm:"type:text;default:''"`

	// Timestamps
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for SlipVerificationRequest
func (SlipVerificationRequest) TableName() string {
	return "slip_verification_requests"
}

// BeforeCreate hook to set default values
func (svr *SlipVerificationRequest) BeforeCreate(tx *gorm.DB) error {
	if svr.Status == "" {
		svr.Status = "processing"
	}
	return nil
}

// IsProcessing checks if the request is still processing
func (svr *SlipVerificationRequest) IsProcessing() bool {
	return svr.Status == "processing"
}

// MarkAsSuccess marks the request as successful and saves extracted data
func (svr *SlipVerificationRequest) MarkAsSuccess(db *gorm.DB, data *SlipData, processingTime int64, amountMatched, confirmed bool) error {
	svr.Status = "success"
	svr.Amount = data.Amount
	svr.Currency = data.Currency
	svr.SenderName = data.SenderName
	svr.TransferRef = data.TransferRef
	svr.TransferredAt = data.TransferredAt
	svr.ProcessingTimeMs = processingTime
	svr.AmountMatched = amountMatched
	svr.BookingConfirmed = confirmed

	return db.Save(svr).Error
}

// MarkAsFailed marks the request as failed with error message
func (svr *SlipVerificationRequest) MarkAsFailed(db *gorm.DB, errorMsg string, processingTime int64) error {
	svr.Status = "failed"
	svr.ErrorMessage = errorMsg
	svr.ProcessingTimeMs = processingTime

	return db.Save(svr).Error
}

// SlipData represents the fields extracted from a transfer slip image
type SlipData struct {
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	SenderName    string  `json:"sender_name"`
	TransferRef   string  `json:"transfer_ref"`
	TransferredAt string  `json:"transferred_at"`
}
