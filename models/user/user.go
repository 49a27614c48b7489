package user

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// User is a platform account: traveler, guide or admin. Guides additionally
// carry payout fields used when transfers are created for confirmed bookings.
type User struct {
	ID            uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Uuid          string  `gorm:"type:varchar(255);not null;unique" json:"uuid"`
	Name          string  `gorm:"type:varchar(255);not null" json:"name"`
	Email         string  `gorm:"type:varchar(255);not null;unique" json:"email"`
	EmailVerified bool    `gorm:"type:bool;default:false" json:"email_verified"`
	Phone         *string `gorm:"type:varchar(20)" json:"phone,omitempty"`
	PasswordHash  string  `gorm:"type:varchar(255);not null" json:"-"`

	// Payout details for guides. The account number is stored AES-GCM
	// encrypted; PayoutRecipientID is the payment processor's recipient id.
	PayoutRecipientID       *string `gorm:"type:varchar(255)" json:"payout_recipient_id,omitempty"`
	PayoutAccountEncrypted  *string `gorm:"type:text" json:"-"`
	PayoutAccountholderName *string `gorm:"type:varchar(255)" json:"payout_accountholder_name,omitempty"`

	Permissions StringSlice `gorm:"type:json" json:"permissions"` // JSON column holding permission strings

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// StringSlice is a custom type to handle JSON serialization for PostgreSQL
type StringSlice []string

// Scan implements the Scanner interface for database deserialization
func (ss *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*ss = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, ss)
	case string:
		return json.Unmarshal([]byte(v), ss)
	default:
		return errors.New("unsupported type for StringSlice")
	}
}

// Value implements the driver Valuer interface for database serialization
func (ss StringSlice) Value() (driver.Value, error) {
	if ss == nil {
		return nil, nil
	}
	return json.Marshal(ss)
}

// HasPermission reports whether the user carries the given permission string.
func (u *User) HasPermission(perm string) bool {
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
