package auth

import (
	"fmt"
	"strings"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=traveler guide"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type PayoutAccountRequest struct {
	RecipientID       string `json:"recipient_id" validate:"required,min=1,max=255"`
	AccountNumber     string `json:"account_number" validate:"required,min=4,max=64"`
	AccountholderName string `json:"accountholder_name" validate:"required,min=1,max=255"`
}

func (r RegisterRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if r.Role != "" && r.Role != "traveler" && r.Role != "guide" {
		return fmt.Errorf("role must be either 'traveler' or 'guide'")
	}
	return nil
}

func (r LoginRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

func (r PayoutAccountRequest) Validate() error {
	if r.RecipientID == "" {
		return fmt.Errorf("recipientID is required")
	}
	if r.AccountNumber == "" {
		return fmt.Errorf("accountNumber is required")
	}
	if r.AccountholderName == "" {
		return fmt.Errorf("accountholderName is required")
	}
	return nil
}
