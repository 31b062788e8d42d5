package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents any authenticated account on the platform. Channel
// partners own leads and wallets; admins manage withdrawals and settings.
type User struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	FullName  string             `json:"fullName" bson:"fullName"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"password,omitempty" bson:"password"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	UserType  string             `json:"userType" bson:"userType"` // "channel_partner", "admin", "super_admin"
	IsActive  bool               `json:"isActive" bson:"isActive"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Response is the standard API response envelope
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token and the user profile
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
