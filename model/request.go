// file: model/request.go

package model

import "time"

// RegisterRequest defines the payload for creating a new user.
// Role is not accepted here; public registration always creates a regular user.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateAdminRequest is the admin-only variant of RegisterRequest.
type CreateAdminRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest defines the payload for user authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the (possibly expired) access token together with
// the refresh token it was issued with.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TaskCreateRequest struct {
	Title          string    `json:"title" validate:"required,max=100"`
	Description    string    `json:"description" validate:"max=500"`
	DueDate        time.Time `json:"due_date" validate:"required"`
	Priority       string    `json:"priority" validate:"omitempty,oneof=Low Medium High Critical low medium high critical"`
	AssignedUserID int       `json:"assigned_user_id" validate:"required,gt=0"`
}

// TaskUpdateRequest is a partial update; nil fields are left untouched.
type TaskUpdateRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=1,max=100"`
	Description     *string    `json:"description" validate:"omitempty,max=500"`
	DueDate         *time.Time `json:"due_date"`
	Priority        *string    `json:"priority"`
	Status          *string    `json:"status"`
	RescheduledDate *time.Time `json:"rescheduled_date"`
}
