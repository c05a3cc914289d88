package dto

// UserCreateRequest registers or refreshes a user profile after signup.
type UserCreateRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}
