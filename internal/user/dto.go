// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type CreateUserRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type UpdateUserRequest struct {
	Name            *string `json:"name,omitempty"            validate:"omitempty,max=100"`
	Email           *string `json:"email,omitempty"           validate:"omitempty,max=255"`
	CurrentPassword *string `json:"currentPassword,omitempty" validate:"omitempty,max=128"`
	NewPassword     *string `json:"newPassword,omitempty"     validate:"omitempty,max=128"`
}

type DeleteUserRequest struct {
	Password string `json:"password" validate:"required,max=128"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"       validate:"required,max=255"`
	NewPassword string `json:"newPassword" validate:"required,max=128"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type UserResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	Favorites []Favorite `json:"favorites"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	favorites := u.Favorites
	if favorites == nil {
		favorites = []Favorite{}
	}

	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Favorites: favorites,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}
