package dto

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=80"`
	Email    string `json:"email" binding:"required,email,max=120"`
}

// UpdateUserRequest 更新用户请求，未提供的字段保持不变
type UpdateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,min=1,max=80"`
	Email    *string `json:"email" binding:"omitempty,email,max=120"`
}

// ListUsersRequest 列表查询请求
type ListUsersRequest struct {
	Page     int `form:"p"`
	PageSize int `form:"page_size"`
}

// UserResponse 用户响应
type UserResponse struct {
	Id        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// ListUsersResponse 列表响应
type ListUsersResponse struct {
	Data     []UserResponse `json:"data"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}
