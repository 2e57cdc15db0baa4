package model

import (
	"time"

	"github.com/QuantumNous/image-studio/dto"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// User 用户模型
type User struct {
	Id        int    `json:"id" gorm:"primaryKey"`
	Username  string `json:"username" gorm:"type:varchar(80);uniqueIndex;not null"`
	Email     string `json:"email" gorm:"type:varchar(120);uniqueIndex;not null"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate GORM 钩子，在创建记录前设置时间戳
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().Unix()
	if u.CreatedAt == 0 {
		u.CreatedAt = now
	}
	if u.UpdatedAt == 0 {
		u.UpdatedAt = now
	}
	return nil
}

// BeforeUpdate GORM 钩子，在更新记录前设置时间戳
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now().Unix()
	return nil
}

// Insert 插入新用户
func (u *User) Insert() error {
	return DB.Create(u).Error
}

// Update 更新用户
func (u *User) Update() error {
	return DB.Save(u).Error
}

// GetUserById 根据ID获取用户
func GetUserById(id int) (*User, error) {
	var user User
	err := DB.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAllUsers 分页获取用户列表
func GetAllUsers(offset int, limit int) ([]*User, int64, error) {
	var users []*User
	var total int64

	if err := DB.Model(&User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := DB.Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// DeleteUserById 删除用户，记录不存在时返回 gorm.ErrRecordNotFound
func DeleteUserById(id int) error {
	result := DB.Where("id = ?", id).Delete(&User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsUsernameTaken 检查用户名是否被其他用户占用，excludeId 为 0 时检查全部用户
func IsUsernameTaken(username string, excludeId int) (bool, error) {
	return isColumnTaken("username", username, excludeId)
}

// IsEmailTaken 检查邮箱是否被其他用户占用
func IsEmailTaken(email string, excludeId int) (bool, error) {
	return isColumnTaken("email", email, excludeId)
}

func isColumnTaken(column string, value string, excludeId int) (bool, error) {
	var count int64
	query := DB.Model(&User{}).Where(column+" = ?", value)
	if excludeId != 0 {
		query = query.Where("id <> ?", excludeId)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ToDTO 转换为响应格式
func (u *User) ToDTO() dto.UserResponse {
	return dto.UserResponse{
		Id:        u.Id,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserListToDTO 批量转换用户列表
func UserListToDTO(users []*User) []dto.UserResponse {
	return lo.Map(users, func(u *User, _ int) dto.UserResponse {
		return u.ToDTO()
	})
}
