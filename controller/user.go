package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/QuantumNous/image-studio/common"
	"github.com/QuantumNous/image-studio/dto"
	"github.com/QuantumNous/image-studio/model"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxPage         = 1_000_000
)

// ListUsers 分页获取用户列表
func ListUsers(c *gin.Context) {
	var req dto.ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		common.ApiErrorMsg(c, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	// 设置默认分页参数
	req.Page = lo.Clamp(req.Page, 1, maxPage)
	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	req.PageSize = lo.Min([]int{req.PageSize, maxPageSize})

	users, total, err := model.GetAllUsers((req.Page-1)*req.PageSize, req.PageSize)
	if err != nil {
		common.ApiError(c, fmt.Errorf("list users failed: %w", err))
		return
	}

	common.ApiSuccess(c, dto.ListUsersResponse{
		Data:     model.UserListToDTO(users),
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
}

// GetUser 获取单个用户
func GetUser(c *gin.Context) {
	id, ok := parseUserId(c)
	if !ok {
		return
	}

	user, err := model.GetUserById(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.ApiErrorMsg(c, http.StatusNotFound, "user not found")
			return
		}
		common.ApiError(c, fmt.Errorf("get user failed: %w", err))
		return
	}
	common.ApiSuccess(c, user.ToDTO())
}

// CreateUser 创建用户
func CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ApiErrorMsg(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" {
		common.ApiErrorMsg(c, http.StatusBadRequest, "username is required")
		return
	}

	if msg, err := checkUserConflicts(req.Username, req.Email, 0); err != nil {
		common.ApiError(c, err)
		return
	} else if msg != "" {
		common.ApiErrorMsg(c, http.StatusConflict, msg)
		return
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
	}
	if err := user.Insert(); err != nil {
		writeUserSaveError(c, user, fmt.Errorf("create user failed: %w", err))
		return
	}
	common.ApiSuccessWithStatus(c, http.StatusCreated, user.ToDTO())
}

// UpdateUser 部分更新用户，只修改请求中出现的字段
func UpdateUser(c *gin.Context) {
	id, ok := parseUserId(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ApiErrorMsg(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}

	user, err := model.GetUserById(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.ApiErrorMsg(c, http.StatusNotFound, "user not found")
			return
		}
		common.ApiError(c, fmt.Errorf("get user failed: %w", err))
		return
	}

	if err := copier.CopyWithOption(user, &req, copier.Option{IgnoreEmpty: true}); err != nil {
		common.ApiError(c, fmt.Errorf("apply user update failed: %w", err))
		return
	}
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(user.Email)
	if user.Username == "" {
		common.ApiErrorMsg(c, http.StatusBadRequest, "username is required")
		return
	}

	if msg, err := checkUserConflicts(user.Username, user.Email, user.Id); err != nil {
		common.ApiError(c, err)
		return
	} else if msg != "" {
		common.ApiErrorMsg(c, http.StatusConflict, msg)
		return
	}

	if err := user.Update(); err != nil {
		writeUserSaveError(c, user, fmt.Errorf("update user failed: %w", err))
		return
	}
	common.ApiSuccess(c, user.ToDTO())
}

// DeleteUser 删除用户
func DeleteUser(c *gin.Context) {
	id, ok := parseUserId(c)
	if !ok {
		return
	}

	if err := model.DeleteUserById(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.ApiErrorMsg(c, http.StatusNotFound, "user not found")
			return
		}
		common.ApiError(c, fmt.Errorf("delete user failed: %w", err))
		return
	}
	c.Status(http.StatusNoContent)
}

func parseUserId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		common.ApiErrorMsg(c, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}

func checkUserConflicts(username string, email string, excludeId int) (string, error) {
	taken, err := model.IsUsernameTaken(username, excludeId)
	if err != nil {
		return "", fmt.Errorf("check username failed: %w", err)
	}
	if taken {
		return "username already exists", nil
	}
	taken, err = model.IsEmailTaken(email, excludeId)
	if err != nil {
		return "", fmt.Errorf("check email failed: %w", err)
	}
	if taken {
		return "email already exists", nil
	}
	return "", nil
}

// writeUserSaveError 并发写入时唯一索引仍可能冲突，此时返回 409 而不是 500
func writeUserSaveError(c *gin.Context, user *model.User, err error) {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		common.ApiError(c, err)
		return
	}
	msg, checkErr := checkUserConflicts(user.Username, user.Email, user.Id)
	if checkErr != nil || msg == "" {
		msg = "username or email already exists"
	}
	common.ApiErrorMsg(c, http.StatusConflict, msg)
}

func bindErrorMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "request body must be valid JSON"
	}
	problems := lo.Map(validationErrors, func(fe validator.FieldError, _ int) string {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return field + " is required"
		case "email":
			return field + " must be a valid email address"
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "min":
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	})
	return strings.Join(problems, "; ")
}
