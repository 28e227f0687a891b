package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/social-agent/core/internal/middleware"
	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/pkg/jwt"
	"github.com/social-agent/core/internal/pkg/pagination"
	"github.com/social-agent/core/internal/pkg/response"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 7 * 24 * time.Hour

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactive           = errors.New("account is deactivated")
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateUserDTO struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

type UpdateUserDTO struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
}

type LoginResult struct {
	Token string           `json:"token"`
	User  models.UserModel `json:"user"`
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Login verifies credentials and issues a signed token. The last login
// time is recorded best-effort.
func (s *Service) Login(dto *LoginDTO) (*LoginResult, error) {
	var user models.UserModel
	err := s.db.Where("username = ? OR email = ?", dto.Username, dto.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(dto.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrInactive
	}

	token, err := jwt.Sign(user.ID, user.Role, tokenTTL)
	if err != nil {
		return nil, err
	}

	loginTime := s.now()
	s.db.Model(&user).Update("last_login_time", loginTime)
	user.LastLoginTime = &loginTime

	return &LoginResult{Token: token, User: user}, nil
}

func (s *Service) List(q pagination.Query) ([]models.UserModel, response.Pagination, error) {
	tx := s.db.Model(&models.UserModel{}).Order("username ASC")
	var users []models.UserModel
	pag, err := pagination.Paginate(tx, q, &users)
	return users, pag, err
}

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var user models.UserModel
	err := s.db.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &user, err
}

func (s *Service) Create(dto *CreateUserDTO) (*models.UserModel, error) {
	role := dto.Role
	if role == "" {
		role = models.RoleDesigner
	}
	if !validRole(role) {
		return nil, fmt.Errorf("unrecognized role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.UserModel{
		Username: dto.Username,
		Email:    dto.Email,
		Password: string(hash),
		Role:     role,
		Active:   true,
	}
	return &user, s.db.Create(&user).Error
}

func (s *Service) Update(id string, dto *UpdateUserDTO) (*models.UserModel, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Email != nil {
		updates["email"] = *dto.Email
	}
	if dto.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*dto.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		updates["password"] = string(hash)
	}
	if dto.Role != nil {
		if !validRole(*dto.Role) {
			return nil, fmt.Errorf("unrecognized role %q", *dto.Role)
		}
		updates["role"] = *dto.Role
	}
	if dto.Active != nil {
		updates["active"] = *dto.Active
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete deactivates a user instead of removing the row, so history
// and assignment references stay resolvable.
func (s *Service) Delete(id string) error {
	user, err := s.GetByID(id)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("active", false).Error
}

func validRole(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleDesigner,
		models.RoleMotionEditor, models.RoleCopywriter, models.RoleScheduler:
		return true
	}
	return false
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.POST("/auth/login", h.login)

	g := rg.Group("/users", authMW)
	g.GET("/me", h.me)
	g.GET("", h.list)
	g.GET("/:id", h.get)

	adminMW := middleware.RequireRoles(models.RoleAdmin)
	g.POST("", adminMW, h.create)
	g.PUT("/:id", adminMW, h.update)
	g.DELETE("/:id", adminMW, h.delete)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "username and password are required")
		return
	}
	result, err := h.svc.Login(&dto)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInactive) {
			response.ForbiddenMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.svc.GetByID(middleware.CurrentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, user)
}

func (h *Handler) list(c *gin.Context) {
	users, pag, err := h.svc.List(pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, users, pag)
}

func (h *Handler) get(c *gin.Context) {
	user, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, user)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.svc.Create(&dto)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, user)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, user)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c)
		return
	}
	response.InternalError(c, err)
}
