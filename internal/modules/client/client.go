package client

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/social-agent/core/internal/middleware"
	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/pkg/pagination"
	"github.com/social-agent/core/internal/pkg/response"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("client not found")

type CreateClientDTO struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Color   string `json:"color"`
}

type UpdateClientDTO struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Company *string `json:"company"`
	Color   *string `json:"color"`
}

// CreateAccountDTO connects a social account to a client. Tokens come in
// through this DTO but never go back out in responses.
type CreateAccountDTO struct {
	Platform          string `json:"platform" binding:"required,oneof=instagram facebook linkedin"`
	AccountName       string `json:"account_name"`
	PlatformAccountID string `json:"platform_account_id"`
	AccessToken       string `json:"access_token" binding:"required"`
	RefreshToken      string `json:"refresh_token"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(q pagination.Query) ([]models.ClientModel, response.Pagination, error) {
	tx := s.db.Model(&models.ClientModel{}).Order("name ASC")
	var clients []models.ClientModel
	pag, err := pagination.Paginate(tx, q, &clients)
	return clients, pag, err
}

func (s *Service) GetByID(id string) (*models.ClientModel, error) {
	var client models.ClientModel
	err := s.db.First(&client, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &client, err
}

func (s *Service) Create(dto *CreateClientDTO) (*models.ClientModel, error) {
	client := models.ClientModel{
		Name:    dto.Name,
		Email:   dto.Email,
		Company: dto.Company,
		Color:   dto.Color,
	}
	if client.Color == "" {
		client.Color = "#3498db"
	}
	return &client, s.db.Create(&client).Error
}

func (s *Service) Update(id string, dto *UpdateClientDTO) (*models.ClientModel, error) {
	client, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Email != nil {
		updates["email"] = *dto.Email
	}
	if dto.Company != nil {
		updates["company"] = *dto.Company
	}
	if dto.Color != nil {
		updates["color"] = *dto.Color
	}
	if len(updates) == 0 {
		return client, nil
	}
	if err := s.db.Model(client).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete removes a client together with its connected accounts. Posts
// referencing the client are left in place for history.
func (s *Service) Delete(id string) error {
	client, err := s.GetByID(id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&models.AccountModel{}, "client_id = ?", client.ID).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.ClientModel{}, "id = ?", client.ID).Error
	})
}

func (s *Service) Accounts(clientID string) ([]models.AccountModel, error) {
	if _, err := s.GetByID(clientID); err != nil {
		return nil, err
	}
	var accounts []models.AccountModel
	err := s.db.Where("client_id = ?", clientID).Order("platform ASC").Find(&accounts).Error
	return accounts, err
}

// AddAccount connects a platform account. A second account for the same
// platform replaces the stored credentials instead of duplicating the row.
func (s *Service) AddAccount(clientID string, dto *CreateAccountDTO) (*models.AccountModel, error) {
	if _, err := s.GetByID(clientID); err != nil {
		return nil, err
	}

	var existing models.AccountModel
	err := s.db.Where("client_id = ? AND platform = ?", clientID, dto.Platform).First(&existing).Error
	if err == nil {
		updates := map[string]interface{}{
			"access_token":        dto.AccessToken,
			"account_name":        dto.AccountName,
			"platform_account_id": dto.PlatformAccountID,
			"active":              true,
		}
		if dto.RefreshToken != "" {
			updates["refresh_token"] = dto.RefreshToken
		}
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	account := models.AccountModel{
		ClientID:          clientID,
		Platform:          dto.Platform,
		AccountName:       dto.AccountName,
		PlatformAccountID: dto.PlatformAccountID,
		AccessToken:       dto.AccessToken,
		RefreshToken:      dto.RefreshToken,
		Active:            true,
	}
	return &account, s.db.Create(&account).Error
}

func (s *Service) RemoveAccount(clientID, accountID string) error {
	res := s.db.Unscoped().Where("client_id = ?", clientID).Delete(&models.AccountModel{}, "id = ?", accountID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/clients", authMW)

	g.GET("", h.list)
	g.GET("/:id", h.get)

	adminMW := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)
	g.POST("", adminMW, h.create)
	g.PUT("/:id", adminMW, h.update)
	g.DELETE("/:id", adminMW, h.delete)

	g.GET("/:id/accounts", h.accounts)
	g.POST("/:id/accounts", adminMW, h.addAccount)
	g.DELETE("/:id/accounts/:accountId", adminMW, h.removeAccount)
}

func (h *Handler) list(c *gin.Context) {
	clients, pag, err := h.svc.List(pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, clients, pag)
}

func (h *Handler) get(c *gin.Context) {
	client, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, client)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateClientDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	client, err := h.svc.Create(&dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, client)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateClientDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	client, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, client)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) accounts(c *gin.Context) {
	accounts, err := h.svc.Accounts(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, accounts)
}

func (h *Handler) addAccount(c *gin.Context) {
	var dto CreateAccountDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	account, err := h.svc.AddAccount(c.Param("id"), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, account)
}

func (h *Handler) removeAccount(c *gin.Context) {
	if err := h.svc.RemoveAccount(c.Param("id"), c.Param("accountId")); err != nil {
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
