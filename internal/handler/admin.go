package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/middleware"
	"github.com/flicky/storefront-api/internal/service"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) ListStores(c *gin.Context) {
	stores, err := h.adminService.ListStores(c.Request.Context(), middleware.GetProfile(c))
	if err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStoreListResponse(stores))
}

func (h *AdminHandler) CreateStore(c *gin.Context) {
	var req dto.CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	store, err := h.adminService.CreateStore(c.Request.Context(), middleware.GetProfile(c), req)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toStoreResponse(store))
}

func (h *AdminHandler) DeleteStore(c *gin.Context) {
	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.adminService.DeleteStore(c.Request.Context(), middleware.GetProfile(c), storeID); err != nil {
		writeAdminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) AddProduct(c *gin.Context) {
	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product, err := h.adminService.AddProduct(c.Request.Context(), middleware.GetProfile(c), storeID, req)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(product))
}

func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}
	if err := h.adminService.DeleteProduct(c.Request.Context(), middleware.GetProfile(c), storeID, productID); err != nil {
		writeAdminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListManagers(c *gin.Context) {
	managers, err := h.adminService.ListManagers(c.Request.Context(), middleware.GetProfile(c))
	if err != nil {
		writeAdminError(c, err)
		return
	}
	items := make([]dto.ProfileResponse, 0, len(managers))
	for i := range managers {
		items = append(items, service.ToProfileResponse(&managers[i]))
	}
	c.JSON(http.StatusOK, gin.H{"managers": items, "total": len(items)})
}

func (h *AdminHandler) DescribeProduct(c *gin.Context) {
	var req dto.DescribeProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	text, err := h.adminService.Describe(c.Request.Context(), req.Name)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DescribeProductResponse{Description: text})
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func writeAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrStoreAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStoreNotFound), errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidPrice), errors.Is(err, service.ErrEmptyProductName),
		errors.Is(err, service.ErrManagerNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
