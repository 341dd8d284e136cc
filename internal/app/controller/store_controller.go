package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
)

type StoreController struct {
	storeService service.StoreService
}

func NewStoreController(storeService service.StoreService) *StoreController {
	return &StoreController{storeService: storeService}
}

type UpdateStoreRequest struct {
	Name        *string `json:"name"`
	Address     *string `json:"address"`
	PhoneNumber *string `json:"phone_number"`
	OpenTime    *string `json:"open_time"`
	CloseTime   *string `json:"close_time"`
	LogoURL     *string `json:"logo_url"`
}

// GetStore returns the caller's store
// GET /api/v1/store
func (ctrl *StoreController) GetStore(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	store, err := ctrl.storeService.GetStore(actor.StoreID)
	if err != nil {
		respondError(c, err, "fetch store")
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": store})
}

// UpdateStore edits the store settings (admin)
// PUT /api/v1/store
func (ctrl *StoreController) UpdateStore(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req UpdateStoreRequest
	if !bindJSON(c, &req) {
		return
	}

	store, err := ctrl.storeService.UpdateStore(actor, service.StoreUpdateInput{
		Name:        req.Name,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		OpenTime:    req.OpenTime,
		CloseTime:   req.CloseTime,
		LogoURL:     req.LogoURL,
	})
	if err != nil {
		respondError(c, err, "update store")
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": store})
}
