package controller

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	apperrors "github.com/yorunoba/nightdesk-backend/internal/errors"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
)

// maxUploadBytes bounds multipart files read into memory.
const maxUploadBytes = 10 << 20

type MenuController struct {
	menuService service.MenuService
}

func NewMenuController(menuService service.MenuService) *MenuController {
	return &MenuController{menuService: menuService}
}

type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type ReorderCategoriesRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

type MenuRequest struct {
	CategoryID  *uint  `json:"category_id"`
	Name        string `json:"name" binding:"required"`
	Price       int    `json:"price"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	IsHidden    bool   `json:"is_hidden"`
	SortOrder   int    `json:"sort_order"`
}

func (r MenuRequest) input() service.MenuInput {
	return service.MenuInput{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Price:       r.Price,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		IsHidden:    r.IsHidden,
		SortOrder:   r.SortOrder,
	}
}

type SetHiddenRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

type BulkCreateMenusRequest struct {
	Items []model.MenuDraft `json:"items" binding:"required,min=1,dive"`
}

// ListCategories
// GET /api/v1/menu-categories
func (ctrl *MenuController) ListCategories(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	categories, err := ctrl.menuService.ListCategories(actor)
	if err != nil {
		respondError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateCategory
// POST /api/v1/menu-categories
func (ctrl *MenuController) CreateCategory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := ctrl.menuService.CreateCategory(actor, req.Name)
	if err != nil {
		respondError(c, err, "create category")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// UpdateCategory renames a category
// PUT /api/v1/menu-categories/:id
func (ctrl *MenuController) UpdateCategory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := ctrl.menuService.UpdateCategory(actor, id, req.Name)
	if err != nil {
		respondError(c, err, "update category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// DeleteCategory refuses while menus remain in it
// DELETE /api/v1/menu-categories/:id
func (ctrl *MenuController) DeleteCategory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.menuService.DeleteCategory(actor, id); err != nil {
		respondError(c, err, "delete category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "カテゴリを削除しました"})
}

// ReorderCategories
// PUT /api/v1/menu-categories/order
func (ctrl *MenuController) ReorderCategories(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req ReorderCategoriesRequest
	if !bindJSON(c, &req) {
		return
	}

	categories, err := ctrl.menuService.ReorderCategories(actor, req.IDs)
	if err != nil {
		respondError(c, err, "update category order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// ListMenus
// GET /api/v1/menus?category_id=&include_hidden=true
func (ctrl *MenuController) ListMenus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	categoryID, ok := optionalUintQuery(c, "category_id")
	if !ok {
		return
	}

	menus, err := ctrl.menuService.ListMenus(actor, repository.MenuFilter{
		CategoryID:    categoryID,
		IncludeHidden: c.Query("include_hidden") == "true",
	})
	if err != nil {
		respondError(c, err, "list menus")
		return
	}
	c.JSON(http.StatusOK, gin.H{"menus": menus, "count": len(menus)})
}

// GetMenu
// GET /api/v1/menus/:id
func (ctrl *MenuController) GetMenu(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	menu, err := ctrl.menuService.GetMenu(actor, id)
	if err != nil {
		respondError(c, err, "fetch menu")
		return
	}
	c.JSON(http.StatusOK, gin.H{"menu": menu})
}

// CreateMenu
// POST /api/v1/menus
func (ctrl *MenuController) CreateMenu(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req MenuRequest
	if !bindJSON(c, &req) {
		return
	}

	menu, err := ctrl.menuService.CreateMenu(actor, req.input())
	if err != nil {
		respondError(c, err, "create menu")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"menu": menu})
}

// UpdateMenu
// PUT /api/v1/menus/:id
func (ctrl *MenuController) UpdateMenu(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req MenuRequest
	if !bindJSON(c, &req) {
		return
	}

	menu, err := ctrl.menuService.UpdateMenu(actor, id, req.input())
	if err != nil {
		respondError(c, err, "update menu")
		return
	}
	c.JSON(http.StatusOK, gin.H{"menu": menu})
}

// DeleteMenu
// DELETE /api/v1/menus/:id
func (ctrl *MenuController) DeleteMenu(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.menuService.DeleteMenu(actor, id); err != nil {
		respondError(c, err, "delete menu")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "メニューを削除しました"})
}

// SetHidden toggles whether casts see the menu
// PATCH /api/v1/menus/:id/hidden
func (ctrl *MenuController) SetHidden(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req SetHiddenRequest
	if !bindJSON(c, &req) {
		return
	}

	menu, err := ctrl.menuService.SetHidden(actor, id, *req.Hidden)
	if err != nil {
		respondError(c, err, "update menu")
		return
	}
	c.JSON(http.StatusOK, gin.H{"menu": menu})
}

// ImportXLSX creates menus from an uploaded workbook
// POST /api/v1/menus/import (multipart field "file")
func (ctrl *MenuController) ImportXLSX(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	data, ok := readUpload(c, "file")
	if !ok {
		return
	}

	result, err := ctrl.menuService.ImportXLSX(actor, data)
	if err != nil {
		respondError(c, err, "import menus")
		return
	}

	log.Info("Menus imported", map[string]interface{}{
		"created": result.Created,
		"skipped": len(result.Skipped),
	})
	c.JSON(http.StatusOK, result)
}

// BulkCreate saves reviewed drafts
// POST /api/v1/menus/bulk
func (ctrl *MenuController) BulkCreate(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req BulkCreateMenusRequest
	if !bindJSON(c, &req) {
		return
	}

	menus, err := ctrl.menuService.BulkCreate(actor, req.Items)
	if err != nil {
		respondError(c, err, "create menus")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"menus": menus, "count": len(menus)})
}

// readUpload reads a multipart file field into memory.
func readUpload(c *gin.Context, field string) ([]byte, bool) {
	log := middleware.GetLoggerFromContext(c)

	header, err := c.FormFile(field)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "ファイルを選択してください")
		return nil, false
	}
	if header.Size > maxUploadBytes {
		apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "ファイルサイズは10MBまでです")
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		log.Error("Failed to open upload", err, map[string]interface{}{
			"filename": header.Filename,
		})
		apperrors.InternalError(c, "")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		log.Error("Failed to read upload", err, map[string]interface{}{
			"filename": header.Filename,
		})
		apperrors.InternalError(c, "")
		return nil, false
	}
	return data, true
}
