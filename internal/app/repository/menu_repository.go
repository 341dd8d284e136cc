package repository

import (
	"strings"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MenuFilter struct {
	CategoryID    *uint
	IncludeHidden bool
}

// MenuImportRow is one spreadsheet or AI draft line.
type MenuImportRow struct {
	CategoryName string
	Name         string
	Price        int
	Description  string
}

type MenuRepository interface {
	ListCategories(storeID uint) ([]model.MenuCategory, error)
	FindCategoryByID(storeID, id uint) (*model.MenuCategory, error)
	CreateCategory(category *model.MenuCategory) error
	UpdateCategory(category *model.MenuCategory) error
	DeleteCategory(storeID, id uint) error
	CountMenusInCategory(storeID, categoryID uint) (int64, error)
	ReorderCategories(storeID uint, orderedIDs []uint) error

	FindAll(storeID uint, filter MenuFilter) ([]model.Menu, error)
	FindByID(storeID, id uint) (*model.Menu, error)
	Create(menu *model.Menu) error
	Update(menu *model.Menu) error
	Delete(storeID, id uint) error
	Count(storeID uint) (int64, error)
	// BulkCreate inserts rows in one transaction, creating categories by name on demand.
	BulkCreate(storeID uint, rows []MenuImportRow) ([]model.Menu, error)
}

type menuRepository struct {
	db *gorm.DB
}

func NewMenuRepository(db *gorm.DB) MenuRepository {
	return &menuRepository{db: db}
}

func (r *menuRepository) ListCategories(storeID uint) ([]model.MenuCategory, error) {
	var categories []model.MenuCategory
	err := r.db.Where("store_id = ?", storeID).
		Order("sort_order ASC, id ASC").
		Find(&categories).Error
	return categories, err
}

func (r *menuRepository) FindCategoryByID(storeID, id uint) (*model.MenuCategory, error) {
	var category model.MenuCategory
	if err := r.db.Where("store_id = ? AND id = ?", storeID, id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *menuRepository) CreateCategory(category *model.MenuCategory) error {
	if category.SortOrder == 0 {
		var max struct{ Max int }
		r.db.Model(&model.MenuCategory{}).
			Select("COALESCE(MAX(sort_order), 0) AS max").
			Where("store_id = ?", category.StoreID).
			Scan(&max)
		category.SortOrder = max.Max + 1
	}
	if err := r.db.Create(category).Error; err != nil {
		logger.Error("Failed to create menu category", err, map[string]interface{}{
			"store_id": category.StoreID,
			"name":     category.Name,
		})
		return err
	}
	return nil
}

func (r *menuRepository) UpdateCategory(category *model.MenuCategory) error {
	return r.db.Omit(clause.Associations).Save(category).Error
}

func (r *menuRepository) DeleteCategory(storeID, id uint) error {
	return deleteScoped(r.db, &model.MenuCategory{}, storeID, id)
}

func (r *menuRepository) CountMenusInCategory(storeID, categoryID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Menu{}).
		Where("store_id = ? AND category_id = ?", storeID, categoryID).
		Count(&count).Error
	return count, err
}

func (r *menuRepository) ReorderCategories(storeID uint, orderedIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			result := tx.Model(&model.MenuCategory{}).
				Where("store_id = ? AND id = ?", storeID, id).
				Update("sort_order", i+1)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}

func (r *menuRepository) FindAll(storeID uint, filter MenuFilter) ([]model.Menu, error) {
	query := r.db.Preload("Category").Where("menus.store_id = ?", storeID)
	if filter.CategoryID != nil {
		query = query.Where("menus.category_id = ?", *filter.CategoryID)
	}
	if !filter.IncludeHidden {
		query = query.Where("menus.is_hidden = ?", false)
	}

	var menus []model.Menu
	if err := query.Order("menus.sort_order ASC, menus.id ASC").Find(&menus).Error; err != nil {
		logger.Error("Failed to list menus", err, map[string]interface{}{
			"store_id": storeID,
		})
		return nil, err
	}
	return menus, nil
}

func (r *menuRepository) FindByID(storeID, id uint) (*model.Menu, error) {
	var menu model.Menu
	if err := r.db.Preload("Category").Where("store_id = ? AND id = ?", storeID, id).First(&menu).Error; err != nil {
		return nil, err
	}
	return &menu, nil
}

func (r *menuRepository) Create(menu *model.Menu) error {
	if err := r.db.Omit(clause.Associations).Create(menu).Error; err != nil {
		logger.Error("Failed to create menu", err, map[string]interface{}{
			"store_id": menu.StoreID,
			"name":     menu.Name,
		})
		return err
	}
	return nil
}

func (r *menuRepository) Update(menu *model.Menu) error {
	return r.db.Omit(clause.Associations).Save(menu).Error
}

func (r *menuRepository) Delete(storeID, id uint) error {
	return deleteScoped(r.db, &model.Menu{}, storeID, id)
}

func (r *menuRepository) Count(storeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Menu{}).Where("store_id = ?", storeID).Count(&count).Error
	return count, err
}

func (r *menuRepository) BulkCreate(storeID uint, rows []MenuImportRow) ([]model.Menu, error) {
	logger.Debug("Bulk creating menus", map[string]interface{}{
		"store_id": storeID,
		"rows":     len(rows),
	})

	created := make([]model.Menu, 0, len(rows))
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing []model.MenuCategory
		if err := tx.Where("store_id = ?", storeID).Find(&existing).Error; err != nil {
			return err
		}
		categories := make(map[string]uint, len(existing))
		nextOrder := 0
		for _, c := range existing {
			categories[strings.ToLower(c.Name)] = c.ID
			if c.SortOrder > nextOrder {
				nextOrder = c.SortOrder
			}
		}

		for i, row := range rows {
			menu := model.Menu{
				StoreID:     storeID,
				Name:        row.Name,
				Price:       row.Price,
				Description: row.Description,
				SortOrder:   i + 1,
			}

			if name := strings.TrimSpace(row.CategoryName); name != "" {
				id, ok := categories[strings.ToLower(name)]
				if !ok {
					nextOrder++
					category := model.MenuCategory{StoreID: storeID, Name: name, SortOrder: nextOrder}
					if err := tx.Create(&category).Error; err != nil {
						return err
					}
					id = category.ID
					categories[strings.ToLower(name)] = id
				}
				menu.CategoryID = &id
			}

			if err := tx.Omit(clause.Associations).Create(&menu).Error; err != nil {
				return err
			}
			created = append(created, menu)
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to bulk create menus", err, map[string]interface{}{
			"store_id": storeID,
		})
		return nil, err
	}
	return created, nil
}
