package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/spreadsheet"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrMenuNotFound      = errors.New("menu not found")
	ErrCategoryNotFound  = errors.New("menu category not found")
	ErrCategoryNotEmpty  = errors.New("menu category still has menus")
	ErrInvalidPrice      = errors.New("price must be zero or more")
	ErrInvalidImportFile = errors.New("invalid menu import file")
	ErrNothingToImport   = errors.New("no menu rows to import")
)

type MenuInput struct {
	CategoryID  *uint
	Name        string
	Price       int
	Description string
	ImageURL    string
	IsHidden    bool
	SortOrder   int
}

// SkippedRow reports a spreadsheet row that could not be imported.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created int          `json:"created"`
	Menus   []model.Menu `json:"menus"`
	Skipped []SkippedRow `json:"skipped"`
}

type MenuService interface {
	ListCategories(actor model.Actor) ([]model.MenuCategory, error)
	CreateCategory(actor model.Actor, name string) (*model.MenuCategory, error)
	UpdateCategory(actor model.Actor, id uint, name string) (*model.MenuCategory, error)
	DeleteCategory(actor model.Actor, id uint) error
	ReorderCategories(actor model.Actor, orderedIDs []uint) ([]model.MenuCategory, error)

	ListMenus(actor model.Actor, filter repository.MenuFilter) ([]model.Menu, error)
	GetMenu(actor model.Actor, id uint) (*model.Menu, error)
	CreateMenu(actor model.Actor, input MenuInput) (*model.Menu, error)
	UpdateMenu(actor model.Actor, id uint, input MenuInput) (*model.Menu, error)
	DeleteMenu(actor model.Actor, id uint) error
	SetHidden(actor model.Actor, id uint, hidden bool) (*model.Menu, error)

	// ImportXLSX reads rows of category, name, price, description. The first row is a header.
	ImportXLSX(actor model.Actor, data []byte) (*ImportResult, error)
	// BulkCreate saves drafts, typically from photo extraction, in one transaction.
	BulkCreate(actor model.Actor, drafts []model.MenuDraft) ([]model.Menu, error)
}

type menuService struct {
	repo   repository.MenuRepository
	labels LabelCache
}

func NewMenuService(repo repository.MenuRepository, labels LabelCache) MenuService {
	return &menuService{repo: repo, labels: labelCacheOrNoop(labels)}
}

func (s *menuService) ListCategories(actor model.Actor) ([]model.MenuCategory, error) {
	return s.repo.ListCategories(actor.StoreID)
}

func (s *menuService) CreateCategory(actor model.Actor, name string) (*model.MenuCategory, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	category := &model.MenuCategory{StoreID: actor.StoreID, Name: name}
	if err := s.repo.CreateCategory(category); err != nil {
		return nil, err
	}
	s.labels.Invalidate(actor.StoreID, "menu_categories")
	return category, nil
}

func (s *menuService) findCategory(actor model.Actor, id uint) (*model.MenuCategory, error) {
	category, err := s.repo.FindCategoryByID(actor.StoreID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *menuService) UpdateCategory(actor model.Actor, id uint, name string) (*model.MenuCategory, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	category, err := s.findCategory(actor, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	if err := s.repo.UpdateCategory(category); err != nil {
		return nil, err
	}
	s.labels.Invalidate(actor.StoreID, "menu_categories")
	return category, nil
}

func (s *menuService) DeleteCategory(actor model.Actor, id uint) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	if _, err := s.findCategory(actor, id); err != nil {
		return err
	}

	count, err := s.repo.CountMenusInCategory(actor.StoreID, id)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Warn("Refusing to delete non-empty category", map[string]interface{}{
			"store_id":    actor.StoreID,
			"category_id": id,
			"menus":       count,
		})
		return ErrCategoryNotEmpty
	}

	if err := s.repo.DeleteCategory(actor.StoreID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	s.labels.Invalidate(actor.StoreID, "menu_categories")
	return nil
}

func (s *menuService) ReorderCategories(actor model.Actor, orderedIDs []uint) ([]model.MenuCategory, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	seen := make(map[uint]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return nil, ErrInvalidInput
		}
		seen[id] = true
	}

	if err := s.repo.ReorderCategories(actor.StoreID, orderedIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return s.repo.ListCategories(actor.StoreID)
}

func (s *menuService) ListMenus(actor model.Actor, filter repository.MenuFilter) ([]model.Menu, error) {
	// hidden items are a back-office concern
	if !actor.IsManager() {
		filter.IncludeHidden = false
	}
	return s.repo.FindAll(actor.StoreID, filter)
}

func (s *menuService) GetMenu(actor model.Actor, id uint) (*model.Menu, error) {
	menu, err := s.repo.FindByID(actor.StoreID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuNotFound
		}
		return nil, err
	}
	if menu.IsHidden && !actor.IsManager() {
		return nil, ErrMenuNotFound
	}
	return menu, nil
}

func (s *menuService) validate(actor model.Actor, input MenuInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrInvalidInput
	}
	if input.Price < 0 {
		return ErrInvalidPrice
	}
	if input.CategoryID != nil {
		if _, err := s.findCategory(actor, *input.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

func (s *menuService) CreateMenu(actor model.Actor, input MenuInput) (*model.Menu, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	if err := s.validate(actor, input); err != nil {
		return nil, err
	}

	menu := &model.Menu{
		StoreID:     actor.StoreID,
		CategoryID:  input.CategoryID,
		Name:        strings.TrimSpace(input.Name),
		Price:       input.Price,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		IsHidden:    input.IsHidden,
		SortOrder:   input.SortOrder,
	}
	if err := s.repo.Create(menu); err != nil {
		return nil, err
	}

	s.labels.Invalidate(actor.StoreID, "menus")
	logger.Info("Menu created", map[string]interface{}{
		"store_id": actor.StoreID,
		"menu_id":  menu.ID,
	})
	return menu, nil
}

func (s *menuService) UpdateMenu(actor model.Actor, id uint, input MenuInput) (*model.Menu, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	if err := s.validate(actor, input); err != nil {
		return nil, err
	}

	menu, err := s.GetMenu(actor, id)
	if err != nil {
		return nil, err
	}
	menu.CategoryID = input.CategoryID
	menu.Name = strings.TrimSpace(input.Name)
	menu.Price = input.Price
	menu.Description = input.Description
	menu.ImageURL = input.ImageURL
	menu.IsHidden = input.IsHidden
	menu.SortOrder = input.SortOrder
	menu.Category = nil

	if err := s.repo.Update(menu); err != nil {
		return nil, err
	}
	s.labels.Invalidate(actor.StoreID, "menus")
	return s.GetMenu(actor, id)
}

func (s *menuService) DeleteMenu(actor model.Actor, id uint) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	if err := s.repo.Delete(actor.StoreID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMenuNotFound
		}
		return err
	}
	s.labels.Invalidate(actor.StoreID, "menus")
	return nil
}

func (s *menuService) SetHidden(actor model.Actor, id uint, hidden bool) (*model.Menu, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	menu, err := s.GetMenu(actor, id)
	if err != nil {
		return nil, err
	}
	menu.IsHidden = hidden
	menu.Category = nil
	if err := s.repo.Update(menu); err != nil {
		return nil, err
	}
	return menu, nil
}

func (s *menuService) ImportXLSX(actor model.Actor, data []byte) (*ImportResult, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}

	rows, err := spreadsheet.ReadXLSX(data)
	if err != nil {
		logger.Warn("Failed to read menu spreadsheet", map[string]interface{}{
			"store_id": actor.StoreID,
			"error":    err.Error(),
		})
		return nil, ErrInvalidImportFile
	}

	importRows, skipped := ParseMenuRows(rows)
	if len(importRows) == 0 {
		return nil, ErrNothingToImport
	}

	menus, err := s.repo.BulkCreate(actor.StoreID, importRows)
	if err != nil {
		return nil, err
	}
	s.labels.Invalidate(actor.StoreID, "menus")
	s.labels.Invalidate(actor.StoreID, "menu_categories")

	logger.Info("Menus imported from spreadsheet", map[string]interface{}{
		"store_id": actor.StoreID,
		"created":  len(menus),
		"skipped":  len(skipped),
	})
	return &ImportResult{Created: len(menus), Menus: menus, Skipped: skipped}, nil
}

// ParseMenuRows converts spreadsheet rows (header first) into import rows.
// Row numbers in the skipped list are 1-based like the spreadsheet.
func ParseMenuRows(rows [][]string) ([]repository.MenuImportRow, []SkippedRow) {
	result := []repository.MenuImportRow{}
	skipped := []SkippedRow{}

	for i, row := range rows {
		if i == 0 {
			continue
		}
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}
		if cell(0) == "" && cell(1) == "" && cell(2) == "" {
			continue
		}

		name := cell(1)
		if name == "" {
			skipped = append(skipped, SkippedRow{Row: i + 1, Reason: "name is empty"})
			continue
		}
		price, err := parsePrice(cell(2))
		if err != nil {
			skipped = append(skipped, SkippedRow{Row: i + 1, Reason: err.Error()})
			continue
		}

		result = append(result, repository.MenuImportRow{
			CategoryName: cell(0),
			Name:         name,
			Price:        price,
			Description:  cell(3),
		})
	}
	return result, skipped
}

// parsePrice accepts "1,200", "¥1200" and "1200円".
func parsePrice(s string) (int, error) {
	cleaned := strings.NewReplacer(",", "", "¥", "", "￥", "", "円", "", " ", "").Replace(s)
	if cleaned == "" {
		return 0, nil
	}
	price, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	if price < 0 {
		return 0, fmt.Errorf("negative price %q", s)
	}
	return price, nil
}

func (s *menuService) BulkCreate(actor model.Actor, drafts []model.MenuDraft) ([]model.Menu, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	if len(drafts) == 0 {
		return nil, ErrNothingToImport
	}

	rows := make([]repository.MenuImportRow, 0, len(drafts))
	for _, d := range drafts {
		if strings.TrimSpace(d.Name) == "" {
			return nil, ErrInvalidInput
		}
		if d.Price < 0 {
			return nil, ErrInvalidPrice
		}
		rows = append(rows, repository.MenuImportRow{
			CategoryName: d.CategoryName,
			Name:         strings.TrimSpace(d.Name),
			Price:        d.Price,
			Description:  d.Description,
		})
	}

	menus, err := s.repo.BulkCreate(actor.StoreID, rows)
	if err != nil {
		return nil, err
	}
	s.labels.Invalidate(actor.StoreID, "menus")
	s.labels.Invalidate(actor.StoreID, "menu_categories")
	return menus, nil
}
