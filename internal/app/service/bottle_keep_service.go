package service

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/spreadsheet"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrBottleNotFound      = errors.New("bottle keep not found")
	ErrHolderRequired      = errors.New("bottle keep needs at least one holder")
	ErrHolderNotFound      = errors.New("holder not found")
	ErrInvalidRemaining    = errors.New("remaining percent must be between 0 and 100")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidBottleStatus = errors.New("invalid bottle status")
	ErrUnsupportedFormat   = errors.New("unsupported export format")
)

// ExportFormat selects the spreadsheet flavour of an export.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

type BottleKeepInput struct {
	MenuID     *uint
	BottleName string
	OpenedOn   string
	ExpiresOn  string
	// nil means a full bottle
	RemainingPercent *int
	Note             string
	HolderIDs        []uint
}

type BottleKeepUpdateInput struct {
	MenuID     *uint
	BottleName *string
	OpenedOn   *string
	ExpiresOn  *string
	Status     *model.BottleKeepStatus
	Note       *string
}

type BottleKeepQuery struct {
	Status   model.BottleKeepStatus
	HolderID *uint
	// ExpiringWithinDays keeps bottles expiring from today up to N days ahead.
	ExpiringWithinDays int
}

type BottleKeepService interface {
	List(actor model.Actor, q BottleKeepQuery) ([]model.BottleKeep, error)
	Get(actor model.Actor, id uint) (*model.BottleKeep, error)
	Create(actor model.Actor, input BottleKeepInput) (*model.BottleKeep, error)
	Update(actor model.Actor, id uint, input BottleKeepUpdateInput) (*model.BottleKeep, error)
	// UpdateRemaining records the level; 0 finishes the bottle.
	UpdateRemaining(actor model.Actor, id uint, percent int) (*model.BottleKeep, error)
	Delete(actor model.Actor, id uint) error
	AddHolder(actor model.Actor, id, profileID uint) (*model.BottleKeep, error)
	RemoveHolder(actor model.Actor, id, profileID uint) (*model.BottleKeep, error)
	// ExpireOverdue marks bottles past their expiry date in every store.
	ExpireOverdue() (int64, error)
	Export(actor model.Actor, q BottleKeepQuery, format ExportFormat, w io.Writer) error
}

type bottleKeepService struct {
	repo        repository.BottleKeepRepository
	profileRepo repository.ProfileRepository
	menuRepo    repository.MenuRepository
	events      EventPublisher
	labels      LabelCache
	loc         *time.Location
}

func NewBottleKeepService(
	repo repository.BottleKeepRepository,
	profileRepo repository.ProfileRepository,
	menuRepo repository.MenuRepository,
	events EventPublisher,
	labels LabelCache,
	loc *time.Location,
) BottleKeepService {
	if loc == nil {
		loc = time.UTC
	}
	return &bottleKeepService{
		repo:        repo,
		profileRepo: profileRepo,
		menuRepo:    menuRepo,
		events:      publisherOrNoop(events),
		labels:      labelCacheOrNoop(labels),
		loc:         loc,
	}
}

func (s *bottleKeepService) today() time.Time {
	return nowFunc().In(s.loc)
}

func (s *bottleKeepService) List(actor model.Actor, q BottleKeepQuery) ([]model.BottleKeep, error) {
	if !actor.IsManager() {
		// guests and casts only see bottles they hold
		if q.HolderID == nil || *q.HolderID != actor.ProfileID {
			id := actor.ProfileID
			q.HolderID = &id
		}
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, ErrInvalidBottleStatus
	}

	filter := repository.BottleKeepFilter{Status: q.Status, HolderID: q.HolderID}
	if q.ExpiringWithinDays > 0 {
		filter.ExpiringBefore = s.today().AddDate(0, 0, q.ExpiringWithinDays).Format(model.DateLayout)
	}
	return s.repo.FindAll(actor.StoreID, filter)
}

func (s *bottleKeepService) find(storeID, id uint) (*model.BottleKeep, error) {
	bottle, err := s.repo.FindByID(storeID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBottleNotFound
		}
		logger.Error("Failed to fetch bottle keep", err, map[string]interface{}{
			"store_id":  storeID,
			"bottle_id": id,
		})
		return nil, err
	}
	return bottle, nil
}

func holds(bottle *model.BottleKeep, profileID uint) bool {
	for _, h := range bottle.Holders {
		if h.ProfileID == profileID {
			return true
		}
	}
	return false
}

func (s *bottleKeepService) Get(actor model.Actor, id uint) (*model.BottleKeep, error) {
	bottle, err := s.find(actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsManager() && !holds(bottle, actor.ProfileID) {
		return nil, ErrBottleNotFound
	}
	return bottle, nil
}

func validDate(s string) bool {
	_, err := model.ParseDate(s)
	return err == nil
}

func (s *bottleKeepService) checkMenu(storeID uint, menuID *uint) error {
	if menuID == nil {
		return nil
	}
	if _, err := s.menuRepo.FindByID(storeID, *menuID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMenuNotFound
		}
		return err
	}
	return nil
}

func (s *bottleKeepService) checkHolders(storeID uint, ids []uint) ([]uint, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, ErrHolderRequired
	}

	profiles, err := s.profileRepo.FindByIDs(storeID, unique)
	if err != nil {
		return nil, err
	}
	if len(profiles) != len(unique) {
		return nil, ErrHolderNotFound
	}
	return unique, nil
}

func (s *bottleKeepService) Create(actor model.Actor, input BottleKeepInput) (*model.BottleKeep, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}

	name := strings.TrimSpace(input.BottleName)
	if name == "" {
		return nil, ErrInvalidInput
	}
	openedOn := input.OpenedOn
	if openedOn == "" {
		openedOn = s.today().Format(model.DateLayout)
	}
	if !validDate(openedOn) || (input.ExpiresOn != "" && !validDate(input.ExpiresOn)) {
		return nil, ErrInvalidDate
	}
	if input.ExpiresOn != "" && input.ExpiresOn < openedOn {
		return nil, ErrInvalidDate
	}

	remaining := 100
	if input.RemainingPercent != nil {
		remaining = *input.RemainingPercent
	}
	// a new bottle cannot already be empty
	if remaining <= 0 || remaining > 100 {
		return nil, ErrInvalidRemaining
	}

	if err := s.checkMenu(actor.StoreID, input.MenuID); err != nil {
		return nil, err
	}
	holderIDs, err := s.checkHolders(actor.StoreID, input.HolderIDs)
	if err != nil {
		return nil, err
	}

	bottle := &model.BottleKeep{
		StoreID:          actor.StoreID,
		MenuID:           input.MenuID,
		BottleName:       name,
		OpenedOn:         openedOn,
		ExpiresOn:        input.ExpiresOn,
		RemainingPercent: remaining,
		Status:           model.BottleActive,
		Note:             input.Note,
	}
	if err := s.repo.Create(bottle, holderIDs); err != nil {
		return nil, err
	}

	logger.Info("Bottle keep created", map[string]interface{}{
		"store_id":  actor.StoreID,
		"bottle_id": bottle.ID,
		"holders":   len(holderIDs),
	})
	return s.changed(actor, bottle.ID)
}

// changed reloads the bottle and tells the store about it.
func (s *bottleKeepService) changed(actor model.Actor, id uint) (*model.BottleKeep, error) {
	bottle, err := s.find(actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	s.labels.Invalidate(actor.StoreID, "bottle_keeps")
	holders := make([]uint, 0, len(bottle.Holders))
	for _, h := range bottle.Holders {
		holders = append(holders, h.ProfileID)
	}
	s.events.Publish(actor.StoreID, model.ManagersAnd(holders...), EventBottleKeepUpdated, bottle)
	return bottle, nil
}

func (s *bottleKeepService) Update(actor model.Actor, id uint, input BottleKeepUpdateInput) (*model.BottleKeep, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	bottle, err := s.find(actor.StoreID, id)
	if err != nil {
		return nil, err
	}

	if input.MenuID != nil {
		if err := s.checkMenu(actor.StoreID, input.MenuID); err != nil {
			return nil, err
		}
		bottle.MenuID = input.MenuID
	}
	if input.BottleName != nil {
		name := strings.TrimSpace(*input.BottleName)
		if name == "" {
			return nil, ErrInvalidInput
		}
		bottle.BottleName = name
	}
	if input.OpenedOn != nil {
		if !validDate(*input.OpenedOn) {
			return nil, ErrInvalidDate
		}
		bottle.OpenedOn = *input.OpenedOn
	}
	if input.ExpiresOn != nil {
		if *input.ExpiresOn != "" && !validDate(*input.ExpiresOn) {
			return nil, ErrInvalidDate
		}
		bottle.ExpiresOn = *input.ExpiresOn
	}
	if bottle.ExpiresOn != "" && bottle.ExpiresOn < bottle.OpenedOn {
		return nil, ErrInvalidDate
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidBottleStatus
		}
		bottle.Status = *input.Status
	}
	if input.Note != nil {
		bottle.Note = *input.Note
	}

	bottle.Menu = nil
	bottle.Holders = nil
	if err := s.repo.Update(bottle); err != nil {
		return nil, err
	}
	return s.changed(actor, id)
}

func (s *bottleKeepService) UpdateRemaining(actor model.Actor, id uint, percent int) (*model.BottleKeep, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	if percent < 0 || percent > 100 {
		return nil, ErrInvalidRemaining
	}
	bottle, err := s.find(actor.StoreID, id)
	if err != nil {
		return nil, err
	}

	bottle.RemainingPercent = percent
	if percent == 0 {
		bottle.Status = model.BottleFinished
	}
	bottle.Menu = nil
	bottle.Holders = nil
	if err := s.repo.Update(bottle); err != nil {
		return nil, err
	}

	logger.Info("Bottle level updated", map[string]interface{}{
		"store_id":  actor.StoreID,
		"bottle_id": id,
		"remaining": percent,
	})
	return s.changed(actor, id)
}

func (s *bottleKeepService) Delete(actor model.Actor, id uint) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	if err := s.repo.Delete(actor.StoreID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBottleNotFound
		}
		return err
	}
	s.labels.Invalidate(actor.StoreID, "bottle_keeps")
	return nil
}

func (s *bottleKeepService) AddHolder(actor model.Actor, id, profileID uint) (*model.BottleKeep, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	if _, err := s.find(actor.StoreID, id); err != nil {
		return nil, err
	}
	if _, err := s.checkHolders(actor.StoreID, []uint{profileID}); err != nil {
		return nil, err
	}
	if err := s.repo.AddHolder(id, profileID); err != nil {
		return nil, err
	}
	return s.changed(actor, id)
}

func (s *bottleKeepService) RemoveHolder(actor model.Actor, id, profileID uint) (*model.BottleKeep, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	bottle, err := s.find(actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if !holds(bottle, profileID) {
		return nil, ErrHolderNotFound
	}
	if len(bottle.Holders) <= 1 {
		return nil, ErrHolderRequired
	}
	if err := s.repo.RemoveHolder(id, profileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHolderNotFound
		}
		return nil, err
	}
	return s.changed(actor, id)
}

func (s *bottleKeepService) ExpireOverdue() (int64, error) {
	today := s.today().Format(model.DateLayout)
	count, err := s.repo.ExpireOverdue(today)
	if err != nil {
		logger.Error("Failed to expire bottle keeps", err, map[string]interface{}{
			"today": today,
		})
		return 0, err
	}
	if count > 0 {
		logger.Info("Expired overdue bottle keeps", map[string]interface{}{
			"today": today,
			"count": count,
		})
	}
	return count, nil
}

var bottleExportHeaders = []string{"ID", "ボトル名", "メニュー", "名義人", "開封日", "期限", "残量(%)", "状態", "メモ"}

var bottleStatusLabels = map[model.BottleKeepStatus]string{
	model.BottleActive:   "キープ中",
	model.BottleFinished: "空き",
	model.BottleExpired:  "期限切れ",
}

func (s *bottleKeepService) Export(actor model.Actor, q BottleKeepQuery, format ExportFormat, w io.Writer) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	if format != FormatCSV && format != FormatXLSX {
		return ErrUnsupportedFormat
	}

	bottles, err := s.List(actor, q)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(bottles))
	for _, b := range bottles {
		menu := ""
		if b.Menu != nil {
			menu = b.Menu.Name
		}
		holders := make([]string, 0, len(b.Holders))
		for _, h := range b.Holders {
			if h.Profile != nil {
				holders = append(holders, h.Profile.DisplayName)
			}
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(b.ID), 10),
			b.BottleName,
			menu,
			strings.Join(holders, " / "),
			b.OpenedOn,
			b.ExpiresOn,
			strconv.Itoa(b.RemainingPercent),
			bottleStatusLabels[b.Status],
			b.Note,
		})
	}

	logger.Info("Exporting bottle keeps", map[string]interface{}{
		"store_id": actor.StoreID,
		"format":   format,
		"rows":     len(rows),
	})
	if format == FormatXLSX {
		return spreadsheet.WriteXLSX(w, "ボトルキープ", bottleExportHeaders, rows)
	}
	return spreadsheet.WriteCSV(w, bottleExportHeaders, rows)
}
