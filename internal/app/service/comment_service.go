package service

import (
	"errors"
	"strings"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrCommentTarget   = errors.New("comment needs exactly one target")
	ErrTargetNotFound  = errors.New("comment target not found")
)

type CommentService interface {
	List(actor model.Actor, target repository.CommentTarget) ([]model.Comment, error)
	Create(actor model.Actor, target repository.CommentTarget, body string) (*model.Comment, error)
	// Update is allowed for the author only.
	Update(actor model.Actor, id uint, body string) (*model.Comment, error)
	// Delete is allowed for the author and admins.
	Delete(actor model.Actor, id uint) error
}

type commentService struct {
	repo        repository.CommentRepository
	profileRepo repository.ProfileRepository
	bottleRepo  repository.BottleKeepRepository
	shiftRepo   repository.ShiftRepository
	labels      LabelCache
}

func NewCommentService(
	repo repository.CommentRepository,
	profileRepo repository.ProfileRepository,
	bottleRepo repository.BottleKeepRepository,
	shiftRepo repository.ShiftRepository,
	labels LabelCache,
) CommentService {
	return &commentService{
		repo:        repo,
		profileRepo: profileRepo,
		bottleRepo:  bottleRepo,
		shiftRepo:   shiftRepo,
		labels:      labelCacheOrNoop(labels),
	}
}

func targetCount(t repository.CommentTarget) int {
	c := model.Comment{ProfileID: t.ProfileID, BottleKeepID: t.BottleKeepID, ShiftRequestID: t.ShiftRequestID}
	return c.TargetCount()
}

// checkTarget makes sure the target row exists in the actor's store and is
// visible to the actor. Managers see every target. Others only see bottles
// they hold, and guests only their own profile.
func (s *commentService) checkTarget(actor model.Actor, t repository.CommentTarget) error {
	if targetCount(t) != 1 {
		return ErrCommentTarget
	}

	var err error
	switch {
	case t.ProfileID != nil:
		if actor.Role == model.RoleGuest && *t.ProfileID != actor.ProfileID {
			return ErrTargetNotFound
		}
		_, err = s.profileRepo.FindByID(actor.StoreID, *t.ProfileID)
	case t.BottleKeepID != nil:
		var bottle *model.BottleKeep
		bottle, err = s.bottleRepo.FindByID(actor.StoreID, *t.BottleKeepID)
		if err == nil && !actor.IsManager() && !holds(bottle, actor.ProfileID) {
			return ErrTargetNotFound
		}
	case t.ShiftRequestID != nil:
		if actor.Role == model.RoleGuest {
			return ErrTargetNotFound
		}
		_, err = s.shiftRepo.FindRequestByID(actor.StoreID, *t.ShiftRequestID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTargetNotFound
	}
	return err
}

func (s *commentService) List(actor model.Actor, target repository.CommentTarget) ([]model.Comment, error) {
	if err := s.checkTarget(actor, target); err != nil {
		return nil, err
	}
	return s.repo.FindByTarget(actor.StoreID, target)
}

func (s *commentService) Create(actor model.Actor, target repository.CommentTarget, body string) (*model.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrInvalidInput
	}
	if err := s.checkTarget(actor, target); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		StoreID:        actor.StoreID,
		AuthorID:       actor.ProfileID,
		Body:           body,
		ProfileID:      target.ProfileID,
		BottleKeepID:   target.BottleKeepID,
		ShiftRequestID: target.ShiftRequestID,
	}
	if err := s.repo.Create(comment); err != nil {
		logger.Error("Failed to create comment", err, map[string]interface{}{
			"store_id":  actor.StoreID,
			"author_id": actor.ProfileID,
		})
		return nil, err
	}

	s.labels.Invalidate(actor.StoreID, "comments")
	return s.find(actor.StoreID, comment.ID)
}

func (s *commentService) find(storeID, id uint) (*model.Comment, error) {
	comment, err := s.repo.FindByID(storeID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return comment, nil
}

func (s *commentService) Update(actor model.Actor, id uint, body string) (*model.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrInvalidInput
	}
	comment, err := s.find(actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actor.ProfileID {
		return nil, ErrForbidden
	}

	comment.Body = body
	if err := s.repo.Update(comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *commentService) Delete(actor model.Actor, id uint) error {
	comment, err := s.find(actor.StoreID, id)
	if err != nil {
		return err
	}
	if comment.AuthorID != actor.ProfileID && !actor.IsAdmin() {
		return ErrForbidden
	}

	if err := s.repo.Delete(actor.StoreID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	s.labels.Invalidate(actor.StoreID, "comments")
	logger.Info("Comment deleted", map[string]interface{}{
		"store_id":   actor.StoreID,
		"comment_id": id,
		"deleted_by": actor.ProfileID,
	})
	return nil
}
