package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/yorunoba/nightdesk-backend/internal/ai"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrSNSAccountNotFound  = errors.New("sns account not found")
	ErrSNSPostNotFound     = errors.New("scheduled post not found")
	ErrSNSPostNotEditable  = errors.New("scheduled post can no longer be changed")
	ErrSNSScheduleNotFound = errors.New("recurring schedule not found")
	ErrInvalidPlatform     = errors.New("invalid sns platform")
	ErrInvalidCronSpec     = errors.New("invalid cron expression")
	ErrScheduledInPast     = errors.New("scheduled time must be in the future")
	ErrAccountNotConnected = errors.New("sns account is not connected")
)

// duePostBatch caps how many posts one tick hands to the publisher.
const duePostBatch = 50

// SNSPublisher sends a scheduled post to its platform.
type SNSPublisher interface {
	Publish(ctx context.Context, post *model.SNSScheduledPost) error
}

// StubPublisher accepts posts for connected accounts without calling the
// platform APIs.
type StubPublisher struct{}

func (StubPublisher) Publish(_ context.Context, post *model.SNSScheduledPost) error {
	if post.Account == nil || !post.Account.IsConnected {
		return ErrAccountNotConnected
	}
	logger.Info("Publishing scheduled post", map[string]interface{}{
		"store_id":     post.StoreID,
		"post_id":      post.ID,
		"platform":     post.Account.Platform,
		"account_name": post.Account.AccountName,
	})
	return nil
}

type SNSPostInput struct {
	SNSAccountID uint
	Content      string
	ImageURL     string
	Hashtags     []string
	ScheduledAt  time.Time
}

type SNSPostUpdateInput struct {
	Content     *string
	ImageURL    *string
	Hashtags    []string
	ScheduledAt *time.Time
}

type SNSScheduleInput struct {
	SNSAccountID    uint
	Name            string
	CronSpec        string
	ContentTemplate string
	UseAI           bool
}

// SNSRunResult summarises one scheduler tick.
type SNSRunResult struct {
	Materialized int `json:"materialized"`
	Posted       int `json:"posted"`
	Failed       int `json:"failed"`
}

type SNSService interface {
	ListAccounts(actor model.Actor) ([]model.SNSAccount, error)
	CreateAccount(actor model.Actor, platform model.SNSPlatform, accountName string) (*model.SNSAccount, error)
	// SetConnected only records the connection state.
	SetConnected(actor model.Actor, id uint, connected bool) (*model.SNSAccount, error)
	DeleteAccount(actor model.Actor, id uint) error

	ListPosts(actor model.Actor, status model.SNSPostStatus) ([]model.SNSScheduledPost, error)
	CreatePost(actor model.Actor, input SNSPostInput) (*model.SNSScheduledPost, error)
	UpdatePost(actor model.Actor, id uint, input SNSPostUpdateInput) (*model.SNSScheduledPost, error)
	CancelPost(actor model.Actor, id uint) (*model.SNSScheduledPost, error)
	DeletePost(actor model.Actor, id uint) error

	ListSchedules(actor model.Actor) ([]model.SNSRecurringSchedule, error)
	CreateSchedule(actor model.Actor, input SNSScheduleInput) (*model.SNSRecurringSchedule, error)
	SetScheduleActive(actor model.Actor, id uint, active bool) (*model.SNSRecurringSchedule, error)
	DeleteSchedule(actor model.Actor, id uint) error

	// RunDue materialises fired recurring schedules and publishes due posts.
	RunDue(ctx context.Context) (*SNSRunResult, error)
}

type snsService struct {
	repo      repository.SNSRepository
	publisher SNSPublisher
	writer    ai.TextGenerator
	labels    LabelCache
	loc       *time.Location
}

// NewSNSService wires the scheduler side too. writer may be nil, in which case
// AI schedules fall back to their template.
func NewSNSService(
	repo repository.SNSRepository,
	publisher SNSPublisher,
	writer ai.TextGenerator,
	labels LabelCache,
	loc *time.Location,
) SNSService {
	if publisher == nil {
		publisher = StubPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &snsService{
		repo:      repo,
		publisher: publisher,
		writer:    writer,
		labels:    labelCacheOrNoop(labels),
		loc:       loc,
	}
}

func (s *snsService) ListAccounts(actor model.Actor) ([]model.SNSAccount, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	return s.repo.ListAccounts(actor.StoreID)
}

func (s *snsService) findAccount(storeID, id uint) (*model.SNSAccount, error) {
	account, err := s.repo.FindAccountByID(storeID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSNSAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *snsService) CreateAccount(actor model.Actor, platform model.SNSPlatform, accountName string) (*model.SNSAccount, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}
	name := strings.TrimSpace(accountName)
	if name == "" {
		return nil, ErrInvalidInput
	}

	account := &model.SNSAccount{StoreID: actor.StoreID, Platform: platform, AccountName: name}
	if err := s.repo.CreateAccount(account); err != nil {
		return nil, err
	}
	s.labels.Invalidate(actor.StoreID, "sns_accounts")
	logger.Info("SNS account registered", map[string]interface{}{
		"store_id":   actor.StoreID,
		"account_id": account.ID,
		"platform":   platform,
	})
	return account, nil
}

func (s *snsService) SetConnected(actor model.Actor, id uint, connected bool) (*model.SNSAccount, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	account, err := s.findAccount(actor.StoreID, id)
	if err != nil {
		return nil, err
	}

	account.IsConnected = connected
	account.ConnectedAt = nil
	if connected {
		now := nowFunc()
		account.ConnectedAt = &now
	}
	if err := s.repo.UpdateAccount(account); err != nil {
		return nil, err
	}
	s.labels.Invalidate(actor.StoreID, "sns_accounts")
	return account, nil
}

func (s *snsService) DeleteAccount(actor model.Actor, id uint) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	if err := s.repo.DeleteAccount(actor.StoreID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSNSAccountNotFound
		}
		return err
	}
	s.labels.Invalidate(actor.StoreID, "sns_accounts")
	return nil
}

func (s *snsService) ListPosts(actor model.Actor, status model.SNSPostStatus) ([]model.SNSScheduledPost, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	return s.repo.ListPosts(actor.StoreID, status)
}

func cleanTags(tags []string) model.StringArray {
	out := make(model.StringArray, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (s *snsService) CreatePost(actor model.Actor, input SNSPostInput) (*model.SNSScheduledPost, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrInvalidInput
	}
	if !input.ScheduledAt.After(nowFunc()) {
		return nil, ErrScheduledInPast
	}
	if _, err := s.findAccount(actor.StoreID, input.SNSAccountID); err != nil {
		return nil, err
	}

	post := &model.SNSScheduledPost{
		StoreID:      actor.StoreID,
		SNSAccountID: input.SNSAccountID,
		Content:      content,
		ImageURL:     input.ImageURL,
		Hashtags:     cleanTags(input.Hashtags),
		ScheduledAt:  input.ScheduledAt.UTC(),
		Status:       model.PostScheduled,
	}
	if err := s.repo.CreatePost(post); err != nil {
		return nil, err
	}

	s.labels.Invalidate(actor.StoreID, "sns_scheduled_posts")
	logger.Info("Post scheduled", map[string]interface{}{
		"store_id":     actor.StoreID,
		"post_id":      post.ID,
		"scheduled_at": post.ScheduledAt,
	})
	return s.findPost(actor.StoreID, post.ID)
}

func (s *snsService) findPost(storeID, id uint) (*model.SNSScheduledPost, error) {
	post, err := s.repo.FindPostByID(storeID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSNSPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *snsService) UpdatePost(actor model.Actor, id uint, input SNSPostUpdateInput) (*model.SNSScheduledPost, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	post, err := s.findPost(actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if post.Status != model.PostScheduled {
		return nil, ErrSNSPostNotEditable
	}

	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return nil, ErrInvalidInput
		}
		post.Content = content
	}
	if input.ImageURL != nil {
		post.ImageURL = *input.ImageURL
	}
	if input.Hashtags != nil {
		post.Hashtags = cleanTags(input.Hashtags)
	}
	if input.ScheduledAt != nil {
		if !input.ScheduledAt.After(nowFunc()) {
			return nil, ErrScheduledInPast
		}
		post.ScheduledAt = input.ScheduledAt.UTC()
	}

	post.Account = nil
	if err := s.repo.UpdatePost(post); err != nil {
		return nil, err
	}
	s.labels.Invalidate(actor.StoreID, "sns_scheduled_posts")
	return s.findPost(actor.StoreID, id)
}

func (s *snsService) CancelPost(actor model.Actor, id uint) (*model.SNSScheduledPost, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	post, err := s.findPost(actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if post.Status != model.PostScheduled {
		return nil, ErrSNSPostNotEditable
	}
	if err := s.repo.MarkPost(post.ID, model.PostCancelled, nil, ""); err != nil {
		return nil, err
	}
	s.labels.Invalidate(actor.StoreID, "sns_scheduled_posts")
	return s.findPost(actor.StoreID, id)
}

func (s *snsService) DeletePost(actor model.Actor, id uint) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	if err := s.repo.DeletePost(actor.StoreID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSNSPostNotFound
		}
		return err
	}
	s.labels.Invalidate(actor.StoreID, "sns_scheduled_posts")
	return nil
}

func (s *snsService) ListSchedules(actor model.Actor) ([]model.SNSRecurringSchedule, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	return s.repo.ListSchedules(actor.StoreID)
}

func (s *snsService) CreateSchedule(actor model.Actor, input SNSScheduleInput) (*model.SNSRecurringSchedule, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(input.Name)
	spec := strings.TrimSpace(input.CronSpec)
	if name == "" {
		return nil, ErrInvalidInput
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCronSpec, err)
	}
	if !input.UseAI && strings.TrimSpace(input.ContentTemplate) == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.findAccount(actor.StoreID, input.SNSAccountID); err != nil {
		return nil, err
	}

	schedule := &model.SNSRecurringSchedule{
		StoreID:         actor.StoreID,
		SNSAccountID:    input.SNSAccountID,
		Name:            name,
		CronSpec:        spec,
		ContentTemplate: input.ContentTemplate,
		UseAI:           input.UseAI,
		IsActive:        true,
	}
	if err := s.repo.CreateSchedule(schedule); err != nil {
		return nil, err
	}

	s.labels.Invalidate(actor.StoreID, "sns_recurring_schedules")
	logger.Info("Recurring schedule created", map[string]interface{}{
		"store_id":    actor.StoreID,
		"schedule_id": schedule.ID,
		"cron_spec":   spec,
	})
	return schedule, nil
}

func (s *snsService) SetScheduleActive(actor model.Actor, id uint, active bool) (*model.SNSRecurringSchedule, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	schedule, err := s.repo.FindScheduleByID(actor.StoreID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSNSScheduleNotFound
		}
		return nil, err
	}

	schedule.IsActive = active
	// reactivation starts counting from now instead of replaying missed runs
	if active {
		now := nowFunc()
		schedule.LastRunAt = &now
	}
	account := schedule.Account
	schedule.Account = nil
	if err := s.repo.UpdateSchedule(schedule); err != nil {
		return nil, err
	}
	schedule.Account = account
	s.labels.Invalidate(actor.StoreID, "sns_recurring_schedules")
	return schedule, nil
}

func (s *snsService) DeleteSchedule(actor model.Actor, id uint) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	if err := s.repo.DeleteSchedule(actor.StoreID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSNSScheduleNotFound
		}
		return err
	}
	s.labels.Invalidate(actor.StoreID, "sns_recurring_schedules")
	return nil
}

func (s *snsService) RunDue(ctx context.Context) (*SNSRunResult, error) {
	now := nowFunc()
	result := &SNSRunResult{}

	schedules, err := s.repo.FindActiveSchedules()
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		created, err := s.materialize(ctx, &schedules[i], now)
		if err != nil {
			logger.Error("Failed to materialise recurring schedule", err, map[string]interface{}{
				"schedule_id": schedules[i].ID,
				"store_id":    schedules[i].StoreID,
			})
			continue
		}
		if created {
			result.Materialized++
		}
	}

	posts, err := s.repo.FindDuePosts(now, duePostBatch)
	if err != nil {
		return result, err
	}
	for i := range posts {
		post := &posts[i]
		if err := s.publisher.Publish(ctx, post); err != nil {
			logger.Warn("Scheduled post failed", map[string]interface{}{
				"post_id":  post.ID,
				"store_id": post.StoreID,
				"error":    err.Error(),
			})
			if err := s.repo.MarkPost(post.ID, model.PostFailed, nil, err.Error()); err == nil {
				result.Failed++
			}
			continue
		}
		postedAt := nowFunc()
		if err := s.repo.MarkPost(post.ID, model.PostPosted, &postedAt, ""); err == nil {
			result.Posted++
		}
	}

	if result.Materialized+result.Posted+result.Failed > 0 {
		logger.Info("SNS scheduler tick finished", map[string]interface{}{
			"materialized": result.Materialized,
			"posted":       result.Posted,
			"failed":       result.Failed,
		})
	}
	return result, nil
}

// materialize creates a post when the schedule has fired since its last run.
// Runs missed while the server was down collapse into one post.
func (s *snsService) materialize(ctx context.Context, schedule *model.SNSRecurringSchedule, now time.Time) (bool, error) {
	spec, err := cron.ParseStandard(schedule.CronSpec)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidCronSpec, err)
	}

	base := schedule.CreatedAt
	if schedule.LastRunAt != nil {
		base = *schedule.LastRunAt
	}
	next := spec.Next(base.In(s.loc))
	if next.IsZero() || next.After(now) {
		return false, nil
	}

	post := &model.SNSScheduledPost{
		StoreID:             schedule.StoreID,
		SNSAccountID:        schedule.SNSAccountID,
		Content:             s.scheduleContent(ctx, schedule),
		ScheduledAt:         now,
		Status:              model.PostScheduled,
		RecurringScheduleID: &schedule.ID,
	}
	if err := s.repo.Materialize(schedule, post, now); err != nil {
		return false, err
	}
	s.labels.Invalidate(schedule.StoreID, "sns_scheduled_posts")
	return true, nil
}

func (s *snsService) scheduleContent(ctx context.Context, schedule *model.SNSRecurringSchedule) string {
	template := strings.TrimSpace(schedule.ContentTemplate)
	if !schedule.UseAI || s.writer == nil {
		return template
	}

	platform := model.SNSPlatform("")
	if schedule.Account != nil {
		platform = schedule.Account.Platform
	}
	text, err := s.writer.GenerateText(ctx, copyPrompt(model.CopyRequest{
		Topic:    template,
		Platform: platform,
	}))
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Warn("AI copy failed, using template", map[string]interface{}{
			"schedule_id": schedule.ID,
			"error":       fmt.Sprint(err),
		})
		if template == "" {
			return schedule.Name
		}
		return template
	}
	return strings.TrimSpace(text)
}
