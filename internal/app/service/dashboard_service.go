package service

import (
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
)

// expiringWindowDays is how far ahead the dashboard looks for bottle expiry.
const expiringWindowDays = 7

type DashboardSummary struct {
	BusinessDate        string                      `json:"business_date"`
	ProfilesByRole      map[model.ProfileRole]int64 `json:"profiles_by_role"`
	ActiveBottleKeeps   int64                       `json:"active_bottle_keeps"`
	ExpiringBottleKeeps int64                       `json:"expiring_bottle_keeps"`
	PendingSubmissions  int64                       `json:"pending_submissions"`
	OpenShiftRequests   int64                       `json:"open_shift_requests"`
	TodayAttendance     int64                       `json:"today_attendance"`
	UpcomingPosts       int64                       `json:"upcoming_posts"`
	Menus               int64                       `json:"menus"`
}

type DashboardService interface {
	Summary(actor model.Actor) (*DashboardSummary, error)
}

type dashboardService struct {
	profileRepo    repository.ProfileRepository
	bottleRepo     repository.BottleKeepRepository
	shiftRepo      repository.ShiftRepository
	attendanceRepo repository.AttendanceRepository
	snsRepo        repository.SNSRepository
	menuRepo       repository.MenuRepository
	loc            *time.Location
}

func NewDashboardService(
	profileRepo repository.ProfileRepository,
	bottleRepo repository.BottleKeepRepository,
	shiftRepo repository.ShiftRepository,
	attendanceRepo repository.AttendanceRepository,
	snsRepo repository.SNSRepository,
	menuRepo repository.MenuRepository,
	loc *time.Location,
) DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &dashboardService{
		profileRepo:    profileRepo,
		bottleRepo:     bottleRepo,
		shiftRepo:      shiftRepo,
		attendanceRepo: attendanceRepo,
		snsRepo:        snsRepo,
		menuRepo:       menuRepo,
		loc:            loc,
	}
}

func (s *dashboardService) Summary(actor model.Actor) (*DashboardSummary, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}

	now := nowFunc()
	storeID := actor.StoreID
	today := now.In(s.loc).Format(model.DateLayout)
	summary := &DashboardSummary{BusinessDate: BusinessDate(now, s.loc)}

	var err error
	if summary.ProfilesByRole, err = s.profileRepo.CountByRole(storeID); err != nil {
		return nil, s.fail("profiles", storeID, err)
	}
	if summary.ActiveBottleKeeps, err = s.bottleRepo.CountActive(storeID); err != nil {
		return nil, s.fail("bottle_keeps", storeID, err)
	}
	until := now.In(s.loc).AddDate(0, 0, expiringWindowDays).Format(model.DateLayout)
	if summary.ExpiringBottleKeeps, err = s.bottleRepo.CountExpiring(storeID, today, until); err != nil {
		return nil, s.fail("expiring_bottle_keeps", storeID, err)
	}
	if summary.PendingSubmissions, err = s.shiftRepo.CountPending(storeID); err != nil {
		return nil, s.fail("pending_submissions", storeID, err)
	}
	if summary.OpenShiftRequests, err = s.shiftRepo.CountOpenRequests(storeID, now); err != nil {
		return nil, s.fail("open_shift_requests", storeID, err)
	}
	if summary.TodayAttendance, err = s.attendanceRepo.CountForDate(storeID, summary.BusinessDate); err != nil {
		return nil, s.fail("attendance", storeID, err)
	}
	if summary.UpcomingPosts, err = s.snsRepo.CountUpcoming(storeID, now); err != nil {
		return nil, s.fail("upcoming_posts", storeID, err)
	}
	if summary.Menus, err = s.menuRepo.Count(storeID); err != nil {
		return nil, s.fail("menus", storeID, err)
	}
	return summary, nil
}

func (s *dashboardService) fail(metric string, storeID uint, err error) error {
	logger.Error("Failed to build dashboard summary", err, map[string]interface{}{
		"store_id": storeID,
		"metric":   metric,
	})
	return err
}
