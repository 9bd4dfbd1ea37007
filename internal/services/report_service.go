package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/authz"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/lifecycle"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
)

// defaultReportWindow is used when a report range is not given
const defaultReportWindow = 30 * 24 * time.Hour

// ReportService builds the dashboard and reporting views. Every figure is
// computed over rows inside the caller's scope for that resource.
type ReportService struct {
	clientRepo  repository.ClientRepository
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	taskRepo    repository.TaskRepository
	userRepo    repository.UserRepository
	policy      *authz.Policy
	now         func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(
	clientRepo repository.ClientRepository,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	policy *authz.Policy,
) *ReportService {
	return &ReportService{
		clientRepo:  clientRepo,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		taskRepo:    taskRepo,
		userRepo:    userRepo,
		policy:      policy,
		now:         time.Now,
	}
}

type ClientStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

type InvoiceStats struct {
	Total       int64                          `json:"total"`
	ByStatus    map[models.InvoiceStatus]int64 `json:"by_status"`
	Outstanding decimal.Decimal                `json:"outstanding_amount"`
	Paid        decimal.Decimal                `json:"paid_amount"`
}

type TaskStats struct {
	Total    int64                       `json:"total"`
	ByStatus map[models.TaskStatus]int64 `json:"by_status"`
	Overdue  int64                       `json:"overdue"`
	DueToday int64                       `json:"due_today"`
}

// DashboardStats is the landing page summary
type DashboardStats struct {
	Role     models.Role  `json:"role"`
	Clients  ClientStats  `json:"clients"`
	Invoices InvoiceStats `json:"invoices"`
	Tasks    TaskStats    `json:"tasks"`
}

// MonthlyAmount is the invoiced and collected totals for one month
type MonthlyAmount struct {
	Month     int             `json:"month"`
	Invoiced  decimal.Decimal `json:"invoiced"`
	Collected decimal.Decimal `json:"collected"`
}

// Analytics is the yearly revenue view
type Analytics struct {
	Year           int             `json:"year"`
	Months         []MonthlyAmount `json:"months"`
	TotalInvoiced  decimal.Decimal `json:"total_invoiced"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	// CollectionRate is collected / invoiced as a percentage
	CollectionRate float64 `json:"collection_rate"`
}

// UserPerformance aggregates the tasks of one user
type UserPerformance struct {
	UserID          uint64      `json:"user_id"`
	Name            string      `json:"name"`
	Role            models.Role `json:"role"`
	TotalTasks      int64       `json:"total_tasks"`
	CompletedTasks  int64       `json:"completed_tasks"`
	OverdueTasks    int64       `json:"overdue_tasks"`
	AverageProgress float64     `json:"average_progress"`
	EstimatedHours  float64     `json:"estimated_hours"`
	CompletedHours  float64     `json:"completed_hours"`
	CompletionRate  float64     `json:"completion_rate"`
}

// TeamMemberSummary is one user in the team overview
type TeamMemberSummary struct {
	ID        uint64      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	OpenTasks int64       `json:"open_tasks"`
}

// TeamSummary is a team leader with the members reporting to them
type TeamSummary struct {
	Leader    TeamMemberSummary   `json:"leader"`
	Members   []TeamMemberSummary `json:"members"`
	OpenTasks int64               `json:"open_tasks"`
}

// TeamOverview groups visible users by team
type TeamOverview struct {
	Teams      []TeamSummary       `json:"teams"`
	Unassigned []TeamMemberSummary `json:"unassigned"`
}

// DailyTaskCount is the created and completed task counts of one day
type DailyTaskCount struct {
	Date      string `json:"date"`
	Created   int64  `json:"created"`
	Completed int64  `json:"completed"`
}

// TaskReport is the task trend over a date range
type TaskReport struct {
	From       time.Time                     `json:"from"`
	To         time.Time                     `json:"to"`
	Daily      []DailyTaskCount              `json:"daily"`
	ByCategory map[models.TaskCategory]int64 `json:"by_category"`
	ByStatus   map[models.TaskStatus]int64   `json:"by_status"`
	ByPriority map[models.TaskPriority]int64 `json:"by_priority"`
}

// Dashboard returns the summary counts visible to identity
func (s *ReportService) Dashboard(ctx context.Context, identity *auth.Identity) (*DashboardStats, error) {
	if _, err := s.policy.Authorize(identity, authz.ResourceReport, authz.ActionRead); err != nil {
		return nil, err
	}
	now := s.now()

	stats := &DashboardStats{
		Role: identity.Role,
		Invoices: InvoiceStats{
			ByStatus:    make(map[models.InvoiceStatus]int64, len(models.InvoiceStatuses)),
			Outstanding: decimal.Zero,
			Paid:        decimal.Zero,
		},
		Tasks: TaskStats{ByStatus: make(map[models.TaskStatus]int64, len(models.TaskStatuses))},
	}

	clients, _, err := s.clientRepo.List(ctx, s.scope(identity, authz.ResourceClient), repository.ClientFilter{})
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		stats.Clients.Total++
		if c.Status == models.ClientStatusActive {
			stats.Clients.Active++
		}
	}

	invoices, _, err := s.invoiceRepo.List(ctx, s.scope(identity, authz.ResourceInvoice), repository.InvoiceFilter{})
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		status := lifecycle.EffectiveStatus(&invoices[i], now)
		stats.Invoices.Total++
		stats.Invoices.ByStatus[status]++
		switch status {
		case models.InvoiceStatusPaid, models.InvoiceStatusDone:
			stats.Invoices.Paid = stats.Invoices.Paid.Add(invoices[i].Amount)
		default:
			stats.Invoices.Outstanding = stats.Invoices.Outstanding.Add(invoices[i].Amount)
		}
	}

	tasks, _, err := s.taskRepo.List(ctx, s.scope(identity, authz.ResourceTask), repository.TaskFilter{})
	if err != nil {
		return nil, err
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)
	for _, t := range tasks {
		stats.Tasks.Total++
		stats.Tasks.ByStatus[t.Status]++
		if !t.Status.IsOpen() || t.DueDate == nil {
			continue
		}
		if t.DueDate.Before(now) {
			stats.Tasks.Overdue++
		}
		if !t.DueDate.Before(startOfDay) && t.DueDate.Before(endOfDay) {
			stats.Tasks.DueToday++
		}
	}

	return stats, nil
}

// Analytics returns monthly invoiced and collected amounts for year
func (s *ReportService) Analytics(ctx context.Context, identity *auth.Identity, year int) (*Analytics, error) {
	if _, err := s.policy.Authorize(identity, authz.ResourceReport, authz.ActionAnalytics); err != nil {
		return nil, err
	}
	if year == 0 {
		year = s.now().Year()
	}
	if year < 2000 || year > 9999 {
		return nil, apperrors.Validation("Invalid year", "year")
	}

	loc := s.now().Location()
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	to := from.AddDate(1, 0, 0)

	result := &Analytics{
		Year:           year,
		Months:         make([]MonthlyAmount, 12),
		TotalInvoiced:  decimal.Zero,
		TotalCollected: decimal.Zero,
	}
	for i := range result.Months {
		result.Months[i] = MonthlyAmount{Month: i + 1, Invoiced: decimal.Zero, Collected: decimal.Zero}
	}

	invoices, _, err := s.invoiceRepo.List(ctx, s.scope(identity, authz.ResourceInvoice), repository.InvoiceFilter{
		CreatedFrom: &from,
		CreatedTo:   &to,
	})
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		m := &result.Months[inv.CreatedAt.In(loc).Month()-1]
		m.Invoiced = m.Invoiced.Add(inv.Amount)
		result.TotalInvoiced = result.TotalInvoiced.Add(inv.Amount)
	}

	payments, _, err := s.paymentRepo.List(ctx, s.scope(identity, authz.ResourcePayment), repository.PaymentFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		m := &result.Months[p.PaymentDate.In(loc).Month()-1]
		m.Collected = m.Collected.Add(p.Amount)
		result.TotalCollected = result.TotalCollected.Add(p.Amount)
	}

	if result.TotalInvoiced.IsPositive() {
		rate, _ := result.TotalCollected.Div(result.TotalInvoiced).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		result.CollectionRate = rate
	}

	return result, nil
}

// TeamPerformance aggregates tasks created in [from, to) per visible user
func (s *ReportService) TeamPerformance(ctx context.Context, identity *auth.Identity, from, to *time.Time) ([]UserPerformance, error) {
	if _, err := s.policy.Authorize(identity, authz.ResourceReport, authz.ActionTeamPerformance); err != nil {
		return nil, err
	}
	from, to, err := s.window(from, to)
	if err != nil {
		return nil, err
	}
	now := s.now()

	active := models.UserStatusActive
	users, _, err := s.userRepo.List(ctx, s.scope(identity, authz.ResourceUser), repository.UserFilter{Status: &active})
	if err != nil {
		return nil, err
	}

	tasks, _, err := s.taskRepo.List(ctx, s.scope(identity, authz.ResourceTask), repository.TaskFilter{
		CreatedFrom: from,
		CreatedTo:   to,
	})
	if err != nil {
		return nil, err
	}

	byUser := make(map[uint64][]models.Task, len(users))
	for _, t := range tasks {
		byUser[t.AssignedTo] = append(byUser[t.AssignedTo], t)
	}

	result := make([]UserPerformance, 0, len(users))
	for _, u := range users {
		perf := UserPerformance{UserID: u.ID, Name: u.Name, Role: u.Role}
		var progress int
		for _, t := range byUser[u.ID] {
			perf.TotalTasks++
			progress += t.ProgressPercentage
			perf.EstimatedHours += t.EstimatedHours
			perf.CompletedHours += t.CompletedHours
			if t.Status == models.TaskStatusCompleted {
				perf.CompletedTasks++
			} else if t.Status.IsOpen() && t.DueDate != nil && t.DueDate.Before(now) {
				perf.OverdueTasks++
			}
		}
		if perf.TotalTasks > 0 {
			perf.AverageProgress = round2(float64(progress) / float64(perf.TotalTasks))
			perf.CompletionRate = round2(float64(perf.CompletedTasks) * 100 / float64(perf.TotalTasks))
		}
		result = append(result, perf)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CompletionRate != result[j].CompletionRate {
			return result[i].CompletionRate > result[j].CompletionRate
		}
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// TeamOverview groups visible active users under their team leaders
func (s *ReportService) TeamOverview(ctx context.Context, identity *auth.Identity) (*TeamOverview, error) {
	if _, err := s.policy.Authorize(identity, authz.ResourceReport, authz.ActionTeamPerformance); err != nil {
		return nil, err
	}

	active := models.UserStatusActive
	users, _, err := s.userRepo.List(ctx, s.scope(identity, authz.ResourceUser), repository.UserFilter{Status: &active})
	if err != nil {
		return nil, err
	}

	tasks, _, err := s.taskRepo.List(ctx, s.scope(identity, authz.ResourceTask), repository.TaskFilter{})
	if err != nil {
		return nil, err
	}
	openTasks := make(map[uint64]int64)
	for _, t := range tasks {
		if t.Status.IsOpen() {
			openTasks[t.AssignedTo]++
		}
	}

	summary := func(u models.User) TeamMemberSummary {
		return TeamMemberSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, OpenTasks: openTasks[u.ID]}
	}

	overview := &TeamOverview{Teams: []TeamSummary{}, Unassigned: []TeamMemberSummary{}}
	teamIndex := make(map[uint64]int)
	for _, u := range users {
		if u.Role == models.RoleTeamLeader {
			teamIndex[u.ID] = len(overview.Teams)
			overview.Teams = append(overview.Teams, TeamSummary{
				Leader:    summary(u),
				Members:   []TeamMemberSummary{},
				OpenTasks: openTasks[u.ID],
			})
		}
	}
	for _, u := range users {
		if u.Role == models.RoleTeamLeader {
			continue
		}
		if u.TeamLeaderID != nil {
			if i, ok := teamIndex[*u.TeamLeaderID]; ok {
				team := &overview.Teams[i]
				team.Members = append(team.Members, summary(u))
				team.OpenTasks += openTasks[u.ID]
				continue
			}
		}
		overview.Unassigned = append(overview.Unassigned, summary(u))
	}

	return overview, nil
}

// TaskReport returns the per-day created and completed trend in [from, to)
// together with breakdowns of the tasks created in that range.
func (s *ReportService) TaskReport(ctx context.Context, identity *auth.Identity, from, to *time.Time) (*TaskReport, error) {
	if _, err := s.policy.Authorize(identity, authz.ResourceReport, authz.ActionTeamPerformance); err != nil {
		return nil, err
	}
	from, to, err := s.window(from, to)
	if err != nil {
		return nil, err
	}

	tasks, _, err := s.taskRepo.List(ctx, s.scope(identity, authz.ResourceTask), repository.TaskFilter{})
	if err != nil {
		return nil, err
	}

	report := &TaskReport{
		From:       *from,
		To:         *to,
		Daily:      []DailyTaskCount{},
		ByCategory: make(map[models.TaskCategory]int64),
		ByStatus:   make(map[models.TaskStatus]int64),
		ByPriority: make(map[models.TaskPriority]int64),
	}

	loc := from.Location()
	dayIndex := make(map[string]int)
	for day := truncateDay(*from); day.Before(*to); day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		dayIndex[key] = len(report.Daily)
		report.Daily = append(report.Daily, DailyTaskCount{Date: key})
	}

	inRange := func(t time.Time) bool {
		return !t.Before(*from) && t.Before(*to)
	}
	for _, t := range tasks {
		if inRange(t.CreatedAt) {
			if i, ok := dayIndex[t.CreatedAt.In(loc).Format(time.DateOnly)]; ok {
				report.Daily[i].Created++
			}
			report.ByCategory[t.TaskCategory]++
			report.ByStatus[t.Status]++
			report.ByPriority[t.Priority]++
		}
		if t.CompletedAt != nil && inRange(*t.CompletedAt) {
			if i, ok := dayIndex[t.CompletedAt.In(loc).Format(time.DateOnly)]; ok {
				report.Daily[i].Completed++
			}
		}
	}

	return report, nil
}

func (s *ReportService) scope(identity *auth.Identity, res authz.Resource) authz.Scope {
	return authz.ScopeFor(identity.Role, res, identity.ID)
}

// window defaults a missing range to the trailing 30 days.
func (s *ReportService) window(from, to *time.Time) (*time.Time, *time.Time, error) {
	if to == nil {
		end := s.now()
		to = &end
	}
	if from == nil {
		start := to.Add(-defaultReportWindow)
		from = &start
	}
	if !from.Before(*to) {
		return nil, nil, apperrors.Validation("Start date must be before end date", "from", "to")
	}
	if to.Sub(*from) > 366*24*time.Hour {
		return nil, nil, apperrors.Validation("Date range cannot exceed one year", "from", "to")
	}
	return from, to, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func round2(v float64) float64 {
	d, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return d
}
