package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/testutil"
	"gorm.io/gorm"
)

func seedTask(t *testing.T, db *gorm.DB, task models.Task) *models.Task {
	t.Helper()
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	if task.TaskCategory == "" {
		task.TaskCategory = models.TaskCategoryCase
	}
	task.AssignedBy = task.AssignedTo
	require.NoError(t, db.Omit("Assignee", "Subtasks").Create(&task).Error)
	return &task
}

func TestReportService_DashboardIsScoped(t *testing.T) {
	env := newTestEnv(t)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember)
	other := testutil.CreateUser(t, env.db, "other@example.com", models.RoleTeamMember)
	mine := testutil.CreateClient(t, env.db, "Mine", member.ID)
	theirs := testutil.CreateClient(t, env.db, "Theirs", other.ID)

	testutil.CreateInvoice(t, env.db, mine.ID, "INV-2024-001", "100", models.InvoiceStatusSent, fixedNow.AddDate(0, 0, -1))
	testutil.CreateInvoice(t, env.db, mine.ID, "INV-2024-002", "250", models.InvoiceStatusPaid, fixedNow.AddDate(0, 0, 5))
	testutil.CreateInvoice(t, env.db, theirs.ID, "INV-2024-003", "999", models.InvoiceStatusSent, fixedNow.AddDate(0, 0, 5))

	dueToday := fixedNow.Add(2 * time.Hour)
	overdue := fixedNow.AddDate(0, 0, -2)
	seedTask(t, env.db, models.Task{Title: "Today", Status: models.TaskStatusPending, AssignedTo: member.ID, DueDate: &dueToday})
	seedTask(t, env.db, models.Task{Title: "Late", Status: models.TaskStatusInProgress, AssignedTo: member.ID, DueDate: &overdue})
	seedTask(t, env.db, models.Task{Title: "Late but done", Status: models.TaskStatusCompleted, AssignedTo: member.ID, DueDate: &overdue})
	seedTask(t, env.db, models.Task{Title: "Not mine", Status: models.TaskStatusPending, AssignedTo: other.ID, DueDate: &overdue})

	stats, err := env.reports.Dashboard(env.ctx, testutil.IdentityOf(member))
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeamMember, stats.Role)
	assert.EqualValues(t, 1, stats.Clients.Total)
	assert.EqualValues(t, 1, stats.Clients.Active)

	assert.EqualValues(t, 2, stats.Invoices.Total)
	assert.EqualValues(t, 1, stats.Invoices.ByStatus[models.InvoiceStatusOverdue])
	assert.EqualValues(t, 1, stats.Invoices.ByStatus[models.InvoiceStatusPaid])
	assert.True(t, stats.Invoices.Outstanding.Equal(testutil.Money("100")))
	assert.True(t, stats.Invoices.Paid.Equal(testutil.Money("250")))

	assert.EqualValues(t, 3, stats.Tasks.Total)
	assert.EqualValues(t, 1, stats.Tasks.Overdue)
	assert.EqualValues(t, 1, stats.Tasks.DueToday)
}

func TestReportService_Analytics(t *testing.T) {
	env := newTestEnv(t)
	finance := testutil.CreateUser(t, env.db, "finance@example.com", models.RoleFinance)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember)
	client := testutil.CreateClient(t, env.db, "Acme", finance.ID)

	seedInvoice := func(number, amount string, created time.Time) *models.Invoice {
		inv := &models.Invoice{
			InvoiceNumber: number,
			ClientID:      client.ID,
			Amount:        testutil.Money(amount),
			DueDate:       created.AddDate(0, 1, 0),
			Status:        models.InvoiceStatusSent,
			CreatedBy:     finance.ID,
			CreatedAt:     created,
		}
		require.NoError(t, env.db.Omit("Client").Create(inv).Error)
		return inv
	}
	march := seedInvoice("INV-2024-001", "1000", time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	seedInvoice("INV-2024-002", "500", time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC))
	seedInvoice("INV-2023-001", "700", time.Date(2023, time.December, 30, 0, 0, 0, 0, time.UTC))

	require.NoError(t, env.db.Create(&models.Payment{
		InvoiceID:     march.ID,
		PaymentMethod: models.PaymentMethodTransfer,
		Amount:        testutil.Money("750"),
		PaymentDate:   time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		RecordedBy:    finance.ID,
	}).Error)

	analytics, err := env.reports.Analytics(env.ctx, testutil.IdentityOf(finance), 2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, analytics.Year)
	require.Len(t, analytics.Months, 12)
	assert.True(t, analytics.Months[2].Invoiced.Equal(testutil.Money("1000")))
	assert.True(t, analytics.Months[3].Collected.Equal(testutil.Money("750")))
	assert.True(t, analytics.Months[4].Invoiced.Equal(testutil.Money("500")))
	assert.True(t, analytics.TotalInvoiced.Equal(testutil.Money("1500")))
	assert.True(t, analytics.TotalCollected.Equal(testutil.Money("750")))
	assert.Equal(t, 50.0, analytics.CollectionRate)

	defaulted, err := env.reports.Analytics(env.ctx, testutil.IdentityOf(finance), 0)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Year(), defaulted.Year)

	_, err = env.reports.Analytics(env.ctx, testutil.IdentityOf(finance), 199)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.reports.Analytics(env.ctx, testutil.IdentityOf(member), 2024)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestReportService_TeamPerformance(t *testing.T) {
	env := newTestEnv(t)
	leader := testutil.CreateUser(t, env.db, "leader@example.com", models.RoleTeamLeader)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember, testutil.WithLeader(leader.ID))
	outsider := testutil.CreateUser(t, env.db, "outsider@example.com", models.RoleTeamMember)

	created := fixedNow.AddDate(0, 0, -3)
	past := fixedNow.AddDate(0, 0, -1)
	seedTask(t, env.db, models.Task{Title: "Done", Status: models.TaskStatusCompleted, AssignedTo: member.ID, ProgressPercentage: 100, CreatedAt: created})
	seedTask(t, env.db, models.Task{Title: "Late", Status: models.TaskStatusPending, AssignedTo: member.ID, DueDate: &past, CreatedAt: created})
	seedTask(t, env.db, models.Task{Title: "Old", Status: models.TaskStatusPending, AssignedTo: member.ID, CreatedAt: fixedNow.AddDate(0, -3, 0)})
	seedTask(t, env.db, models.Task{Title: "Elsewhere", Status: models.TaskStatusCompleted, AssignedTo: outsider.ID, CreatedAt: created})

	perf, err := env.reports.TeamPerformance(env.ctx, testutil.IdentityOf(leader), nil, nil)
	require.NoError(t, err)
	require.Len(t, perf, 2)

	assert.Equal(t, member.ID, perf[0].UserID)
	assert.EqualValues(t, 2, perf[0].TotalTasks)
	assert.EqualValues(t, 1, perf[0].CompletedTasks)
	assert.EqualValues(t, 1, perf[0].OverdueTasks)
	assert.Equal(t, 50.0, perf[0].CompletionRate)
	assert.Equal(t, 50.0, perf[0].AverageProgress)

	assert.Equal(t, leader.ID, perf[1].UserID)
	assert.Zero(t, perf[1].TotalTasks)

	_, err = env.reports.TeamPerformance(env.ctx, testutil.IdentityOf(member), nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestReportService_TeamOverview(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin@example.com", models.RoleAdmin)
	leader := testutil.CreateUser(t, env.db, "leader@example.com", models.RoleTeamLeader)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember, testutil.WithLeader(leader.ID))
	testutil.CreateUser(t, env.db, "gone@example.com", models.RoleTeamMember, testutil.WithLeader(leader.ID), testutil.Inactive())
	testutil.CreateUser(t, env.db, "solo@example.com", models.RoleTeamMember)

	testutil.CreateTask(t, env.db, "Open one", member.ID)
	testutil.CreateTask(t, env.db, "Open two", member.ID)
	testutil.CreateTask(t, env.db, "Leader work", leader.ID)

	overview, err := env.reports.TeamOverview(env.ctx, testutil.IdentityOf(admin))
	require.NoError(t, err)
	require.Len(t, overview.Teams, 1)

	team := overview.Teams[0]
	assert.Equal(t, leader.ID, team.Leader.ID)
	assert.EqualValues(t, 1, team.Leader.OpenTasks)
	require.Len(t, team.Members, 1)
	assert.Equal(t, member.ID, team.Members[0].ID)
	assert.EqualValues(t, 2, team.Members[0].OpenTasks)
	assert.EqualValues(t, 3, team.OpenTasks)

	var unassigned []string
	for _, u := range overview.Unassigned {
		unassigned = append(unassigned, u.Email)
	}
	assert.ElementsMatch(t, []string{"admin@example.com", "solo@example.com"}, unassigned)

	mine, err := env.reports.TeamOverview(env.ctx, testutil.IdentityOf(leader))
	require.NoError(t, err)
	require.Len(t, mine.Teams, 1)
	assert.Len(t, mine.Teams[0].Members, 1)
	assert.Empty(t, mine.Unassigned)
}

func TestReportService_TaskReport(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin@example.com", models.RoleAdmin)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember)

	day1 := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	seedTask(t, env.db, models.Task{Title: "A", Status: models.TaskStatusCompleted, AssignedTo: member.ID, CreatedAt: day1, CompletedAt: &day2, Priority: models.TaskPriorityHigh})
	seedTask(t, env.db, models.Task{Title: "B", Status: models.TaskStatusPending, AssignedTo: member.ID, CreatedAt: day2, TaskCategory: models.TaskCategoryHarian})
	seedTask(t, env.db, models.Task{Title: "C", Status: models.TaskStatusPending, AssignedTo: member.ID, CreatedAt: day1.AddDate(0, -2, 0)})

	from := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.June, 13, 0, 0, 0, 0, time.UTC)
	report, err := env.reports.TaskReport(env.ctx, testutil.IdentityOf(admin), &from, &to)
	require.NoError(t, err)

	require.Len(t, report.Daily, 3)
	assert.Equal(t, DailyTaskCount{Date: "2024-06-10", Created: 1}, report.Daily[0])
	assert.Equal(t, DailyTaskCount{Date: "2024-06-11", Created: 1, Completed: 1}, report.Daily[1])
	assert.Equal(t, DailyTaskCount{Date: "2024-06-12"}, report.Daily[2])
	assert.EqualValues(t, 1, report.ByCategory[models.TaskCategoryCase])
	assert.EqualValues(t, 1, report.ByCategory[models.TaskCategoryHarian])
	assert.EqualValues(t, 1, report.ByPriority[models.TaskPriorityHigh])
	assert.EqualValues(t, 1, report.ByStatus[models.TaskStatusCompleted])
}

func TestReportService_WindowValidation(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin@example.com", models.RoleAdmin)
	id := testutil.IdentityOf(admin)

	from := fixedNow
	to := fixedNow.AddDate(0, 0, -1)
	_, err := env.reports.TaskReport(env.ctx, id, &from, &to)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	wide := fixedNow.AddDate(-2, 0, 0)
	_, err = env.reports.TeamPerformance(env.ctx, id, &wide, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	report, err := env.reports.TaskReport(env.ctx, id, nil, nil)
	require.NoError(t, err)
	assert.True(t, report.To.Equal(fixedNow))
	assert.True(t, report.From.Equal(fixedNow.Add(-30*24*time.Hour)))
}
