package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/testutil"
)

func TestTaskService_CreateAssignment(t *testing.T) {
	env := newTestEnv(t)
	leader := testutil.CreateUser(t, env.db, "leader@example.com", models.RoleTeamLeader)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember, testutil.WithLeader(leader.ID))
	outsider := testutil.CreateUser(t, env.db, "outsider@example.com", models.RoleTeamMember)
	retired := testutil.CreateUser(t, env.db, "retired@example.com", models.RoleTeamMember, testutil.WithLeader(leader.ID), testutil.Inactive())

	own, err := env.tasks.CreateTask(env.ctx, testutil.IdentityOf(member), CreateTaskInput{Title: "File VAT return"})
	require.NoError(t, err)
	assert.Equal(t, member.ID, own.AssignedTo)
	assert.Equal(t, models.TaskStatusPending, own.Status)
	assert.Equal(t, models.TaskPriorityMedium, own.Priority)
	assert.Equal(t, models.TaskCategoryCase, own.TaskCategory)

	_, err = env.tasks.CreateTask(env.ctx, testutil.IdentityOf(member), CreateTaskInput{Title: "Delegate", AssignedTo: &outsider.ID})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	delegated, err := env.tasks.CreateTask(env.ctx, testutil.IdentityOf(leader), CreateTaskInput{
		Title:      "Prepare annual report",
		AssignedTo: &member.ID,
		Priority:   models.TaskPriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, member.ID, delegated.AssignedTo)
	assert.Equal(t, leader.ID, delegated.AssignedBy)
	require.NotNil(t, delegated.Assignee)
	assert.Equal(t, member.Email, delegated.Assignee.Email)

	_, err = env.tasks.CreateTask(env.ctx, testutil.IdentityOf(leader), CreateTaskInput{Title: "Outside", AssignedTo: &outsider.ID})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.tasks.CreateTask(env.ctx, testutil.IdentityOf(leader), CreateTaskInput{Title: "Retired", AssignedTo: &retired.ID})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.tasks.CreateTask(env.ctx, testutil.IdentityOf(leader), CreateTaskInput{Title: " "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.tasks.CreateTask(env.ctx, testutil.IdentityOf(leader), CreateTaskInput{Title: "Bad", Priority: models.TaskPriority("whenever")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.EqualValues(t, 2, testutil.CountRows(t, env.db, &models.Task{}, ""))
	assert.Len(t, env.auditEntries(t, "tasks"), 2)
}

func TestTaskService_ClientMustBeVisible(t *testing.T) {
	env := newTestEnv(t)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember)
	other := testutil.CreateUser(t, env.db, "other@example.com", models.RoleTeamMember)
	mine := testutil.CreateClient(t, env.db, "Mine", member.ID)
	theirs := testutil.CreateClient(t, env.db, "Theirs", other.ID)

	task, err := env.tasks.CreateTask(env.ctx, testutil.IdentityOf(member), CreateTaskInput{Title: "Bookkeeping", ClientID: &mine.ID})
	require.NoError(t, err)
	require.NotNil(t, task.ClientID)
	assert.Equal(t, mine.ID, *task.ClientID)

	_, err = env.tasks.CreateTask(env.ctx, testutil.IdentityOf(member), CreateTaskInput{Title: "Snoop", ClientID: &theirs.ID})
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"client_id"}, appErr.Fields)
}

func TestTaskService_CompletingSetsCompletedAt(t *testing.T) {
	env := newTestEnv(t)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember)
	task := testutil.CreateTask(t, env.db, "Reconcile ledger", member.ID)
	id := testutil.IdentityOf(member)

	done, err := env.tasks.UpdateTask(env.ctx, id, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatusCompleted)})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.Equal(fixedNow))
	assert.Equal(t, 100, done.ProgressPercentage)

	reopened, err := env.tasks.UpdateTask(env.ctx, id, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatusInProgress)})
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)

	_, err = env.tasks.UpdateTask(env.ctx, id, task.ID, UpdateTaskInput{ProgressPercentage: ptr(140)})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	entries := env.auditEntries(t, "tasks")
	require.Len(t, entries, 2)
	assert.Equal(t, "pending", decodeSnapshot(t, entries[0].OldValues)["status"])
	assert.Equal(t, "completed", decodeSnapshot(t, entries[0].NewValues)["status"])
}

func TestTaskService_ScopeAndDelete(t *testing.T) {
	env := newTestEnv(t)
	leader := testutil.CreateUser(t, env.db, "leader@example.com", models.RoleTeamLeader)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember, testutil.WithLeader(leader.ID))
	outsider := testutil.CreateUser(t, env.db, "outsider@example.com", models.RoleTeamMember)
	teamTask := testutil.CreateTask(t, env.db, "Team work", member.ID)
	foreign := testutil.CreateTask(t, env.db, "Foreign work", outsider.ID)

	_, err := env.tasks.UpdateTask(env.ctx, testutil.IdentityOf(member), foreign.ID, UpdateTaskInput{Title: ptr("mine now")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = env.tasks.DeleteTask(env.ctx, testutil.IdentityOf(member), teamTask.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	err = env.tasks.DeleteTask(env.ctx, testutil.IdentityOf(leader), foreign.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, env.tasks.DeleteTask(env.ctx, testutil.IdentityOf(leader), teamTask.ID))
	assert.Zero(t, testutil.CountRows(t, env.db, &models.Task{}, "id = ?", teamTask.ID))

	entries := env.auditEntries(t, "tasks")
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionDelete, entries[0].Action)
	assert.Equal(t, true, decodeSnapshot(t, entries[0].NewValues)["deleted"])
}

func TestTaskService_Subtasks(t *testing.T) {
	env := newTestEnv(t)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember)
	other := testutil.CreateUser(t, env.db, "other@example.com", models.RoleTeamMember)
	task := testutil.CreateTask(t, env.db, "Annual filing", member.ID)
	foreign := testutil.CreateTask(t, env.db, "Other filing", other.ID)
	id := testutil.IdentityOf(member)

	first, err := env.tasks.CreateSubtask(env.ctx, id, CreateSubtaskInput{TaskID: task.ID, Title: "Collect receipts"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, first.Status)
	_, err = env.tasks.CreateSubtask(env.ctx, id, CreateSubtaskInput{TaskID: task.ID, Title: "Submit form"})
	require.NoError(t, err)

	_, err = env.tasks.CreateSubtask(env.ctx, id, CreateSubtaskInput{TaskID: foreign.ID, Title: "Sneak in"})
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, []string{"task_id"}, appErr.Fields)

	completed, err := env.tasks.UpdateSubtask(env.ctx, id, first.ID, UpdateSubtaskInput{Status: ptr(models.TaskStatusCompleted)})
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)

	withProgress, total, err := env.tasks.ListTasksWithProgress(env.ctx, id, ListTasksInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, withProgress, 1)
	assert.EqualValues(t, 2, withProgress[0].SubtaskTotal)
	assert.EqualValues(t, 1, withProgress[0].SubtaskCompleted)

	subtasks, err := env.tasks.ListSubtasks(env.ctx, id, &task.ID)
	require.NoError(t, err)
	assert.Len(t, subtasks, 2)

	_, err = env.tasks.ListSubtasks(env.ctx, id, &foreign.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, env.tasks.DeleteSubtask(env.ctx, id, first.ID))
	assert.Len(t, env.auditEntries(t, "subtasks"), 4)
}

func TestTaskService_DueTodayFilter(t *testing.T) {
	env := newTestEnv(t)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember)
	today := fixedNow.Add(4 * time.Hour)
	tomorrow := fixedNow.AddDate(0, 0, 1)

	_, err := env.tasks.CreateTask(env.ctx, testutil.IdentityOf(member), CreateTaskInput{Title: "Today", DueDate: &today})
	require.NoError(t, err)
	_, err = env.tasks.CreateTask(env.ctx, testutil.IdentityOf(member), CreateTaskInput{Title: "Tomorrow", DueDate: &tomorrow})
	require.NoError(t, err)

	tasks, total, err := env.tasks.ListTasks(env.ctx, testutil.IdentityOf(member), ListTasksInput{DueToday: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Today", tasks[0].Title)
}

func TestTaskService_SuggestSubtasksWithoutAI(t *testing.T) {
	env := newTestEnv(t)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember)
	task := testutil.CreateTask(t, env.db, "Audit prep", member.ID)

	_, err := env.tasks.SuggestSubtasks(env.ctx, testutil.IdentityOf(member), task.ID)
	assert.ErrorIs(t, err, ErrAIServiceNotConfigured)
}
