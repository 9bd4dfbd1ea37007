package services

import (
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"github.com/yukikurage/taxoffice-api/internal/testutil"
)

func TestInvoiceService_CreateAllocatesSequentialNumbers(t *testing.T) {
	env := newTestEnv(t)
	finance := testutil.CreateUser(t, env.db, "finance@example.com", models.RoleFinance)
	client := testutil.CreateClient(t, env.db, "Acme", finance.ID)
	due := fixedNow.AddDate(0, 1, 0)

	first, err := env.invoices.CreateInvoice(env.ctx, testutil.IdentityOf(finance), CreateInvoiceInput{
		ClientID: client.ID,
		Period:   "2024-Q2",
		Amount:   testutil.Money("1500.00"),
		DueDate:  &due,
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-001", first.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusDraft, first.Status)
	assert.Equal(t, finance.ID, first.CreatedBy)
	require.NotNil(t, first.Client)
	assert.Equal(t, "Acme", first.Client.Name)

	second, err := env.invoices.CreateInvoice(env.ctx, testutil.IdentityOf(finance), CreateInvoiceInput{
		ClientID: client.ID,
		Amount:   testutil.Money("200"),
		DueDate:  &due,
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-002", second.InvoiceNumber)

	entries := env.auditEntries(t, "invoices")
	require.Len(t, entries, 2)
	assert.Equal(t, models.AuditActionCreate, entries[0].Action)
	assert.Equal(t, finance.ID, entries[0].UserID)
	assert.Equal(t, recordID(first.ID), entries[0].RecordID)
	assert.Nil(t, decodeSnapshot(t, entries[0].OldValues))
	assert.Equal(t, "INV-2024-001", decodeSnapshot(t, entries[0].NewValues)["invoice_number"])
}

func TestInvoiceService_NumberingSurvivesDeletions(t *testing.T) {
	env := newTestEnv(t)
	finance := testutil.CreateUser(t, env.db, "finance@example.com", models.RoleFinance)
	client := testutil.CreateClient(t, env.db, "Acme", finance.ID)
	id := testutil.IdentityOf(finance)
	due := fixedNow.AddDate(0, 1, 0)

	create := func() *models.Invoice {
		t.Helper()
		inv, err := env.invoices.CreateInvoice(env.ctx, id, CreateInvoiceInput{
			ClientID: client.ID,
			Amount:   testutil.Money("100"),
			DueDate:  &due,
		})
		require.NoError(t, err)
		return inv
	}

	var created []*models.Invoice
	for i := 0; i < 20; i++ {
		created = append(created, create())
	}
	for _, inv := range created[:6] {
		require.NoError(t, env.invoices.DeleteInvoice(env.ctx, id, inv.ID))
	}

	assert.Equal(t, "INV-2024-021", create().InvoiceNumber)
	assert.Equal(t, "INV-2024-022", create().InvoiceNumber)
}

func TestInvoiceService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	finance := testutil.CreateUser(t, env.db, "finance@example.com", models.RoleFinance)
	client := testutil.CreateClient(t, env.db, "Acme", finance.ID)
	due := fixedNow.AddDate(0, 1, 0)
	id := testutil.IdentityOf(finance)

	_, err := env.invoices.CreateInvoice(env.ctx, id, CreateInvoiceInput{})
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.ElementsMatch(t, []string{"client_id", "amount", "due_date"}, appErr.Fields)

	_, err = env.invoices.CreateInvoice(env.ctx, id, CreateInvoiceInput{ClientID: client.ID, Amount: testutil.Money("-5"), DueDate: &due})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.invoices.CreateInvoice(env.ctx, id, CreateInvoiceInput{ClientID: client.ID, Amount: testutil.Money("10.005"), DueDate: &due})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.invoices.CreateInvoice(env.ctx, id, CreateInvoiceInput{ClientID: "missing", Amount: testutil.Money("10"), DueDate: &due})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"client_id"}, appErr.Fields)

	assert.Zero(t, testutil.CountRows(t, env.db, &models.Invoice{}, ""))
	assert.Empty(t, env.auditEntries(t, "invoices"))
}

func TestInvoiceService_TeamMemberCannotCreate(t *testing.T) {
	env := newTestEnv(t)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember)
	client := testutil.CreateClient(t, env.db, "Acme", member.ID)
	due := fixedNow.AddDate(0, 1, 0)

	_, err := env.invoices.CreateInvoice(env.ctx, testutil.IdentityOf(member), CreateInvoiceInput{
		ClientID: client.ID,
		Amount:   testutil.Money("100"),
		DueDate:  &due,
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Zero(t, testutil.CountRows(t, env.db, &models.Invoice{}, ""))
	assert.Empty(t, env.auditEntries(t, "invoices"))
}

func TestInvoiceService_ReadScopeFollowsClient(t *testing.T) {
	env := newTestEnv(t)
	member := testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember)
	other := testutil.CreateUser(t, env.db, "other@example.com", models.RoleTeamMember)
	mine := testutil.CreateClient(t, env.db, "Mine", member.ID)
	theirs := testutil.CreateClient(t, env.db, "Theirs", other.ID)
	due := fixedNow.AddDate(0, 1, 0)

	visible := testutil.CreateInvoice(t, env.db, mine.ID, "INV-2024-001", "100", models.InvoiceStatusSent, due)
	hidden := testutil.CreateInvoice(t, env.db, theirs.ID, "INV-2024-002", "100", models.InvoiceStatusSent, due)

	got, err := env.invoices.GetInvoice(env.ctx, testutil.IdentityOf(member), visible.ID)
	require.NoError(t, err)
	assert.Equal(t, visible.ID, got.ID)

	_, err = env.invoices.GetInvoice(env.ctx, testutil.IdentityOf(member), hidden.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInvoiceService_TransitionStampsAndAudits(t *testing.T) {
	env := newTestEnv(t)
	finance := testutil.CreateUser(t, env.db, "finance@example.com", models.RoleFinance)
	client := testutil.CreateClient(t, env.db, "Acme", finance.ID)
	inv := testutil.CreateInvoice(t, env.db, client.ID, "INV-2024-001", "100", models.InvoiceStatusDraft, fixedNow.AddDate(0, 1, 0))
	id := testutil.IdentityOf(finance)

	sent, err := env.invoices.TransitionInvoice(env.ctx, id, inv.ID, models.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	assert.True(t, sent.SentAt.Equal(fixedNow))
	assert.Equal(t, 1.0, promtest.ToFloat64(env.metrics.InvoiceTransitions.WithLabelValues("draft", "sent")))

	entries := env.auditEntries(t, "invoices")
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionUpdate, entries[0].Action)
	assert.Equal(t, "draft", decodeSnapshot(t, entries[0].OldValues)["status"])
	assert.Equal(t, "sent", decodeSnapshot(t, entries[0].NewValues)["status"])

	// Same status is accepted without a write
	_, err = env.invoices.TransitionInvoice(env.ctx, id, inv.ID, models.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Len(t, env.auditEntries(t, "invoices"), 1)

	_, err = env.invoices.TransitionInvoice(env.ctx, id, inv.ID, models.InvoiceStatusDraft)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.invoices.TransitionInvoice(env.ctx, id, inv.ID, models.InvoiceStatusPaid)
	require.NoError(t, err)
	done, err := env.invoices.TransitionInvoice(env.ctx, id, inv.ID, models.InvoiceStatusDone)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDone, done.Status)

	var stored models.Invoice
	require.NoError(t, env.db.First(&stored, inv.ID).Error)
	assert.Equal(t, models.InvoiceStatusDone, stored.Status)
	require.NotNil(t, stored.PaidAt)
}

func TestInvoiceService_TeamLeaderCannotTransition(t *testing.T) {
	env := newTestEnv(t)
	leader := testutil.CreateUser(t, env.db, "leader@example.com", models.RoleTeamLeader)
	client := testutil.CreateClient(t, env.db, "Acme", leader.ID)
	inv := testutil.CreateInvoice(t, env.db, client.ID, "INV-2024-001", "100", models.InvoiceStatusPaid, fixedNow.AddDate(0, 1, 0))

	_, err := env.invoices.TransitionInvoice(env.ctx, testutil.IdentityOf(leader), inv.ID, models.InvoiceStatusDone)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestInvoiceService_UpdateRules(t *testing.T) {
	env := newTestEnv(t)
	finance := testutil.CreateUser(t, env.db, "finance@example.com", models.RoleFinance)
	client := testutil.CreateClient(t, env.db, "Acme", finance.ID)
	id := testutil.IdentityOf(finance)

	open := testutil.CreateInvoice(t, env.db, client.ID, "INV-2024-001", "100", models.InvoiceStatusDraft, fixedNow.AddDate(0, 1, 0))
	updated, err := env.invoices.UpdateInvoice(env.ctx, id, open.ID, UpdateInvoiceInput{
		Amount: ptr(testutil.Money("250.50")),
		Notes:  ptr("second instalment"),
		Status: ptr(models.InvoiceStatusSent),
	})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(testutil.Money("250.50")))
	assert.Equal(t, "second instalment", updated.Notes)
	assert.Equal(t, models.InvoiceStatusSent, updated.Status)
	assert.Len(t, env.auditEntries(t, "invoices"), 1)

	unchanged, err := env.invoices.UpdateInvoice(env.ctx, id, open.ID, UpdateInvoiceInput{
		Amount: ptr(testutil.Money("250.5")),
		Notes:  ptr("second instalment"),
		Status: ptr(models.InvoiceStatusSent),
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, unchanged.Status)
	assert.Len(t, env.auditEntries(t, "invoices"), 1)

	closed := testutil.CreateInvoice(t, env.db, client.ID, "INV-2024-002", "100", models.InvoiceStatusDone, fixedNow.AddDate(0, 1, 0))
	_, err = env.invoices.UpdateInvoice(env.ctx, id, closed.ID, UpdateInvoiceInput{Notes: ptr("late edit")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestInvoiceService_DeleteRefusedWithPayments(t *testing.T) {
	env := newTestEnv(t)
	finance := testutil.CreateUser(t, env.db, "finance@example.com", models.RoleFinance)
	client := testutil.CreateClient(t, env.db, "Acme", finance.ID)
	id := testutil.IdentityOf(finance)

	paid := testutil.CreateInvoice(t, env.db, client.ID, "INV-2024-001", "100", models.InvoiceStatusSent, fixedNow.AddDate(0, 1, 0))
	require.NoError(t, env.db.Create(&models.Payment{
		InvoiceID:     paid.ID,
		PaymentMethod: models.PaymentMethodCash,
		Amount:        testutil.Money("10"),
		PaymentDate:   fixedNow,
		RecordedBy:    finance.ID,
	}).Error)

	err := env.invoices.DeleteInvoice(env.ctx, id, paid.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	draft := testutil.CreateInvoice(t, env.db, client.ID, "INV-2024-002", "100", models.InvoiceStatusDraft, fixedNow.AddDate(0, 1, 0))
	require.NoError(t, env.invoices.DeleteInvoice(env.ctx, id, draft.ID))

	entries := env.auditEntries(t, "invoices")
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionDelete, entries[0].Action)
	require.NotEmpty(t, entries[0].NewValues)
	tombstone := decodeSnapshot(t, entries[0].NewValues)
	assert.Equal(t, true, tombstone["deleted"])
	assert.Equal(t, "2024-06-15T10:00:00Z", tombstone["deleted_at"])
	assert.Equal(t, draft.InvoiceNumber, decodeSnapshot(t, entries[0].OldValues)["invoice_number"])

	_, err = env.invoices.GetInvoice(env.ctx, id, draft.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInvoiceService_StatusFilterMatchesDisplayedStatus(t *testing.T) {
	env := newTestEnv(t)
	finance := testutil.CreateUser(t, env.db, "finance@example.com", models.RoleFinance)
	client := testutil.CreateClient(t, env.db, "Acme", finance.ID)
	id := testutil.IdentityOf(finance)
	past := fixedNow.AddDate(0, 0, -10)
	future := fixedNow.AddDate(0, 0, 10)

	lateSent := testutil.CreateInvoice(t, env.db, client.ID, "INV-2024-001", "100", models.InvoiceStatusSent, past)
	lateDraft := testutil.CreateInvoice(t, env.db, client.ID, "INV-2024-002", "100", models.InvoiceStatusDraft, past)
	markedOverdue := testutil.CreateInvoice(t, env.db, client.ID, "INV-2024-003", "100", models.InvoiceStatusOverdue, past)
	openSent := testutil.CreateInvoice(t, env.db, client.ID, "INV-2024-004", "100", models.InvoiceStatusSent, future)
	latePaid := testutil.CreateInvoice(t, env.db, client.ID, "INV-2024-005", "100", models.InvoiceStatusPaid, past)

	ids := func(status models.InvoiceStatus) []uint64 {
		t.Helper()
		invoices, total, err := env.invoices.ListInvoices(env.ctx, id, repository.InvoiceFilter{Status: &status})
		require.NoError(t, err)
		require.EqualValues(t, len(invoices), total)
		out := make([]uint64, len(invoices))
		for i, inv := range invoices {
			out[i] = inv.ID
		}
		return out
	}

	assert.ElementsMatch(t, []uint64{lateSent.ID, lateDraft.ID, markedOverdue.ID}, ids(models.InvoiceStatusOverdue))
	assert.ElementsMatch(t, []uint64{openSent.ID}, ids(models.InvoiceStatusSent))
	assert.Empty(t, ids(models.InvoiceStatusDraft))
	assert.ElementsMatch(t, []uint64{latePaid.ID}, ids(models.InvoiceStatusPaid))

	stats, err := env.reports.Dashboard(env.ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Invoices.ByStatus[models.InvoiceStatusOverdue])
}
