package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/constants"
	"github.com/yukikurage/taxoffice-api/internal/idgen"
	"github.com/yukikurage/taxoffice-api/internal/metrics"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"github.com/yukikurage/taxoffice-api/internal/services"
	"github.com/yukikurage/taxoffice-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testServer is the full router over an in-memory database.
type testServer struct {
	db      *gorm.DB
	router  *gin.Engine
	tokens  *auth.TokenManager
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	log := zap.NewNop()
	policy := authz.MustNewPolicy()
	m := metrics.New()
	tokens := auth.NewTokenManager([]byte("handler-test-secret"), time.Hour)
	node, err := idgen.NewNode(1)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	audit := services.NewAuditService(repository.NewAuditRepository(db), policy, node, m, log)
	invoices := services.NewInvoiceService(invoiceRepo, clientRepo, policy, audit, m)
	tasks := services.NewTaskService(taskRepo, userRepo, clientRepo, policy, audit, nil)

	router := NewRouter(RouterDeps{
		Log:      log,
		Tokens:   tokens,
		Metrics:  m,
		Auth:     NewAuthHandler(services.NewAuthService(userRepo, tokens), false, log),
		Clients:  NewClientHandler(services.NewClientService(clientRepo, userRepo, policy, audit), log),
		Invoices: NewInvoiceHandler(invoices, log),
		Payments: NewPaymentHandler(services.NewPaymentService(db, paymentRepo, invoiceRepo, policy, audit, m), invoices, log),
		Tasks:    NewTaskHandler(tasks, log),
		Subtasks: NewSubtaskHandler(tasks, log),
		Users:    NewUserHandler(services.NewUserService(userRepo, policy, audit), log),
		Reports:  NewReportHandler(services.NewReportService(clientRepo, invoiceRepo, paymentRepo, taskRepo, userRepo, policy), log),
		Audit:    NewAuditHandler(audit, log),
	})

	return &testServer{db: db, router: router, tokens: tokens, metrics: m}
}

// do sends a request, authenticated as user when user is not nil.
func (s *testServer) do(t *testing.T, method, path string, body any, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		token, _, err := s.tokens.Issue(user)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: constants.AuthCookieName, Value: token})
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decode unmarshals a JSON response body into a generic map.
func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// authCookie returns the auth cookie set on the response, if any.
func authCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == constants.AuthCookieName {
			return c
		}
	}
	return nil
}
