package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/registry/internal/config"
	"github.com/example/registry/internal/database"
	"github.com/example/registry/internal/handlers"
	"github.com/example/registry/internal/models"
	"github.com/example/registry/internal/utils"
)

type captureNotifier struct {
	mu   sync.Mutex
	last string
}

func (n *captureNotifier) SendOTP(_ context.Context, _ models.User, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = code
	return nil
}

type apiFixture struct {
	app      *fiber.App
	db       *gorm.DB
	notifier *captureNotifier
}

func createAPIFixture(t *testing.T, twoFactor bool) *apiFixture {
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	hash, err := utils.HashPassword("secret1")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{Name: "Ann", Email: "a@b.com", Password: hash, Phone: "252634000000"}).Error)

	cfg := &config.Config{
		Environment:      "development",
		JWTSecret:        "test-secret",
		TwoFactorEnabled: twoFactor,
		LoginRateLimit:   100,
	}
	log := zerolog.Nop()
	notifier := &captureNotifier{}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})
	Register(app, db, cfg, log, Dependencies{Notifier: notifier})

	return &apiFixture{app: app, db: db, notifier: notifier}
}

type apiResponse struct {
	status  int
	body    map[string]interface{}
	raw     []byte
	cookies map[string]*http.Cookie
}

func (fx *apiFixture) post(t *testing.T, path string, payload interface{}, cookies ...*http.Cookie) apiResponse {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := apiResponse{status: resp.StatusCode, cookies: map[string]*http.Cookie{}}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out.raw = raw
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.body))
	}
	for _, c := range resp.Cookies() {
		out.cookies[c.Name] = c
	}
	return out
}

func (fx *apiFixture) login(t *testing.T) *http.Cookie {
	resp := fx.post(t, "/api/login", fiber.Map{"email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, resp.status)
	cookie := resp.cookies["authToken"]
	require.NotNil(t, cookie)
	return &http.Cookie{Name: cookie.Name, Value: cookie.Value}
}

func TestUnauthenticatedRequest(t *testing.T) {
	fx := createAPIFixture(t, false)

	resp := fx.post(t, "/api/user", nil)
	require.Equal(t, http.StatusUnauthorized, resp.status)
	require.Equal(t, "Not Authenticated.", resp.body["error"])

	resp = fx.post(t, "/api/foreigners", nil)
	require.Equal(t, http.StatusUnauthorized, resp.status)
}

func TestLoginValidation(t *testing.T) {
	fx := createAPIFixture(t, false)

	cases := []struct {
		payload fiber.Map
		status  int
		message string
	}{
		{fiber.Map{"email": "", "password": "secret1"}, http.StatusBadRequest, "Email and password are required."},
		{fiber.Map{"email": "a@b.com"}, http.StatusBadRequest, "Email and password are required."},
		{fiber.Map{"email": "not-an-email", "password": "secret1"}, http.StatusBadRequest, "Invalid email format."},
		{fiber.Map{"email": "a@b.com", "password": "abc"}, http.StatusBadRequest, "Password must be at least 6 characters."},
		{fiber.Map{"email": "a@b.com", "password": "wrong-pass"}, http.StatusUnauthorized, "Invalid credentials."},
		{fiber.Map{"email": "nobody@b.com", "password": "secret1"}, http.StatusUnauthorized, "Invalid credentials."},
	}
	for _, tc := range cases {
		resp := fx.post(t, "/api/login", tc.payload)
		require.Equal(t, tc.status, resp.status, tc.payload)
		require.Equal(t, tc.message, resp.body["error"], tc.payload)
		require.Nil(t, resp.cookies["authToken"])
	}
}

func TestLoginSessionLogout(t *testing.T) {
	fx := createAPIFixture(t, false)

	resp := fx.post(t, "/api/login", fiber.Map{"email": "A@B.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, resp.status)
	require.Equal(t, float64(3600), resp.body["expires_in"])
	user := resp.body["user"].(map[string]interface{})
	require.Equal(t, "a@b.com", user["email"])

	cookie := resp.cookies["authToken"]
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Equal(t, "/", cookie.Path)
	require.Equal(t, 3600, cookie.MaxAge)
	session := &http.Cookie{Name: cookie.Name, Value: cookie.Value}

	resp = fx.post(t, "/api/user", nil, session)
	require.Equal(t, http.StatusOK, resp.status)
	user = resp.body["user"].(map[string]interface{})
	require.Equal(t, "Ann", user["name"])
	require.Equal(t, []interface{}{}, user["permissions"])

	resp = fx.post(t, "/api/logout", nil, session)
	require.Equal(t, http.StatusOK, resp.status)
	require.Equal(t, "Logged out successfully.", resp.body["message"])

	resp = fx.post(t, "/api/user", nil, session)
	require.Equal(t, http.StatusUnauthorized, resp.status)
	require.Equal(t, "Session expired or invalid.", resp.body["error"])

	// Logging out again without a session still succeeds.
	resp = fx.post(t, "/api/logout", nil)
	require.Equal(t, http.StatusOK, resp.status)
}

func TestTwoFactorLogin(t *testing.T) {
	fx := createAPIFixture(t, true)

	resp := fx.post(t, "/api/login", fiber.Map{"email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, resp.status)
	require.Nil(t, resp.cookies["authToken"])
	require.NotEmpty(t, resp.body["message"])
	pendingCookie := resp.cookies["otpToken"]
	require.NotNil(t, pendingCookie)
	pending := &http.Cookie{Name: pendingCookie.Name, Value: pendingCookie.Value}

	code := fx.notifier.last
	require.Len(t, code, 6)

	resp = fx.post(t, "/api/verify-otp", fiber.Map{"otp": code})
	require.Equal(t, http.StatusUnauthorized, resp.status)
	require.Equal(t, "Verification session expired. Please login again.", resp.body["error"])

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	resp = fx.post(t, "/api/verify-otp", fiber.Map{"otp": wrong}, pending)
	require.Equal(t, http.StatusUnauthorized, resp.status)
	require.Equal(t, "Invalid or expired code.", resp.body["error"])

	resp = fx.post(t, "/api/verify-otp", fiber.Map{"otp": code}, pending)
	require.Equal(t, http.StatusOK, resp.status)
	require.NotNil(t, resp.cookies["authToken"])
	session := &http.Cookie{Name: "authToken", Value: resp.cookies["authToken"].Value}

	resp = fx.post(t, "/api/user", nil, session)
	require.Equal(t, http.StatusOK, resp.status)

	// The code is spent.
	resp = fx.post(t, "/api/verify-otp", fiber.Map{"otp": code}, pending)
	require.Equal(t, http.StatusUnauthorized, resp.status)
}

func TestLoginRateLimit(t *testing.T) {
	fx := createAPIFixture(t, false)
	fx.app = fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(zerolog.Nop())})
	Register(fx.app, fx.db, &config.Config{JWTSecret: "x", LoginRateLimit: 2}, zerolog.Nop(), Dependencies{Notifier: fx.notifier})

	for i := 0; i < 2; i++ {
		resp := fx.post(t, "/api/login", fiber.Map{"email": "a@b.com", "password": "wrong-pass"})
		require.Equal(t, http.StatusUnauthorized, resp.status)
	}
	resp := fx.post(t, "/api/login", fiber.Map{"email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusTooManyRequests, resp.status)
}

func TestApplicationWorkflowOverHTTP(t *testing.T) {
	fx := createAPIFixture(t, false)
	session := fx.login(t)

	docType := models.Setting{Name: "Work permit", Label: "200", DropdownType: models.DropdownDocumentType, Status: "active"}
	require.NoError(t, fx.db.Create(&docType).Error)

	resp := fx.post(t, "/api/foreigners/create", fiber.Map{
		"personalInfo": fiber.Map{"firstName": "Amina", "lastName": "Yusuf", "dateOfBirth": "1990-05-04"},
		"contactInfo":  fiber.Map{"countryCode": "+252", "phone": "634000000"},
		"entryInfo":    fiber.Map{"entryDate": "2025-02-01"},
		"documents":    []fiber.Map{{"type": 1, "file_name": "passport.pdf"}},
	}, session)
	require.Equal(t, http.StatusOK, resp.status)
	require.Equal(t, "Foreigner created successfully", resp.body["message"])
	require.Regexp(t, `^FRN-\d{8}-1$`, resp.body["registration_id"])
	foreignerID := resp.body["id"]

	resp = fx.post(t, "/api/foreigners/create", fiber.Map{
		"personalInfo": fiber.Map{"lastName": "Yusuf"},
	}, session)
	require.Equal(t, http.StatusBadRequest, resp.status)

	resp = fx.post(t, "/api/foreigners/applications", fiber.Map{
		"foreigner_id":     foreignerID,
		"application_type": "new",
		"document_type":    docType.ID,
	}, session)
	require.Equal(t, http.StatusCreated, resp.status)
	require.Equal(t, "200", resp.body["amount"])
	appID := resp.body["id"]

	resp = fx.post(t, "/api/foreigners/approve_approval", fiber.Map{"id": appID, "status": "Approved"}, session)
	require.Equal(t, http.StatusOK, resp.status)

	payment := fiber.Map{"id": appID, "payment_info": fiber.Map{"receiptNumber": "R-1", "paymentType": "cash"}}
	resp = fx.post(t, "/api/foreigners/pay_application", payment, session)
	require.Equal(t, http.StatusOK, resp.status)

	resp = fx.post(t, "/api/foreigners/pay_application", payment, session)
	require.Equal(t, http.StatusConflict, resp.status)
	require.Equal(t, "Payment already exists for this application", resp.body["error"])

	resp = fx.post(t, "/api/foreigners/profile", fiber.Map{"id": appID}, session)
	require.Equal(t, http.StatusOK, resp.status)
	require.Equal(t, models.ApplicationPaymentVerified, resp.body["status"])
	require.Len(t, resp.body["statuses"], 3)

	resp = fx.post(t, "/api/foreigners/application_history", fiber.Map{"id": appID}, session)
	require.Equal(t, http.StatusOK, resp.status)
	var history []models.ApplicationStatus
	require.NoError(t, json.Unmarshal(resp.raw, &history))
	require.Len(t, history, 3)
	require.Equal(t, models.ApplicationPaymentVerified, history[2].Status)

	resp = fx.post(t, "/api/withdrawal/create", fiber.Map{
		"amount": 50, "description": "Stationery", "category": 1, "subCategory": 1, "department": 1,
		"priority": "low", "justification": "Forms", "requestedBy": "Desk",
	}, session)
	require.Equal(t, http.StatusCreated, resp.status)

	resp = fx.post(t, "/api/withdrawal/balance", nil, session)
	require.Equal(t, http.StatusOK, resp.status)
	require.JSONEq(t, "150", string(resp.raw))

	resp = fx.post(t, "/api/withdrawal/history", nil, session)
	require.Equal(t, http.StatusOK, resp.status)
	var ledger []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.raw, &ledger))
	require.Len(t, ledger, 2)

	resp = fx.post(t, "/api/foreigners/profile", fiber.Map{"id": 999}, session)
	require.Equal(t, http.StatusNotFound, resp.status)
	require.Equal(t, "Application not found", resp.body["error"])
}

func TestRolePermissionsOverHTTP(t *testing.T) {
	fx := createAPIFixture(t, false)
	session := fx.login(t)

	perms := []models.Permission{
		{Name: "foreigner.view", GroupName: "registry", Module: "foreigners"},
		{Name: "foreigner.create", GroupName: "registry", Module: "foreigners"},
	}
	require.NoError(t, fx.db.Create(&perms).Error)

	resp := fx.post(t, "/api/roles/create", fiber.Map{"name": "Clerk"}, session)
	require.Equal(t, http.StatusCreated, resp.status)
	roleID := resp.body["role"].(map[string]interface{})["id"]

	resp = fx.post(t, "/api/roles/setPermissions", fiber.Map{"role_id": roleID}, session)
	require.Equal(t, http.StatusBadRequest, resp.status)

	resp = fx.post(t, "/api/roles/setPermissions", fiber.Map{"role_id": roleID, "permission_ids": []uint{perms[0].ID, perms[1].ID}}, session)
	require.Equal(t, http.StatusOK, resp.status)
	require.Len(t, resp.body["permissions"], 2)

	resp = fx.post(t, "/api/users/create", fiber.Map{"id": 1, "name": "Ann", "email": "a@b.com", "role_id": []interface{}{roleID}}, session)
	require.Equal(t, http.StatusOK, resp.status)

	resp = fx.post(t, "/api/user", nil, session)
	require.Equal(t, http.StatusOK, resp.status)
	user := resp.body["user"].(map[string]interface{})
	require.ElementsMatch(t, []interface{}{"foreigner.create", "foreigner.view"}, user["permissions"])

	resp = fx.post(t, "/api/roles/destroy", fiber.Map{"id": roleID}, session)
	require.Equal(t, http.StatusConflict, resp.status)
}
