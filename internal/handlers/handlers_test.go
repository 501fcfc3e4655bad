package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gharpoint/gharpoint_be/internal/handlers"
	"github.com/gharpoint/gharpoint_be/internal/middleware"
	"github.com/gharpoint/gharpoint_be/internal/models"
	"github.com/gharpoint/gharpoint_be/internal/services/media"
	"github.com/gharpoint/gharpoint_be/internal/services/otp"
	"github.com/gharpoint/gharpoint_be/internal/utils"
)

const secret = "handlers-test-secret"

// ===== fakes =====

type memStore struct {
	mu      sync.Mutex
	values  map[string]string
	expires map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}, expires: map[string]time.Time{}}
}

func (s *memStore) Set(ctx context.Context, phone, hash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[phone] = hash
	s.expires[phone] = time.Now().Add(ttl)
	return nil
}

func (s *memStore) Get(ctx context.Context, phone string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[phone]
	if !ok || time.Now().After(s.expires[phone]) {
		return "", otp.ErrNotFound
	}
	return v, nil
}

func (s *memStore) Del(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, phone)
	delete(s.expires, phone)
	return nil
}

type captureSender struct {
	mu   sync.Mutex
	last string
}

func (c *captureSender) SendOTP(ctx context.Context, phone, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = code
	return nil
}

func (c *captureSender) lastCode(t *testing.T) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.last)
	return c.last
}

// ===== harness =====

type env struct {
	app    *fiber.App
	db     *gorm.DB
	sender *captureSender
}

// newEnv mirrors the wiring in cmd/api/main.go on an in-memory db.
func newEnv(t *testing.T) *env {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.PropertyLike{},
		&models.Contact{},
		&models.Testimonial{},
	))

	sender := &captureSender{}
	otpSvc := otp.NewService(newMemStore(), sender)
	mediaSvc := media.NewMediaService("", "", t.TempDir(), "")

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"success": false, "message": err.Error()})
		},
	})

	authH := &handlers.AuthHandler{DB: gdb, JWTSecret: secret, Expires: 10080, OTP: otpSvc, Media: mediaSvc}
	propertyH := handlers.NewPropertyHandler(gdb, mediaSvc)
	accountH := handlers.NewAccountHandler(gdb, mediaSvc)
	contactH := handlers.NewContactHandler(gdb)
	testimonialH := handlers.NewTestimonialHandler(gdb)

	api := app.Group("/api")
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/send-otp", authH.SendOTP)
	api.Post("/auth/verify-otp", authH.VerifyOTP)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/properties/latest", propertyH.Latest)
	api.Get("/properties/top-cities", propertyH.TopCities)
	api.Post("/properties/search", propertyH.Search)
	api.Get("/properties/:id", propertyH.GetByID)
	api.Post("/contacts", contactH.Create)
	api.Get("/testimonials", testimonialH.ListPublic)
	api.Post("/testimonials", testimonialH.Create)

	protected := api.Group("/", middleware.TokenRequired(secret), middleware.AttachAccount(gdb))
	protected.Get("/me", authH.Me)
	protected.Patch("/profile", accountH.UpdateProfile)
	protected.Get("/liked-properties", accountH.LikedProperties)
	protected.Post("/properties/:id/like", propertyH.ToggleLike)

	admin := protected.Group("/admin", middleware.RequireRoles("admin"))
	admin.Post("/properties", propertyH.Create)
	admin.Put("/properties/:id", propertyH.Update)
	admin.Delete("/properties/:id", propertyH.Delete)
	admin.Get("/users", accountH.AdminList)
	admin.Put("/users/:id/role", accountH.AdminUpdateRole)
	admin.Delete("/users/:id", accountH.AdminDelete)
	admin.Get("/contacts", contactH.AdminList)
	admin.Patch("/contacts/:id", contactH.AdminUpdate)
	admin.Delete("/contacts/:id", contactH.AdminDelete)
	admin.Get("/testimonials", testimonialH.AdminList)
	admin.Patch("/testimonials/:id", testimonialH.AdminUpdate)
	admin.Delete("/testimonials/:id", testimonialH.AdminDelete)

	return &env{app: app, db: gdb, sender: sender}
}

func (e *env) user(t *testing.T, phone string, role models.Role) models.User {
	t.Helper()
	u := models.User{
		ID:    uuid.New(),
		Name:  "Test User",
		Email: uuid.NewString() + "@example.com",
		Phone: phone,
		Role:  role,
		City:  "Jaipur",
		State: "Rajasthan",
	}
	require.NoError(t, e.db.Create(&u).Error)
	return u
}

func (e *env) token(t *testing.T, u models.User) string {
	t.Helper()
	token, err := utils.SignJWT(secret, u.ID.String(), string(u.Role), 60)
	require.NoError(t, err)
	return token
}

func (e *env) property(t *testing.T, city string, price int64, createdAt time.Time) models.Property {
	t.Helper()
	p := models.Property{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Title:     "Listing in " + city,
		City:      city,
		State:     "Rajasthan",
		Category:  models.CategoryApartment,
		Purpose:   models.PurposeSale,
		Status:    models.StatusAvailable,
		Price:     price,
		Bedrooms:  2,
		Bathrooms: 1,
		Amenities: datatypes.JSON([]byte(`{"parking":true}`)),
		Photos:    datatypes.JSON([]byte(`["/uploads/properties/p.jpg"]`)),
		CreatedAt: createdAt,
	}
	require.NoError(t, e.db.Create(&p).Error)
	return p
}

func (e *env) doJSON(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, names := range files {
		for _, name := range names {
			part, err := mw.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = part.Write([]byte("fake image bytes"))
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// ===== auth =====

func TestRegisterLoginFlow(t *testing.T) {
	e := newEnv(t)

	body, ct := multipartBody(t, map[string]string{
		"username": "Asha",
		"email":    "a@x.com",
		"phone":    "9999999999",
		"city":     "Jaipur",
		"state":    "Rajasthan",
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	req.Header.Set("Content-Type", ct)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode(t, resp)
	require.Equal(t, true, out["success"])
	require.NotEmpty(t, out["token"])

	// send-otp logs/sends a 6-digit code
	resp, out = e.doJSON(t, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"phone": "9999999999"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, out["success"])
	code := e.sender.lastCode(t)
	require.Len(t, code, 6)

	// verify-otp returns a token and sets the cookie
	raw, err := json.Marshal(map[string]string{"phone": "9999999999", "otp": code})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/auth/verify-otp", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err = e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookieSet := false
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.CookieName && ck.Value != "" {
			cookieSet = true
			require.True(t, ck.HttpOnly)
		}
	}
	require.True(t, cookieSet)
	out = decode(t, resp)
	require.NotEmpty(t, out["token"])

	// the code is consumed
	resp, _ = e.doJSON(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"phone": "9999999999", "otp": code})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e := newEnv(t)
	e.user(t, "9999999991", models.RoleUser)

	var existing models.User
	require.NoError(t, e.db.First(&existing).Error)

	body, ct := multipartBody(t, map[string]string{
		"username": "Other",
		"email":    existing.Email,
		"phone":    "9999999992",
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	req.Header.Set("Content-Type", ct)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendOTPUnknownPhone(t *testing.T) {
	e := newEnv(t)
	resp, _ := e.doJSON(t, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"phone": "8888888888"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVerifyOTPWrongCodeThenCorrect(t *testing.T) {
	e := newEnv(t)
	e.user(t, "9999999990", models.RoleUser)

	resp, _ := e.doJSON(t, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"phone": "9999999990"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	code := e.sender.lastCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	resp, _ = e.doJSON(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"phone": "9999999990", "otp": wrong})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.doJSON(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"phone": "9999999990", "otp": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowedKeepsEnvelope(t *testing.T) {
	e := newEnv(t)
	resp, out := e.doJSON(t, http.MethodGet, "/api/auth/register", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, false, out["success"])
	require.NotEmpty(t, out["message"])
}

// ===== properties =====

func TestSearchFiltersCityAndPriceNewestFirst(t *testing.T) {
	e := newEnv(t)
	now := time.Now()

	older := e.property(t, "Jaipur", 2000000, now.Add(-2*time.Hour))
	newer := e.property(t, "Jaipur", 3000000, now.Add(-1*time.Hour))
	e.property(t, "Jaipur", 8000000, now) // over budget
	e.property(t, "Mumbai", 2000000, now) // wrong city

	resp, out := e.doJSON(t, http.MethodPost, "/api/properties/search", "", map[string]any{
		"city":     "jaipur",
		"minPrice": 1000000,
		"maxPrice": 5000000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	props := out["properties"].([]any)
	require.Len(t, props, 2)
	first := props[0].(map[string]any)
	second := props[1].(map[string]any)
	require.Equal(t, newer.ID.String(), first["id"])
	require.Equal(t, older.ID.String(), second["id"])
	require.EqualValues(t, 2, out["total"])
}

func TestSearchPagination(t *testing.T) {
	e := newEnv(t)
	now := time.Now()
	for i := 0; i < 7; i++ {
		e.property(t, "Jaipur", 1000000, now.Add(time.Duration(-i)*time.Minute))
	}

	resp, out := e.doJSON(t, http.MethodPost, "/api/properties/search?page=2&limit=3", "", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out["properties"].([]any), 3)
	require.EqualValues(t, 7, out["total"])
	require.EqualValues(t, 3, out["total_pages"])
}

func TestLatestReturnsTopFive(t *testing.T) {
	e := newEnv(t)
	now := time.Now()
	for i := 0; i < 6; i++ {
		e.property(t, "Jaipur", 1000000, now.Add(time.Duration(-i)*time.Minute))
	}

	resp, out := e.doJSON(t, http.MethodGet, "/api/properties/latest", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out["properties"].([]any), 5)
}

func TestTopCities(t *testing.T) {
	e := newEnv(t)
	now := time.Now()
	for i := 0; i < 3; i++ {
		e.property(t, "Jaipur", 1000000, now)
	}
	e.property(t, "Mumbai", 1000000, now)

	resp, out := e.doJSON(t, http.MethodGet, "/api/properties/top-cities", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cities := out["cities"].([]any)
	require.NotEmpty(t, cities)
	top := cities[0].(map[string]any)
	require.Equal(t, "Jaipur", top["city"])
	require.EqualValues(t, 3, top["count"])
}

func TestPropertyCreateRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "9999999901", models.RoleUser)

	body, ct := multipartBody(t, map[string]string{"title": "x"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/properties", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+e.token(t, u))
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPropertyCreateNeedsAtLeastOneImage(t *testing.T) {
	e := newEnv(t)
	admin := e.user(t, "9999999902", models.RoleAdmin)

	fields := map[string]string{
		"title":    "2BHK near station",
		"city":     "Jaipur",
		"state":    "Rajasthan",
		"category": "apartment",
		"purpose":  "sale",
		"price":    "2500000",
	}

	body, ct := multipartBody(t, fields, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/properties", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+e.token(t, admin))
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct = multipartBody(t, fields, map[string][]string{"images": {"front.jpg"}})
	req = httptest.NewRequest(http.MethodPost, "/api/admin/properties", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+e.token(t, admin))
	resp, err = e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	out := decode(t, resp)
	prop := out["property"].(map[string]any)
	photos := prop["photos"].([]any)
	require.Len(t, photos, 1)
}

func TestLikeToggleFlipsMembership(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "9999999903", models.RoleUser)
	p := e.property(t, "Jaipur", 1000000, time.Now())
	token := e.token(t, u)

	resp, out := e.doJSON(t, http.MethodPost, "/api/properties/"+p.ID.String()+"/like", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, out["liked"])

	resp, out = e.doJSON(t, http.MethodGet, "/api/liked-properties", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out["properties"].([]any), 1)

	resp, out = e.doJSON(t, http.MethodPost, "/api/properties/"+p.ID.String()+"/like", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, out["liked"])

	var count int64
	e.db.Model(&models.PropertyLike{}).Count(&count)
	require.Zero(t, count)
}

// ===== accounts =====

func TestProfilePatchCannotTouchPhoneOrEmail(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "9999999904", models.RoleUser)

	body, ct := multipartBody(t, map[string]string{
		"name":  "Renamed",
		"city":  "Udaipur",
		"email": "evil@x.com",
		"phone": "1111111111",
	}, nil)
	req := httptest.NewRequest(http.MethodPatch, "/api/profile", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+e.token(t, u))
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var after models.User
	require.NoError(t, e.db.First(&after, "id = ?", u.ID).Error)
	require.Equal(t, "Renamed", after.Name)
	require.Equal(t, "Udaipur", after.City)
	require.Equal(t, u.Email, after.Email)
	require.Equal(t, u.Phone, after.Phone)
}

func TestAdminCannotChangeOwnRole(t *testing.T) {
	e := newEnv(t)
	admin := e.user(t, "9999999905", models.RoleAdmin)

	resp, _ := e.doJSON(t, http.MethodPut, "/api/admin/users/"+admin.ID.String()+"/role",
		e.token(t, admin), map[string]string{"role": "admin"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminRoleChangeAndSelfDeleteGuard(t *testing.T) {
	e := newEnv(t)
	admin := e.user(t, "9999999906", models.RoleAdmin)
	other := e.user(t, "9999999907", models.RoleUser)
	token := e.token(t, admin)

	resp, _ := e.doJSON(t, http.MethodPut, "/api/admin/users/"+other.ID.String()+"/role",
		token, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var after models.User
	require.NoError(t, e.db.First(&after, "id = ?", other.ID).Error)
	require.Equal(t, models.RoleAdmin, after.Role)

	resp, _ = e.doJSON(t, http.MethodPut, "/api/admin/users/"+other.ID.String()+"/role",
		token, map[string]string{"role": "owner"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.doJSON(t, http.MethodDelete, "/api/admin/users/"+admin.ID.String(), token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.doJSON(t, http.MethodDelete, "/api/admin/users/"+other.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// ===== contacts & testimonials =====

func TestContactCreateValidatesAndAdminModerates(t *testing.T) {
	e := newEnv(t)
	admin := e.user(t, "9999999908", models.RoleAdmin)
	token := e.token(t, admin)

	resp, _ := e.doJSON(t, http.MethodPost, "/api/contacts", "", map[string]string{
		"name": "Visitor", "email": "v@x.com",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, out := e.doJSON(t, http.MethodPost, "/api/contacts", "", map[string]string{
		"name": "Visitor", "email": "v@x.com", "subject": "Site visit", "message": "Call me",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	contact := out["contact"].(map[string]any)
	require.Equal(t, "pending", contact["status"])
	id := contact["id"].(string)

	resp, _ = e.doJSON(t, http.MethodPatch, "/api/admin/contacts/"+id, token, map[string]any{
		"status": "fulfilled", "is_read": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out = e.doJSON(t, http.MethodGet, "/api/admin/contacts?unread=true", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, out["contacts"].([]any))

	resp, _ = e.doJSON(t, http.MethodDelete, "/api/admin/contacts/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTestimonialVisibleOnlyAfterApproval(t *testing.T) {
	e := newEnv(t)
	admin := e.user(t, "9999999909", models.RoleAdmin)
	token := e.token(t, admin)

	resp, out := e.doJSON(t, http.MethodPost, "/api/testimonials", "", map[string]any{
		"name": "Happy Buyer", "email": "buyer@x.com", "rating": 5, "body": "Found our flat in a week.",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := out["testimonial"].(map[string]any)["id"].(string)

	resp, out = e.doJSON(t, http.MethodGet, "/api/testimonials", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, out["testimonials"].([]any))

	resp, _ = e.doJSON(t, http.MethodPatch, "/api/admin/testimonials/"+id, token, map[string]any{"approved": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out = e.doJSON(t, http.MethodGet, "/api/testimonials", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out["testimonials"].([]any), 1)
}

func TestTestimonialRatingBoundsAndUniqueEmail(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.doJSON(t, http.MethodPost, "/api/testimonials", "", map[string]any{
		"name": "A", "email": "a@x.com", "rating": 6, "body": "x",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.doJSON(t, http.MethodPost, "/api/testimonials", "", map[string]any{
		"name": "A", "email": "a@x.com", "rating": 4, "body": "x",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = e.doJSON(t, http.MethodPost, "/api/testimonials", "", map[string]any{
		"name": "A again", "email": "a@x.com", "rating": 3, "body": "y",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
