package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gharpoint/gharpoint_be/internal/middleware"
	"github.com/gharpoint/gharpoint_be/internal/models"
	"github.com/gharpoint/gharpoint_be/internal/services/media"
	"github.com/gharpoint/gharpoint_be/internal/services/otp"
	"github.com/gharpoint/gharpoint_be/internal/utils"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret string
	Expires   int
	OTP       *otp.Service
	Media     *media.MediaService
}

func (h *AuthHandler) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Strict",
		MaxAge:   h.Expires * 60,
	})
}

// Register creates a user-role account from a multipart form. Phone and
// email are fixed at this point; the profile patch cannot touch them.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("username"))
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	phone := normalizePhone(c.FormValue("phone"))
	city := strings.TrimSpace(c.FormValue("city"))
	state := strings.TrimSpace(c.FormValue("state"))

	errs := FieldErrors{}
	if name == "" {
		errs.Add("username", "Name is required")
	}
	if email == "" {
		errs.Add("email", "Email is required")
	} else if !strings.Contains(email, "@") {
		errs.Add("email", "Invalid email format")
	}
	if phone == "" {
		errs.Add("phone", "Phone is required")
	} else if !isDigitsLen(phone, 10) {
		errs.Add("phone", "Phone must be 10 digits")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	var existing models.User
	if err := h.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		errs := FieldErrors{}
		errs.Add("email", "Email already registered")
		return validationFail(c, errs)
	} else if err != gorm.ErrRecordNotFound {
		return fail500(c, "Something went wrong")
	}

	var byPhone models.User
	if err := h.DB.Where("phone = ?", phone).First(&byPhone).Error; err == nil {
		errs := FieldErrors{}
		errs.Add("phone", "Phone already registered")
		return validationFail(c, errs)
	} else if err != gorm.ErrRecordNotFound {
		return fail500(c, "Something went wrong")
	}

	photoURL := ""
	if file, err := c.FormFile("photo"); err == nil {
		url, upErr := h.Media.Upload(c.Context(), file, "avatars")
		if upErr != nil {
			return fail(c, fiber.StatusBadRequest, "Failed to upload photo: "+upErr.Error())
		}
		photoURL = url
	}

	u := models.User{
		ID:       uuid.New(),
		Name:     name,
		Email:    email,
		Phone:    phone,
		Role:     models.RoleUser,
		PhotoURL: photoURL,
		City:     city,
		State:    state,
	}

	if err := h.DB.Create(&u).Error; err != nil {
		if isUniqueViolation(err) {
			return fail(c, fiber.StatusBadRequest, "Account already exists")
		}
		return fail500(c, "Failed to register")
	}

	// the cookie is only set by verify-otp; register hands the token back
	// in the body
	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return fail500(c, "Failed to create token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registered",
		"token":   token,
		"user":    u,
	})
}

type PhoneReq struct {
	Phone string `json:"phone"`
}

func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req PhoneReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	phone := normalizePhone(req.Phone)
	if phone == "" {
		return fail(c, fiber.StatusBadRequest, "Phone is required")
	}

	var u models.User
	if err := h.DB.Where("phone = ?", phone).First(&u).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "No account for this phone")
	}

	if err := h.OTP.Issue(c.Context(), phone); err != nil {
		return fail500(c, "Failed to issue code")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "OTP sent",
	})
}

type VerifyOTPReq struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req VerifyOTPReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	phone := normalizePhone(req.Phone)
	code := strings.TrimSpace(req.OTP)
	if phone == "" || code == "" {
		return fail(c, fiber.StatusBadRequest, "Phone and otp are required")
	}

	switch err := h.OTP.Verify(c.Context(), phone, code); err {
	case nil:
	case otp.ErrNotFound:
		return fail(c, fiber.StatusNotFound, "No code on file")
	case otp.ErrInvalid:
		return fail(c, fiber.StatusBadRequest, "Incorrect code")
	default:
		return fail500(c, "Failed to verify code")
	}

	var u models.User
	if err := h.DB.Where("phone = ?", phone).First(&u).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Account not found")
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return fail500(c, "Failed to create token")
	}
	h.setTokenCookie(c, token)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Verified",
		"token":   token,
		"user":    u,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: "Strict",
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u := middleware.Account(c)
	if u == nil {
		return fiber.ErrUnauthorized
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    u,
	})
}
