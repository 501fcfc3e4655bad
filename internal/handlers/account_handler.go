package handlers

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gharpoint/gharpoint_be/internal/models"
	"github.com/gharpoint/gharpoint_be/internal/services/media"
)

type AccountHandler struct {
	DB    *gorm.DB
	Media *media.MediaService
}

func NewAccountHandler(db *gorm.DB, mediaSvc *media.MediaService) *AccountHandler {
	return &AccountHandler{DB: db, Media: mediaSvc}
}

// UpdateProfile patches name/city/state and optionally the photo.
// Phone and email are identity and never change here.
func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := getAuth(c)
	if err != nil {
		return err
	}

	var u models.User
	if err := h.DB.First(&u, "id = ?", userID).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "Account not found")
	}

	if v := strings.TrimSpace(c.FormValue("name")); v != "" {
		u.Name = v
	}
	if v := strings.TrimSpace(c.FormValue("city")); v != "" {
		u.City = v
	}
	if v := strings.TrimSpace(c.FormValue("state")); v != "" {
		u.State = v
	}

	if file, err := c.FormFile("photo"); err == nil {
		url, upErr := h.Media.Upload(c.Context(), file, "avatars")
		if upErr != nil {
			return fail(c, fiber.StatusBadRequest, "Failed to upload photo: "+upErr.Error())
		}
		u.PhotoURL = url
	}

	if err := h.DB.Save(&u).Error; err != nil {
		return fail500(c, "Failed to update profile")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated",
		"user":    u,
	})
}

// LikedProperties returns the caller's liked listings, newest like first.
func (h *AccountHandler) LikedProperties(c *fiber.Ctx) error {
	userID, err := getAuth(c)
	if err != nil {
		return err
	}

	var properties []models.Property
	if err := h.DB.
		Joins("JOIN property_likes pl ON pl.property_id = properties.id").
		Where("pl.user_id = ?", userID).
		Order("pl.created_at DESC").
		Find(&properties).Error; err != nil {
		return fail500(c, "Failed to load liked properties")
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"properties": properties,
	})
}

// ===== admin =====

func (h *AccountHandler) AdminList(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)

	q := h.DB.Model(&models.User{})
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fail500(c, "Failed to load users")
	}

	var users []models.User
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		return fail500(c, "Failed to load users")
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"users":       users,
		"total":       total,
		"page":        page,
		"total_pages": int(math.Ceil(float64(total) / float64(limit))),
	})
}

type RoleReq struct {
	Role string `json:"role"`
}

// AdminUpdateRole changes a user's role. The caller can never target
// themselves, valid role or not.
func (h *AccountHandler) AdminUpdateRole(c *fiber.Ctx) error {
	callerID, err := getAuth(c)
	if err != nil {
		return err
	}

	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid user ID")
	}
	if targetID == callerID {
		return fail(c, fiber.StatusBadRequest, "Cannot change your own role")
	}

	var req RoleReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if !role.Valid() {
		return fail(c, fiber.StatusBadRequest, "Role must be user or admin")
	}

	var target models.User
	if err := h.DB.First(&target, "id = ?", targetID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	target.Role = role
	if err := h.DB.Save(&target).Error; err != nil {
		return fail500(c, "Failed to update role")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Role updated",
		"user":    target,
	})
}

func (h *AccountHandler) AdminDelete(c *fiber.Ctx) error {
	callerID, err := getAuth(c)
	if err != nil {
		return err
	}

	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid user ID")
	}
	if targetID == callerID {
		return fail(c, fiber.StatusBadRequest, "Cannot delete your own account")
	}

	var target models.User
	if err := h.DB.First(&target, "id = ?", targetID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	if err := h.DB.Where("user_id = ?", targetID).Delete(&models.PropertyLike{}).Error; err != nil {
		return fail500(c, "Failed to delete user")
	}
	if err := h.DB.Delete(&target).Error; err != nil {
		return fail500(c, "Failed to delete user")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User deleted",
	})
}
