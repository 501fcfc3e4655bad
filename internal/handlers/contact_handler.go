package handlers

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gharpoint/gharpoint_be/internal/models"
)

type ContactHandler struct {
	DB *gorm.DB
}

func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{DB: db}
}

type ContactReq struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Create is the public inquiry form; no auth.
func (h *ContactHandler) Create(c *fiber.Ctx) error {
	var req ContactReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	message := strings.TrimSpace(req.Message)

	errs := FieldErrors{}
	if name == "" {
		errs.Add("name", "Name is required")
	}
	if email == "" {
		errs.Add("email", "Email is required")
	} else if !strings.Contains(email, "@") {
		errs.Add("email", "Invalid email format")
	}
	if message == "" {
		errs.Add("message", "Message is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	contact := models.Contact{
		ID:      uuid.New(),
		Name:    name,
		Email:   email,
		Phone:   normalizePhone(req.Phone),
		Subject: strings.TrimSpace(req.Subject),
		Message: message,
		Status:  models.ContactPending,
	}

	if err := h.DB.Create(&contact).Error; err != nil {
		return fail500(c, "Failed to save inquiry")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Inquiry received",
		"contact": contact,
	})
}

func (h *ContactHandler) AdminList(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)

	q := h.DB.Model(&models.Contact{})
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(subject) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if c.Query("unread") == "true" {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fail500(c, "Failed to load inquiries")
	}

	var contacts []models.Contact
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&contacts).Error; err != nil {
		return fail500(c, "Failed to load inquiries")
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"contacts":    contacts,
		"total":       total,
		"page":        page,
		"total_pages": int(math.Ceil(float64(total) / float64(limit))),
	})
}

type ContactPatchReq struct {
	Status *string `json:"status"`
	IsRead *bool   `json:"is_read"`
}

func (h *ContactHandler) AdminUpdate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid contact ID")
	}

	var contact models.Contact
	if err := h.DB.First(&contact, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Inquiry not found")
	}

	var req ContactPatchReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	if req.Status != nil {
		status := models.ContactStatus(strings.ToLower(*req.Status))
		if !status.Valid() {
			return fail(c, fiber.StatusBadRequest, "Unknown status")
		}
		contact.Status = status
	}
	if req.IsRead != nil {
		contact.IsRead = *req.IsRead
	}

	if err := h.DB.Save(&contact).Error; err != nil {
		return fail500(c, "Failed to update inquiry")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Inquiry updated",
		"contact": contact,
	})
}

func (h *ContactHandler) AdminDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid contact ID")
	}

	var contact models.Contact
	if err := h.DB.First(&contact, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Inquiry not found")
	}

	if err := h.DB.Delete(&contact).Error; err != nil {
		return fail500(c, "Failed to delete inquiry")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Inquiry deleted",
	})
}
