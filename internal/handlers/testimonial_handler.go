package handlers

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gharpoint/gharpoint_be/internal/models"
)

type TestimonialHandler struct {
	DB *gorm.DB
}

func NewTestimonialHandler(db *gorm.DB) *TestimonialHandler {
	return &TestimonialHandler{DB: db}
}

type TestimonialReq struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Rating int    `json:"rating"`
	Body   string `json:"body"`
}

// Create accepts a public review. It stays invisible until an admin
// approves it. One submission per email.
func (h *TestimonialHandler) Create(c *fiber.Ctx) error {
	var req TestimonialReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	body := strings.TrimSpace(req.Body)

	errs := FieldErrors{}
	if name == "" {
		errs.Add("name", "Name is required")
	}
	if email == "" {
		errs.Add("email", "Email is required")
	} else if !strings.Contains(email, "@") {
		errs.Add("email", "Invalid email format")
	}
	if req.Rating < 1 || req.Rating > 5 {
		errs.Add("rating", "Rating must be between 1 and 5")
	}
	if body == "" {
		errs.Add("body", "Review text is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	t := models.Testimonial{
		ID:     uuid.New(),
		Name:   name,
		Email:  email,
		Rating: req.Rating,
		Body:   body,
	}

	if err := h.DB.Create(&t).Error; err != nil {
		if isUniqueViolation(err) {
			return fail(c, fiber.StatusBadRequest, "A review from this email already exists")
		}
		return fail500(c, "Failed to save review")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"message":     "Review submitted for approval",
		"testimonial": t,
	})
}

// ListPublic returns approved reviews only.
func (h *TestimonialHandler) ListPublic(c *fiber.Ctx) error {
	q := h.DB.Where("approved = ?", true)
	if c.Query("featured") == "true" {
		q = q.Where("featured = ?", true)
	}

	var testimonials []models.Testimonial
	if err := q.
		Order("created_at DESC").
		Find(&testimonials).Error; err != nil {
		return fail500(c, "Failed to load reviews")
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"testimonials": testimonials,
	})
}

func (h *TestimonialHandler) AdminList(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)

	q := h.DB.Model(&models.Testimonial{})
	switch c.Query("approved") {
	case "true":
		q = q.Where("approved = ?", true)
	case "false":
		q = q.Where("approved = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fail500(c, "Failed to load reviews")
	}

	var testimonials []models.Testimonial
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&testimonials).Error; err != nil {
		return fail500(c, "Failed to load reviews")
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"testimonials": testimonials,
		"total":        total,
		"page":         page,
		"total_pages":  int(math.Ceil(float64(total) / float64(limit))),
	})
}

type TestimonialPatchReq struct {
	Approved *bool `json:"approved"`
	Featured *bool `json:"featured"`
}

func (h *TestimonialHandler) AdminUpdate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid testimonial ID")
	}

	var t models.Testimonial
	if err := h.DB.First(&t, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Review not found")
	}

	var req TestimonialPatchReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	if req.Approved != nil {
		t.Approved = *req.Approved
	}
	if req.Featured != nil {
		t.Featured = *req.Featured
	}

	if err := h.DB.Save(&t).Error; err != nil {
		return fail500(c, "Failed to update review")
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Review updated",
		"testimonial": t,
	})
}

func (h *TestimonialHandler) AdminDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid testimonial ID")
	}

	var t models.Testimonial
	if err := h.DB.First(&t, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Review not found")
	}

	if err := h.DB.Delete(&t).Error; err != nil {
		return fail500(c, "Failed to delete review")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Review deleted",
	})
}
