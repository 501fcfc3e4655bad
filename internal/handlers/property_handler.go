package handlers

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gharpoint/gharpoint_be/internal/models"
	"github.com/gharpoint/gharpoint_be/internal/services/media"
)

const maxPropertyImages = 6

type PropertyHandler struct {
	DB    *gorm.DB
	Media *media.MediaService
}

func NewPropertyHandler(db *gorm.DB, mediaSvc *media.MediaService) *PropertyHandler {
	return &PropertyHandler{DB: db, Media: mediaSvc}
}

// Create takes a multipart form: listing fields as values, amenities as
// a JSON object string, up to 6 images under "images" (at least 1).
func (h *PropertyHandler) Create(c *fiber.Ctx) error {
	ownerID, err := getAuth(c)
	if err != nil {
		return err
	}

	title := strings.TrimSpace(c.FormValue("title"))
	city := strings.TrimSpace(c.FormValue("city"))
	state := strings.TrimSpace(c.FormValue("state"))
	category := models.PropertyCategory(strings.ToLower(c.FormValue("category")))
	purpose := models.PropertyPurpose(strings.ToLower(c.FormValue("purpose")))
	price, _ := strconv.ParseInt(c.FormValue("price"), 10, 64)

	errs := FieldErrors{}
	if title == "" {
		errs.Add("title", "Title is required")
	}
	if city == "" {
		errs.Add("city", "City is required")
	}
	if !category.Valid() {
		errs.Add("category", "Unknown category")
	}
	if !purpose.Valid() {
		errs.Add("purpose", "Purpose must be rent or sale")
	}
	if price <= 0 {
		errs.Add("price", "Price must be positive")
	}

	status := models.StatusAvailable
	if v := c.FormValue("status"); v != "" {
		status = models.PropertyStatus(strings.ToLower(v))
		if !status.Valid() {
			errs.Add("status", "Unknown status")
		}
	}

	amenities := datatypes.JSON([]byte("{}"))
	if raw := c.FormValue("amenities"); raw != "" {
		var flags map[string]bool
		if err := json.Unmarshal([]byte(raw), &flags); err != nil {
			errs.Add("amenities", "Amenities must be a JSON object of booleans")
		} else {
			amenities = datatypes.JSON([]byte(raw))
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid multipart form")
	}
	images := form.File["images"]
	if len(images) == 0 {
		errs.Add("images", "At least one image is required")
	}
	if len(images) > maxPropertyImages {
		errs.Add("images", "Too many images")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	photos := make([]string, 0, len(images))
	for _, file := range images {
		url, upErr := h.Media.Upload(c.Context(), file, "properties")
		if upErr != nil {
			return fail(c, fiber.StatusBadRequest, "Failed to upload image: "+upErr.Error())
		}
		photos = append(photos, url)
	}
	photosJSON, err := json.Marshal(photos)
	if err != nil {
		return fail500(c, "Failed to process images")
	}

	areaSqft, _ := strconv.Atoi(c.FormValue("area_sqft"))
	bedrooms, _ := strconv.Atoi(c.FormValue("bedrooms"))
	bathrooms, _ := strconv.Atoi(c.FormValue("bathrooms"))

	p := models.Property{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		Address:     strings.TrimSpace(c.FormValue("address")),
		City:        city,
		State:       state,
		Pincode:     strings.TrimSpace(c.FormValue("pincode")),
		Category:    category,
		Purpose:     purpose,
		Status:      status,
		Price:       price,
		AreaSqft:    areaSqft,
		Bedrooms:    bedrooms,
		Bathrooms:   bathrooms,
		Amenities:   amenities,
		Photos:      datatypes.JSON(photosJSON),
		Description: strings.TrimSpace(c.FormValue("description")),
	}

	if err := h.DB.Create(&p).Error; err != nil {
		return fail500(c, "Failed to save property")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"message":  "Property created",
		"property": p,
	})
}

func (h *PropertyHandler) GetByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid property ID")
	}

	var p models.Property
	if err := h.DB.First(&p, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Property not found")
	}

	var likes int64
	h.DB.Model(&models.PropertyLike{}).Where("property_id = ?", id).Count(&likes)

	return c.JSON(fiber.Map{
		"success":  true,
		"property": p,
		"likes":    likes,
	})
}

type SearchReq struct {
	City     string `json:"city"`
	State    string `json:"state"`
	Category string `json:"category"`
	Purpose  string `json:"purpose"`
	Status   string `json:"status"`

	MinPrice  int64 `json:"minPrice"`
	MaxPrice  int64 `json:"maxPrice"`
	Bedrooms  int   `json:"bedrooms"`
	Bathrooms int   `json:"bathrooms"`
}

func (h *PropertyHandler) applyFilters(q *gorm.DB, req SearchReq) *gorm.DB {
	if req.City != "" {
		q = q.Where("LOWER(city) LIKE ?", "%"+strings.ToLower(req.City)+"%")
	}
	if req.State != "" {
		q = q.Where("LOWER(state) LIKE ?", "%"+strings.ToLower(req.State)+"%")
	}
	if req.Category != "" {
		q = q.Where("category = ?", strings.ToLower(req.Category))
	}
	if req.Purpose != "" {
		q = q.Where("purpose = ?", strings.ToLower(req.Purpose))
	}
	if req.Status != "" {
		q = q.Where("status = ?", strings.ToLower(req.Status))
	}
	if req.MinPrice > 0 {
		q = q.Where("price >= ?", req.MinPrice)
	}
	if req.MaxPrice > 0 {
		q = q.Where("price <= ?", req.MaxPrice)
	}
	if req.Bedrooms > 0 {
		q = q.Where("bedrooms >= ?", req.Bedrooms)
	}
	if req.Bathrooms > 0 {
		q = q.Where("bathrooms >= ?", req.Bathrooms)
	}
	return q
}

// Search filters listings by the posted criteria, newest first.
func (h *PropertyHandler) Search(c *fiber.Ctx) error {
	var req SearchReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	page, limit, offset := pagination(c)

	var total int64
	if err := h.applyFilters(h.DB.Model(&models.Property{}), req).
		Count(&total).Error; err != nil {
		return fail500(c, "Failed to search properties")
	}

	var properties []models.Property
	if err := h.applyFilters(h.DB.Model(&models.Property{}), req).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&properties).Error; err != nil {
		return fail500(c, "Failed to search properties")
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"properties":  properties,
		"total":       total,
		"page":        page,
		"total_pages": int(math.Ceil(float64(total) / float64(limit))),
	})
}

func (h *PropertyHandler) Latest(c *fiber.Ctx) error {
	var properties []models.Property
	if err := h.DB.
		Order("created_at DESC").
		Limit(5).
		Find(&properties).Error; err != nil {
		return fail500(c, "Failed to load latest properties")
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"properties": properties,
	})
}

func (h *PropertyHandler) TopCities(c *fiber.Ctx) error {
	type CityCount struct {
		City  string `json:"city"`
		Count int64  `json:"count"`
	}

	var cities []CityCount
	if err := h.DB.
		Model(&models.Property{}).
		Select("city, COUNT(*) as count").
		Where("city <> ''").
		Group("city").
		Order("count DESC").
		Limit(5).
		Scan(&cities).Error; err != nil {
		return fail500(c, "Failed to load top cities")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"cities":  cities,
	})
}

// ToggleLike flips membership in the caller's liked-set. The insert is
// ON CONFLICT DO NOTHING, so two concurrent toggles cannot clobber each
// other the way a read-modify-write on an array column would.
func (h *PropertyHandler) ToggleLike(c *fiber.Ctx) error {
	userID, err := getAuth(c)
	if err != nil {
		return err
	}

	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid property ID")
	}

	var p models.Property
	if err := h.DB.First(&p, "id = ?", propertyID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Property not found")
	}

	like := models.PropertyLike{UserID: userID, PropertyID: propertyID}
	res := h.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	if res.Error != nil {
		return fail500(c, "Failed to update like")
	}

	liked := res.RowsAffected > 0
	if !liked {
		if err := h.DB.
			Where("user_id = ? AND property_id = ?", userID, propertyID).
			Delete(&models.PropertyLike{}).Error; err != nil {
			return fail500(c, "Failed to update like")
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"liked":   liked,
	})
}

type PropertyPatchReq struct {
	Title       *string `json:"title"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	State       *string `json:"state"`
	Pincode     *string `json:"pincode"`
	Status      *string `json:"status"`
	Price       *int64  `json:"price"`
	AreaSqft    *int    `json:"area_sqft"`
	Bedrooms    *int    `json:"bedrooms"`
	Bathrooms   *int    `json:"bathrooms"`
	Description *string `json:"description"`

	Amenities map[string]bool `json:"amenities"`
}

func (h *PropertyHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid property ID")
	}

	var p models.Property
	if err := h.DB.First(&p, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Property not found")
	}

	var req PropertyPatchReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Address != nil {
		p.Address = strings.TrimSpace(*req.Address)
	}
	if req.City != nil {
		p.City = strings.TrimSpace(*req.City)
	}
	if req.State != nil {
		p.State = strings.TrimSpace(*req.State)
	}
	if req.Pincode != nil {
		p.Pincode = strings.TrimSpace(*req.Pincode)
	}
	if req.Status != nil {
		status := models.PropertyStatus(strings.ToLower(*req.Status))
		if !status.Valid() {
			return fail(c, fiber.StatusBadRequest, "Unknown status")
		}
		p.Status = status
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return fail(c, fiber.StatusBadRequest, "Price must be positive")
		}
		p.Price = *req.Price
	}
	if req.AreaSqft != nil {
		p.AreaSqft = *req.AreaSqft
	}
	if req.Bedrooms != nil {
		p.Bedrooms = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		p.Bathrooms = *req.Bathrooms
	}
	if req.Amenities != nil {
		amenitiesJSON, err := json.Marshal(req.Amenities)
		if err != nil {
			return fail500(c, "Failed to process amenities")
		}
		p.Amenities = datatypes.JSON(amenitiesJSON)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}

	if err := h.DB.Save(&p).Error; err != nil {
		return fail500(c, "Failed to update property")
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Property updated",
		"property": p,
	})
}

func (h *PropertyHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid property ID")
	}

	var p models.Property
	if err := h.DB.First(&p, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Property not found")
	}

	if err := h.DB.Where("property_id = ?", id).Delete(&models.PropertyLike{}).Error; err != nil {
		return fail500(c, "Failed to delete property")
	}
	if err := h.DB.Delete(&p).Error; err != nil {
		return fail500(c, "Failed to delete property")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Property deleted",
	})
}
