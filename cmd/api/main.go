package main

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"github.com/gharpoint/gharpoint_be/internal/config"
	"github.com/gharpoint/gharpoint_be/internal/db"
	"github.com/gharpoint/gharpoint_be/internal/handlers"
	"github.com/gharpoint/gharpoint_be/internal/middleware"
	"github.com/gharpoint/gharpoint_be/internal/models"
	"github.com/gharpoint/gharpoint_be/internal/services/media"
	"github.com/gharpoint/gharpoint_be/internal/services/otp"
	"github.com/gharpoint/gharpoint_be/internal/services/sms"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	rdb := otp.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.PropertyLike{},
		&models.Contact{},
		&models.Testimonial{},
	); err != nil {
		log.Fatal(err)
	}

	smsSvc := sms.NewSMSService(cfg.Fast2SMSKey)
	otpSvc := otp.NewService(otp.NewRedisStore(rdb), smsSvc)
	mediaSvc := media.NewMediaService(cfg.ImageKitKey, cfg.ImageKitUploadURL, "./uploads", cfg.AppBaseURL)

	app := fiber.New(fiber.Config{
		// every error, middleware included, goes out in the envelope
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Static("/uploads", "./uploads")

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
		OTP:       otpSvc,
		Media:     mediaSvc,
	}
	propertyH := handlers.NewPropertyHandler(gdb, mediaSvc)
	accountH := handlers.NewAccountHandler(gdb, mediaSvc)
	contactH := handlers.NewContactHandler(gdb)
	testimonialH := handlers.NewTestimonialHandler(gdb)

	api := app.Group("/api")

	// public
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

	// protected (JWT, account must still exist)
	protected := api.Group("/",
		middleware.TokenRequired(cfg.JWTSecret),
		middleware.AttachAccount(gdb),
	)

	protected.Get("/me", authH.Me)
	protected.Patch("/profile", accountH.UpdateProfile)
	protected.Get("/liked-properties", accountH.LikedProperties)
	protected.Post("/properties/:id/like", propertyH.ToggleLike)

	// admin only
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

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
