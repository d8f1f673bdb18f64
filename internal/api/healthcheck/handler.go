package healthcheck

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	malvus "github.com/milvus-io/milvus-sdk-go/v2/client"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/database"
	"ai-course-tutor/pkg/apperror"
)

func ApiHealthCheck(c fiber.Ctx) error {
	return c.SendString("ok")
}

func DatabaseHealthCheck(c fiber.Ctx) error {
	db, err := database.GetDB()
	if err != nil {
		return apperror.InternalError(config.ModuleDatabase, c, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return apperror.InternalError(config.ModuleDatabase, c, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperror.InternalError(config.ModuleDatabase, c, err)
	}
	return c.SendString("ok")
}

func MilvusHealthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	cli, err := malvus.NewClient(ctx, malvus.Config{Address: config.Cfg.Milvus.Address})
	cancel()
	if err != nil {
		return apperror.InternalError(config.ModuleMilvus, c, err)
	}
	cli.Close()
	return c.SendString("ok")
}

func RegisterRoutes(r fiber.Router) {
	grp := r.Group("/health")

	grp.Get("/api", ApiHealthCheck)
	grp.Get("/database", DatabaseHealthCheck)
	grp.Get("/milvus", MilvusHealthCheck)
}
