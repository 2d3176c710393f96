package controller

import (
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUsageController interface {
	RegisterRoutes(r fiber.Router)
	GetMyStats(ctx *fiber.Ctx) error
	GetSystemStats(ctx *fiber.Ctx) error
}

type usageController struct {
	usageService service.IUsageService
}

func NewUsageController(usageService service.IUsageService) IUsageController {
	return &usageController{
		usageService: usageService,
	}
}

func (c *usageController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/usage/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("me", c.GetMyStats)
	h.Get("system", c.GetSystemStats)
}

func (c *usageController) GetMyStats(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.usageService.GetStats(ctx.Context(), &userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get usage stats", res))
}

func (c *usageController) GetSystemStats(ctx *fiber.Ctx) error {
	res, err := c.usageService.GetStats(ctx.Context(), nil)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get system usage stats", res))
}
