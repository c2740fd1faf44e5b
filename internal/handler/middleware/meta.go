package middleware

import (
	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/gofiber/fiber/v2"
)

func clientMeta(c *fiber.Ctx) domain.ClientMeta {
	return domain.ClientMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}
