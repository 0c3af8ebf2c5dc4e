package devserver

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// setupUploadRoutes регистрирует маршруты загрузки изображений
func (s *Server) setupUploadRoutes(app *fiber.App, authMW fiber.Handler) {
	api := app.Group("/api")
	api.Use(authMW)
	api.Get("/upload/params", s.generateUploadParams)
}

// generateUploadParams создаёт подписанные параметры для прямой загрузки
func (s *Server) generateUploadParams(c fiber.Ctx) error {
	if _, err := currentUser(c); err != nil {
		return err
	}

	listingID := c.Query("listing_id")
	if listingID == "" {
		listingID = uuid.New().String()
	}

	timestamp := fmt.Sprintf("%d", s.store.Now().Unix())

	params := map[string]string{
		"timestamp": timestamp,
	}
	signature := s.signUploadParams(params)

	return c.JSON(fiber.Map{
		"timestamp":  timestamp,
		"signature":  signature,
		"api_key":    s.cfg.CloudinaryConfig.APIKey,
		"cloud_name": s.cfg.CloudinaryConfig.CloudName,
		"listing_id": listingID,
	})
}

// signUploadParams создаёт подпись Cloudinary: отсортированные параметры
// в виде key=value через &, с API-секретом в конце строки, под SHA-1
func (s *Server) signUploadParams(params map[string]string) string {
	var keys []string
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var signParts []string
	for _, k := range keys {
		signParts = append(signParts, fmt.Sprintf("%s=%s", k, params[k]))
	}
	signatureString := strings.Join(signParts, "&") + s.cfg.CloudinaryConfig.APISecret

	h := sha1.New()
	h.Write([]byte(signatureString))
	return hex.EncodeToString(h.Sum(nil))
}
