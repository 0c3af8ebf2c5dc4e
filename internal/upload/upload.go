package upload

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/rajivgeraev/flippy-client/internal/api"
	"github.com/rajivgeraev/flippy-client/internal/config"
)

// Service предоставляет загрузку изображений объявлений в Cloudinary.
// Параметры загрузки запрашиваются у сервера, чтобы группа изображений
// была привязана к будущему объявлению еще до его создания.
type Service struct {
	cfg    *config.Config
	client *api.Client
	cld    *cloudinary.Cloudinary
}

// NewService создает новый экземпляр Service
func NewService(cfg *config.Config, client *api.Client) (*Service, error) {
	cld, err := cloudinary.NewFromParams(
		cfg.CloudinaryConfig.CloudName,
		cfg.CloudinaryConfig.APIKey,
		cfg.CloudinaryConfig.APISecret,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Cloudinary: %w", err)
	}

	return &Service{cfg: cfg, client: client, cld: cld}, nil
}

// UploadImages загружает файлы и возвращает их описания для запроса
// создания объявления. Первое изображение помечается основным.
func (s *Service) UploadImages(ctx context.Context, listingID string, files []string) ([]api.RequestImage, error) {
	if len(files) == 0 {
		return nil, nil
	}

	params, err := s.client.GetUploadParams(ctx, listingID)
	if err != nil {
		return nil, err
	}

	folder := "flippy/" + params.ListingID

	var images []api.RequestImage
	for i, file := range files {
		resp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
			Folder:       folder,
			UploadPreset: s.cfg.CloudinaryConfig.UploadPreset,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки изображения %s: %w", file, err)
		}
		if resp.Error.Message != "" {
			return nil, fmt.Errorf("ошибка загрузки изображения %s: %s", file, resp.Error.Message)
		}

		log.Printf("✅ Изображение %s загружено: %s", file, resp.PublicID)

		name := resp.OriginalFilename
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}

		images = append(images, api.RequestImage{
			URL:      resp.SecureURL,
			PublicID: resp.PublicID,
			FileName: name,
			IsMain:   i == 0,
		})
	}

	return images, nil
}
