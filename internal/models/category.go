package models

// Category представляет категорию объявления
type Category struct {
	Slug   string `json:"slug"`
	NameRu string `json:"name_ru"`
	NameEn string `json:"name_en"`
}
