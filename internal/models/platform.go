package models

// Platform элемент каталога платформ, на которые можно подписаться.
type Platform struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}
