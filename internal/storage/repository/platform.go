package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// CreatePlatform добавляет платформу в каталог.
func (s *Storage) CreatePlatform(ctx context.Context, p models.Platform) (int64, error) {
	const op = "storage.CreatePlatform"

	var id int64
	err := s.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO platforms (name, description, image_url) VALUES ($1, $2, $3) RETURNING id`,
		p.Name, p.Description, p.ImageURL).Scan(&id)
	if err != nil {
		return 0, mapErr(op, err)
	}
	return id, nil
}

// GetPlatform возвращает платформу по ID.
func (s *Storage) GetPlatform(ctx context.Context, id int64) (*models.Platform, error) {
	const op = "storage.GetPlatform"

	var p models.Platform
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, description, image_url FROM platforms WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return &p, nil
}

// ListPlatforms возвращает весь каталог платформ.
func (s *Storage) ListPlatforms(ctx context.Context) ([]*models.Platform, error) {
	const op = "storage.ListPlatforms"

	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT id, name, description, image_url FROM platforms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Platform
	for rows.Next() {
		var p models.Platform
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
