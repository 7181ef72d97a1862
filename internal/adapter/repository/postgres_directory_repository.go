package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"propertychat/internal/domain/entity"
	"propertychat/internal/domain/repository"
	"propertychat/pkg/errors"
)

type postgresPropertyRepository struct {
	db *sql.DB
}

func NewPostgresPropertyRepository(db *sql.DB) repository.PropertyRepository {
	return &postgresPropertyRepository{db: db}
}

func (r *postgresPropertyRepository) GetByID(ctx context.Context, id string) (*entity.Property, error) {
	var (
		p       entity.Property
		ownerID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, owner_id, title FROM properties WHERE id = $1`, id).
		Scan(&p.ID, &ownerID, &p.Title)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("Property", err)
		}
		return nil, errors.Internal("Failed to get property", err)
	}
	p.OwnerID = ownerID.String

	rows, err := r.db.QueryContext(ctx, `
		SELECT url, display_order
		FROM property_images
		WHERE property_id = $1
		ORDER BY display_order ASC
	`, id)
	if err != nil {
		return nil, errors.Internal("Failed to get property images", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img entity.PropertyImage
		if err := rows.Scan(&img.URL, &img.DisplayOrder); err != nil {
			return nil, errors.Internal("Failed to parse property image", err)
		}
		p.Images = append(p.Images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("Failed to get property images", err)
	}

	return &p, nil
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) repository.UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, first_name, last_name, role
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Role)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}
	return &u, nil
}
