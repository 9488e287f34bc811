package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
)

// TeacherRepository reads tutor profiles and their offered categories. The
// booking engine never writes these tables; they are owned by the accounts
// service.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID fetches an active teacher profile.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, user_id, full_name, hourly_rate, timezone, is_active, created_at, updated_at
FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByUserID resolves the teacher profile owned by an account.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	const query = `SELECT id, user_id, full_name, hourly_rate, timezone, is_active, created_at, updated_at
FROM teachers WHERE user_id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, userID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// OffersCategory reports whether the teacher offers the given lesson
// category.
func (r *TeacherRepository) OffersCategory(ctx context.Context, teacherID, categoryID string) (bool, error) {
	const query = `SELECT EXISTS (
SELECT 1 FROM teacher_categories WHERE teacher_id = $1 AND category_id = $2)`
	var offers bool
	if err := r.db.GetContext(ctx, &offers, query, teacherID, categoryID); err != nil {
		return false, fmt.Errorf("check teacher category: %w", err)
	}
	return offers, nil
}

// ListCategories returns the categories a teacher offers.
func (r *TeacherRepository) ListCategories(ctx context.Context, teacherID string) ([]models.Category, error) {
	const query = `SELECT c.id, c.name, c.slug, c.created_at
FROM categories c
JOIN teacher_categories tc ON tc.category_id = c.id
WHERE tc.teacher_id = $1
ORDER BY c.name ASC`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher categories: %w", err)
	}
	return categories, nil
}
