package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/vtc-admin-api/internal/dto"
	"github.com/noah-isme/vtc-admin-api/internal/models"
)

// DashboardRepository computes enrollment aggregates.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Statistics counts students by gender and active departments.
func (r *DashboardRepository) Statistics(ctx context.Context) (dto.Statistics, error) {
	var stats dto.Statistics

	query, args, err := psql.Select("COUNT(*) AS total_students").
		Column(sq.Expr("COUNT(*) FILTER (WHERE gender = ?) AS male_students", models.GenderMale)).
		Column(sq.Expr("COUNT(*) FILTER (WHERE gender = ?) AS female_students", models.GenderFemale)).
		Column(sq.Expr("COUNT(*) FILTER (WHERE gender = ?) AS other_students", models.GenderOther)).
		From("students").
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("build student statistics: %w", err)
	}
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return stats, fmt.Errorf("student statistics: %w", err)
	}

	query, args, err = psql.Select("COUNT(*)").
		From("departments").
		Where(sq.Eq{"status": models.DepartmentActive}).
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("build department statistics: %w", err)
	}
	if err := r.db.GetContext(ctx, &stats.TotalDepartments, query, args...); err != nil {
		return stats, fmt.Errorf("department statistics: %w", err)
	}
	return stats, nil
}
