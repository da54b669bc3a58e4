package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ntholi/registry-web-sub009/internal/models"
)

const semesterModuleColumns = `id, structure_id, module_id, code, name, type, credits, semester_number`

// SemesterModuleRepository reads the module catalog of program structures.
type SemesterModuleRepository struct {
	db *sqlx.DB
}

// NewSemesterModuleRepository constructs the repository.
func NewSemesterModuleRepository(db *sqlx.DB) *SemesterModuleRepository {
	return &SemesterModuleRepository{db: db}
}

// ListByStructure returns the catalog of a structure ordered by semester and code.
func (r *SemesterModuleRepository) ListByStructure(ctx context.Context, structureID string) ([]models.SemesterModule, error) {
	var modules []models.SemesterModule
	query := fmt.Sprintf(`SELECT %s FROM semester_modules WHERE structure_id = $1 AND hidden = FALSE ORDER BY semester_number, code`, semesterModuleColumns)
	if err := r.db.SelectContext(ctx, &modules, query, structureID); err != nil {
		return nil, fmt.Errorf("list structure modules: %w", err)
	}
	return modules, nil
}

// FindByIDs returns the catalog rows for ids keyed by id. Unknown ids are absent from the map.
func (r *SemesterModuleRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.SemesterModule, error) {
	result := make(map[string]models.SemesterModule, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM semester_modules WHERE id IN (?)`, semesterModuleColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build semester module query: %w", err)
	}
	var modules []models.SemesterModule
	if err := r.db.SelectContext(ctx, &modules, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find semester modules: %w", err)
	}
	for _, module := range modules {
		result[module.ID] = module
	}
	return result, nil
}
