package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mkaneko/kameki/internal/learning"
)

// PutStudyMaterials stores server-fetched study materials without touching
// the upload outbox.
func (s *Store) PutStudyMaterials(ctx context.Context, materials []learning.StudyMaterial) error {
	if len(materials) == 0 {
		return nil
	}
	return s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for i := range materials {
			if err := putStudyMaterial(ctx, tx, &materials[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func putStudyMaterial(ctx context.Context, tx *sqlx.Tx, material *learning.StudyMaterial) error {
	data, err := json.Marshal(material)
	if err != nil {
		return fmt.Errorf("json.Marshal(study_material %d) > %w", material.SubjectID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO study_materials (subject_id, data) VALUES (?, ?)
		ON CONFLICT (subject_id) DO UPDATE SET data = excluded.data`,
		material.SubjectID, data); err != nil {
		return fmt.Errorf("tx.ExecContext(upsert study_material %d) > %w", material.SubjectID, err)
	}
	return nil
}

// UpdateStudyMaterial stores a local edit and queues it for upload. The
// outbox keeps at most one pending edit per subject; a newer edit replaces
// the older one.
func (s *Store) UpdateStudyMaterial(ctx context.Context, material learning.StudyMaterial) error {
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := putStudyMaterial(ctx, tx, &material); err != nil {
			return err
		}
		data, err := json.Marshal(&material)
		if err != nil {
			return fmt.Errorf("json.Marshal(pending study_material %d) > %w", material.SubjectID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pending_study_materials (subject_id, data) VALUES (?, ?)
			ON CONFLICT (subject_id) DO UPDATE SET data = excluded.data`,
			material.SubjectID, data); err != nil {
			return fmt.Errorf("tx.ExecContext(upsert pending study_material %d) > %w", material.SubjectID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.ag.invalidate(EventPendingItems)
	return nil
}

// GetStudyMaterial returns the user's notes and synonyms for one subject, or
// ErrNotFound.
func (s *Store) GetStudyMaterial(ctx context.Context, subjectID int64) (*learning.StudyMaterial, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data,
		"SELECT data FROM study_materials WHERE subject_id = ?", subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(study_material %d) > %w", subjectID, err)
	}
	var material learning.StudyMaterial
	if err := json.Unmarshal(data, &material); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(study_material %d) > %w", subjectID, err)
	}
	return &material, nil
}

// GetPendingStudyMaterials returns local edits awaiting upload.
func (s *Store) GetPendingStudyMaterials(ctx context.Context) ([]learning.StudyMaterial, error) {
	var rows [][]byte
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT data FROM pending_study_materials ORDER BY subject_id"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(pending_study_materials) > %w", err)
	}
	materials := make([]learning.StudyMaterial, 0, len(rows))
	for _, data := range rows {
		var material learning.StudyMaterial
		if err := json.Unmarshal(data, &material); err != nil {
			return nil, fmt.Errorf("json.Unmarshal(pending study_material) > %w", err)
		}
		materials = append(materials, material)
	}
	return materials, nil
}

// ClearPendingStudyMaterial removes one queued edit after upload.
func (s *Store) ClearPendingStudyMaterial(ctx context.Context, subjectID int64) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM pending_study_materials WHERE subject_id = ?", subjectID); err != nil {
		return fmt.Errorf("db.ExecContext(delete pending study_material %d) > %w", subjectID, err)
	}
	s.ag.invalidate(EventPendingItems)
	return nil
}
