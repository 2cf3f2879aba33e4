package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/askmynotes-backend/internal/notes"
	"github.com/tbourn/askmynotes-backend/internal/repo"
)

// DBSources reads assembler sources from the files table.
type DBSources struct {
	DB *gorm.DB
}

var _ notes.SourceFinder = DBSources{}

// FindSources implements notes.SourceFinder.
func (s DBSources) FindSources(ctx context.Context, ownerID, subjectID, fileName string) ([]notes.Source, error) {
	files, err := repo.FindFiles(ctx, s.DB, ownerID, subjectID, fileName)
	if err != nil {
		return nil, err
	}
	out := make([]notes.Source, 0, len(files))
	for _, f := range files {
		out = append(out, notes.Source{
			ID:         f.ID,
			FileName:   f.FileName,
			Text:       f.ExtractedText,
			UploadedAt: f.UploadedAt,
		})
	}
	return out, nil
}
