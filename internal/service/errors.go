package service

import (
	"margin/internal/apperror"
	"margin/internal/repository"

	"github.com/google/uuid"
)

// repoError maps a repository failure to the error the API reports.
func repoError(err error, notFound, conflict string) error {
	switch {
	case repository.IsNotFound(err):
		return apperror.New(apperror.KindNotFound, notFound)
	case repository.IsDuplicate(err):
		return apperror.New(apperror.KindConflict, conflict)
	case repository.IsForeignKeyViolation(err):
		return apperror.Conflict("record is still referenced")
	}
	return apperror.Internal("database error", err)
}

func parseID(id, entity string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, apperror.BadRequest("invalid %s id", entity)
	}
	return parsed, nil
}
