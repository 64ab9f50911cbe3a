package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/taller-agenda-api/internal/models"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
)

type studentOwnerReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// StudentAccess decides whether a caller may act on a student's data.
// Administrators see every student; family users only their own.
type StudentAccess struct {
	students studentOwnerReader
}

// NewStudentAccess constructs a StudentAccess.
func NewStudentAccess(students studentOwnerReader) *StudentAccess {
	return &StudentAccess{students: students}
}

// Ensure returns the student when claims may access it.
func (a *StudentAccess) Ensure(ctx context.Context, claims *models.JWTClaims, studentID string) (*models.Student, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	student, err := a.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !canActFor(claims, student.UserID) {
		return nil, appErrors.ErrForbidden
	}
	return student, nil
}

func canActFor(claims *models.JWTClaims, ownerUserID string) bool {
	if claims.IsAdmin() {
		return true
	}
	return ownerUserID != "" && claims.UserID == ownerUserID
}
