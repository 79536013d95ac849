package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   uint
	Role models.Role
}

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Action is what an actor wants to do with a resource.
type Action int

const (
	ActionView Action = iota
	ActionManage
)

// ResourceKind names the resource an access check is about.
type ResourceKind string

const (
	ResourceCourse     ResourceKind = "course"
	ResourceLesson     ResourceKind = "lesson"
	ResourceAssignment ResourceKind = "assignment"
	ResourceSubmission ResourceKind = "submission"
)

// AccessPolicy decides who can view and manage course content. Admins can do
// anything, the course's teacher can view and manage, and students with a
// paid registration for the course can view.
type AccessPolicy interface {
	Can(ctx context.Context, actor Actor, action Action, kind ResourceKind, id uint) (bool, error)
	Require(ctx context.Context, actor Actor, action Action, kind ResourceKind, id uint) error
}

type accessPolicy struct {
	repo repository.AccessRepository
}

// NewAccessPolicy constructs the policy over the access repository.
func NewAccessPolicy(repo repository.AccessRepository) AccessPolicy {
	return &accessPolicy{repo: repo}
}

func (p *accessPolicy) Can(ctx context.Context, actor Actor, action Action, kind ResourceKind, id uint) (bool, error) {
	courseID, ownerID, err := p.resolve(ctx, kind, id)
	if err != nil {
		return false, err
	}

	if actor.IsAdmin() {
		return true, nil
	}

	teacherID, err := p.repo.CourseTeacher(ctx, courseID)
	if err != nil {
		return false, p.notFound(kind, err)
	}

	if actor.Role == models.RoleTeacher && actor.ID == teacherID {
		return true, nil
	}
	if action != ActionView || actor.Role != models.RoleStudent {
		return false, nil
	}
	// Students only see their own submissions.
	if kind == ResourceSubmission && ownerID != actor.ID {
		return false, nil
	}

	return p.repo.IsEnrolled(ctx, actor.ID, courseID)
}

func (p *accessPolicy) Require(ctx context.Context, actor Actor, action Action, kind ResourceKind, id uint) error {
	ok, err := p.Can(ctx, actor, action, kind, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (p *accessPolicy) resolve(ctx context.Context, kind ResourceKind, id uint) (courseID uint, ownerID uint, err error) {
	switch kind {
	case ResourceCourse:
		courseID = id
	case ResourceLesson:
		courseID, err = p.repo.LessonCourse(ctx, id)
	case ResourceAssignment:
		courseID, err = p.repo.AssignmentCourse(ctx, id)
	case ResourceSubmission:
		courseID, ownerID, err = p.repo.SubmissionScope(ctx, id)
	default:
		return 0, 0, fmt.Errorf("unknown resource kind %q", kind)
	}
	if err != nil {
		return 0, 0, p.notFound(kind, err)
	}
	return courseID, ownerID, nil
}

func (p *accessPolicy) notFound(kind ResourceKind, err error) error {
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	switch kind {
	case ResourceLesson:
		return ErrLessonNotFound
	case ResourceAssignment:
		return ErrAssignmentNotFound
	case ResourceSubmission:
		return ErrSubmissionNotFound
	default:
		return ErrCourseNotFound
	}
}
