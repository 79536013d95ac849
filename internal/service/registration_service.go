package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/events"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/observability"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

// Rejection messages returned in RegistrationResult.Message.
const (
	MsgNoRegistration      = "no registration period found"
	MsgOutsideRegistration = "outside registration time"
	MsgOutsidePayment      = "outside payment time"
	MsgNotPending          = "registration is no longer pending"
	MsgRegistrationClosed  = "registration period has ended"
	MsgWrongTerm           = "course is not offered in this registration term"
	MsgDuplicateCourse     = "course is already in the cart"
	MsgScheduleOverlap     = "course schedule overlaps a course in the cart"
	MsgZeroTuition         = "tuition must be greater than zero"

	MsgMemberAdded   = "course added to cart"
	MsgMemberRemoved = "course removed from cart"
	MsgSaved         = "registration saved"
	MsgPaid          = "tuition paid"
)

// rejection is a rule violation raised inside a cart transaction.
type rejection struct {
	message string
}

func (r rejection) Error() string { return r.message }

func reject(message string) error { return rejection{message: message} }

// RegistrationListResult is a page of registrations.
type RegistrationListResult struct {
	Items []dto.RegistrationResponse `json:"items"`
	Meta  dto.PageMeta               `json:"meta"`
}

// RegistrationService runs the registration state machine and the cart.
// Every operation reconciles the registration first; rule violations come
// back as a RegistrationResult with nil Data.
type RegistrationService interface {
	Open(ctx context.Context, payload dto.RegistrationOpenRequest) (dto.OpenRegistrationResponse, error)
	Current(ctx context.Context, userID uint) (dto.CartResponse, error)
	History(ctx context.Context, userID uint) ([]dto.RegistrationResponse, error)
	List(ctx context.Context, filter dto.RegistrationFilter) (RegistrationListResult, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.CartResponse, error)
	AddClassMember(ctx context.Context, userID uint, payload dto.ClassMemberRequest) (dto.RegistrationResult, error)
	RemoveClassMember(ctx context.Context, userID, courseID uint) (dto.RegistrationResult, error)
	Save(ctx context.Context, userID uint) (dto.RegistrationResult, error)
	Pay(ctx context.Context, userID uint) (dto.RegistrationResult, error)
	Roster(ctx context.Context, actor Actor, courseID uint) ([]dto.RosterEntry, error)
}

type registrationService struct {
	repo      repository.RegistrationRepository
	courses   repository.CourseRepository
	users     repository.UserRepository
	policy    AccessPolicy
	publisher events.Publisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewRegistrationService constructs the registration service.
func NewRegistrationService(repo repository.RegistrationRepository, courses repository.CourseRepository, users repository.UserRepository, policy AccessPolicy, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger) RegistrationService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &registrationService{
		repo:      repo,
		courses:   courses,
		users:     users,
		policy:    policy,
		publisher: publisher,
		validator: validate,
		logger:    logger.With().Str("component", "registration_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/course-registration-api/internal/service/registration"),
		now:       time.Now,
	}
}

func (s *registrationService) Open(ctx context.Context, payload dto.RegistrationOpenRequest) (dto.OpenRegistrationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.OpenRegistrationResponse{}, err
	}

	var userIDs []uint
	if payload.UserID != nil {
		user, err := s.users.GetByID(ctx, *payload.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.OpenRegistrationResponse{}, ErrUserNotFound
			}
			return dto.OpenRegistrationResponse{}, err
		}
		if user.RoleID != models.RoleStudent {
			return dto.OpenRegistrationResponse{}, fmt.Errorf("%w: user %d is not a student", ErrInvalidInput, user.ID)
		}
		userIDs = []uint{user.ID}
	} else {
		ids, err := s.users.ListIDsByRole(ctx, models.RoleStudent)
		if err != nil {
			return dto.OpenRegistrationResponse{}, err
		}
		userIDs = ids
	}

	result := dto.OpenRegistrationResponse{
		Created: make([]dto.RegistrationResponse, 0, len(userIDs)),
		Skipped: []uint{},
	}
	for _, userID := range userIDs {
		exists, err := s.pendingForTerm(ctx, userID, payload.Year, payload.Semester)
		if err != nil {
			return dto.OpenRegistrationResponse{}, err
		}
		if exists {
			if payload.UserID != nil {
				return dto.OpenRegistrationResponse{}, ErrRegistrationExists
			}
			result.Skipped = append(result.Skipped, userID)
			continue
		}

		registration := models.RegisterCourse{
			UserID:        userID,
			Year:          payload.Year,
			Semester:      payload.Semester,
			BeginRegister: payload.BeginRegister,
			EndRegister:   payload.EndRegister,
			DueDateStart:  payload.DueDateStart,
			DueDateEnd:    payload.DueDateEnd,
			Status:        models.RegistrationPending,
		}
		if err := s.repo.Create(ctx, &registration); err != nil {
			return dto.OpenRegistrationResponse{}, err
		}
		result.Created = append(result.Created, dto.NewRegistrationResponse(registration))
		s.publish(ctx, events.RegistrationOpened, registration, 0)
	}

	s.logger.Info().
		Int("year", payload.Year).
		Int("semester", payload.Semester).
		Int("created", len(result.Created)).
		Int("skipped", len(result.Skipped)).
		Msg("registration period opened")
	return result, nil
}

func (s *registrationService) Current(ctx context.Context, userID uint) (dto.CartResponse, error) {
	registration, err := s.latest(ctx, userID)
	if err != nil {
		return dto.CartResponse{}, err
	}
	return s.cart(ctx, registration)
}

func (s *registrationService) History(ctx context.Context, userID uint) ([]dto.RegistrationResponse, error) {
	registrations, _, err := s.repo.List(ctx, repository.RegistrationFilter{UserID: &userID, PageSize: 100})
	if err != nil {
		return nil, err
	}
	for i := range registrations {
		if err := s.reconcile(ctx, &registrations[i]); err != nil {
			return nil, err
		}
	}
	return dto.NewRegistrationResponseSlice(registrations), nil
}

func (s *registrationService) List(ctx context.Context, filter dto.RegistrationFilter) (RegistrationListResult, error) {
	if err := s.validator.Struct(filter); err != nil {
		return RegistrationListResult{}, err
	}

	repoFilter := repository.RegistrationFilter{
		UserID:   filter.UserID,
		Year:     filter.Year,
		Semester: filter.Semester,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if filter.Status != "" {
		status := statusFromCode(filter.Status)
		repoFilter.Status = &status
	}

	registrations, total, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return RegistrationListResult{}, err
	}
	for i := range registrations {
		if err := s.reconcile(ctx, &registrations[i]); err != nil {
			return RegistrationListResult{}, err
		}
	}

	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return RegistrationListResult{
		Items: dto.NewRegistrationResponseSlice(registrations),
		Meta:  dto.PageMeta{Page: page, PageSize: pageSize, Total: total},
	}, nil
}

func (s *registrationService) Get(ctx context.Context, actor Actor, id uint) (dto.CartResponse, error) {
	registration, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CartResponse{}, ErrRegistrationNotFound
		}
		return dto.CartResponse{}, err
	}
	if !actor.IsAdmin() && registration.UserID != actor.ID {
		return dto.CartResponse{}, ErrForbidden
	}
	if err := s.reconcile(ctx, &registration); err != nil {
		return dto.CartResponse{}, err
	}
	return s.cart(ctx, registration)
}

func (s *registrationService) AddClassMember(ctx context.Context, userID uint, payload dto.ClassMemberRequest) (dto.RegistrationResult, error) {
	ctx, span := s.tracer.Start(ctx, "registration.add_class_member")
	defer span.End()
	span.SetAttributes(attribute.Int("registration.user_id", int(userID)), attribute.Int("registration.course_id", int(payload.CourseID)))

	if err := s.validator.Struct(payload); err != nil {
		return dto.RegistrationResult{}, err
	}

	registration, result, ok, err := s.openCart(ctx, userID)
	if err != nil || !ok {
		return s.finish(span, "add", result, err)
	}

	course, err := s.courses.GetByID(ctx, payload.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.finish(span, "add", dto.RegistrationResult{}, ErrCourseNotFound)
		}
		return s.finish(span, "add", dto.RegistrationResult{}, err)
	}
	if course.Year != registration.Year || course.Semester != registration.Semester {
		return s.finish(span, "add", rejected(MsgWrongTerm), nil)
	}

	now := s.now()
	member := models.ClassMember{
		UserID:           userID,
		RegisterCourseID: registration.ID,
		CourseID:         course.ID,
		JoinedAt:         now,
		Price:            course.Price,
	}
	err = s.repo.AddMember(ctx, &member, func(locked models.RegisterCourse, cart []models.ClassMember) error {
		if err := s.cartWritable(locked, now); err != nil {
			return err
		}
		for _, item := range cart {
			if item.CourseID == course.ID {
				return reject(MsgDuplicateCourse)
			}
		}
		if _, found := models.FindScheduleConflict(course.Schedules, cartSchedules(cart)); found {
			observability.ScheduleConflicts().WithLabelValues("student").Inc()
			return reject(MsgScheduleOverlap)
		}
		return nil
	})
	if result, handled := asRejection(err); handled {
		return s.finish(span, "add", result, nil)
	}
	if err != nil {
		return s.finish(span, "add", dto.RegistrationResult{}, err)
	}

	s.publish(ctx, events.ClassMemberAdded, registration, course.ID)
	s.logger.Info().Uint("registration_id", registration.ID).Uint("course_id", course.ID).Msg("class member added")

	cart, err := s.cart(ctx, registration)
	if err != nil {
		return s.finish(span, "add", dto.RegistrationResult{}, err)
	}
	return s.finish(span, "add", dto.RegistrationResult{Message: MsgMemberAdded, Data: cart}, nil)
}

func (s *registrationService) RemoveClassMember(ctx context.Context, userID, courseID uint) (dto.RegistrationResult, error) {
	ctx, span := s.tracer.Start(ctx, "registration.remove_class_member")
	defer span.End()
	span.SetAttributes(attribute.Int("registration.user_id", int(userID)), attribute.Int("registration.course_id", int(courseID)))

	registration, result, ok, err := s.openCart(ctx, userID)
	if err != nil || !ok {
		return s.finish(span, "remove", result, err)
	}

	now := s.now()
	err = s.repo.RemoveMember(ctx, registration.ID, courseID, func(locked models.RegisterCourse, _ []models.ClassMember) error {
		return s.cartWritable(locked, now)
	})
	if result, handled := asRejection(err); handled {
		return s.finish(span, "remove", result, nil)
	}
	if err != nil {
		return s.finish(span, "remove", dto.RegistrationResult{}, err)
	}

	s.publish(ctx, events.ClassMemberRemoved, registration, courseID)

	cart, err := s.cart(ctx, registration)
	if err != nil {
		return s.finish(span, "remove", dto.RegistrationResult{}, err)
	}
	return s.finish(span, "remove", dto.RegistrationResult{Message: MsgMemberRemoved, Data: cart}, nil)
}

func (s *registrationService) Save(ctx context.Context, userID uint) (dto.RegistrationResult, error) {
	ctx, span := s.tracer.Start(ctx, "registration.save")
	defer span.End()

	registration, err := s.latest(ctx, userID)
	if errors.Is(err, ErrRegistrationNotFound) {
		return s.finish(span, "save", rejected(MsgNoRegistration), nil)
	}
	if err != nil {
		return s.finish(span, "save", dto.RegistrationResult{}, err)
	}

	now := s.now()
	check := func(reg models.RegisterCourse) error {
		if reg.Status != models.RegistrationPending {
			return reject(MsgNotPending)
		}
		if now.After(reg.EndRegister) {
			return reject(MsgRegistrationClosed)
		}
		return nil
	}
	if err := check(registration); err != nil {
		result, _ := asRejection(err)
		return s.finish(span, "save", result, nil)
	}

	tuition, err := s.repo.SaveTuition(ctx, registration.ID, func(locked models.RegisterCourse, _ []models.ClassMember) error {
		return check(locked)
	})
	if result, handled := asRejection(err); handled {
		return s.finish(span, "save", result, nil)
	}
	if err != nil {
		return s.finish(span, "save", dto.RegistrationResult{}, err)
	}

	registration.Tuition = tuition
	s.publish(ctx, events.RegistrationSaved, registration, 0)
	s.logger.Info().Uint("registration_id", registration.ID).Float64("tuition", tuition).Msg("registration saved")

	return s.finish(span, "save", dto.RegistrationResult{Message: MsgSaved, Data: dto.NewRegistrationResponse(registration)}, nil)
}

func (s *registrationService) Pay(ctx context.Context, userID uint) (dto.RegistrationResult, error) {
	ctx, span := s.tracer.Start(ctx, "registration.pay")
	defer span.End()

	registration, err := s.latest(ctx, userID)
	if errors.Is(err, ErrRegistrationNotFound) {
		return s.finish(span, "pay", rejected(MsgNoRegistration), nil)
	}
	if err != nil {
		return s.finish(span, "pay", dto.RegistrationResult{}, err)
	}

	now := s.now()
	payable := func(reg models.RegisterCourse) error {
		if reg.Status != models.RegistrationPending {
			return reject(MsgNotPending)
		}
		if !reg.InPaymentWindow(now) {
			return reject(MsgOutsidePayment)
		}
		return nil
	}
	if err := payable(registration); err != nil {
		result, _ := asRejection(err)
		return s.finish(span, "pay", result, nil)
	}

	paid, err := s.repo.MarkPaid(ctx, registration.ID, now, func(locked models.RegisterCourse, cart []models.ClassMember) error {
		if err := payable(locked); err != nil {
			return err
		}
		if models.SumTuition(cart) <= 0 {
			return reject(MsgZeroTuition)
		}
		return nil
	})
	if result, handled := asRejection(err); handled {
		return s.finish(span, "pay", result, nil)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.finish(span, "pay", rejected(MsgNotPending), nil)
	}
	if err != nil {
		return s.finish(span, "pay", dto.RegistrationResult{}, err)
	}

	s.publish(ctx, events.RegistrationPaid, paid, 0)
	s.logger.Info().Uint("registration_id", paid.ID).Float64("tuition", paid.Tuition).Msg("tuition paid")

	return s.finish(span, "pay", dto.RegistrationResult{Message: MsgPaid, Data: dto.NewRegistrationResponse(paid)}, nil)
}

func (s *registrationService) Roster(ctx context.Context, actor Actor, courseID uint) ([]dto.RosterEntry, error) {
	if err := s.policy.Require(ctx, actor, ActionManage, ResourceCourse, courseID); err != nil {
		return nil, err
	}
	members, err := s.repo.Roster(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return dto.NewRosterEntries(members), nil
}

// openCart loads and reconciles the user's latest registration and checks
// that its cart may change now.
func (s *registrationService) openCart(ctx context.Context, userID uint) (models.RegisterCourse, dto.RegistrationResult, bool, error) {
	registration, err := s.latest(ctx, userID)
	if errors.Is(err, ErrRegistrationNotFound) {
		return models.RegisterCourse{}, rejected(MsgNoRegistration), false, nil
	}
	if err != nil {
		return models.RegisterCourse{}, dto.RegistrationResult{}, false, err
	}
	if err := s.cartWritable(registration, s.now()); err != nil {
		result, _ := asRejection(err)
		return models.RegisterCourse{}, result, false, nil
	}
	return registration, dto.RegistrationResult{}, true, nil
}

func (s *registrationService) cartWritable(registration models.RegisterCourse, now time.Time) error {
	if !registration.InRegistrationWindow(now) {
		return reject(MsgOutsideRegistration)
	}
	if registration.Status != models.RegistrationPending {
		return reject(MsgNotPending)
	}
	return nil
}

func (s *registrationService) latest(ctx context.Context, userID uint) (models.RegisterCourse, error) {
	registration, err := s.repo.Latest(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RegisterCourse{}, ErrRegistrationNotFound
		}
		return models.RegisterCourse{}, err
	}
	if err := s.reconcile(ctx, &registration); err != nil {
		return models.RegisterCourse{}, err
	}
	return registration, nil
}

// reconcile applies the lazy cancellation rule and persists it. A concurrent
// transition wins; the row is reloaded in that case.
func (s *registrationService) reconcile(ctx context.Context, registration *models.RegisterCourse) error {
	if !models.Reconcile(registration, s.now()) {
		return nil
	}

	err := s.repo.UpdateStatus(ctx, registration.ID, models.RegistrationPending, models.RegistrationCancelled)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh, getErr := s.repo.GetByID(ctx, registration.ID)
		if getErr != nil {
			return getErr
		}
		*registration = fresh
		return nil
	}
	if err != nil {
		return err
	}

	s.publish(ctx, events.RegistrationCancelled, *registration, 0)
	s.logger.Info().Uint("registration_id", registration.ID).Msg("registration cancelled after window closed")
	return nil
}

func (s *registrationService) pendingForTerm(ctx context.Context, userID uint, year, semester int) (bool, error) {
	exists, err := s.repo.HasPending(ctx, userID, year, semester)
	if err != nil || !exists {
		return exists, err
	}

	pending := models.RegistrationPending
	registrations, _, err := s.repo.List(ctx, repository.RegistrationFilter{
		UserID:   &userID,
		Status:   &pending,
		Year:     &year,
		Semester: &semester,
	})
	if err != nil {
		return false, err
	}
	for i := range registrations {
		if err := s.reconcile(ctx, &registrations[i]); err != nil {
			return false, err
		}
	}
	return s.repo.HasPending(ctx, userID, year, semester)
}

func (s *registrationService) cart(ctx context.Context, registration models.RegisterCourse) (dto.CartResponse, error) {
	members, err := s.repo.ListMembers(ctx, registration.ID)
	if err != nil {
		return dto.CartResponse{}, err
	}
	return dto.NewCartResponse(registration, members), nil
}

func (s *registrationService) publish(ctx context.Context, eventType string, registration models.RegisterCourse, courseID uint) {
	event := events.Event{
		Type:           eventType,
		RegistrationID: registration.ID,
		UserID:         registration.UserID,
		CourseID:       courseID,
		Tuition:        registration.Tuition,
		OccurredAt:     s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Uint("registration_id", registration.ID).Msg("failed to publish registration event")
	}
}

func (s *registrationService) finish(span trace.Span, operation string, result dto.RegistrationResult, err error) (dto.RegistrationResult, error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, operation+" failed")
	case result.Rejected():
		outcome = "rejected"
		span.SetAttributes(attribute.String("registration.rejection", result.Message))
	default:
		span.SetStatus(codes.Ok, operation)
	}
	observability.RegistrationOperations().WithLabelValues(operation, outcome).Inc()
	return result, err
}

func rejected(message string) dto.RegistrationResult {
	return dto.RegistrationResult{Message: message}
}

func asRejection(err error) (dto.RegistrationResult, bool) {
	var r rejection
	if errors.As(err, &r) {
		return rejected(r.message), true
	}
	return dto.RegistrationResult{}, false
}

func cartSchedules(cart []models.ClassMember) []models.CourseSchedule {
	var slots []models.CourseSchedule
	for _, item := range cart {
		slots = append(slots, item.Course.Schedules...)
	}
	return slots
}

func statusFromCode(code string) models.RegistrationStatus {
	switch code {
	case "paid":
		return models.RegistrationPaid
	case "cancelled":
		return models.RegistrationCancelled
	default:
		return models.RegistrationPending
	}
}
