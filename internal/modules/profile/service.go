// Package profile reads and edits the acting user's personal data.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/events"
	"github.com/aristath/paperdesk/internal/session"
)

// Service handles profile operations
type Service struct {
	backend      domain.ProfileBackend
	validate     *validator.Validate
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new profile service
func NewService(backend domain.ProfileBackend, eventManager *events.Manager, log zerolog.Logger) *Service {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		backend:      backend,
		validate:     validate,
		eventManager: eventManager,
		log:          log.With().Str("service", "profile").Logger(),
	}
}

// Get returns the acting user's profile
func (s *Service) Get(ctx context.Context) (*domain.Profile, error) {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.backend.GetProfile(ctx, sess.UserID)
}

// Update validates and stores the acting user's editable fields
func (s *Service) Update(ctx context.Context, update domain.ProfileUpdate) (*domain.Profile, error) {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	update = normalize(update)
	if err := s.Validate(update); err != nil {
		return nil, err
	}

	profile, err := s.backend.UpdateProfile(ctx, sess.UserID, update)
	if err != nil {
		var backendErr *domain.BackendError
		if errors.As(err, &backendErr) && backendErr.Status == http.StatusConflict {
			conflict := *backendErr
			conflict.Message = domain.MsgEmailAlreadyInUse
			return nil, &conflict
		}
		return nil, err
	}

	s.log.Info().Int64("user_id", sess.UserID).Msg("Profile updated")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("profile", &events.ProfileUpdatedData{UserID: sess.UserID})
	}
	return profile, nil
}

// Validate reports the first invalid field of update as a ValidationError
func (s *Service) Validate(update domain.ProfileUpdate) error {
	err := s.validate.Struct(update)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate profile: %w", err)
	}
	fe := fieldErrs[0]
	return domain.NewValidationError(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "len":
		return fmt.Sprintf("must have exactly %s digits", fe.Param())
	case "numeric":
		return "must contain digits only"
	}
	return "is invalid"
}

func normalize(u domain.ProfileUpdate) domain.ProfileUpdate {
	return domain.ProfileUpdate{
		FirstName: strings.TrimSpace(u.FirstName),
		LastName:  strings.TrimSpace(u.LastName),
		Email:     strings.ToLower(strings.TrimSpace(u.Email)),
		Phone:     strings.TrimSpace(u.Phone),
	}
}
