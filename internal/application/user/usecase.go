package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/h4food/foodmarket/internal/domain/failure"
	domain "github.com/h4food/foodmarket/internal/domain/user"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	userService     = "user-service"
	useCaseRegister = "user.register"
)

type RegisterInput struct {
	Email    string
	Name     string
	PhotoURL string
}

// RegisterUseCase stores a marketplace user. Emails are unique regardless of case.
type RegisterUseCase struct {
	repo   domain.Repository
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewRegisterUseCase(repo domain.Repository, tel observability.Observability) *RegisterUseCase {
	tel = observability.OrNop(tel)
	return &RegisterUseCase{
		repo:         repo,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", userService)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (uc *RegisterUseCase) Execute(ctx context.Context, in RegisterInput) (_ *domain.User, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseRegister))
	ctx, span := uc.tracer.Start(ctx, "UC.RegisterUser", attribute.String("use_case", useCaseRegister))
	start := time.Now()
	outcome := "success"

	defer func() {
		if err != nil {
			outcome = "error"
			if errors.Is(err, failure.ErrValidation) || errors.Is(err, failure.ErrConflict) {
				outcome = "rejected"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, string(failure.KindOf(err)))
		}
		span.End()

		lat := time.Since(start).Seconds()
		uc.reqCounter.Add(1, observability.L("use_case", useCaseRegister), observability.L("outcome", outcome))
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseRegister))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	u, err := domain.New(in.Email, in.Name, in.PhotoURL)
	if err != nil {
		return nil, err
	}
	if _, err := uc.repo.Create(ctx, u); err != nil {
		if errors.Is(err, failure.ErrConflict) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("user: create: %w", err)
	}
	return u, nil
}
