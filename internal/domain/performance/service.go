package performance

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/authz"
	"perfeval/internal/domain/directory"
	"perfeval/internal/platform/lock"
	"perfeval/internal/platform/metrics"
)

type DepartmentLister interface {
	ListDepartments(ctx context.Context) ([]directory.Department, error)
}

// Service exposes the KPI catalog, the period lifecycle and the review
// engine. Every operation takes the resolved principal and checks it with
// the guard before touching the store.
type Service struct {
	store    StoreAPI
	guard    *authz.Guard
	validate *validator.Validate
	tracer   trace.Tracer

	Departments DepartmentLister
	Locker      *lock.Locker
	Metrics     *metrics.Collector
	Audit       audit.Recorder
	Log         zerolog.Logger
}

func NewService(store StoreAPI, guard *authz.Guard, log zerolog.Logger) *Service {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return &Service{
		store:    store,
		guard:    guard,
		validate: validate,
		tracer:   otel.Tracer("perfeval/internal/domain/performance"),
		Log:      log,
	}
}

func (s *Service) Guard() *authz.Guard {
	return s.guard
}

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, "performance."+name, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
		span.End()
	}
}

func (s *Service) record(ctx context.Context, actorID, action, entityType, entityID string, after any) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record(ctx, actorID, action, entityType, entityID, after)
}

// check runs struct validation and reports the first failing field,
// prefixed with prefix when set.
func (s *Service) check(v any, prefix string) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return invalid("body", err.Error())
	}
	fe := fieldErrs[0]
	field := fe.Field()
	if ns := fe.Namespace(); strings.Contains(ns, ".") {
		field = ns[strings.Index(ns, ".")+1:]
	}
	if prefix != "" {
		field = prefix + "." + field
	}
	return invalid(field, describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		switch fe.Kind() {
		case reflect.Slice:
			return "must have at most " + fe.Param() + " entries"
		case reflect.String:
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}
