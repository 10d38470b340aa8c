package intake

import (
	"context"
	"errors"
	"runtime/debug"

	"contact_intake/internal/config"
	"contact_intake/internal/retry"
	"contact_intake/internal/submission"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Notifier delivers the administrator notification for a submission.
type Notifier interface {
	Notify(ctx context.Context, cleaned submission.Cleaned) error
}

// Appender stores a submission. It reports false with a nil error when
// storage is not configured; that decision belongs to the appender alone.
type Appender interface {
	Append(ctx context.Context, cleaned submission.Cleaned, source string) (bool, error)
}

// Options holds the per-deployment settings the pipeline depends on.
type Options struct {
	HoneypotField string
	Resilience    config.ResilienceConfig
}

// Orchestrator runs a submission through decode, spam check, validation,
// notification and storage.
type Orchestrator struct {
	notifier Notifier
	appender Appender
	opts     Options
}

func New(notifier Notifier, appender Appender, opts Options) *Orchestrator {
	opts.Resilience = opts.Resilience.Normalize()
	return &Orchestrator{
		notifier: notifier,
		appender: appender,
		opts:     opts,
	}
}

// Handle processes one submission and always returns a reply; it never panics.
func (o *Orchestrator) Handle(ctx context.Context, req submission.Request) (reply Reply) {
	logger := log.Ctx(ctx).With().Str("submission_id", uuid.NewString()).Logger()
	ctx = logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Unhandled fault while processing submission")
			reply = serverError(MsgInternalError)
		}
	}()

	raw, err := submission.Decode(req)
	if err != nil {
		if errors.Is(err, submission.ErrMalformedBody) {
			logger.Warn().Err(err).Str("content_type", req.ContentType).Msg("Rejected undecodable body")
			return clientError(MsgInvalidBody)
		}
		logger.Error().Err(err).Msg("Failed to decode submission")
		return serverError(MsgInternalError)
	}

	if submission.IsSpam(raw, o.opts.HoneypotField) {
		logger.Info().Str("honeypot", o.opts.HoneypotField).Msg("Honeypot filled, discarding submission")
		return success()
	}

	cleaned, err := submission.Validate(raw)
	if err != nil {
		var verr *submission.ValidationError
		if errors.As(err, &verr) {
			logger.Info().Str("reason", verr.Reason).Msg("Submission failed validation")
			return clientError(verr.Reason)
		}
		logger.Error().Err(err).Msg("Validator failed")
		return serverError(MsgInternalError)
	}

	if o.notifier == nil {
		logger.Error().Msg("No notifier configured")
		return serverError(MsgNotificationFailed)
	}
	err = retry.Do(ctx, o.opts.Resilience.Notify, func(ctx context.Context) error {
		return o.notifier.Notify(ctx, cleaned)
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to send email notification")
		return serverError(MsgNotificationFailed)
	}
	logger.Info().Str("email", cleaned.Email).Msg("Notification sent")

	if o.appender != nil {
		stored, err := retry.WithRetry(ctx, o.opts.Resilience.Storage, func(ctx context.Context) (bool, error) {
			return o.appender.Append(ctx, cleaned, req.Source)
		})
		if err != nil {
			// Storage is auxiliary: the email went out, so the caller still
			// gets a success response.
			logger.Warn().Err(err).Msg("Failed to store submission, but email was sent")
		} else if !stored {
			logger.Debug().Msg("Storage skipped")
		}
	}

	return success()
}
