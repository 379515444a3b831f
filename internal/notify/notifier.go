package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/lumino/internal/candidate"
	"github.com/spigell/lumino/internal/failure"
)

// Transport delivers a composed message.
type Transport interface {
	Send(ctx context.Context, msg candidate.EmailMessage) error
}

// Delivery is the transport outcome, kept apart from the message content.
type Delivery struct {
	Attempted bool   `json:"attempted" yaml:"attempted"`
	Delivered bool   `json:"delivered" yaml:"delivered"`
	Status    string `json:"status" yaml:"status"`
	Err       error  `json:"-" yaml:"-"`
}

// Outcome is the result of one notification stage invocation.
type Outcome struct {
	Message        candidate.EmailMessage `json:"message" yaml:"message"`
	Tier           Tier                   `json:"tier" yaml:"tier"`
	Fallback       bool                   `json:"fallback" yaml:"fallback"`
	FallbackReason string                 `json:"fallback_reason,omitempty" yaml:"fallback_reason,omitempty"`
	Delivery       Delivery               `json:"delivery" yaml:"delivery"`
}

// Notifier composes a message and hands it to the transport. It never fails:
// generation problems fall back to a template and transport problems end up
// in the delivery status.
type Notifier struct {
	composer  *Composer
	transport Transport
	logger    *zap.Logger
}

// NewNotifier requires a composer. A nil transport is allowed and reported in
// every delivery status.
func NewNotifier(composer *Composer, transport Transport, logger *zap.Logger) (*Notifier, error) {
	if composer == nil {
		return nil, errors.New("notifier requires a composer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{composer: composer, transport: transport, logger: logger}, nil
}

// Notify sends exactly one message per call when the recipient is known.
func (n *Notifier) Notify(ctx context.Context, in Input) Outcome {
	out := Outcome{Tier: n.composer.Policy().Tier(in.Evaluation.SimilarityScore)}

	msg, err := n.composer.Compose(ctx, in)
	if err != nil {
		n.logger.Warn("message generation failed, using fallback", zap.String("tier", string(out.Tier)), zap.Error(err))
		fallback := safeFallback(in)
		msg = &fallback
		out.Fallback = true
		out.FallbackReason = err.Error()
	}
	out.Message = *msg

	out.Delivery = n.dispatch(ctx, out.Message)
	if out.Delivery.Delivered {
		n.logger.Info("message delivered", zap.String("to", out.Message.ToEmail), zap.String("tier", string(out.Tier)))
	} else {
		n.logger.Warn("message not delivered", zap.String("status", out.Delivery.Status))
	}
	return out
}

// safeFallback greets the placeholder name when the candidate's own name would
// reveal the score or the rationale.
func safeFallback(in Input) candidate.EmailMessage {
	msg := Fallback(in.CandidateName, in.CandidateEmail)
	if CheckLeak(msg, in.Evaluation) != nil {
		msg = Fallback(candidate.PlaceholderName, in.CandidateEmail)
	}
	return msg
}

func (n *Notifier) dispatch(ctx context.Context, msg candidate.EmailMessage) Delivery {
	if msg.IsPlaceholder() {
		return failed(false, fmt.Errorf("%w: candidate email address is unknown, message not sent", failure.ErrTransport))
	}
	if err := msg.Validate(); err != nil {
		return failed(false, fmt.Errorf("%w: %w", failure.ErrTransport, err))
	}
	if n.transport == nil {
		return failed(false, &failure.ConfigurationError{Problems: []string{"no message transport configured"}})
	}

	if err := n.transport.Send(ctx, msg); err != nil {
		if !errors.Is(err, failure.ErrConfiguration) && !errors.Is(err, failure.ErrTransport) {
			err = fmt.Errorf("%w: failed to send email: %w", failure.ErrTransport, err)
		}
		return failed(true, err)
	}

	return Delivery{
		Attempted: true,
		Delivered: true,
		Status:    "Email successfully sent to " + msg.ToEmail,
	}
}

func failed(attempted bool, err error) Delivery {
	return Delivery{Attempted: attempted, Status: "Error: " + err.Error(), Err: err}
}
