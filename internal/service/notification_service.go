package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// NoopNotifier is used when completion notifications are disabled.
type NoopNotifier struct{}

func (n *NoopNotifier) NotifyQuizCompleted(ctx context.Context, quizID uint, quizTitle string, participants int) error {
	log.Printf("[Notifier] noop quiz completed quiz_id=%d participants=%d", quizID, participants)
	return nil
}

// ResendNotifier emails a quiz completion report via Resend REST API.
type ResendNotifier struct {
	from   string
	to     string
	client *resend.Client
}

func NewResendNotifier(apiKey, from, to string) (*ResendNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("notification from and to addresses are required")
	}
	return &ResendNotifier{
		from:   from,
		to:     to,
		client: resend.NewClient(apiKey),
	}, nil
}

func (n *ResendNotifier) NotifyQuizCompleted(ctx context.Context, quizID uint, quizTitle string, participants int) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: fmt.Sprintf("Quiz completed: %s", quizTitle),
		Text: fmt.Sprintf("Quiz #%d (%s) has finished. Participants: %d.",
			quizID, quizTitle, participants),
		Html: fmt.Sprintf("<p>Quiz #%d (<strong>%s</strong>) has finished.</p><p>Participants: %d.</p>",
			quizID, quizTitle, participants),
	}

	// One completion report per quiz: retried sends must not duplicate.
	options := &resend.SendEmailOptions{
		IdempotencyKey: fmt.Sprintf("quiz-completed-%d", quizID),
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := n.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && (netErr.Timeout() || netErr.Temporary()) {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
