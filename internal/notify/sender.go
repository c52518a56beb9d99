package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hyfata/agora-auth/domain"
)

// LogSender writes one-time codes to the application log instead of
// delivering them. Development only; production deployments plug in a real
// mail or SMS sender.
type LogSender struct{}

// SendCode logs the code for the user.
func (LogSender) SendCode(_ context.Context, user *domain.User, code string) error {
	log.Info().
		Str("user_id", user.ID).
		Str("code", code).
		Msg("two-factor code (log delivery)")
	return nil
}
