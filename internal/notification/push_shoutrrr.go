package notification

import (
	"context"
	"io"
	"log"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/logger"
)

// ShoutrrrProvider sends via nicholas-fedor/shoutrrr.
// A single sender fans out to every configured URL.
type ShoutrrrProvider struct {
	sender *router.ServiceRouter
}

// NewShoutrrrProvider validates urls by building the sender.
func NewShoutrrrProvider(urls []string, timeout time.Duration) (*ShoutrrrProvider, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one shoutrrr URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, sanitize(err).Category(errors.CategoryConfiguration).Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrProvider{sender: sender}, nil
}

// Name implements Provider.
func (s *ShoutrrrProvider) Name() string { return "shoutrrr" }

// Send implements Provider. The router applies its own timeout; ctx only
// prevents sending after shutdown started.
func (s *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	for _, e := range s.sender.Send(n.Message, &params) {
		if e != nil {
			return sanitize(e).Category(errors.CategoryNotification).Context("camera_id", n.CameraID).Build()
		}
	}
	return nil
}

// sanitize strips service tokens from errors, shoutrrr includes the URL in
// most of its messages.
func sanitize(err error) *errors.ErrorBuilder {
	return errors.New(errors.NewStd(logger.RedactText(err.Error()))).Component("notification")
}
