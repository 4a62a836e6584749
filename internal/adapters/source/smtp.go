package source

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
)

// IngestFunc is invoked for every message accepted over SMTP.
type IngestFunc func(ctx context.Context, email core.RawEmail)

// SMTPSource accepts raw emails over SMTP and keeps them in memory so they
// remain re-readable by id. When an ingest callback is configured, every
// accepted message is also handed to it on a separate goroutine so the SMTP
// session never blocks on triage.
type SMTPSource struct {
	logger     *zap.Logger
	listenAddr string
	server     *smtp.Server
	ingest     IngestFunc

	mu     sync.RWMutex
	emails map[string]core.RawEmail
}

// NewSMTPSource creates an SMTP-backed email source listening on addr.
func NewSMTPSource(listenAddr string, logger *zap.Logger) *SMTPSource {
	return &SMTPSource{
		logger:     logger,
		listenAddr: listenAddr,
		emails:     make(map[string]core.RawEmail),
	}
}

// OnIngest registers the callback invoked for each accepted message.
// Must be called before Start.
func (s *SMTPSource) OnIngest(fn IngestFunc) {
	s.ingest = fn
}

// Start begins accepting SMTP connections.
func (s *SMTPSource) Start() error {
	s.server = smtp.NewServer(&smtpBackend{source: s})

	s.server.Addr = s.listenAddr
	s.server.Domain = "localhost"
	s.server.ReadTimeout = 30 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.MaxMessageBytes = 10 * 1024 * 1024 // 10MB
	s.server.MaxRecipients = 50
	s.server.AllowInsecureAuth = true

	s.logger.Info("SMTP email source starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				s.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop shuts the SMTP server down.
func (s *SMTPSource) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// List enumerates every message received so far, oldest first.
func (s *SMTPSource) List(ctx context.Context) ([]core.RawEmail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	emails := make([]core.RawEmail, 0, len(s.emails))
	for _, email := range s.emails {
		emails = append(emails, email)
	}
	sort.Slice(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.Before(emails[j].ReceivedAt)
	})
	return emails, nil
}

// Get retrieves a received message by id.
func (s *SMTPSource) Get(ctx context.Context, id string) (*core.RawEmail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.emails[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &email, nil
}

func (s *SMTPSource) accept(data []byte) core.RawEmail {
	email := core.RawEmail{
		ID:         uuid.NewString(),
		Data:       data,
		ReceivedAt: time.Now(),
	}

	s.mu.Lock()
	s.emails[email.ID] = email
	s.mu.Unlock()

	s.logger.Debug("Accepted email over SMTP",
		zap.String("email_id", email.ID),
		zap.Int("bytes", len(data)))

	if s.ingest != nil {
		go s.ingest(context.Background(), email)
	}
	return email
}

// smtpBackend implements the go-smtp Backend interface.
type smtpBackend struct {
	source *SMTPSource
}

func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{source: b.source}, nil
}

// smtpSession implements the go-smtp Session interface.
type smtpSession struct {
	source *SMTPSource
	sender string
}

func (s *smtpSession) Reset() {
	s.sender = ""
}

func (s *smtpSession) Logout() error {
	return nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		s.source.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	s.source.accept(data)
	return nil
}

var _ core.EmailSource = (*SMTPSource)(nil)
