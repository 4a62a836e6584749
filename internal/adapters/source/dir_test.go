package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
)

func writeEmail(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestDirSourceListsInNameOrder(t *testing.T) {
	tmp := t.TempDir()
	writeEmail(t, tmp, "02_price.txt", "how much for 08-50-0113?")
	writeEmail(t, tmp, "01_cancel.eml", "please cancel LC123456")
	writeEmail(t, tmp, "notes.md", "not an email")
	require.NoError(t, os.Mkdir(filepath.Join(tmp, "archive"), 0755))

	src, err := NewDirSource(tmp, zap.NewNop())
	require.NoError(t, err)

	emails, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, "01_cancel", emails[0].ID)
	assert.Equal(t, "02_price", emails[1].ID)
	assert.Equal(t, "please cancel LC123456", string(emails[0].Data))
	assert.False(t, emails[0].ReceivedAt.IsZero())
}

func TestDirSourceListIsRereadable(t *testing.T) {
	tmp := t.TempDir()
	writeEmail(t, tmp, "a.txt", "first")

	src, err := NewDirSource(tmp, zap.NewNop())
	require.NoError(t, err)

	first, err := src.List(context.Background())
	require.NoError(t, err)

	writeEmail(t, tmp, "b.txt", "second")
	second, err := src.List(context.Background())
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Len(t, second, 2)
}

func TestDirSourceGet(t *testing.T) {
	tmp := t.TempDir()
	writeEmail(t, tmp, "cancel.txt", "please cancel LC123456")

	src, err := NewDirSource(tmp, zap.NewNop())
	require.NoError(t, err)

	email, err := src.Get(context.Background(), "cancel")
	require.NoError(t, err)
	assert.Equal(t, "cancel", email.ID)
	assert.Equal(t, "please cancel LC123456", string(email.Data))

	_, err = src.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDirSourceRejectsMissingDirectory(t *testing.T) {
	_, err := NewDirSource(filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	assert.Error(t, err)
}

func TestSMTPSourceStoresAcceptedEmails(t *testing.T) {
	src := NewSMTPSource("127.0.0.1:0", zap.NewNop())

	received := make(chan core.RawEmail, 1)
	src.OnIngest(func(_ context.Context, email core.RawEmail) {
		received <- email
	})

	email := src.accept([]byte("Subject: hi\r\n\r\nhello"))

	got := <-received
	assert.Equal(t, email.ID, got.ID)

	listed, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)

	fetched, err := src.Get(context.Background(), email.ID)
	require.NoError(t, err)
	assert.Equal(t, "Subject: hi\r\n\r\nhello", string(fetched.Data))

	_, err = src.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
