package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/zwickfi/zwickfi/internal/logger"
)

const (
	EnvMonarchEmail     = "MONARCH_EMAIL"
	EnvMonarchPassword  = "MONARCH_PASSWORD"
	EnvMonarchSecretKey = "MONARCH_SECRET_KEY"
	EnvCredentialsFile  = "GOOGLE_APPLICATION_CREDENTIALS"
)

var (
	// ErrCredentialsFileNotFound is returned when the service-account key path
	// does not exist.
	ErrCredentialsFileNotFound = errors.New("service account file not found")
	// ErrMissingCredential is returned when a value is unset and cannot be
	// prompted for.
	ErrMissingCredential = errors.New("missing credential")
)

const redacted = "[REDACTED]"

// Credentials are resolved once per process and never logged in clear.
type Credentials struct {
	MonarchEmail       string
	MonarchPassword    string
	MonarchSecretKey   string
	ServiceAccountFile string
}

// String implements fmt.Stringer with secrets redacted.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{MonarchEmail:%s MonarchPassword:%s MonarchSecretKey:%s ServiceAccountFile:%s}",
		redact(c.MonarchEmail), redact(c.MonarchPassword), redact(c.MonarchSecretKey), c.ServiceAccountFile)
}

// GoString keeps %#v from printing secrets.
func (c Credentials) GoString() string {
	return c.String()
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler with secrets redacted.
func (c Credentials) MarshalZerologObject(e *zerolog.Event) {
	e.Str("monarch_email", redact(c.MonarchEmail)).
		Str("monarch_password", redact(c.MonarchPassword)).
		Str("monarch_secret_key", redact(c.MonarchSecretKey)).
		Str("service_account_file", c.ServiceAccountFile)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

// SecretSource looks up a named secret.
type SecretSource interface {
	Access(ctx context.Context, name string) (string, error)
}

// Prompter asks the operator for a value. Secret values are read without echo.
type Prompter interface {
	Prompt(message string, secret bool) (string, error)
}

// Resolver resolves credentials from the environment, then a secret store,
// then an interactive prompt. Nil Secrets or Prompt skip that source.
type Resolver struct {
	Getenv  func(string) string
	Secrets SecretSource
	Prompt  Prompter
	// Stat defaults to os.Stat.
	Stat func(string) (os.FileInfo, error)
}

// Resolve returns the full credential set or the first resolution error. The
// key file's existence is checked before returning; nothing touches the
// network except the optional secret store.
func (r Resolver) Resolve(ctx context.Context) (Credentials, error) {
	var creds Credentials
	var err error

	if creds.MonarchEmail, err = r.value(ctx, EnvMonarchEmail, "Monarch Money email", false); err != nil {
		return Credentials{}, err
	}
	if creds.MonarchPassword, err = r.value(ctx, EnvMonarchPassword, "Monarch Money password", true); err != nil {
		return Credentials{}, err
	}
	if creds.MonarchSecretKey, err = r.value(ctx, EnvMonarchSecretKey, "Monarch Money secret key", true); err != nil {
		return Credentials{}, err
	}

	if creds.ServiceAccountFile, err = r.serviceAccountFile(); err != nil {
		return Credentials{}, err
	}

	return creds, nil
}

func (r Resolver) getenv(key string) string {
	if r.Getenv != nil {
		return r.Getenv(key)
	}
	return os.Getenv(key)
}

func (r Resolver) value(ctx context.Context, key, description string, secret bool) (string, error) {
	log := logger.FromContext(ctx)

	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v, nil
	}

	if r.Secrets != nil {
		v, err := r.Secrets.Access(ctx, key)
		if err == nil && strings.TrimSpace(v) != "" {
			log.Debug().Str("credential", key).Msg("Resolved credential from secret store")
			return strings.TrimSpace(v), nil
		}
		if err != nil {
			log.Warn().Err(err).Str("credential", key).Msg("Secret store lookup failed")
		}
	}

	if r.Prompt == nil {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingCredential, key)
	}

	v, err := r.Prompt.Prompt(fmt.Sprintf("The environment variable '%s' is not set.\nPlease enter your %s: ", key, description), secret)
	for err == nil && strings.TrimSpace(v) == "" {
		v, err = r.Prompt.Prompt(fmt.Sprintf("%s cannot be empty. Please enter again: ", description), secret)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return strings.TrimSpace(v), nil
}

func (r Resolver) serviceAccountFile() (string, error) {
	path := strings.TrimSpace(r.getenv(EnvCredentialsFile))
	if path == "" {
		if r.Prompt == nil {
			return "", fmt.Errorf("%w: %s is not set", ErrMissingCredential, EnvCredentialsFile)
		}
		v, err := r.Prompt.Prompt(fmt.Sprintf("The environment variable '%s' is not set.\nPlease provide the full path to your service_account.json file: ", EnvCredentialsFile), false)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", EnvCredentialsFile, err)
		}
		path = strings.TrimSpace(v)
	}

	stat := r.Stat
	if stat == nil {
		stat = os.Stat
	}
	if _, err := stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrCredentialsFileNotFound, path)
		}
		return "", fmt.Errorf("checking %s: %w", path, err)
	}
	return path, nil
}

// TerminalPrompter prompts on Out and reads from In. Secrets are read without
// echo when In is a terminal.
type TerminalPrompter struct {
	In     *os.File
	Out    io.Writer
	reader *bufio.Reader
}

// NewTerminalPrompter prompts on stderr and reads stdin.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// Prompt implements Prompter.
func (p *TerminalPrompter) Prompt(message string, secret bool) (string, error) {
	if _, err := fmt.Fprint(p.Out, message); err != nil {
		return "", err
	}

	fd := int(p.In.Fd())
	if secret && term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
