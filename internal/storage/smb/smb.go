// Package smb serves a share over SMB2/3 using an NTLM session. One TCP
// connection and session are dialed lazily per Store and reused until
// Close.
package smb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hirochachacha/go-smb2"

	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/models"
)

// NTSTATUS codes mapped onto os errors.
const (
	statusNoSuchFile          uint32 = 0xC000000F
	statusObjectNameNotFound  uint32 = 0xC0000034
	statusObjectNameCollision uint32 = 0xC0000035
	statusObjectPathNotFound  uint32 = 0xC000003A
)

// Config holds the connection parameters.
type Config struct {
	Host        string
	Port        int
	Share       string
	User        string
	Password    string
	Domain      string
	DialTimeout time.Duration
}

// Store is a Share backed by an SMB server. The session is dialed on first
// use and re-dialed after a transport failure.
type Store struct {
	cfg    Config
	logger *events.Logger

	mu      sync.Mutex
	conn    net.Conn
	session *smb2.Session
	share   *smb2.Share
}

// New validates cfg and returns an undialed store.
func New(cfg Config, logger *events.Logger) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smb host is required")
	}
	if cfg.Share == "" {
		return nil, fmt.Errorf("smb share is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 445
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 15 * time.Second
	}

	return &Store{
		cfg: cfg,
		logger: logger.WithFields(map[string]interface{}{
			"component": "smb_store",
			"host":      cfg.Host,
			"share":     cfg.Share,
		}),
	}, nil
}

// Scheme implements storage.Share.
func (s *Store) Scheme() string {
	return "smb"
}

// Stat returns entry metadata.
func (s *Store) Stat(ctx context.Context, p string) (models.FileInfo, error) {
	fs, err := s.mount(ctx)
	if err != nil {
		return models.FileInfo{}, err
	}

	info, err := fs.Stat(sharePath(p))
	if err != nil {
		return models.FileInfo{}, fmt.Errorf("stat %s: %w", p, s.fail(err))
	}
	return toFileInfo(cleanPath(p), info), nil
}

// Exists checks if an entry exists.
func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.Stat(ctx, p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// OpenRead opens a remote file for reading.
func (s *Store) OpenRead(ctx context.Context, p string) (io.ReadCloser, error) {
	fs, err := s.mount(ctx)
	if err != nil {
		return nil, err
	}

	f, err := fs.Open(sharePath(p))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, s.fail(err))
	}
	return f, nil
}

// OpenWrite creates or truncates a remote file.
func (s *Store) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	fs, err := s.mount(ctx)
	if err != nil {
		return nil, err
	}

	f, err := fs.OpenFile(sharePath(p), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", p, s.fail(err))
	}
	return f, nil
}

// ListDir returns the direct children of a directory.
func (s *Store) ListDir(ctx context.Context, p string) ([]models.FileInfo, error) {
	fs, err := s.mount(ctx)
	if err != nil {
		return nil, err
	}

	infos, err := fs.ReadDir(sharePath(p))
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", p, s.fail(err))
	}

	dir := cleanPath(p)
	entries := make([]models.FileInfo, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, toFileInfo(path.Join(dir, info.Name()), info))
	}
	return entries, nil
}

// Mkdir creates a single directory.
func (s *Store) Mkdir(ctx context.Context, p string) error {
	fs, err := s.mount(ctx)
	if err != nil {
		return err
	}

	if err := fs.Mkdir(sharePath(p), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", p, s.fail(err))
	}
	return nil
}

// MkdirAll creates a directory and any missing parents.
func (s *Store) MkdirAll(ctx context.Context, p string) error {
	fs, err := s.mount(ctx)
	if err != nil {
		return err
	}

	name := sharePath(p)
	if name == "" {
		return nil
	}
	if err := fs.MkdirAll(name, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", p, s.fail(err))
	}
	return nil
}

// Delete removes a file or an empty directory.
func (s *Store) Delete(ctx context.Context, p string) error {
	fs, err := s.mount(ctx)
	if err != nil {
		return err
	}

	if err := fs.Remove(sharePath(p)); err != nil {
		return fmt.Errorf("remove %s: %w", p, s.fail(err))
	}
	return nil
}

// Rename moves an entry. An existing destination file is replaced.
func (s *Store) Rename(ctx context.Context, oldPath, newPath string) error {
	fs, err := s.mount(ctx)
	if err != nil {
		return err
	}

	from, to := sharePath(oldPath), sharePath(newPath)
	err = fs.Rename(from, to)
	if err != nil && errors.Is(mapError(err), os.ErrExist) {
		if rmErr := fs.Remove(to); rmErr == nil {
			err = fs.Rename(from, to)
		}
	}
	if err != nil {
		return fmt.Errorf("rename %s to %s: %w", oldPath, newPath, s.fail(err))
	}
	return nil
}

// Close unmounts the share and logs off the session.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.share != nil {
		if err := s.share.Umount(); err != nil {
			errs = append(errs, fmt.Errorf("umount: %w", err))
		}
	}
	if s.session != nil {
		if err := s.session.Logoff(); err != nil {
			errs = append(errs, fmt.Errorf("logoff: %w", err))
		}
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}

	s.share, s.session, s.conn = nil, nil, nil
	return errors.Join(errs...)
}

// fail maps err for callers. A transport-level failure drops the session so
// the next call dials again.
func (s *Store) fail(err error) error {
	if isConnectionError(err) {
		s.mu.Lock()
		s.resetLocked()
		s.mu.Unlock()
		s.logger.WithError(err).Warn("SMB connection lost")
	}
	return mapError(err)
}

// resetLocked forgets a broken session without talking to the server.
func (s *Store) resetLocked() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.share, s.session, s.conn = nil, nil, nil
}

// isConnectionError reports whether err came from the network layer rather
// than from an SMB status.
func isConnectionError(err error) bool {
	var terr *smb2.TransportError
	if errors.As(err, &terr) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrUnexpectedEOF)
}

// mount dials and mounts on first use and binds ctx to the share.
func (s *Store) mount(ctx context.Context) (*smb2.Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.share == nil {
		if err := s.dialLocked(ctx); err != nil {
			return nil, err
		}
	}
	return s.share.WithContext(ctx), nil
}

func (s *Store) dialLocked(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	s.logger.WithField("addr", addr).Debug("Dialing SMB server")

	dialer := &net.Dialer{Timeout: s.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     s.cfg.User,
			Password: s.cfg.Password,
			Domain:   s.cfg.Domain,
		},
	}

	session, err := d.DialContext(ctx, conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smb session setup: %w", err)
	}

	share, err := session.Mount(MountName(s.cfg.Host, s.cfg.Share))
	if err != nil {
		_ = session.Logoff()
		conn.Close()
		return fmt.Errorf("mount share %s: %w", s.cfg.Share, err)
	}

	s.conn, s.session, s.share = conn, session, share
	s.logger.Info("Mounted SMB share")
	return nil
}

// MountName returns the UNC name of a share, e.g. \\host\share.
func MountName(host, share string) string {
	return `\\` + host + `\` + strings.Trim(share, `/\`)
}

func cleanPath(p string) string {
	return path.Clean("/" + p)
}

// sharePath converts a slash path to the backslash form relative to the
// share root. The root itself is the empty string.
func sharePath(p string) string {
	return strings.ReplaceAll(strings.TrimPrefix(cleanPath(p), "/"), "/", `\`)
}

// mapError attaches os.ErrNotExist or os.ErrExist to server status codes.
func mapError(err error) error {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrExist) {
		return err
	}

	var rerr *smb2.ResponseError
	if errors.As(err, &rerr) {
		switch rerr.Code {
		case statusNoSuchFile, statusObjectNameNotFound, statusObjectPathNotFound:
			return fmt.Errorf("%w: %v", os.ErrNotExist, err)
		case statusObjectNameCollision:
			return fmt.Errorf("%w: %v", os.ErrExist, err)
		}
	}
	return err
}

func toFileInfo(p string, info os.FileInfo) models.FileInfo {
	return models.FileInfo{
		Name:    path.Base(p),
		Path:    p,
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
}
