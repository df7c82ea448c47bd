package storage

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPDeliverer uploads artifacts to BasePath+name on an FTP server. Each
// delivery uses its own connection.
type FTPDeliverer struct {
	Host     string
	User     string
	Password string
	BasePath string
	Timeout  time.Duration
}

// RemotePath is where an artifact called name is stored.
func (f *FTPDeliverer) RemotePath(name string) string {
	return f.BasePath + name
}

func (f *FTPDeliverer) addr() string {
	if _, _, err := net.SplitHostPort(f.Host); err == nil {
		return f.Host
	}
	return net.JoinHostPort(f.Host, "21")
}

func (f *FTPDeliverer) Deliver(ctx context.Context, name string, data []byte) (string, error) {
	path := f.RemotePath(name)

	conn, err := ftp.Dial(f.addr(),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(f.Timeout),
	)
	if err != nil {
		return "", fmt.Errorf("ftp: connect to %s: %w", f.Host, err)
	}
	defer conn.Quit()

	if err := conn.Login(f.User, f.Password); err != nil {
		return "", fmt.Errorf("ftp: login to %s as %s: %w", f.Host, f.User, err)
	}
	if err := conn.Stor(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("ftp: store %s on %s (user %s): %w", path, f.Host, f.User, err)
	}
	return path, nil
}
