package chat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// LineConn is a bidirectional stream of text lines. The TCP listener and the
// websocket gateway both hand one to the session handler.
type LineConn interface {
	// ReadLine returns the next line without its terminator.
	ReadLine() (string, error)
	// WriteLine writes one line and flushes it.
	WriteLine(line string) error
	RemoteAddr() string
	Close() error
}

// tcpConn frames a net.Conn as newline-delimited text.
type tcpConn struct {
	conn         net.Conn
	r            *bufio.Reader
	w            *bufio.Writer
	idleTimeout  time.Duration
	writeTimeout time.Duration
	maxLine      int
}

func newTCPConn(conn net.Conn, cfg Config) *tcpConn {
	return &tcpConn{
		conn:         conn,
		r:            bufio.NewReader(conn),
		w:            bufio.NewWriter(conn),
		idleTimeout:  cfg.IdleTimeout,
		writeTimeout: cfg.WriteTimeout,
		maxLine:      cfg.MaxLineLength,
	}
}

func (c *tcpConn) ReadLine() (string, error) {
	if c.idleTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
	}
	return readLine(c.r, c.maxLine)
}

func (c *tcpConn) WriteLine(line string) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	if _, err := c.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *tcpConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}

// readLine reads up to '\n' and strips "\r\n". A final unterminated line is
// returned as-is; io.EOF is only returned when nothing was read.
func readLine(r *bufio.Reader, max int) (string, error) {
	var sb strings.Builder
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				return sb.String(), nil
			}
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("read: %w", err)
		}
		sb.Write(chunk)
		if max > 0 && sb.Len() > max {
			return "", ErrLineTooLong
		}
		if !isPrefix {
			return strings.TrimSuffix(sb.String(), "\r"), nil
		}
	}
}
