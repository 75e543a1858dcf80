package smtp

import (
	"net"
	"sync"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/davidwuwu001/vmail/internal/config"
)

// Server 接收邮件的 SMTP 服务器。
type Server struct {
	srv     *gosmtp.Server
	addr    string
	limiter *ConnectionLimiter
	log     *zap.Logger
}

// NewServer 创建 SMTP 服务器。
func NewServer(cfg *config.SMTPConfig, backend *Backend, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	srv := gosmtp.NewServer(backend)
	srv.Addr = cfg.BindAddr
	srv.Domain = cfg.Domain
	srv.ReadTimeout = 60 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.MaxMessageBytes = maxMessageBytes
	srv.MaxRecipients = 50

	return &Server{
		srv:     srv,
		addr:    cfg.BindAddr,
		limiter: NewConnectionLimiter(cfg.MaxConns, cfg.MaxRate),
		log:     log,
	}
}

// ListenAndServe 启动监听，阻塞直到 Close 被调用或出错。
// 超出并发或速率限制的连接在握手前被直接关闭。
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.log.Info("smtp server listening", zap.String("addr", s.addr))
	return s.srv.Serve(&limitedListener{Listener: ln, limiter: s.limiter, log: s.log})
}

// Close 关闭服务器及全部活动连接。
func (s *Server) Close() error {
	return s.srv.Close()
}

// limitedListener 在 Accept 时应用连接限流。
type limitedListener struct {
	net.Listener
	limiter *ConnectionLimiter
	log     *zap.Logger
}

func (l *limitedListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		if !l.limiter.Acquire() {
			l.log.Warn("smtp connection rejected by limiter",
				zap.String("remote", conn.RemoteAddr().String()))
			conn.Close()
			continue
		}
		return &limitedConn{Conn: conn, limiter: l.limiter}, nil
	}
}

// limitedConn 关闭时释放连接许可，并发或重复 Close 只释放一次。
type limitedConn struct {
	net.Conn
	limiter *ConnectionLimiter
	release sync.Once
}

func (c *limitedConn) Close() error {
	c.release.Do(c.limiter.Release)
	return c.Conn.Close()
}
