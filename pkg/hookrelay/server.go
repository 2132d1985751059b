package hookrelay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/osi4iot/hookrelay/internal/engine"
	"github.com/osi4iot/hookrelay/internal/hooks"
	"github.com/osi4iot/hookrelay/internal/security"
)

// Server answers dispatch and compose requests on a queue group, so several
// instances can share one subject.
type Server struct {
	id      string
	conn    *nats.Conn
	config  NATSConfig
	handler Handler
	logger  *slog.Logger
}

func connect(cfg NATSConfig, name string) (*nats.Conn, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{nats.Name(name)}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	return nats.Connect(url, opts...)
}

// NewServer connects to NATS. Call Serve to start answering requests.
func NewServer(cfg NATSConfig, handler Handler, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()

	conn, err := connect(cfg, "hookrelay-"+id)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Server{
		id:      id,
		conn:    conn,
		config:  cfg,
		handler: handler,
		logger:  logger.With("instance", id),
	}, nil
}

// ID returns the unique identifier of this server instance.
func (s *Server) ID() string {
	return s.id
}

// Serve subscribes and answers requests until ctx is done, then drains the
// subscription so in-flight requests still get a reply.
func (s *Server) Serve(ctx context.Context) error {
	sub, err := s.conn.QueueSubscribe(s.config.Subject, s.config.Queue, func(msg *nats.Msg) {
		reply := s.handle(ctx, msg.Data)
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(reply); err != nil {
			s.logger.Warn("failed to send reply", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.config.Subject, err)
	}
	s.logger.Info("serving", "subject", s.config.Subject, "queue", s.config.Queue)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		s.logger.Warn("failed to drain subscription", "error", err)
	}
	return nil
}

// Close closes the NATS connection.
func (s *Server) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *Server) handle(ctx context.Context, data []byte) []byte {
	var req Request
	if err := sonic.Unmarshal(data, &req); err != nil {
		return s.encode(Reply{ID: uuid.New().String(), Code: CodeInvalidRequest, Error: err.Error()})
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	log := s.logger.With("request", req.ID, "op", req.Op)
	reply := s.process(ctx, req)
	if reply.Code != "" {
		log.Debug("request refused", "code", reply.Code, "error", reply.Error)
	}
	return s.encode(reply)
}

func (s *Server) process(ctx context.Context, req Request) Reply {
	reply := Reply{ID: req.ID}

	switch req.Op {
	case "", OpDispatch:
		event, err := hooks.ParseEventKind(req.Event)
		if err != nil {
			reply.Code, reply.Error = CodeInvalidRequest, err.Error()
			return reply
		}
		decision := s.handler.Dispatch(ctx, hooks.Request{Event: event, Payload: req.Payload, Subject: req.Subject})
		reply.Decision = &decision

		payload, err := engine.Apply(event, req.Payload, decision)
		if err != nil {
			reply.Code, reply.Error = errorCode(err), err.Error()
			return reply
		}
		reply.Payload = payload

	case OpCompose:
		comp, err := s.handler.Compose(ctx, req.Text, engine.ComposeOptions{SessionID: req.SessionID})
		if err == nil || comp.Command != "" {
			reply.Composition = &comp
		}
		if err != nil {
			reply.Code, reply.Error = errorCode(err), err.Error()
		}

	default:
		reply.Code, reply.Error = CodeInvalidRequest, fmt.Sprintf("unknown op %q", req.Op)
	}
	return reply
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, hooks.ErrBlocked):
		return CodeBlocked
	case errors.Is(err, security.ErrRejected):
		return CodeRejected
	default:
		return CodeInternal
	}
}

func (s *Server) encode(reply Reply) []byte {
	data, err := sonic.Marshal(reply)
	if err != nil {
		s.logger.Error("failed to encode reply", "error", err)
		data, _ = sonic.Marshal(Reply{ID: reply.ID, Code: CodeInternal, Error: err.Error()})
	}
	return data
}
