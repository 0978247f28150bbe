package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/runtimepath"
	"github.com/1broseidon/deskshell/internal/screenshot"
	"github.com/1broseidon/deskshell/internal/session"
)

// DefaultRequestTimeout bounds how long one request may wait for the shell.
const DefaultRequestTimeout = 5 * time.Second

// Handler carries out validated control requests. Implementations must be
// safe to call from the server's connection goroutines.
type Handler interface {
	Status(ctx context.Context) (StatusData, error)
	Windows(ctx context.Context) ([]WindowInfo, error)
	Notify(ctx context.Context, app, summary, body string, opts ...notify.Option) (uint32, error)
	Dismiss(ctx context.Context, id uint32) error
	DismissAll(ctx context.Context) (int, error)
	History(ctx context.Context) ([]notify.Notification, error)
	ShowOSD(ctx context.Context, kind notify.OSDKind, value int) error
	Lock(ctx context.Context) error
	Screenshot(ctx context.Context, mode screenshot.CaptureMode) (ScreenshotData, error)
	Power(ctx context.Context, action session.Action) error
	Launch(ctx context.Context, name string) (LaunchData, error)
	Focus(ctx context.Context, id uint32) error
	Close(ctx context.Context, id uint32) error
	Reload(ctx context.Context) error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	handler      Handler
	timeout      time.Duration
	shuttingDown bool
	shutdownMu   sync.Mutex
	wg           sync.WaitGroup
}

// NewServer creates a new IPC server. An empty socketPath selects the
// default runtime socket.
func NewServer(socketPath string, handler Handler) (*Server, error) {
	if handler == nil {
		return nil, errors.New("ipc: nil handler")
	}
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}

	// Remove a stale socket left by a previous session
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		handler:    handler,
		timeout:    DefaultRequestTimeout,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping() {
				return
			}
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) stopping() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

// handleConnection serves one request per connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	resp := s.handleCommand(ctx, req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand validates the payload of req and dispatches it to the handler.
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	switch req.Command {
	case CommandReload:
		log.Println("IPC: Received RELOAD command")
		return reply(nil, s.handler.Reload(ctx))
	case CommandGetStatus:
		status, err := s.handler.Status(ctx)
		return reply(status, err)
	case CommandListWindows:
		windows, err := s.handler.Windows(ctx)
		if windows == nil {
			windows = []WindowInfo{}
		}
		return reply(WindowsData{Windows: windows}, err)
	case CommandNotify:
		return s.handleNotify(ctx, req.Payload)
	case CommandDismiss:
		var p IDPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid dismiss payload: %v", err))
		}
		return reply(nil, s.handler.Dismiss(ctx, p.ID))
	case CommandDismissAll:
		n, err := s.handler.DismissAll(ctx)
		return reply(CountData{Count: n}, err)
	case CommandHistory:
		entries, err := s.handler.History(ctx)
		if entries == nil {
			entries = []notify.Notification{}
		}
		return reply(HistoryData{Notifications: entries}, err)
	case CommandOSD:
		var p OSDPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid osd payload: %v", err))
		}
		kind, err := notify.ParseOSDKind(p.Kind)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		return reply(nil, s.handler.ShowOSD(ctx, kind, p.Value))
	case CommandLock:
		log.Println("IPC: Received LOCK command")
		return reply(nil, s.handler.Lock(ctx))
	case CommandScreenshot:
		var p ScreenshotPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid screenshot payload: %v", err))
		}
		if p.Mode == "" {
			p.Mode = screenshot.FullScreen.String()
		}
		mode, err := screenshot.ParseMode(p.Mode)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		data, err := s.handler.Screenshot(ctx, mode)
		return reply(data, err)
	case CommandPower:
		var p PowerPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid power payload: %v", err))
		}
		action, err := session.ParseAction(p.Action)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		log.Printf("IPC: Received POWER %s", action)
		return reply(nil, s.handler.Power(ctx, action))
	case CommandLaunch:
		var p LaunchPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid launch payload: %v", err))
		}
		if p.App == "" {
			return NewErrorResponse("app is required")
		}
		data, err := s.handler.Launch(ctx, p.App)
		return reply(data, err)
	case CommandFocus:
		var p IDPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid focus payload: %v", err))
		}
		return reply(nil, s.handler.Focus(ctx, p.ID))
	case CommandClose:
		var p IDPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid close payload: %v", err))
		}
		return reply(nil, s.handler.Close(ctx, p.ID))
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleNotify(ctx context.Context, payload json.RawMessage) *Response {
	var p NotifyPayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid notify payload: %v", err))
	}
	if p.Summary == "" {
		return NewErrorResponse("summary is required")
	}
	if p.App == "" {
		p.App = "deskshell"
	}

	opts, err := notifyOptions(p)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	id, err := s.handler.Notify(ctx, p.App, p.Summary, p.Body, opts...)
	return reply(IDData{ID: id}, err)
}

// notifyOptions converts a payload into notification options. An explicit
// timeout is applied after the urgency so it overrides the critical default.
func notifyOptions(p NotifyPayload) ([]notify.Option, error) {
	var opts []notify.Option
	if p.Urgency != "" {
		u, err := notify.ParseUrgency(p.Urgency)
		if err != nil {
			return nil, err
		}
		opts = append(opts, notify.WithUrgency(u))
	}
	if p.TimeoutMS != nil {
		if *p.TimeoutMS < 0 {
			return nil, fmt.Errorf("timeout_ms must not be negative, got %d", *p.TimeoutMS)
		}
		opts = append(opts, notify.WithTimeout(time.Duration(*p.TimeoutMS)*time.Millisecond))
	}
	if p.Icon != "" {
		opts = append(opts, notify.WithIcon(p.Icon))
	}
	if p.Progress != nil {
		opts = append(opts, notify.WithProgress(*p.Progress))
	}
	for _, a := range p.Actions {
		if a.ID == "" {
			return nil, errors.New("action id is required")
		}
		opts = append(opts, notify.WithAction(a.ID, a.Label))
	}
	return opts, nil
}

// decodePayload rejects unknown fields so typos in hand-written requests
// surface as errors.
func decodePayload(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func reply(data interface{}, err error) *Response {
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
		s.wg.Wait()
	}
	os.Remove(s.socketPath)
}
