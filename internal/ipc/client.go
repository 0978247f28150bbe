package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/runtimepath"
)

// Client handles IPC communication with a running session
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client for the default socket
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for an explicit socket path.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    DefaultRequestTimeout,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session: %w (is deskshell running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("session error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends command with an optional payload and decodes the response data
// into out when out is non-nil.
func (c *Client) call(command CommandType, payload, out interface{}) error {
	req := &Request{Command: command}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = raw
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// Reload asks the session to reload its configuration
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves session status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListWindows returns the managed windows, bottom of the stack first.
func (c *Client) ListWindows() ([]WindowInfo, error) {
	var data WindowsData
	if err := c.call(CommandListWindows, nil, &data); err != nil {
		return nil, err
	}
	return data.Windows, nil
}

// Notify posts a toast and returns its id.
func (c *Client) Notify(p NotifyPayload) (uint32, error) {
	var data IDData
	if err := c.call(CommandNotify, p, &data); err != nil {
		return 0, err
	}
	return data.ID, nil
}

func (c *Client) Dismiss(id uint32) error {
	return c.call(CommandDismiss, IDPayload{ID: id}, nil)
}

// DismissAll clears every visible toast and reports how many there were.
func (c *Client) DismissAll() (int, error) {
	var data CountData
	if err := c.call(CommandDismissAll, nil, &data); err != nil {
		return 0, err
	}
	return data.Count, nil
}

// History returns dismissed notifications, oldest first.
func (c *Client) History() ([]notify.Notification, error) {
	var data HistoryData
	if err := c.call(CommandHistory, nil, &data); err != nil {
		return nil, err
	}
	return data.Notifications, nil
}

func (c *Client) ShowOSD(kind string, value int) error {
	return c.call(CommandOSD, OSDPayload{Kind: kind, Value: value}, nil)
}

func (c *Client) Lock() error {
	return c.call(CommandLock, nil, nil)
}

// Screenshot captures the screen in the given mode ("full", "window" or
// "region").
func (c *Client) Screenshot(mode string) (*ScreenshotData, error) {
	var data ScreenshotData
	if err := c.call(CommandScreenshot, ScreenshotPayload{Mode: mode}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) Power(action string) error {
	return c.call(CommandPower, PowerPayload{Action: action}, nil)
}

// Launch starts a catalog application by (approximate) name.
func (c *Client) Launch(app string) (*LaunchData, error) {
	var data LaunchData
	if err := c.call(CommandLaunch, LaunchPayload{App: app}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) Focus(id uint32) error {
	return c.call(CommandFocus, IDPayload{ID: id}, nil)
}

func (c *Client) Close(id uint32) error {
	return c.call(CommandClose, IDPayload{ID: id}, nil)
}

// IsRunning checks whether a session answers on the socket
func (c *Client) IsRunning() bool {
	_, err := c.GetStatus()
	return err == nil
}
