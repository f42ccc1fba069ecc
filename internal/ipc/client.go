package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/softveil/softveil/internal/runtimepath"
)

// Client queries a running compositor over the status socket.
type Client struct {
	timeout time.Duration
}

// NewClient creates a status client with a sane timeout.
func NewClient() *Client {
	return &Client{timeout: 3 * time.Second}
}

// GetStatus asks the running compositor for its status.
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.roundTrip(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}
	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}
	return &status, nil
}

func (c *Client) roundTrip(req *Request) (*Response, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, err
	}

	conn, err := net.DialTimeout("unix", socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("compositor not running (no socket at %s): %w", socketPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("compositor returned error: %s", resp.Error)
	}
	return &resp, nil
}
