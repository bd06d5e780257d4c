package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/sandevgo/aizen/internal/core"
	"github.com/sandevgo/aizen/pkg/log"
)

// ServerConfig represents an entry in mcp_config.json
type ServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// Manager connects to the configured stdio MCP servers and exposes their
// tools as one toolset. Tool discovery happens once at Start; external servers
// are an extension point, not a hot-reload surface.
type Manager struct {
	mu         sync.RWMutex
	configPath string
	config     Config
	clients    map[string]*client.Client
	defs       []core.ToolDefinition
}

func NewManager(ctx context.Context, configPath string) (*Manager, error) {
	mgr := &Manager{
		configPath: configPath,
		clients:    make(map[string]*client.Client),
	}
	if err := mgr.loadConfig(ctx); err != nil {
		return nil, err
	}
	return mgr, nil
}

// Enabled reports whether any servers are configured, letting the caller skip
// Start entirely for the common no-MCP setup.
func (m *Manager) Enabled() bool {
	return len(m.config.MCPServers) > 0
}

func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, srv := range m.config.MCPServers {
		log.FromCtx(ctx).Info().Str("server", name).Msg("starting mcp connection")

		cli, err := m.connectToServer(ctx, srv)
		if err != nil {
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		m.clients[name] = cli

		if err := m.discoverTools(ctx, name, cli); err != nil {
			return fmt.Errorf("failed to list tools of %s: %w", name, err)
		}
	}
	return nil
}

func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, cli := range m.clients {
		if err := cli.Close(); err != nil {
			log.FromCtx(ctx).Error().Err(err).Str("server", name).Msg("failed to close mcp client")
		}
	}
	return nil
}

// Definitions returns the tools discovered at Start, one entry per remote
// tool, qualified by server name.
func (m *Manager) Definitions() []core.ToolDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.ToolDefinition, len(m.defs))
	copy(out, m.defs)
	return out
}

func (m *Manager) discoverTools(ctx context.Context, serverName string, cli *client.Client) error {
	tCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := cli.ListTools(tCtx, mcpproto.ListToolsRequest{})
	if err != nil {
		return err
	}

	for _, t := range resp.Tools {
		schemaBytes, err := json.Marshal(t.InputSchema)
		if err != nil {
			return fmt.Errorf("marshal schema of %s: %w", t.Name, err)
		}

		toolName := t.Name
		m.defs = append(m.defs, core.ToolDefinition{
			Name:        serverName + "." + toolName,
			Description: t.Description,
			Schema:      string(schemaBytes),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				return m.callTool(ctx, cli, toolName, args)
			},
			Blocking: true,
		})
	}
	return nil
}

func (m *Manager) callTool(ctx context.Context, cli *client.Client, name string, args json.RawMessage) (string, error) {
	var argsMap map[string]interface{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &argsMap); err != nil {
			return "", fmt.Errorf("invalid json arguments: %w", err)
		}
	}

	req := mcpproto.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = argsMap

	res, err := cli.CallTool(ctx, req)
	if err != nil {
		return "", err
	}
	if res.IsError {
		return "", fmt.Errorf("tool execution failed")
	}

	var output string
	for _, content := range res.Content {
		if text, ok := content.(mcpproto.TextContent); ok {
			output += text.Text + "\n"
		} else if textPtr, ok := content.(*mcpproto.TextContent); ok {
			output += textPtr.Text + "\n"
		}
	}
	return output, nil
}

func (m *Manager) connectToServer(ctx context.Context, srv ServerConfig) (*client.Client, error) {
	var env []string
	for k, v := range srv.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	cli, err := client.NewStdioMCPClient(srv.Command, env, srv.Args...)
	if err != nil {
		return nil, err
	}

	if err := cli.Start(ctx); err != nil {
		return nil, err
	}

	initReq := mcpproto.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpproto.Implementation{
		Name:    core.AizenName,
		Version: core.AizenVersion,
	}
	initReq.Params.Capabilities = mcpproto.ClientCapabilities{}

	if _, err := cli.Initialize(ctx, initReq); err != nil {
		_ = cli.Close()
		return nil, err
	}

	return cli, nil
}

func (m *Manager) loadConfig(ctx context.Context) error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			m.config = Config{MCPServers: make(map[string]ServerConfig)}
			return nil
		}
		return fmt.Errorf("failed to read mcp config: %w", err)
	}

	if err := json.Unmarshal(data, &m.config); err != nil {
		return fmt.Errorf("failed to parse mcp config: %w", err)
	}
	return nil
}
