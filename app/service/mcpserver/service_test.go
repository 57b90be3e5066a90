package mcpserver

import (
	"context"
	"eleven/app/client/sysinfo"
	"eleven/app/config"
	"eleven/app/service/safety"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndexer struct {
	folders []string
	file    string
	limit   int
}

func (f *fakeIndexer) Query(_ context.Context, _ string, limit int) ([]string, error) {
	f.limit = limit
	return pie.Top(f.folders, limit), nil
}

func (f *fakeIndexer) FindFile(context.Context, string) (string, error) {
	return f.file, nil
}

func (f *fakeIndexer) Rescan(context.Context) (int, error) {
	return 321, nil
}

type fakeSystem struct {
	err error
}

func (f fakeSystem) Status(context.Context) (sysinfo.Status, error) {
	return sysinfo.Status{CPUPercent: 12, MemoryPercent: 40, MemoryFreeGB: 7.5, DiskPercent: 61}, f.err
}

func newClient(t *testing.T, indexer *fakeIndexer, system fakeSystem) *client.Client {
	t.Helper()

	cfg := config.Default()
	store := config.NewStore("", &cfg)

	s := NewService(store, indexer, system, safety.NewService(store))

	c, err := client.NewInProcessClient(s.Server())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Start(ctx))

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "eleven-test",
		Version: "1.0.0",
	}

	_, err = c.Initialize(ctx, initRequest)
	require.NoError(t, err)

	return c
}

func call(t *testing.T, c *client.Client, name string, args map[string]any) (string, bool) {
	t.Helper()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "unexpected content %T", res.Content[0])

	return text.Text, res.IsError
}

func TestListTools(t *testing.T) {
	c := newClient(t, &fakeIndexer{}, fakeSystem{})

	res, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)

	names := pie.Map(res.Tools, func(tool mcp.Tool) string { return tool.Name })
	assert.ElementsMatch(t, []string{
		"search_folders", "find_file", "rescan_folders", "system_status", "check_command", "get_personality",
	}, names)
}

func TestSearchFolders(t *testing.T) {
	indexer := &fakeIndexer{folders: []string{"/home/u/proyectos", "/home/u/work/proyectos", "/srv/proyectos", "/a", "/b", "/c"}}
	c := newClient(t, indexer, fakeSystem{})

	text, isErr := call(t, c, "search_folders", map[string]any{"name": "proyectos", "limit": 2})
	require.False(t, isErr)

	var out struct {
		Paths []string `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, []string{"/home/u/proyectos", "/home/u/work/proyectos"}, out.Paths)

	_, isErr = call(t, c, "search_folders", map[string]any{"name": "proyectos"})
	require.False(t, isErr)
	assert.Equal(t, defaultResults, indexer.limit)

	text, isErr = call(t, c, "search_folders", map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, text, "name")
}

func TestFindFile(t *testing.T) {
	indexer := &fakeIndexer{}
	c := newClient(t, indexer, fakeSystem{})

	text, isErr := call(t, c, "find_file", map[string]any{"name": "informe.pdf"})
	assert.True(t, isErr)
	assert.Equal(t, `file "informe.pdf" not found`, text)

	indexer.file = "/home/u/docs/informe.pdf"

	text, isErr = call(t, c, "find_file", map[string]any{"name": "informe.pdf"})
	assert.False(t, isErr)
	assert.Equal(t, "/home/u/docs/informe.pdf", text)
}

func TestRescanFolders(t *testing.T) {
	c := newClient(t, &fakeIndexer{}, fakeSystem{})

	text, isErr := call(t, c, "rescan_folders", nil)
	require.False(t, isErr)
	assert.JSONEq(t, `{"folders":321}`, text)
}

func TestSystemStatus(t *testing.T) {
	c := newClient(t, &fakeIndexer{}, fakeSystem{})

	text, isErr := call(t, c, "system_status", nil)
	require.False(t, isErr)
	assert.JSONEq(t, `{"cpu_percent":12,"memory_percent":40,"memory_free_gb":7.5,"disk_percent":61}`, text)

	c = newClient(t, &fakeIndexer{}, fakeSystem{err: errors.New("no /proc")})

	text, isErr = call(t, c, "system_status", nil)
	assert.True(t, isErr)
	assert.Equal(t, "no /proc", text)
}

func TestCheckCommand(t *testing.T) {
	c := newClient(t, &fakeIndexer{}, fakeSystem{})

	tests := []struct {
		command string
		level   string
		safe    bool
	}{
		{"ls -la", "safe", true},
		{"rm notas.txt", "sensitive", false},
		{"shutdown -h now", "forbidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			text, isErr := call(t, c, "check_command", map[string]any{"command": tt.command})
			require.False(t, isErr)

			var out struct {
				Level  string `json:"level"`
				Safe   bool   `json:"safe"`
				Reason string `json:"reason"`
			}
			require.NoError(t, json.Unmarshal([]byte(text), &out))

			assert.Equal(t, tt.level, out.Level)
			assert.Equal(t, tt.safe, out.Safe)
			assert.NotEmpty(t, out.Reason)
		})
	}
}

func TestGetPersonality(t *testing.T) {
	c := newClient(t, &fakeIndexer{}, fakeSystem{})

	text, isErr := call(t, c, "get_personality", nil)
	require.False(t, isErr)
	assert.JSONEq(t, `{"humor":50,"sarcasm":20,"sincerity":100,"professionalism":80}`, text)
}
