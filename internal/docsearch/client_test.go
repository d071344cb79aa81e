package docsearch

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresServerURL(t *testing.T) {
	_, err := NewClient(nil, nil)
	require.Error(t, err)

	_, err = NewClient(&Config{ServerLabel: "mslearn"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server url is required")
}

func TestNewClient_Label(t *testing.T) {
	client, err := NewClient(&Config{
		ServerURL:   "https://learn.microsoft.com/api/mcp",
		ServerLabel: "mslearn",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mslearn", client.Label())
}

func TestContentText(t *testing.T) {
	text := contentText([]mcp.Content{
		&mcp.TextContent{Text: "first"},
		&mcp.TextContent{Text: ""},
		&mcp.TextContent{Text: "second"},
	})
	assert.Equal(t, "first\nsecond", text)

	assert.Equal(t, "", contentText(nil))
}
