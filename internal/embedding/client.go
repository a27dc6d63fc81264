package embedding

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
)

// Client wraps the OpenAI client shared by embedding and answer
// generation.
type Client struct {
	client *openai.Client
}

// NewClient creates the OpenAI client. The API key comes from the
// OPENAI_API_KEY environment variable and is never read from
// configuration files; a missing key is an error here rather than on the
// first request.
func NewClient() (*Client, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	// openai-go reads OPENAI_API_KEY from the environment itself.
	client := openai.NewClient()

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for packages that issue
// their own calls, such as answer generation.
func (c *Client) Client() *openai.Client {
	return c.client
}
