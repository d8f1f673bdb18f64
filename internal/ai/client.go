package ai

import (
	"fmt"
	"strings"
	"sync"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"ai-course-tutor/config"
)

// Options selects the provider. With provider "azure" every model goes
// through its deployment URL under AzureEndpoint.
type Options struct {
	APIKey        string
	Provider      string
	AzureEndpoint string
}

// Client issues provider calls for any registered model. SDK clients are
// built lazily per model because Azure scopes the base URL per deployment.
type Client struct {
	opts     Options
	registry *Registry

	mu      sync.Mutex
	clients map[string]openai.Client
}

func NewClient(opts Options, registry *Registry) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%v: missing api key", config.ModuleOpenAI)
	}
	if opts.Provider == "azure" && opts.AzureEndpoint == "" {
		return nil, fmt.Errorf("%v: azure provider requires an endpoint", config.ModuleOpenAI)
	}
	return &Client{
		opts:     opts,
		registry: registry,
		clients:  make(map[string]openai.Client),
	}, nil
}

func (c *Client) forModel(model string) (openai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[model]; ok {
		return cl, nil
	}

	m, err := c.registry.Lookup(model)
	if err != nil {
		return openai.Client{}, err
	}

	var cl openai.Client
	if c.opts.Provider == "azure" {
		base := strings.TrimSuffix(c.opts.AzureEndpoint, "/")
		cl = openai.NewClient(
			option.WithBaseURL(base+"/openai/deployments/"+m.AzureDeployment),
			option.WithQuery("api-version", m.APIVersion),
			option.WithHeader("api-key", c.opts.APIKey),
		)
	} else {
		cl = openai.NewClient(option.WithAPIKey(c.opts.APIKey))
	}
	c.clients[model] = cl
	return cl, nil
}
