package adapters

import (
	"context"
	"fmt"

	"github.com/dshills/dapcore/dap"
)

// Connect creates the adapter named by config.Type, reaches it
// (spawning a process and/or dialing a socket per its descriptor), and
// returns a ready dap.Client wired to it. The caller is responsible
// for Initialize/Launch/Attach and for eventually calling Close. A nil
// logger is replaced with dap.NopLogger.
func Connect(ctx context.Context, registry *Registry, config Config, logger dap.Logger, opts ...dap.Option) (*dap.Client, Adapter, error) {
	if logger == nil {
		logger = dap.NopLogger{}
	}

	adapter, err := registry.Create(config)
	if err != nil {
		return nil, nil, fmt.Errorf("adapters: create %s adapter: %w", config.Type, err)
	}
	if err := adapter.Validate(); err != nil {
		return nil, nil, fmt.Errorf("adapters: invalid %s config: %w", config.Type, err)
	}

	descriptor, err := adapter.GetDescriptor()
	if err != nil {
		return nil, nil, fmt.Errorf("adapters: describe %s adapter: %w", config.Type, err)
	}

	transport, err := Dial(ctx, descriptor, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("adapters: connect to %s adapter: %w", config.Type, err)
	}

	clientOpts := append([]dap.Option{dap.WithLogger(logger)}, opts...)
	client, err := dap.NewClient(transport, clientOpts...)
	if err != nil {
		transport.Close()
		return nil, nil, fmt.Errorf("adapters: start %s client: %w", config.Type, err)
	}
	return client, adapter, nil
}
