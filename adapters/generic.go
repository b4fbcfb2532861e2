package adapters

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// GenericConfig extends Config for an arbitrary DAP adapter executable
// the caller already knows how to invoke and how to detect readiness
// for, when it runs in server mode.
type GenericConfig struct {
	Config

	// AdapterArgs are additional arguments passed to AdapterPath.
	AdapterArgs []string `json:"adapterArgs,omitempty"`

	// LaunchArgs are passed through verbatim as the launch request's
	// arguments; the generic adapter has no language-specific fields
	// to translate them from.
	LaunchArgs map[string]interface{} `json:"launchArgs,omitempty"`

	// AttachArgs are passed through verbatim as the attach request's
	// arguments.
	AttachArgs map[string]interface{} `json:"attachArgs,omitempty"`

	// ReadyOutput is a substring of the adapter's stdout or stderr
	// that signals it is listening on Port. Required when Port is
	// set, since a generic adapter's banner format isn't known ahead
	// of time.
	ReadyOutput string `json:"readyOutput,omitempty"`
}

// GenericAdapter implements the Adapter interface for any DAP adapter
// executable the caller already knows how to invoke, configured
// entirely through Config/GenericConfig rather than language-specific
// launch logic.
type GenericAdapter struct {
	config GenericConfig
}

// NewGenericAdapter creates a new generic adapter.
func NewGenericAdapter(baseConfig Config) (Adapter, error) {
	return &GenericAdapter{config: GenericConfig{Config: baseConfig}}, nil
}

// NewGenericAdapterWithConfig creates a generic adapter with full configuration.
func NewGenericAdapterWithConfig(config GenericConfig) (*GenericAdapter, error) {
	return &GenericAdapter{config: config}, nil
}

// Type returns the adapter type.
func (a *GenericAdapter) Type() AdapterType {
	return AdapterGeneric
}

// Name returns a human-readable adapter name.
func (a *GenericAdapter) Name() string {
	if a.config.Name != "" {
		return a.config.Name
	}
	return "Generic DAP Adapter"
}

// Validate validates the configuration.
func (a *GenericAdapter) Validate() error {
	if a.config.AdapterPath == "" {
		return fmt.Errorf("adapterPath is required for the generic adapter")
	}
	if a.config.Port > 0 && a.config.ReadyOutput == "" {
		return fmt.Errorf("readyOutput is required when port is set, to detect when the adapter is listening")
	}
	return nil
}

// GetCommand returns the command to start the adapter.
func (a *GenericAdapter) GetCommand() (*exec.Cmd, error) {
	if a.config.AdapterPath == "" {
		return nil, fmt.Errorf("adapterPath is required for the generic adapter")
	}

	cmd := exec.Command(a.config.AdapterPath, a.config.AdapterArgs...)

	if a.config.Cwd != "" {
		cmd.Dir = a.config.Cwd
	}

	cmd.Env = os.Environ()
	for k, v := range a.config.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	return cmd, nil
}

// GetLaunchArgs returns the arguments for the launch request.
func (a *GenericAdapter) GetLaunchArgs() (interface{}, error) {
	if a.config.LaunchArgs != nil {
		return a.config.LaunchArgs, nil
	}
	args := map[string]interface{}{
		"program":     a.config.Program,
		"stopOnEntry": a.config.StopOnEntry,
	}
	if len(a.config.Args) > 0 {
		args["args"] = a.config.Args
	}
	if a.config.Cwd != "" {
		args["cwd"] = a.config.Cwd
	}
	if len(a.config.Env) > 0 {
		args["env"] = a.config.Env
	}
	return args, nil
}

// GetAttachArgs returns the arguments for the attach request.
func (a *GenericAdapter) GetAttachArgs() (interface{}, error) {
	if a.config.AttachArgs != nil {
		return a.config.AttachArgs, nil
	}
	args := map[string]interface{}{}
	if a.config.ProcessID > 0 {
		args["processId"] = a.config.ProcessID
	}
	if a.config.Port > 0 {
		args["port"] = a.config.Port
		args["host"] = a.getHost()
	}
	return args, nil
}

// GetDescriptor returns how to reach this adapter. With no port
// configured, the adapter is assumed to speak DAP over its own
// stdio, the common case for an out-of-process adapter binary. With a
// port configured, it's spawned in server mode and ReadyOutput is
// matched against its stdout/stderr to learn when the port is live,
// since a caller-supplied generic adapter has no banner format we can
// assume in advance.
func (a *GenericAdapter) GetDescriptor() (Descriptor, error) {
	cmd, err := a.GetCommand()
	if err != nil {
		return Descriptor{}, err
	}
	if a.config.Port <= 0 {
		return Descriptor{Kind: DescriptorStdio, Command: cmd}, nil
	}
	port := a.config.Port
	return Descriptor{
		Kind:          DescriptorServer,
		ServerCommand: cmd,
		PortDetect:    genericPortDetect(port, a.config.ReadyOutput),
		Fingerprint:   fmt.Sprintf("generic:%s:%d", a.config.AdapterPath, port),
		Host:          a.getHost(),
	}, nil
}

// genericPortDetect reports the caller-configured port once a line of
// the adapter's output contains the caller-configured ready marker.
func genericPortDetect(port int, marker string) PortDetector {
	return func(line string) (int, bool) {
		if marker == "" {
			return 0, false
		}
		if strings.Contains(line, marker) {
			return port, true
		}
		return 0, false
	}
}

func (a *GenericAdapter) getHost() string {
	if a.config.Host != "" {
		return a.config.Host
	}
	return "127.0.0.1"
}
