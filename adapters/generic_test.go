package adapters

import "testing"

func TestGenericAdapter_Validate_MissingPath(t *testing.T) {
	adapter, _ := NewGenericAdapter(Config{Type: AdapterGeneric})
	if err := adapter.Validate(); err == nil {
		t.Error("expected error for missing adapterPath")
	}
}

func TestGenericAdapter_Validate_MissingReadyOutput(t *testing.T) {
	config := GenericConfig{
		Config: Config{
			Type:        AdapterGeneric,
			AdapterPath: "/usr/local/bin/my-dap-adapter",
			Port:        4711,
		},
	}
	adapter, _ := NewGenericAdapterWithConfig(config)
	if err := adapter.Validate(); err == nil {
		t.Error("expected error for missing readyOutput when port is set")
	}
}

func TestGenericAdapter_Validate_OK(t *testing.T) {
	config := GenericConfig{
		Config: Config{
			Type:        AdapterGeneric,
			AdapterPath: "/usr/local/bin/my-dap-adapter",
		},
	}
	adapter, _ := NewGenericAdapterWithConfig(config)
	if err := adapter.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGenericAdapter_GetDescriptor_Stdio(t *testing.T) {
	config := GenericConfig{
		Config: Config{
			Type:        AdapterGeneric,
			AdapterPath: "/usr/local/bin/my-dap-adapter",
		},
	}
	adapter, _ := NewGenericAdapterWithConfig(config)
	d, err := adapter.GetDescriptor()
	if err != nil {
		t.Fatalf("GetDescriptor: %v", err)
	}
	if d.Kind != DescriptorStdio {
		t.Errorf("expected DescriptorStdio, got %v", d.Kind)
	}
}

func TestGenericAdapter_GetDescriptor_Server(t *testing.T) {
	config := GenericConfig{
		Config: Config{
			Type:        AdapterGeneric,
			AdapterPath: "/usr/local/bin/my-dap-adapter",
			Port:        4711,
		},
		ReadyOutput: "adapter ready",
	}
	adapter, _ := NewGenericAdapterWithConfig(config)
	d, err := adapter.GetDescriptor()
	if err != nil {
		t.Fatalf("GetDescriptor: %v", err)
	}
	if d.Kind != DescriptorServer {
		t.Errorf("expected DescriptorServer, got %v", d.Kind)
	}
	if port, ok := d.PortDetect("2026-07-30 adapter ready on port 4711"); !ok || port != 4711 {
		t.Errorf("PortDetect: got (%d, %v), want (4711, true)", port, ok)
	}
	if _, ok := d.PortDetect("unrelated log line"); ok {
		t.Error("expected PortDetect to reject an unrelated line")
	}
}

func TestGenericAdapter_GetLaunchArgs_Passthrough(t *testing.T) {
	config := GenericConfig{
		Config: Config{
			Type:        AdapterGeneric,
			AdapterPath: "/usr/local/bin/my-dap-adapter",
		},
		LaunchArgs: map[string]interface{}{"custom": "value"},
	}
	adapter, _ := NewGenericAdapterWithConfig(config)
	args, err := adapter.GetLaunchArgs()
	if err != nil {
		t.Fatalf("GetLaunchArgs: %v", err)
	}
	m, ok := args.(map[string]interface{})
	if !ok || m["custom"] != "value" {
		t.Errorf("expected passthrough launch args, got %v", args)
	}
}
