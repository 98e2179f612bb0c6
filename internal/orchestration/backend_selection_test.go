package orchestration

import (
	"io"
	"testing"

	"github.com/agbru/linemax/internal/config"
	"github.com/agbru/linemax/internal/dispatch"
	"github.com/agbru/linemax/internal/logging"
)

func TestNewDispatcher(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		want string
	}{
		{"", dispatch.BackendThreads},
		{"threads", dispatch.BackendThreads},
		{"LOOP", dispatch.BackendLoop},
		{"processes", dispatch.BackendProcesses},
		{"mpi", dispatch.BackendProcesses},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := NewDispatcher(tt.name, BackendOptions{})
			if err != nil {
				t.Fatalf("NewDispatcher(%q) returned error: %v", tt.name, err)
			}
			if d.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", d.Name(), tt.want)
			}
		})
	}
}

func TestNewDispatcher_Unknown(t *testing.T) {
	t.Parallel()
	if _, err := NewDispatcher("gpu", BackendOptions{}); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestDispatcherForConfig(t *testing.T) {
	t.Parallel()
	cfg := config.AppConfig{Backend: "processes", Transport: "nats", LogLevel: "warn"}
	d, err := DispatcherForConfig(cfg, "run-1", logging.Nop(), io.Discard)
	if err != nil {
		t.Fatalf("DispatcherForConfig returned error: %v", err)
	}
	if d.Name() != dispatch.BackendProcesses {
		t.Errorf("Name() = %q", d.Name())
	}
}
